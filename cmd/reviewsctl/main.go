// Command reviewsctl runs the one-time setup flow (OAuth consent, account,
// location and place discovery) without exposing the HTTP service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("reviewsctl failed")
		stop()
		os.Exit(1)
	}
}
