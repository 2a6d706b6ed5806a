package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"google_reviews/internal/adapters/observability"
	"google_reviews/internal/bootstrap"
	"google_reviews/internal/shared"
)

// cli carries what every subcommand needs once PersistentPreRunE has run.
type cli struct {
	out  io.Writer
	cfg  shared.Config
	deps *bootstrap.Deps
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}
	root := &cobra.Command{
		Use:   "reviewsctl",
		Short: "Setup helper for the Google reviews service",
		Long: `reviewsctl walks through the one-time setup of the reviews service.

Example usage:
  reviewsctl auth-url                 # print the Google consent URL
  reviewsctl exchange <code>          # trade the code for a refresh token
  reviewsctl accounts                 # list Business Profile accounts
  reviewsctl locations --all          # list locations of every account
  reviewsctl find-place "Cafe Warsaw" # look up a place id for the Places fallback
  reviewsctl reviews                  # fetch reviews through the configured source`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.cfg = shared.Load()
			log.Logger = observability.NewLoggerTo(c.cfg.AppEnv, os.Stderr)
			deps, err := bootstrap.Build(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			c.deps = deps
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.deps != nil {
				c.deps.Close()
			}
		},
	}

	root.AddCommand(
		c.authURLCmd(),
		c.exchangeCmd(),
		c.accountsCmd(),
		c.locationsCmd(),
		c.findPlaceCmd(),
		c.reviewsCmd(),
	)
	return root
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
