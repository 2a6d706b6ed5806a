package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/semaphore"

	"google_reviews/internal/domain"
)

func (c *cli) authURLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth-url",
		Short: "Print the Google consent URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := c.deps.Setup.AuthURL(uuid.NewString())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.out, u)
			return err
		},
	}
}

func (c *cli) exchangeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exchange <code>",
		Short: "Exchange an authorization code for tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := c.deps.Setup.CompleteAuth(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return c.printJSON(g)
		},
	}
}

func (c *cli) accountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "List Business Profile accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			accounts, err := c.deps.Setup.Accounts(cmd.Context())
			if err != nil {
				return err
			}
			return c.printJSON(accounts)
		},
	}
}

type accountLocations struct {
	AccountID string            `json:"accountId"`
	Locations []domain.Location `json:"locations"`
	Error     string            `json:"error,omitempty"`
}

func (c *cli) locationsCmd() *cobra.Command {
	var (
		all     bool
		workers int
	)
	cmd := &cobra.Command{
		Use:   "locations [accountId]",
		Short: "List locations of an account (default GBP_ACCOUNT_ID)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all {
				var id string
				if len(args) == 1 {
					id = args[0]
				}
				accountID, locs, err := c.deps.Setup.Locations(cmd.Context(), id)
				if err != nil {
					return err
				}
				return c.printJSON(accountLocations{AccountID: accountID, Locations: locs})
			}
			return c.allLocations(cmd, workers)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list locations of every account")
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent location requests with --all")
	return cmd
}

// allLocations fans out one request per account, at most workers at a time.
// A failing account is reported in its entry and does not stop the others.
func (c *cli) allLocations(cmd *cobra.Command, workers int) error {
	ctx := cmd.Context()
	accounts, err := c.deps.Setup.Accounts(ctx)
	if err != nil {
		return err
	}
	if workers <= 0 {
		workers = 1
	}

	out := make([]accountLocations, len(accounts))
	sem := semaphore.NewWeighted(int64(workers))
	var wg sync.WaitGroup

	for i, a := range accounts {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(i int, accountID string) {
			defer wg.Done()
			defer sem.Release(1)

			_, locs, err := c.deps.Setup.Locations(ctx, accountID)
			out[i] = accountLocations{AccountID: accountID, Locations: locs}
			if err != nil {
				log.Warn().Str("account", accountID).Err(err).Msg("list locations failed")
				out[i].Error = err.Error()
				return
			}
			log.Debug().Str("account", accountID).Int("locations", len(locs)).Msg("locations listed")
		}(i, a.ID)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.printJSON(out)
}

func (c *cli) findPlaceCmd() *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   "find-place [query]",
		Short: "Look up Google place ids (default query BUSINESS_NAME)",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.deps.Setup.FindPlace(cmd.Context(), strings.Join(args, " "), location)
			if errors.Is(err, domain.ErrNoResults) {
				return fmt.Errorf("no places found for %q; try adding the city or the exact Maps listing name", res.Query)
			}
			if err != nil {
				return err
			}
			return c.printJSON(res.Candidates)
		},
	}
	cmd.Flags().StringVar(&location, "location", "", `bias the search towards "lat,lng"`)
	return cmd
}

func (c *cli) reviewsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reviews",
		Short: "Fetch reviews through the configured source, bypassing the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := c.deps.Reviews.Reviews(cmd.Context(), true)
			if err != nil {
				return err
			}
			return c.printJSON(resp)
		},
	}
}
