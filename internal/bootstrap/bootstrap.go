// Package bootstrap assembles the service graph from configuration. Both
// binaries go through it so the API and the CLI see the same wiring.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"google_reviews/internal/adapters/gbp"
	"google_reviews/internal/adapters/googleauth"
	"google_reviews/internal/adapters/memcache"
	"google_reviews/internal/adapters/places"
	redisad "google_reviews/internal/adapters/redis"
	"google_reviews/internal/app"
	"google_reviews/internal/domain"
	"google_reviews/internal/shared"
)

type Deps struct {
	Tokens  *googleauth.TokenManager
	GBP     *gbp.Client
	Places  *places.Client // nil without an API key
	Cache   domain.ReviewCache
	Reviews *app.ReviewService
	Setup   *app.SetupService

	closers []func() error
}

// Build wires every adapter. Missing Google credentials are not an error here:
// they surface as ConfigError on the first request that needs them.
func Build(ctx context.Context, cfg shared.Config) (*Deps, error) {
	d := &Deps{}

	d.Tokens = googleauth.New(googleauth.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RefreshToken: cfg.RefreshToken,
		RedirectURL:  cfg.RedirectURL(),
		AuthURL:      cfg.AuthURL,
		TokenURL:     cfg.TokenURL,
	})

	g, err := gbp.New(ctx, d.Tokens, gbp.Options{
		AccountsBase: cfg.AccountsBaseURL,
		InfoBase:     cfg.InfoBaseURL,
		ReviewsBase:  cfg.ReviewsBaseURL,
		RPS:          cfg.UpstreamRPS,
	})
	if err != nil {
		return nil, fmt.Errorf("business profile client: %w", err)
	}
	d.GBP = g

	// interfaces stay nil when Places is off; a typed nil pointer would not
	var (
		placesClient domain.PlacesClient
		finder       domain.PlaceFinder
	)
	if cfg.PlacesKey != "" {
		p, err := places.New(cfg.PlacesBaseURL, cfg.PlacesKey, cfg.PlacesLanguage, cfg.UpstreamRPS)
		if err != nil {
			return nil, err
		}
		d.Places, placesClient, finder = p, p, p
	}

	cache, err := d.buildCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	d.Cache = cache

	d.Reviews = app.NewReviewService(app.SourceConfig{
		AccountID:    cfg.AccountID,
		LocationID:   cfg.LocationID,
		PlaceID:      cfg.PlaceID,
		BusinessName: cfg.BusinessName,
	}, d.GBP, placesClient, d.Cache, cfg.CacheTTL)

	d.Setup = app.NewSetupService(d.Tokens, d.GBP, finder, app.SetupOptions{
		DefaultAccountID: cfg.AccountID,
		DefaultQuery:     cfg.BusinessName,
		SearchBias:       cfg.SearchBias,
	})

	if src, err := d.Reviews.Select(); err == nil {
		log.Info().Str("source", string(src)).Str("cache", cfg.CacheBackend).Msg("review source selected")
	}
	return d, nil
}

func (d *Deps) buildCache(ctx context.Context, cfg shared.Config) (domain.ReviewCache, error) {
	switch cfg.CacheBackend {
	case "", "memory":
		return memcache.New(cfg.CacheSize), nil
	case "redis":
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := rc.Ping(ctx); err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		d.closers = append(d.closers, rc.Close)
		return rc, nil
	default:
		return nil, &domain.ConfigError{Setting: "CACHE_BACKEND", Msg: "unknown CACHE_BACKEND " + cfg.CacheBackend, Hint: "Use memory or redis."}
	}
}

// Close releases connections opened by Build.
func (d *Deps) Close() {
	for _, c := range d.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}
