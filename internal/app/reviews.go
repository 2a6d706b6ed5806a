package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"google_reviews/internal/domain"
)

// CacheKey is the single result-cache slot; the service serves one business.
const CacheKey = "reviews"

const DefaultCacheTTL = time.Hour

// DefaultFetchTimeout bounds one upstream fetch, all pages and the token refresh included.
// It stays below the HTTP server's request timeout so callers always get an envelope.
const DefaultFetchTimeout = 25 * time.Second

// SourceConfig holds the identifiers that decide which upstream is used.
type SourceConfig struct {
	AccountID    string
	LocationID   string
	PlaceID      string
	BusinessName string
}

// ReviewService selects the upstream, normalizes its reviews and caches the envelope.
// The choice of source is static per configuration; a failing source never falls back to the other.
type ReviewService struct {
	cfg    SourceConfig
	gbp    domain.BusinessProfileClient
	places domain.PlacesClient
	cache  domain.ReviewCache
	ttl    time.Duration
	now    func() time.Time

	fetchTimeout time.Duration
	group        singleflight.Group
}

// NewReviewService wires the selector. gbp and places may be nil when their source is not configured.
func NewReviewService(cfg SourceConfig, gbp domain.BusinessProfileClient, places domain.PlacesClient, cache domain.ReviewCache, ttl time.Duration) *ReviewService {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ReviewService{
		cfg:          cfg,
		gbp:          gbp,
		places:       places,
		cache:        cache,
		ttl:          ttl,
		now:          time.Now,
		fetchTimeout: DefaultFetchTimeout,
	}
}

// WithClock replaces the time source; used by tests.
func (s *ReviewService) WithClock(now func() time.Time) *ReviewService {
	s.now = now
	return s
}

// WithFetchTimeout overrides DefaultFetchTimeout.
func (s *ReviewService) WithFetchTimeout(d time.Duration) *ReviewService {
	if d > 0 {
		s.fetchTimeout = d
	}
	return s
}

// Select decides the source for this deployment.
func (s *ReviewService) Select() (domain.Source, error) {
	switch {
	case s.cfg.AccountID != "" && s.cfg.LocationID != "":
		return domain.SourceBusinessProfile, nil
	case s.cfg.PlaceID != "" && s.places != nil:
		return domain.SourcePlaces, nil
	}
	return "", &domain.ConfigError{
		Setting: "GBP_ACCOUNT_ID",
		Msg:     "no data source configured",
		Hint:    "Set GBP_ACCOUNT_ID and GBP_LOCATION_ID (use /accounts and /locations to find them) or GOOGLE_PLACES_API_KEY and GOOGLE_PLACE_ID (use /find-place).",
	}
}

// Reviews returns the cached envelope unless noCache is set or the entry expired.
// On failure the returned envelope is the error variant ready to be served.
func (s *ReviewService) Reviews(ctx context.Context, noCache bool) (domain.ReviewsResponse, error) {
	if !noCache && s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, CacheKey)
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("result cache read failed, fetching")
		case ok:
			return s.refreshRelativeTimes(cached), nil
		}
	}

	// Concurrent misses share one upstream fetch. The fetch outlives any single
	// caller and is bounded by fetchTimeout; a caller that goes away stops waiting.
	ch := s.group.DoChan(CacheKey, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()

		res, err := s.Aggregate(fctx)
		if err != nil {
			return nil, err
		}
		resp := s.envelope(res)
		if s.cache != nil {
			if err := s.cache.Set(fctx, CacheKey, resp, s.ttl); err != nil {
				log.Warn().Err(err).Msg("result cache write failed")
			}
		}
		return resp, nil
	})

	select {
	case <-ctx.Done():
		err := ctx.Err()
		log.Warn().Err(err).Msg("request ended while waiting for reviews fetch")
		return s.failure(err), err
	case r := <-ch:
		if r.Err != nil {
			log.Error().Err(r.Err).Msg("fetch reviews failed")
			return s.failure(r.Err), r.Err
		}
		if r.Shared {
			log.Debug().Msg("reviews fetch shared with concurrent request")
		}
		return r.Val.(domain.ReviewsResponse), nil
	}
}

// Aggregate fetches and normalizes reviews from the selected source.
func (s *ReviewService) Aggregate(ctx context.Context) (domain.AggregatedReviewResult, error) {
	src, err := s.Select()
	if err != nil {
		return domain.AggregatedReviewResult{}, err
	}

	var out domain.AggregatedReviewResult
	switch src {
	case domain.SourceBusinessProfile:
		if s.gbp == nil {
			return out, &domain.ConfigError{Setting: "GOOGLE_REFRESH_TOKEN", Hint: "Complete the OAuth flow at /auth."}
		}
		all, err := s.gbp.GetAllReviews(ctx, s.cfg.AccountID, s.cfg.LocationID)
		if err != nil {
			return out, err
		}
		out = domain.AggregatedReviewResult{
			Reviews:       NormalizeBusinessProfile(all.Reviews, s.now()),
			TotalCount:    all.TotalCount,
			AverageRating: all.AverageRating,
			BusinessName:  s.cfg.BusinessName,
		}
	case domain.SourcePlaces:
		d, err := s.places.GetPlaceDetails(ctx, s.cfg.PlaceID)
		if err != nil {
			return out, err
		}
		name := d.Name
		if name == "" {
			name = s.cfg.BusinessName
		}
		out = domain.AggregatedReviewResult{
			Reviews:       NormalizePlaces(d.Reviews),
			TotalCount:    d.TotalReviews,
			AverageRating: d.Rating,
			BusinessName:  name,
		}
	}
	out.Source = src
	// upstream may under-report or omit the total
	if out.TotalCount < len(out.Reviews) {
		out.TotalCount = len(out.Reviews)
	}
	log.Info().Str("source", string(src)).Int("reviews", len(out.Reviews)).Int("total", out.TotalCount).Msg("reviews fetched")
	return out, nil
}

// ClearCache drops the cached envelope (or everything for an empty key).
func (s *ReviewService) ClearCache(ctx context.Context, key string) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Clear(ctx, key)
}

func (s *ReviewService) CacheStats(ctx context.Context) (domain.CacheStats, error) {
	if s.cache == nil {
		return domain.CacheStats{Keys: []string{}}, nil
	}
	return s.cache.Stats(ctx)
}

func (s *ReviewService) envelope(res domain.AggregatedReviewResult) domain.ReviewsResponse {
	reviews := res.Reviews
	if reviews == nil {
		reviews = []domain.Review{}
	}
	return domain.ReviewsResponse{
		Success: true,
		Business: domain.Business{
			Name:         res.BusinessName,
			Rating:       res.AverageRating,
			TotalReviews: res.TotalCount,
		},
		Reviews:  reviews,
		CachedAt: s.now().UTC().Format(isoMillis),
		Source:   res.Source,
	}
}

func (s *ReviewService) failure(err error) domain.ReviewsResponse {
	src, _ := s.Select()
	return domain.ReviewsResponse{
		Success:  false,
		Business: domain.Business{Name: s.cfg.BusinessName},
		Reviews:  []domain.Review{},
		CachedAt: s.now().UTC().Format(isoMillis),
		Source:   src,
		Error:    ErrorMessage(err),
	}
}

// refreshRelativeTimes recomputes relative times of Business Profile reviews against
// the current clock. Places strings come localized from upstream and are kept.
func (s *ReviewService) refreshRelativeTimes(resp domain.ReviewsResponse) domain.ReviewsResponse {
	if resp.Source != domain.SourceBusinessProfile || len(resp.Reviews) == 0 {
		return resp
	}
	now := s.now()
	reviews := make([]domain.Review, len(resp.Reviews))
	for i, r := range resp.Reviews {
		r.RelativeTime = RelativeTime(r.CreatedAt, now)
		reviews[i] = r
	}
	resp.Reviews = reviews
	return resp
}

// ErrorMessage renders an error for API consumers, appending the remediation hint of config errors.
func ErrorMessage(err error) string {
	var cfgErr *domain.ConfigError
	if errors.As(err, &cfgErr) && cfgErr.Hint != "" {
		return cfgErr.Error() + ". " + cfgErr.Hint
	}
	return err.Error()
}
