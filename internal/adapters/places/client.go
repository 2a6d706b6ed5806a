// internal/adapters/places/client.go
package places

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"google_reviews/internal/adapters/observability"
	"google_reviews/internal/domain"
)

const (
	service = "places"

	DefaultBase = "https://maps.googleapis.com/maps/api/place"

	detailsFields = "name,rating,user_ratings_total,reviews"
	lookupFields  = "place_id,name,formatted_address,rating,user_ratings_total"
	maxReviews    = 5
)

type Client struct {
	base string
	hc   *http.Client
	key  string
	lang string
	rl   *rate.Limiter
}

func New(base, key, lang string, rps int) (*Client, error) {
	if key == "" {
		return nil, &domain.ConfigError{
			Setting: "GOOGLE_PLACES_API_KEY",
			Hint:    "Create a Places API key in the Google Cloud console.",
		}
	}
	if base == "" {
		base = DefaultBase
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		key:  key,
		lang: lang,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

type detailsResponse struct {
	Result struct {
		Name             string                `json:"name"`
		Rating           *float64              `json:"rating"`
		UserRatingsTotal *int                  `json:"user_ratings_total"`
		Reviews          []domain.PlacesReview `json:"reviews"`
	} `json:"result"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// GetPlaceDetails fetches the name, rating and up to five reviews of a place.
// Feature ids (/g/...) are sent as they are; Google may or may not accept them.
func (c *Client) GetPlaceDetails(ctx context.Context, placeID string) (domain.PlaceDetails, error) {
	if strings.HasPrefix(placeID, "/g/") || strings.HasPrefix(placeID, "g/") {
		log.Debug().Str("place_id", placeID).Msg("feature id passed to place details unchanged")
	}
	q := url.Values{
		"place_id": {placeID},
		"fields":   {detailsFields},
		"key":      {c.key},
	}
	if c.lang != "" {
		q.Set("language", c.lang)
	}

	var resp detailsResponse
	if err := c.get(ctx, "details", "get place details", "/details/json", q, &resp); err != nil {
		return domain.PlaceDetails{}, err
	}
	if err := statusErr("get place details", resp.Status, resp.ErrorMessage); err != nil {
		return domain.PlaceDetails{}, err
	}

	out := domain.PlaceDetails{Name: resp.Result.Name, Reviews: resp.Result.Reviews}
	if resp.Result.Rating != nil {
		out.Rating = *resp.Result.Rating
	}
	if resp.Result.UserRatingsTotal != nil {
		out.TotalReviews = *resp.Result.UserRatingsTotal
	}
	if len(out.Reviews) > maxReviews {
		out.Reviews = out.Reviews[:maxReviews]
	}
	return out, nil
}

// ---- place lookup ----

type candidatesResponse struct {
	Candidates   []domain.PlaceCandidate `json:"candidates"`
	Results      []searchResult          `json:"results"`
	Status       string                  `json:"status"`
	ErrorMessage string                  `json:"error_message"`
}

type searchResult struct {
	domain.PlaceCandidate
	Vicinity string `json:"vicinity"`
}

func (c *Client) FindPlaceFromText(ctx context.Context, query string) ([]domain.PlaceCandidate, error) {
	q := url.Values{
		"input":     {query},
		"inputtype": {"textquery"},
		"fields":    {lookupFields},
		"key":       {c.key},
	}
	var resp candidatesResponse
	if err := c.search(ctx, "findplacefromtext", "/findplacefromtext/json", q, &resp); err != nil {
		return nil, err
	}
	return resp.Candidates, nil
}

// TextSearch runs a free-text search, biased towards location ("lat,lng") when given.
func (c *Client) TextSearch(ctx context.Context, query, location string) ([]domain.PlaceCandidate, error) {
	q := url.Values{"query": {query}, "key": {c.key}}
	if location != "" {
		q.Set("location", location)
		q.Set("radius", "50000")
	}
	var resp candidatesResponse
	if err := c.search(ctx, "textsearch", "/textsearch/json", q, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.PlaceCandidate, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, r.PlaceCandidate)
	}
	return out, nil
}

// NearbySearch looks for query within 100m of location.
func (c *Client) NearbySearch(ctx context.Context, query, location string) ([]domain.PlaceCandidate, error) {
	q := url.Values{
		"location": {location},
		"radius":   {"100"},
		"keyword":  {query},
		"key":      {c.key},
	}
	var resp candidatesResponse
	if err := c.search(ctx, "nearbysearch", "/nearbysearch/json", q, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.PlaceCandidate, 0, len(resp.Results))
	for _, r := range resp.Results {
		pc := r.PlaceCandidate
		if pc.FormattedAddress == "" {
			pc.FormattedAddress = r.Vicinity
		}
		out = append(out, pc)
	}
	return out, nil
}

// search treats ZERO_RESULTS as an empty answer rather than a failure.
func (c *Client) search(ctx context.Context, endpoint, path string, q url.Values, resp *candidatesResponse) error {
	if err := c.get(ctx, endpoint, endpoint, path, q, resp); err != nil {
		return err
	}
	if resp.Status == "ZERO_RESULTS" {
		return nil
	}
	return statusErr(endpoint, resp.Status, resp.ErrorMessage)
}

// ---- Internals ----

func statusErr(op, status, msg string) error {
	if status == "OK" {
		return nil
	}
	if msg == "" {
		msg = "Places API error: " + status
	}
	log.Warn().Str("op", op).Str("status", status).Msg("places request rejected")
	return &domain.UpstreamError{Service: service, Op: op, Body: msg}
}

// get performs a GET with client-side rate limiting and JSON decode into out.
// Failures are returned immediately; callers re-request if they want another try.
func (c *Client) get(ctx context.Context, endpoint, op, path string, q url.Values, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "google-reviews/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal(service, endpoint, 0, time.Since(start))
		return err
	}
	defer resp.Body.Close()
	observability.ObserveExternal(service, endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// read a small error body for diagnostics
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &domain.UpstreamError{Service: service, Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
