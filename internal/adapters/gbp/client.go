// internal/adapters/gbp/client.go
package gbp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	accountmgmt "google.golang.org/api/mybusinessaccountmanagement/v1"
	businessinfo "google.golang.org/api/mybusinessbusinessinformation/v1"
	"google.golang.org/api/option"

	"google_reviews/internal/adapters/observability"
	"google_reviews/internal/domain"
)

const (
	service = "business-profile"

	DefaultReviewsBase = "https://mybusiness.googleapis.com/v4"
	DefaultPageSize    = 50

	locationReadMask = "name,title,storefrontAddress,websiteUri"
)

type Options struct {
	AccountsBase string // endpoint of the account management API, e.g. https://host/
	InfoBase     string // endpoint of the business information API
	ReviewsBase  string // v4 base including the version segment
	RPS          int
	PageSize     int
	Transport    http.RoundTripper
}

// Client talks to the Business Profile APIs. Every request carries a bearer
// token pulled from the provider at send time, under the request's context.
type Client struct {
	accounts    *accountmgmt.Service
	info        *businessinfo.Service
	hc          *http.Client
	reviewsBase string
	pageSize    int
	rl          *rate.Limiter
}

func New(ctx context.Context, tokens domain.AccessTokenProvider, o Options) (*Client, error) {
	if tokens == nil {
		return nil, errors.New("gbp: token provider is required")
	}
	if o.RPS <= 0 {
		o.RPS = 5
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.ReviewsBase == "" {
		o.ReviewsBase = DefaultReviewsBase
	}
	base := o.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc := &http.Client{
		Timeout:   20 * time.Second,
		Transport: &bearer{tokens: tokens, base: base},
	}

	acctOpts := []option.ClientOption{option.WithHTTPClient(hc)}
	if o.AccountsBase != "" {
		acctOpts = append(acctOpts, option.WithEndpoint(o.AccountsBase))
	}
	accounts, err := accountmgmt.NewService(ctx, acctOpts...)
	if err != nil {
		return nil, fmt.Errorf("mybusinessaccountmanagement.NewService: %w", err)
	}

	infoOpts := []option.ClientOption{option.WithHTTPClient(hc)}
	if o.InfoBase != "" {
		infoOpts = append(infoOpts, option.WithEndpoint(o.InfoBase))
	}
	info, err := businessinfo.NewService(ctx, infoOpts...)
	if err != nil {
		return nil, fmt.Errorf("mybusinessbusinessinformation.NewService: %w", err)
	}

	return &Client{
		accounts:    accounts,
		info:        info,
		hc:          hc,
		reviewsBase: strings.TrimRight(o.ReviewsBase, "/"),
		pageSize:    o.PageSize,
		rl:          rate.NewLimiter(rate.Limit(o.RPS), o.RPS),
	}, nil
}

// ListAccounts returns every account the authorized user can manage.
func (c *Client) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	var out []domain.Account
	pageToken := ""
	for {
		if err := c.rl.Wait(ctx); err != nil {
			return nil, err
		}
		call := c.accounts.Accounts.List().Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		start := time.Now()
		resp, err := call.Do()
		observe("accounts", err, start)
		if err != nil {
			return nil, upstreamErr("list accounts", err)
		}
		for _, a := range resp.Accounts {
			out = append(out, domain.Account{
				ID:          strings.TrimPrefix(a.Name, "accounts/"),
				FullName:    a.Name,
				DisplayName: a.AccountName,
				Type:        a.Type,
			})
		}
		if pageToken = resp.NextPageToken; pageToken == "" {
			return out, nil
		}
	}
}

// ListLocations returns the locations of one account.
func (c *Client) ListLocations(ctx context.Context, accountID string) ([]domain.Location, error) {
	parent := "accounts/" + strings.TrimPrefix(accountID, "accounts/")
	var out []domain.Location
	pageToken := ""
	for {
		if err := c.rl.Wait(ctx); err != nil {
			return nil, err
		}
		call := c.info.Accounts.Locations.List(parent).ReadMask(locationReadMask).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		start := time.Now()
		resp, err := call.Do()
		observe("locations", err, start)
		if err != nil {
			return nil, upstreamErr("list locations", err)
		}
		for _, l := range resp.Locations {
			out = append(out, mapLocation(l))
		}
		if pageToken = resp.NextPageToken; pageToken == "" {
			return out, nil
		}
	}
}

func mapLocation(l *businessinfo.Location) domain.Location {
	loc := domain.Location{
		ID:       lastSegment(l.Name),
		FullName: l.Name,
		Title:    l.Title,
		Website:  l.WebsiteUri,
	}
	if a := l.StorefrontAddress; a != nil {
		loc.Address = &domain.PostalAddress{
			AddressLines:       a.AddressLines,
			Locality:           a.Locality,
			AdministrativeArea: a.AdministrativeArea,
			PostalCode:         a.PostalCode,
			RegionCode:         a.RegionCode,
		}
	}
	return loc
}

// ListReviews fetches one page of reviews from the v4 API.
func (c *Client) ListReviews(ctx context.Context, accountID, locationID string, pageSize int, pageToken string) (domain.GoogleReviewsPage, error) {
	if pageSize <= 0 {
		pageSize = c.pageSize
	}
	q := url.Values{"pageSize": {strconv.Itoa(pageSize)}}
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}
	u := fmt.Sprintf("%s/accounts/%s/locations/%s/reviews?%s",
		c.reviewsBase, url.PathEscape(accountID), url.PathEscape(locationID), q.Encode())

	var page domain.GoogleReviewsPage
	if err := c.get(ctx, "reviews", "list reviews", u, &page); err != nil {
		return domain.GoogleReviewsPage{}, err
	}
	return page, nil
}

// GetAllReviews walks every page in upstream order. The aggregate fields come
// from the last page that reported them.
func (c *Client) GetAllReviews(ctx context.Context, accountID, locationID string) (domain.BusinessProfileReviews, error) {
	var out domain.BusinessProfileReviews
	pageToken := ""
	pages := 0
	for {
		page, err := c.ListReviews(ctx, accountID, locationID, c.pageSize, pageToken)
		if err != nil {
			return domain.BusinessProfileReviews{}, err
		}
		pages++
		out.Reviews = append(out.Reviews, page.Reviews...)
		if page.TotalReviewCount != nil {
			out.TotalCount = *page.TotalReviewCount
		}
		if page.AverageRating != nil {
			out.AverageRating = *page.AverageRating
		}
		if pageToken = page.NextPageToken; pageToken == "" {
			break
		}
	}
	log.Debug().Int("pages", pages).Int("reviews", len(out.Reviews)).Msg("business profile reviews fetched")
	return out, nil
}

// get performs one rate-limited GET and decodes JSON into out. Non-2xx answers
// become UpstreamError with the response body; nothing is retried.
func (c *Client) get(ctx context.Context, endpoint, op, u string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal(service, endpoint, 0, time.Since(start))
		return unwrapTransport(err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal(service, endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Warn().Str("op", op).Int("status", resp.StatusCode).Msg("business profile request failed")
		return &domain.UpstreamError{Service: service, Op: op, Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// unwrapTransport surfaces token errors (ConfigError/AuthError) raised inside
// the bearer transport instead of the url.Error wrapper around them.
func unwrapTransport(err error) error {
	var cfgErr *domain.ConfigError
	if errors.As(err, &cfgErr) {
		return cfgErr
	}
	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		return authErr
	}
	return err
}

func upstreamErr(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		body := strings.TrimSpace(gerr.Body)
		if body == "" {
			body = gerr.Message
		}
		return &domain.UpstreamError{Service: service, Op: op, Status: gerr.Code, Body: body}
	}
	return unwrapTransport(err)
}

func observe(endpoint string, err error, start time.Time) {
	status := http.StatusOK
	var gerr *googleapi.Error
	switch {
	case errors.As(err, &gerr):
		status = gerr.Code
	case err != nil:
		status = 0
	}
	observability.ObserveExternal(service, endpoint, status, time.Since(start))
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
