package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"google_reviews/internal/domain"
)

const maxCandidates = 5

// ErrAccountRequired is returned by Locations when neither the caller nor the configuration names an account.
var ErrAccountRequired = &domain.ConfigError{
	Setting: "GBP_ACCOUNT_ID",
	Msg:     "Missing accountId",
	Hint:    "Provide accountId as a query parameter or set GBP_ACCOUNT_ID. Use /accounts to find your account ID.",
}

// SetupService backs the one-time operator flow: OAuth consent, account and
// location discovery, and place lookup.
type SetupService struct {
	auth   domain.Authorizer
	gbp    domain.BusinessProfileClient
	finder domain.PlaceFinder

	defaultAccount string
	defaultQuery   string
	searchBias     string
}

type SetupOptions struct {
	DefaultAccountID string
	DefaultQuery     string
	// SearchBias is a "lat,lng" tried when a plain text search finds nothing.
	SearchBias string
}

func NewSetupService(auth domain.Authorizer, gbp domain.BusinessProfileClient, finder domain.PlaceFinder, o SetupOptions) *SetupService {
	return &SetupService{
		auth:           auth,
		gbp:            gbp,
		finder:         finder,
		defaultAccount: o.DefaultAccountID,
		defaultQuery:   o.DefaultQuery,
		searchBias:     o.SearchBias,
	}
}

func (s *SetupService) AuthURL(state string) (string, error) {
	if s.auth == nil {
		return "", &domain.ConfigError{Setting: "GOOGLE_CLIENT_ID"}
	}
	return s.auth.AuthCodeURL(state)
}

// CompleteAuth trades the authorization code for tokens. Google shows the refresh token only once.
func (s *SetupService) CompleteAuth(ctx context.Context, code string) (domain.TokenGrant, error) {
	if s.auth == nil {
		return domain.TokenGrant{}, &domain.ConfigError{Setting: "GOOGLE_CLIENT_ID"}
	}
	g, err := s.auth.Exchange(ctx, code)
	if err != nil {
		return domain.TokenGrant{}, err
	}
	if g.RefreshToken == "" {
		log.Warn().Msg("code exchange returned no refresh token; revoke access and authorize again")
	}
	return g, nil
}

func (s *SetupService) Accounts(ctx context.Context) ([]domain.Account, error) {
	if s.gbp == nil {
		return nil, &domain.ConfigError{Setting: "GOOGLE_REFRESH_TOKEN", Hint: "Complete the OAuth flow at /auth."}
	}
	accounts, err := s.gbp.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}
	return accounts, nil
}

// Locations lists the locations of accountID, or of the configured account when accountID is empty.
// It returns the account that was used.
func (s *SetupService) Locations(ctx context.Context, accountID string) (string, []domain.Location, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		accountID = s.defaultAccount
	}
	if accountID == "" {
		return "", nil, ErrAccountRequired
	}
	if s.gbp == nil {
		return accountID, nil, &domain.ConfigError{Setting: "GOOGLE_REFRESH_TOKEN", Hint: "Complete the OAuth flow at /auth."}
	}
	locs, err := s.gbp.ListLocations(ctx, accountID)
	if err != nil {
		return accountID, nil, err
	}
	if locs == nil {
		locs = []domain.Location{}
	}
	return accountID, locs, nil
}

// PlaceSearch is the outcome of FindPlace; Method names the strategy that matched.
type PlaceSearch struct {
	Query      string
	Method     string
	Candidates []domain.PlaceCandidate
}

type strategy struct {
	method string
	run    func(ctx context.Context) ([]domain.PlaceCandidate, error)
}

// FindPlace tries progressively looser lookups until one matches. An empty
// result is reported as domain.ErrNoResults together with the resolved query.
func (s *SetupService) FindPlace(ctx context.Context, query, location string) (PlaceSearch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		query = s.defaultQuery
	}
	out := PlaceSearch{Query: query, Candidates: []domain.PlaceCandidate{}}
	if query == "" {
		return out, &domain.ConfigError{Setting: "BUSINESS_NAME", Msg: "Missing query", Hint: "Pass q or set BUSINESS_NAME."}
	}
	if s.finder == nil {
		return out, &domain.ConfigError{Setting: "GOOGLE_PLACES_API_KEY", Hint: "Create a Places API key in the Google Cloud console."}
	}

	var lastErr error
	for _, st := range s.strategies(query, location) {
		found, err := st.run(ctx)
		if err != nil {
			var up *domain.UpstreamError
			if !errors.As(err, &up) || up.Status != 0 {
				return out, err
			}
			// a rejected lookup status does not stop the remaining strategies
			log.Debug().Err(err).Str("method", st.method).Msg("place lookup rejected")
			lastErr = err
			continue
		}
		if len(found) == 0 {
			continue
		}
		if len(found) > maxCandidates {
			found = found[:maxCandidates]
		}
		out.Method = st.method
		out.Candidates = found
		return out, nil
	}
	if lastErr != nil {
		return out, lastErr
	}
	return out, fmt.Errorf("find place %q: %w", query, domain.ErrNoResults)
}

func (s *SetupService) strategies(query, location string) []strategy {
	list := []strategy{
		{"findplacefromtext", func(ctx context.Context) ([]domain.PlaceCandidate, error) {
			return s.finder.FindPlaceFromText(ctx, query)
		}},
		{"textsearch", func(ctx context.Context) ([]domain.PlaceCandidate, error) {
			return s.finder.TextSearch(ctx, query, location)
		}},
	}
	if location == "" && s.searchBias != "" {
		list = append(list, strategy{"textsearch-bias", func(ctx context.Context) ([]domain.PlaceCandidate, error) {
			return s.finder.TextSearch(ctx, query, s.searchBias)
		}})
	}
	if location != "" {
		list = append(list, strategy{"nearbysearch", func(ctx context.Context) ([]domain.PlaceCandidate, error) {
			return s.finder.NearbySearch(ctx, query, location)
		}})
	}
	return list
}
