package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"google_reviews/internal/app"
	"google_reviews/internal/domain"
)

// ---- fakes ----

type fakeAuth struct {
	grant domain.TokenGrant
	err   error
	code  string
}

func (f *fakeAuth) AuthCodeURL(state string) (string, error) {
	return "https://accounts.example/auth?state=" + state, nil
}

func (f *fakeAuth) Exchange(ctx context.Context, code string) (domain.TokenGrant, error) {
	f.code = code
	return f.grant, f.err
}

type fakeFinder struct {
	calls    []string
	fromText []domain.PlaceCandidate
	text     map[string][]domain.PlaceCandidate // keyed by location
	nearby   []domain.PlaceCandidate
	fromErr  error
}

func (f *fakeFinder) FindPlaceFromText(ctx context.Context, q string) ([]domain.PlaceCandidate, error) {
	f.calls = append(f.calls, "findplacefromtext")
	return f.fromText, f.fromErr
}

func (f *fakeFinder) TextSearch(ctx context.Context, q, loc string) ([]domain.PlaceCandidate, error) {
	f.calls = append(f.calls, "textsearch:"+loc)
	return f.text[loc], nil
}

func (f *fakeFinder) NearbySearch(ctx context.Context, q, loc string) ([]domain.PlaceCandidate, error) {
	f.calls = append(f.calls, "nearbysearch:"+loc)
	return f.nearby, nil
}

type accountsGBP struct {
	fakeGBP
	gotAccount string
}

func (f *accountsGBP) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	return []domain.Account{{ID: "111", FullName: "accounts/111"}}, nil
}

func (f *accountsGBP) ListLocations(ctx context.Context, accountID string) ([]domain.Location, error) {
	f.gotAccount = accountID
	return nil, nil
}

func candidates(n int) []domain.PlaceCandidate {
	out := make([]domain.PlaceCandidate, n)
	for i := range out {
		out[i] = domain.PlaceCandidate{PlaceID: string(rune('a' + i)), Name: "Place"}
	}
	return out
}

// ---- tests ----

func TestFindPlace_FirstStrategyWins(t *testing.T) {
	f := &fakeFinder{fromText: candidates(1)}
	s := app.NewSetupService(nil, nil, f, app.SetupOptions{})

	res, err := s.FindPlace(context.Background(), "Coffee Corner", "")
	require.NoError(t, err)
	require.Equal(t, "findplacefromtext", res.Method)
	require.Len(t, res.Candidates, 1)
	require.Equal(t, []string{"findplacefromtext"}, f.calls)
}

func TestFindPlace_FallsThroughToBias(t *testing.T) {
	f := &fakeFinder{text: map[string][]domain.PlaceCandidate{"52.0,19.0": candidates(8)}}
	s := app.NewSetupService(nil, nil, f, app.SetupOptions{SearchBias: "52.0,19.0"})

	res, err := s.FindPlace(context.Background(), "Coffee Corner", "")
	require.NoError(t, err)
	require.Equal(t, "textsearch-bias", res.Method)
	require.Len(t, res.Candidates, 5)
	require.Equal(t, []string{"findplacefromtext", "textsearch:", "textsearch:52.0,19.0"}, f.calls)
}

func TestFindPlace_NearbyWithLocation(t *testing.T) {
	f := &fakeFinder{nearby: candidates(2)}
	s := app.NewSetupService(nil, nil, f, app.SetupOptions{SearchBias: "52.0,19.0"})

	res, err := s.FindPlace(context.Background(), "Coffee Corner", "52.2,21.0")
	require.NoError(t, err)
	require.Equal(t, "nearbysearch", res.Method)
	require.Equal(t, []string{"findplacefromtext", "textsearch:52.2,21.0", "nearbysearch:52.2,21.0"}, f.calls)
}

func TestFindPlace_NoResults(t *testing.T) {
	f := &fakeFinder{}
	s := app.NewSetupService(nil, nil, f, app.SetupOptions{DefaultQuery: "Coffee Corner"})

	res, err := s.FindPlace(context.Background(), "", "")
	require.ErrorIs(t, err, domain.ErrNoResults)
	require.Equal(t, "Coffee Corner", res.Query)
	require.NotNil(t, res.Candidates)
	require.Empty(t, res.Candidates)
}

func TestFindPlace_RejectedStatusContinuesThenSurfaces(t *testing.T) {
	rejected := &domain.UpstreamError{Service: "places", Op: "findplacefromtext", Body: "The provided API key is invalid."}
	f := &fakeFinder{fromErr: rejected, text: map[string][]domain.PlaceCandidate{"": candidates(1)}}
	s := app.NewSetupService(nil, nil, f, app.SetupOptions{})

	res, err := s.FindPlace(context.Background(), "x", "")
	require.NoError(t, err)
	require.Equal(t, "textsearch", res.Method)

	f = &fakeFinder{fromErr: rejected}
	s = app.NewSetupService(nil, nil, f, app.SetupOptions{})
	_, err = s.FindPlace(context.Background(), "x", "")
	require.Same(t, rejected, err)
}

func TestFindPlace_TransportErrorStops(t *testing.T) {
	f := &fakeFinder{fromErr: errors.New("dial tcp: refused")}
	s := app.NewSetupService(nil, nil, f, app.SetupOptions{})

	_, err := s.FindPlace(context.Background(), "x", "")
	require.EqualError(t, err, "dial tcp: refused")
	require.Len(t, f.calls, 1)
}

func TestFindPlace_NotConfigured(t *testing.T) {
	s := app.NewSetupService(nil, nil, nil, app.SetupOptions{})
	_, err := s.FindPlace(context.Background(), "", "")
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "BUSINESS_NAME", cfgErr.Setting)

	_, err = s.FindPlace(context.Background(), "x", "")
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "GOOGLE_PLACES_API_KEY", cfgErr.Setting)
}

func TestLocations_DefaultAccount(t *testing.T) {
	g := &accountsGBP{}
	s := app.NewSetupService(nil, g, nil, app.SetupOptions{DefaultAccountID: "111"})

	acct, locs, err := s.Locations(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, "111", acct)
	require.Equal(t, "111", g.gotAccount)
	require.NotNil(t, locs)

	acct, _, err = s.Locations(context.Background(), "222")
	require.NoError(t, err)
	require.Equal(t, "222", acct)
}

func TestLocations_AccountRequired(t *testing.T) {
	s := app.NewSetupService(nil, &accountsGBP{}, nil, app.SetupOptions{})
	_, _, err := s.Locations(context.Background(), " ")
	require.ErrorIs(t, err, app.ErrAccountRequired)
}

func TestAccounts(t *testing.T) {
	s := app.NewSetupService(nil, &accountsGBP{}, nil, app.SetupOptions{})
	got, err := s.Accounts(context.Background())
	require.NoError(t, err)
	require.Equal(t, "111", got[0].ID)
}

func TestCompleteAuth(t *testing.T) {
	a := &fakeAuth{grant: domain.TokenGrant{AccessToken: "at", RefreshToken: "rt", ExpiresIn: 3599, TokenType: "Bearer"}}
	s := app.NewSetupService(a, nil, nil, app.SetupOptions{})

	g, err := s.CompleteAuth(context.Background(), "code-1")
	require.NoError(t, err)
	require.Equal(t, "code-1", a.code)
	require.Equal(t, "rt", g.RefreshToken)

	a.err = &domain.AuthError{Code: "invalid_grant"}
	_, err = s.CompleteAuth(context.Background(), "code-2")
	var authErr *domain.AuthError
	require.ErrorAs(t, err, &authErr)

	u, err := s.AuthURL("st")
	require.NoError(t, err)
	require.Contains(t, u, "state=st")
}
