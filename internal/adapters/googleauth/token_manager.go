// Package googleauth owns the OAuth access token used for the Business Profile APIs
// and the authorization-code flow that produces the long-lived refresh token.
package googleauth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"

	"google_reviews/internal/adapters/observability"
	"google_reviews/internal/domain"
)

// Scope grants read/write access to Business Profile data.
const Scope = "https://www.googleapis.com/auth/business.manage"

// DefaultRefreshSkew is how long before expiry a cached token stops being handed out.
const DefaultRefreshSkew = 5 * time.Minute

// refreshTimeout bounds a shared refresh once it is detached from its first caller.
const refreshTimeout = 20 * time.Second

type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	RedirectURL  string

	AuthURL  string // optional override of Google's consent endpoint
	TokenURL string // optional override of Google's token endpoint

	Skew       time.Duration
	HTTPClient *http.Client
	Now        func() time.Time
}

// CachedToken is the access token currently handed out.
type CachedToken struct {
	AccessToken string
	ExpiresAt   time.Time
}

// TokenManager caches one access token and refreshes it lazily with the refresh token.
// Concurrent callers hitting an expired token share a single refresh.
type TokenManager struct {
	oauth        oauth2.Config
	refreshToken string
	skew         time.Duration
	hc           *http.Client
	now          func() time.Time

	mu     sync.Mutex
	cached *CachedToken
	group  singleflight.Group
}

func New(cfg Config) *TokenManager {
	ep := google.Endpoint
	if cfg.AuthURL != "" {
		ep.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		ep.TokenURL = cfg.TokenURL
	}
	// client credentials travel in the form body, as Google documents for installed/web apps
	ep.AuthStyle = oauth2.AuthStyleInParams

	m := &TokenManager{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     ep,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{Scope},
		},
		refreshToken: cfg.RefreshToken,
		skew:         cfg.Skew,
		hc:           cfg.HTTPClient,
		now:          cfg.Now,
	}
	if m.skew <= 0 {
		m.skew = DefaultRefreshSkew
	}
	if m.hc == nil {
		m.hc = &http.Client{Timeout: 20 * time.Second}
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// AccessToken returns the cached token while it is valid for more than the skew,
// otherwise performs a refresh-token grant and caches the result.
func (m *TokenManager) AccessToken(ctx context.Context) (string, error) {
	if m.refreshToken == "" {
		return "", &domain.ConfigError{
			Setting: "GOOGLE_REFRESH_TOKEN",
			Msg:     "GOOGLE_REFRESH_TOKEN is not configured",
			Hint:    "Complete the OAuth flow at /auth and store the returned refresh_token.",
		}
	}
	if err := m.requireClient(); err != nil {
		return "", err
	}

	if tok, ok := m.valid(); ok {
		return tok.AccessToken, nil
	}

	// the refresh is shared, so one caller going away must not fail the others
	ch := m.group.DoChan("refresh", func() (any, error) {
		// another caller may have refreshed while we waited for the group
		if tok, ok := m.valid(); ok {
			return tok, nil
		}
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return m.refresh(rctx)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		return r.Val.(CachedToken).AccessToken, nil
	}
}

// Token makes the manager usable as an oauth2.TokenSource. The interface
// carries no context, so a refresh started here is bounded only by
// refreshTimeout; request paths should call AccessToken instead.
func (m *TokenManager) Token() (*oauth2.Token, error) {
	at, err := m.AccessToken(context.Background())
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	exp := m.cached.ExpiresAt
	m.mu.Unlock()
	return &oauth2.Token{AccessToken: at, TokenType: "Bearer", Expiry: exp}, nil
}

// Cached returns a copy of the current token, if any.
func (m *TokenManager) Cached() (CachedToken, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cached == nil {
		return CachedToken{}, false
	}
	return *m.cached, true
}

func (m *TokenManager) valid() (CachedToken, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cached != nil && m.cached.ExpiresAt.After(m.now().Add(m.skew)) {
		return *m.cached, true
	}
	return CachedToken{}, false
}

func (m *TokenManager) refresh(ctx context.Context) (CachedToken, error) {
	now := m.now()
	src := m.oauth.TokenSource(m.httpCtx(ctx), &oauth2.Token{RefreshToken: m.refreshToken})
	tok, err := src.Token()
	observability.ObserveTokenRefresh(err)
	if err != nil {
		log.Warn().Err(err).Msg("access token refresh failed")
		return CachedToken{}, authError(err)
	}

	ct := CachedToken{AccessToken: tok.AccessToken, ExpiresAt: now.Add(lifetime(tok))}
	m.mu.Lock()
	m.cached = &ct
	m.mu.Unlock()

	log.Info().Time("expires_at", ct.ExpiresAt).Msg("access token refreshed")
	return ct, nil
}

func (m *TokenManager) requireClient() error {
	if m.oauth.ClientID == "" || m.oauth.ClientSecret == "" {
		return &domain.ConfigError{
			Setting: "GOOGLE_CLIENT_ID",
			Msg:     "Google OAuth credentials are not configured",
			Hint:    "Set GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET from the Google Cloud console.",
		}
	}
	return nil
}

func (m *TokenManager) httpCtx(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.hc)
}

// lifetime reads expires_in from the raw token response, falling back to the
// absolute expiry computed by the oauth2 package.
func lifetime(tok *oauth2.Token) time.Duration {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return time.Duration(v) * time.Second
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	if !tok.Expiry.IsZero() {
		return time.Until(tok.Expiry)
	}
	return 0
}

func authError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return &domain.AuthError{Code: re.ErrorCode, Description: re.ErrorDescription, Err: err}
	}
	return &domain.AuthError{Err: err}
}
