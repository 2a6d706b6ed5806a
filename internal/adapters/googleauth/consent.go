package googleauth

import (
	"context"

	"golang.org/x/oauth2"

	"google_reviews/internal/domain"
)

// AuthCodeURL builds the consent URL. Offline access plus forced consent makes
// Google issue a refresh token on every pass through the flow.
func (m *TokenManager) AuthCodeURL(state string) (string, error) {
	if m.oauth.ClientID == "" {
		return "", &domain.ConfigError{
			Setting: "GOOGLE_CLIENT_ID",
			Hint:    "Make sure GOOGLE_CLIENT_ID and APP_URL are set.",
		}
	}
	return m.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// Exchange trades an authorization code for tokens. Nothing is stored; the caller
// is expected to persist the refresh token itself.
func (m *TokenManager) Exchange(ctx context.Context, code string) (domain.TokenGrant, error) {
	if err := m.requireClient(); err != nil {
		return domain.TokenGrant{}, err
	}
	tok, err := m.oauth.Exchange(m.httpCtx(ctx), code)
	if err != nil {
		return domain.TokenGrant{}, authError(err)
	}
	return domain.TokenGrant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    int64(lifetime(tok).Seconds()),
		TokenType:    tok.TokenType,
	}, nil
}
