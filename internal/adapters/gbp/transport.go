package gbp

import (
	"net/http"

	"google_reviews/internal/domain"
)

// bearer authorizes each outgoing request. The token lookup runs under the
// request context so a cancelled caller stops waiting on a refresh.
type bearer struct {
	tokens domain.AccessTokenProvider
	base   http.RoundTripper
}

func (b *bearer) RoundTrip(req *http.Request) (*http.Response, error) {
	tok, err := b.tokens.AccessToken(req.Context())
	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+tok)
	return b.base.RoundTrip(r)
}
