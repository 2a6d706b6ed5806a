// internal/adapters/http_server/handlers.go
package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"google_reviews/internal/app"
	"google_reviews/internal/domain"
)

const stateCookie = "oauth_state"

type Handlers struct {
	Reviews *app.ReviewService
	Setup   *app.SetupService

	AllowedOrigins []string
	// AdminToken enables the cache admin routes when set.
	AdminToken string
	// SecureCookies marks the OAuth state cookie Secure (https deployments).
	SecureCookies bool
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Help   string `json:"help,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Group(func(r chi.Router) {
		r.Use(CORS(h.AllowedOrigins))
		r.Get("/reviews", h.getReviews)
		r.Options("/reviews", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	})

	s.mux.Get("/accounts", h.listAccounts)
	s.mux.Get("/locations", h.listLocations)
	s.mux.Get("/find-place", h.findPlace)
	s.mux.Get("/auth", h.startAuth)
	s.mux.Get("/auth/callback", h.authCallback)

	if h.AdminToken != "" {
		s.mux.Route("/cache", func(r chi.Router) {
			r.Use(RequireBearer(h.AdminToken))
			r.Get("/", h.cacheStats)
			r.Delete("/", h.clearCache)
		})
	}
}

func writeProblem(w http.ResponseWriter, status int, title, detail, help string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail, Help: help}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps the domain error taxonomy onto a problem response.
func writeError(w http.ResponseWriter, title string, err error, help string) {
	status := http.StatusInternalServerError
	var (
		cfgErr  *domain.ConfigError
		authErr *domain.AuthError
		upErr   *domain.UpstreamError
	)
	switch {
	case errors.As(err, &cfgErr):
		if cfgErr.Hint != "" {
			help = cfgErr.Hint
		}
	case errors.As(err, &authErr):
		status = http.StatusBadGateway
		help = "Google rejected the OAuth credentials. Authorize again at /auth."
	case errors.As(err, &upErr):
		status = http.StatusBadGateway
	}
	log.Warn().Err(err).Int("status", status).Msg(title)
	writeProblem(w, status, title, err.Error(), help)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// ---- reviews ----

func (h *Handlers) getReviews(w http.ResponseWriter, r *http.Request) {
	noCache := r.URL.Query().Get("nocache") == "true"
	resp, err := h.Reviews.Reviews(r.Context(), noCache)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	etag, body := calcETagAndBody(resp)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write reviews body")
	}
}

// ---- setup flow ----

func (h *Handlers) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Setup.Accounts(r.Context())
	if err != nil {
		writeError(w, "Failed to list accounts", err, "Make sure you have completed the OAuth flow and set GOOGLE_REFRESH_TOKEN.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  `Use the account ID (number after "accounts/") as your GBP_ACCOUNT_ID`,
		"accounts": accounts,
	})
}

func (h *Handlers) listLocations(w http.ResponseWriter, r *http.Request) {
	accountID, locs, err := h.Setup.Locations(r.Context(), r.URL.Query().Get("accountId"))
	if errors.Is(err, app.ErrAccountRequired) {
		writeProblem(w, http.StatusBadRequest, "Missing accountId", "", app.ErrAccountRequired.Hint)
		return
	}
	if err != nil {
		writeError(w, "Failed to list locations", err, "Make sure the accountId is correct and you have access to it.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   `Use the location ID (number after "locations/") as your GBP_LOCATION_ID`,
		"accountId": accountID,
		"locations": locs,
	})
}

func (h *Handlers) findPlace(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.Setup.FindPlace(r.Context(), q.Get("q"), q.Get("location"))
	switch {
	case errors.Is(err, domain.ErrNoResults):
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    false,
			"query":      res.Query,
			"candidates": res.Candidates,
			"message":    "No places found. Try different search terms like your business name with city.",
			"suggestions": []string{
				"Try adding your city name to the query",
				"Use your Google Maps listing name exactly",
				"Search for your business address",
			},
		})
		return
	case err != nil:
		var cfgErr *domain.ConfigError
		if errors.As(err, &cfgErr) && cfgErr.Setting == "BUSINESS_NAME" {
			writeProblem(w, http.StatusBadRequest, "Missing query", "", cfgErr.Hint)
			return
		}
		writeError(w, "Failed to find place", err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"query":       res.Query,
		"method":      res.Method,
		"candidates":  res.Candidates,
		"message":     "Use the place_id value of the matching result as GOOGLE_PLACE_ID.",
		"instruction": "Copy the place_id from the matching result and set GOOGLE_PLACE_ID=<place_id>",
	})
}

func (h *Handlers) startAuth(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	u, err := h.Setup.AuthURL(state)
	if err != nil {
		writeError(w, "Failed to generate auth URL", err, "Make sure GOOGLE_CLIENT_ID and APP_URL are set.")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, u, http.StatusFound)
}

func (h *Handlers) authCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		writeProblem(w, http.StatusBadRequest, "OAuth error", e, q.Get("error_description"))
		return
	}
	code := q.Get("code")
	if code == "" {
		writeProblem(w, http.StatusBadRequest, "Missing authorization code", "", "Start the OAuth flow by visiting /auth")
		return
	}
	// the cookie is absent when the flow was started outside this server (e.g. reviewsctl auth-url)
	if c, err := r.Cookie(stateCookie); err == nil && c.Value != q.Get("state") {
		writeProblem(w, http.StatusBadRequest, "OAuth state mismatch", "", "Start the OAuth flow again by visiting /auth")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Path: "/auth", MaxAge: -1})

	g, err := h.Setup.CompleteAuth(r.Context(), code)
	if err != nil {
		writeError(w, "Failed to exchange code for tokens", err, "")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "OAuth flow completed successfully!",
		"instructions": []string{
			"1. Copy the refresh_token below",
			"2. Set it as GOOGLE_REFRESH_TOKEN",
			"3. Restart the service",
		},
		"tokens":    g,
		"important": "Save the refresh_token now! It will only be shown once. If you lose it, you need to re-authorize.",
	})
}

// ---- admin ----

func (h *Handlers) cacheStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Reviews.CacheStats(r.Context())
	if err != nil {
		writeError(w, "Failed to read cache", err, "")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *Handlers) clearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.Reviews.ClearCache(r.Context(), r.URL.Query().Get("key")); err != nil {
		writeError(w, "Failed to clear cache", err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
