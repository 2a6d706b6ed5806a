package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	AppURL      string

	// OAuth / Business Profile
	ClientID     string
	ClientSecret string
	RefreshToken string
	AccountID    string
	LocationID   string
	BusinessName string

	// Places
	PlacesKey      string
	PlaceID        string
	PlacesLanguage string
	SearchBias     string

	AllowedOrigins []string
	AdminToken     string

	CacheBackend string // memory|redis
	CacheSize    int
	CacheTTL     time.Duration
	RedisAddr    string
	RedisPass    string
	RedisDB      int

	UpstreamRPS int

	// Endpoint overrides; empty means Google's production URLs.
	AuthURL         string
	TokenURL        string
	AccountsBaseURL string
	InfoBaseURL     string
	ReviewsBaseURL  string
	PlacesBaseURL   string
}

// Load reads ENV_FILE (default .env) when present, then the process environment.
// Variables already set in the environment win over the file.
func Load() Config {
	envFile := env("ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil {
		log.Debug().Str("file", envFile).Msg("no env file loaded, using process environment")
	}

	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),
		AppURL:      strings.TrimRight(env("APP_URL", "http://localhost:8080"), "/"),

		ClientID:     env("GOOGLE_CLIENT_ID", ""),
		ClientSecret: env("GOOGLE_CLIENT_SECRET", ""),
		RefreshToken: env("GOOGLE_REFRESH_TOKEN", ""),
		AccountID:    env("GBP_ACCOUNT_ID", ""),
		LocationID:   env("GBP_LOCATION_ID", ""),
		BusinessName: env("BUSINESS_NAME", ""),

		PlacesKey:      env("GOOGLE_PLACES_API_KEY", ""),
		PlaceID:        env("GOOGLE_PLACE_ID", ""),
		PlacesLanguage: env("GOOGLE_PLACES_LANGUAGE", "en"),
		SearchBias:     env("PLACES_SEARCH_BIAS", ""),

		AllowedOrigins: list("ALLOWED_ORIGINS"),
		AdminToken:     env("ADMIN_TOKEN", ""),

		CacheBackend: strings.ToLower(env("CACHE_BACKEND", "memory")),
		CacheSize:    atoi("CACHE_SIZE", 64),
		CacheTTL:     time.Duration(atoi("CACHE_TTL_SECONDS", 3600)) * time.Second,
		RedisAddr:    env("REDIS_ADDR", "localhost:6379"),
		RedisPass:    env("REDIS_PASSWORD", ""),
		RedisDB:      atoi("REDIS_DB", 0),

		UpstreamRPS: atoi("UPSTREAM_RPS", 5),

		AuthURL:         env("GOOGLE_AUTH_URL", ""),
		TokenURL:        env("GOOGLE_TOKEN_URL", ""),
		AccountsBaseURL: env("GBP_ACCOUNTS_BASE_URL", ""),
		InfoBaseURL:     env("GBP_INFO_BASE_URL", ""),
		ReviewsBaseURL:  env("GBP_REVIEWS_BASE_URL", ""),
		PlacesBaseURL:   env("PLACES_BASE_URL", ""),
	}

	if !c.HasBusinessProfile() && !c.HasPlaces() {
		log.Warn().Msg("neither GBP_ACCOUNT_ID/GBP_LOCATION_ID nor GOOGLE_PLACES_API_KEY/GOOGLE_PLACE_ID is set")
	}
	return c
}

// HasBusinessProfile reports whether the Business Profile source is selected.
func (c Config) HasBusinessProfile() bool { return c.AccountID != "" && c.LocationID != "" }

// HasPlaces reports whether the Places source is usable.
func (c Config) HasPlaces() bool { return c.PlacesKey != "" && c.PlaceID != "" }

// RedirectURL is the OAuth callback registered with Google.
func (c Config) RedirectURL() string { return c.AppURL + "/auth/callback" }

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func list(k string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(k), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
