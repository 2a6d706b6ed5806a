package domain

import (
	"context"
	"time"
)

// AccessTokenProvider hands out a bearer token for the Business Profile APIs.
type AccessTokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// Authorizer drives the one-time OAuth consent flow that yields a refresh token.
type Authorizer interface {
	AuthCodeURL(state string) (string, error)
	Exchange(ctx context.Context, code string) (TokenGrant, error)
}

type BusinessProfileClient interface {
	ListAccounts(ctx context.Context) ([]Account, error)
	ListLocations(ctx context.Context, accountID string) ([]Location, error)
	ListReviews(ctx context.Context, accountID, locationID string, pageSize int, pageToken string) (GoogleReviewsPage, error)
	GetAllReviews(ctx context.Context, accountID, locationID string) (BusinessProfileReviews, error)
}

type PlacesClient interface {
	GetPlaceDetails(ctx context.Context, placeID string) (PlaceDetails, error)
}

// PlaceFinder backs the place lookup helper.
type PlaceFinder interface {
	FindPlaceFromText(ctx context.Context, query string) ([]PlaceCandidate, error)
	TextSearch(ctx context.Context, query, location string) ([]PlaceCandidate, error)
	NearbySearch(ctx context.Context, query, location string) ([]PlaceCandidate, error)
}

// ReviewCache stores response envelopes until they expire. Clear with an empty key drops everything.
type ReviewCache interface {
	Get(ctx context.Context, key string) (ReviewsResponse, bool, error)
	Set(ctx context.Context, key string, v ReviewsResponse, ttl time.Duration) error
	Clear(ctx context.Context, key string) error
	Stats(ctx context.Context) (CacheStats, error)
}
