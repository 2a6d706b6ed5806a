package places_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"google_reviews/internal/adapters/places"
	"google_reviews/internal/domain"
)

func placesReview(i int) map[string]any {
	return map[string]any{
		"author_name":               "Author",
		"profile_photo_url":         "https://photo.example/a.png",
		"rating":                    5,
		"relative_time_description": "a month ago",
		"text":                      "Great",
		"time":                      1700000000 + i,
	}
}

func TestGetPlaceDetails(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/details/json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "ChIJ123", q.Get("place_id"))
		assert.Equal(t, "name,rating,user_ratings_total,reviews", q.Get("fields"))
		assert.Equal(t, "test-key", q.Get("key"))
		assert.Equal(t, "pl", q.Get("language"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"result": map[string]any{
				"name":               "Coffee Corner",
				"rating":             4.2,
				"user_ratings_total": 87,
				"reviews":            []any{placesReview(1), placesReview(2), placesReview(3)},
			},
		})
	}))
	defer ts.Close()

	cl, err := places.New(ts.URL, "test-key", "pl", 100)
	require.NoError(t, err)

	got, err := cl.GetPlaceDetails(context.Background(), "ChIJ123")
	require.NoError(t, err)
	require.Equal(t, "Coffee Corner", got.Name)
	require.InDelta(t, 4.2, got.Rating, 1e-9)
	require.Equal(t, 87, got.TotalReviews)
	require.Len(t, got.Reviews, 3)
	require.Equal(t, int64(1700000001), got.Reviews[0].Time)
	require.Equal(t, "a month ago", got.Reviews[0].RelativeTimeDescription)
}

func TestGetPlaceDetails_FeatureIDPassedThrough(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/g/11abc", r.URL.Query().Get("place_id"))
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "OK", "result": map[string]any{"name": "X"}})
	}))
	defer ts.Close()

	cl, err := places.New(ts.URL, "k", "", 100)
	require.NoError(t, err)
	got, err := cl.GetPlaceDetails(context.Background(), "/g/11abc")
	require.NoError(t, err)
	require.Equal(t, "X", got.Name)
	require.Empty(t, got.Reviews)
}

func TestGetPlaceDetails_CapsAtFiveReviews(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		revs := make([]any, 0, 7)
		for i := 0; i < 7; i++ {
			revs = append(revs, placesReview(i))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "OK", "result": map[string]any{"name": "X", "reviews": revs}})
	}))
	defer ts.Close()

	cl, _ := places.New(ts.URL, "k", "", 100)
	got, err := cl.GetPlaceDetails(context.Background(), "p")
	require.NoError(t, err)
	require.Len(t, got.Reviews, 5)
}

func TestGetPlaceDetails_StatusNotOK(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":        "REQUEST_DENIED",
			"error_message": "The provided API key is invalid.",
		})
	}))
	defer ts.Close()

	cl, _ := places.New(ts.URL, "k", "", 100)
	_, err := cl.GetPlaceDetails(context.Background(), "p")
	var up *domain.UpstreamError
	require.ErrorAs(t, err, &up)
	require.Equal(t, "The provided API key is invalid.", up.Body)
	require.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestGetPlaceDetails_StatusWithoutMessage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "NOT_FOUND"})
	}))
	defer ts.Close()

	cl, _ := places.New(ts.URL, "k", "", 100)
	_, err := cl.GetPlaceDetails(context.Background(), "p")
	require.ErrorContains(t, err, "Places API error: NOT_FOUND")
}

func TestGetPlaceDetails_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down"))
	}))
	defer ts.Close()

	cl, _ := places.New(ts.URL, "k", "", 100)
	_, err := cl.GetPlaceDetails(context.Background(), "p")
	var up *domain.UpstreamError
	require.ErrorAs(t, err, &up)
	require.Equal(t, http.StatusBadGateway, up.Status)
	require.Equal(t, "upstream down", up.Body)
}

func TestNew_RequiresKey(t *testing.T) {
	_, err := places.New("", "", "", 0)
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "GOOGLE_PLACES_API_KEY", cfgErr.Setting)
}

func TestLookupEndpoints(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch r.URL.Path {
		case "/findplacefromtext/json":
			assert.Equal(t, "Coffee Corner Warsaw", q.Get("input"))
			assert.Equal(t, "textquery", q.Get("inputtype"))
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "ZERO_RESULTS", "candidates": []any{}})
		case "/textsearch/json":
			assert.Equal(t, "52.2,21.0", q.Get("location"))
			assert.Equal(t, "50000", q.Get("radius"))
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "OK", "results": []any{
				map[string]any{"place_id": "p1", "name": "Coffee Corner", "formatted_address": "Main St 1", "rating": 4.6},
			}})
		case "/nearbysearch/json":
			assert.Equal(t, "100", q.Get("radius"))
			assert.Equal(t, "Coffee Corner Warsaw", q.Get("keyword"))
			_ = json.NewEncoder(w).Encode(map[string]any{"status": "OK", "results": []any{
				map[string]any{"place_id": "p2", "name": "Coffee Corner", "vicinity": "Main St"},
			}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer ts.Close()

	cl, _ := places.New(ts.URL, "k", "", 100)
	ctx := context.Background()

	got, err := cl.FindPlaceFromText(ctx, "Coffee Corner Warsaw")
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = cl.TextSearch(ctx, "Coffee Corner Warsaw", "52.2,21.0")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "p1", got[0].PlaceID)
	require.NotNil(t, got[0].Rating)

	got, err = cl.NearbySearch(ctx, "Coffee Corner Warsaw", "52.2,21.0")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Main St", got[0].FormattedAddress)
}
