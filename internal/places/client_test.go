package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatemap/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL + "/", APIKey: "test-key"}, logrus.New())
	require.NoError(t, err)
	return client
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	assert.Error(t, err)

	client, err := NewClient(Config{APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, client.cfg.BaseURL)
	assert.Equal(t, 10*time.Second, client.cfg.Timeout)
}

func TestTextSearch(t *testing.T) {
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/places:searchText", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Equal(t, "places.id,places.displayName", r.Header.Get("X-Goog-FieldMask"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &gotBody))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"places":[{"id":"p1","displayName":{"text":"Sunshine Court","languageCode":"en"},"types":["apartment_building"],"location":{"latitude":22.3,"longitude":114.1}}]}`))
	})

	raw, err := client.TextSearch(context.Background(), TextSearchOptions{
		TextQuery:    "Sunshine Court, Hong Kong",
		RegionCode:   "hk",
		LanguageCode: "zh-HK",
	}, []string{"places.id", "places.displayName"})
	require.NoError(t, err)

	assert.Equal(t, "Sunshine Court, Hong Kong", gotBody["textQuery"])
	assert.Equal(t, "hk", gotBody["regionCode"])
	assert.Equal(t, float64(20), gotBody["pageSize"])
	assert.NotContains(t, gotBody, "includedType")

	resp, err := DecodeSearch(raw)
	require.NoError(t, err)
	require.Len(t, resp.Places, 1)
	assert.Equal(t, "p1", resp.Places[0].ID)
	assert.Equal(t, "Sunshine Court", resp.Places[0].DisplayName.Text)
	assert.InDelta(t, 22.3, resp.Places[0].Location.Latitude, 0.0001)
}

func TestNearbySearch(t *testing.T) {
	var gotBody NearbySearchOptions
	var gotCount float64
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/places:searchNearby", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &gotBody))
		var raw map[string]any
		assert.NoError(t, json.Unmarshal(body, &raw))
		gotCount, _ = raw["maxResultCount"].(float64)
		_, _ = w.Write([]byte(`{"places":[]}`))
	})

	opts := NearbySearchOptions{
		LocationRestriction: LocationRestriction{Circle: Circle{
			Center: models.LatLng{Latitude: 22.3, Longitude: 114.17},
			Radius: 500,
		}},
		IncludedPrimaryTypes: []string{"apartment_building"},
	}
	_, err := client.NearbySearch(context.Background(), opts, []string{"places.id"})
	require.NoError(t, err)
	assert.Equal(t, opts, gotBody)
	assert.Equal(t, float64(20), gotCount)
}

func TestPlaceDetails(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/places/ChIJ123", r.URL.Path)
		assert.Equal(t, "zh-HK", r.URL.Query().Get("languageCode"))
		assert.Equal(t, "id,displayName", r.Header.Get("X-Goog-FieldMask"))
		_, _ = w.Write([]byte(`{"id":"ChIJ123","displayName":{"text":"海景大廈"}}`))
	})

	raw, err := client.PlaceDetails(context.Background(), PlaceDetailsOptions{
		PlaceID:      "ChIJ123",
		LanguageCode: "zh-HK",
	}, []string{"id", "displayName"})
	require.NoError(t, err)

	place, err := DecodePlace(raw)
	require.NoError(t, err)
	assert.Equal(t, "ChIJ123", place.ID)
	assert.Equal(t, "海景大廈", place.DisplayName.Text)

	_, err = client.PlaceDetails(context.Background(), PlaceDetailsOptions{}, nil)
	assert.Error(t, err)
}

func TestAutocomplete(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/places:autocomplete", r.URL.Path)
		assert.Empty(t, r.Header.Get("X-Goog-FieldMask"))
		_, _ = w.Write([]byte(`{"suggestions":[
			{"placePrediction":{"place":"places/a","placeId":"a","text":{"text":"A"}}},
			{"queryPrediction":{"text":{"text":"a query"}}},
			{"placePrediction":{"place":"places/b","placeId":"b","text":{"text":"B"}}}
		]}`))
	})

	raw, err := client.Autocomplete(context.Background(), AutocompleteOptions{Input: "A"})
	require.NoError(t, err)

	resp, err := DecodeAutocomplete(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, resp.PlaceIDs())
}

func TestPlaceImage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/places/p1/photos/ph1/media", r.URL.Path)
		assert.Equal(t, "500", r.URL.Query().Get("maxHeightPx"))
		assert.Equal(t, "320", r.URL.Query().Get("maxWidthPx"))
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpeg-bytes"))
	})

	photo, err := client.PlaceImage(context.Background(), PlaceImageOptions{
		Name:        "places/p1/photos/ph1",
		MaxHeightPx: 4000,
		MaxWidthPx:  320,
	})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", photo.ContentType)
	assert.Equal(t, []byte("jpeg-bytes"), photo.Data)
}

func TestNon2xxIsAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"status":"RESOURCE_EXHAUSTED"}}`))
	})

	_, err := client.TextSearch(context.Background(), TextSearchOptions{TextQuery: "x"}, nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "text_search", apiErr.Operation)
	assert.Equal(t, http.StatusTooManyRequests, StatusCode(err))
	assert.Contains(t, err.Error(), "RESOURCE_EXHAUSTED")
	assert.True(t, IsUpstream(err))
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	client, err := NewClient(Config{BaseURL: srv.URL, APIKey: "k", Timeout: 20 * time.Millisecond}, nil)
	require.NoError(t, err)

	_, err = client.Autocomplete(context.Background(), AutocompleteOptions{Input: "slow"})
	require.Error(t, err)
	assert.Equal(t, 0, StatusCode(err))
	assert.ErrorIs(t, err, ErrTransport)
	assert.True(t, IsUpstream(err))
}

func TestIsUpstream(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"api error", &APIError{Operation: "text_search", StatusCode: 500}, true},
		{"wrapped api error", fmt.Errorf("search: %w", &APIError{StatusCode: 404}), true},
		{"transport", fmt.Errorf("%w: dial tcp: connection refused", ErrTransport), true},
		{"store error", errors.New("failed to find request: connection refused"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUpstream(tt.err))
		})
	}
}
