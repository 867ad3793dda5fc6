package api_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/tripfinder/internal/api"
	"github.com/neexbeast/tripfinder/internal/cache"
	"github.com/neexbeast/tripfinder/internal/destination"
	"github.com/neexbeast/tripfinder/internal/search"
	"github.com/neexbeast/tripfinder/internal/validation"
)

// ---- mock implementations ----

type mockSearcher struct {
	searchFn func(ctx context.Context, prefs destination.Preferences) (*search.Response, error)
}

func (m *mockSearcher) Search(ctx context.Context, prefs destination.Preferences) (*search.Response, error) {
	return m.searchFn(ctx, prefs)
}

type mockRepo struct {
	getFn func(ctx context.Context, code string) (*destination.ReferenceDestination, error)
}

func (m *mockRepo) GetReferenceDestination(ctx context.Context, code string) (*destination.ReferenceDestination, error) {
	return m.getFn(ctx, code)
}

type mockStats struct{ stats cache.Stats }

func (m mockStats) Stats() cache.Stats { return m.stats }

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// ---- helpers ----

const testToken = "secret-token"

func sampleResponse() *search.Response {
	return &search.Response{
		Recommendations: []destination.Candidate{
			{ID: "1", OriginCode: "WAW", DestinationCode: "BCN", DestinationName: "Barcelona", Price: 180, Currency: "EUR", Score: 23},
		},
		Rationale:       "Barcelona (BCN) is the top pick.",
		ExecutionTimeMs: 42,
		StagesUsed:      []string{"discovery:amadeus", "ranking"},
	}
}

func okSearcher() *mockSearcher {
	return &mockSearcher{searchFn: func(context.Context, destination.Preferences) (*search.Response, error) {
		return sampleResponse(), nil
	}}
}

func buildRouter(searcher api.Searcher, repo api.ReferenceRepo, db, redis api.Pinger) http.Handler {
	if searcher == nil {
		searcher = okSearcher()
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	caches := map[string]api.StatsReporter{
		"geocode": mockStats{cache.Stats{Hits: 3, Misses: 1, Size: 1, Capacity: 1000}},
		"weather": mockStats{cache.Stats{Evictions: 2, Size: 10, Capacity: 5000}},
	}
	handlers := api.NewHandlers(searcher, repo, caches, log)
	return api.NewRouter(handlers, testToken, 1000, db, redis, log)
}

func do(t *testing.T, h http.Handler, method, path, body string, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if auth {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

const validBody = `{
  "origin": "WAW",
  "budget": 500,
  "travel_style": "Culture",
  "weather_preference": "mild",
  "preferred_destinations": ["Barcelona"],
  "departure_date": "2026-06-01",
  "return_date": "2026-06-06"
}`

// ---- POST /api/v1/search ----

func TestSearch_Success(t *testing.T) {
	var got destination.Preferences
	searcher := &mockSearcher{searchFn: func(_ context.Context, prefs destination.Preferences) (*search.Response, error) {
		got = prefs
		return sampleResponse(), nil
	}}

	w := do(t, buildRouter(searcher, nil, nil, nil), http.MethodPost, "/api/v1/search", validBody, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	assert.Equal(t, "WAW", got.Origin)
	assert.Equal(t, 500.0, got.Budget)
	assert.Equal(t, destination.StyleCulture, got.TravelStyle)
	assert.Equal(t, destination.WeatherMild, got.WeatherPreference)
	assert.Equal(t, []string{"Barcelona"}, got.PreferredDestinations)
	require.NotNil(t, got.DepartureDate)
	require.NotNil(t, got.ReturnDate)
	assert.Equal(t, "2026-06-06", got.ReturnDate.Format(destination.DateLayout))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "Barcelona (BCN) is the top pick.", body["rationale"])
	assert.Equal(t, 42.0, body["execution_time_ms"])
	assert.Len(t, body["recommendations"], 1)
	assert.Equal(t, []any{"discovery:amadeus", "ranking"}, body["stages_used"])
}

func TestSearch_OptionalDatesOmitted(t *testing.T) {
	searcher := &mockSearcher{searchFn: func(_ context.Context, prefs destination.Preferences) (*search.Response, error) {
		assert.Nil(t, prefs.DepartureDate)
		assert.Nil(t, prefs.ReturnDate)
		return sampleResponse(), nil
	}}

	body := `{"origin":"WAW","budget":300,"travel_style":"party","weather_preference":"any"}`
	w := do(t, buildRouter(searcher, nil, nil, nil), http.MethodPost, "/api/v1/search", body, true)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSearch_BadJSON(t *testing.T) {
	w := do(t, buildRouter(nil, nil, nil, nil), http.MethodPost, "/api/v1/search", "{not json", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearch_BadDate(t *testing.T) {
	body := `{"origin":"WAW","budget":300,"travel_style":"party","weather_preference":"any","departure_date":"01/06/2026"}`
	w := do(t, buildRouter(nil, nil, nil, nil), http.MethodPost, "/api/v1/search", body, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "departure_date")
}

func TestSearch_ValidationErrorFields(t *testing.T) {
	searcher := &mockSearcher{searchFn: func(_ context.Context, prefs destination.Preferences) (*search.Response, error) {
		return nil, validation.Struct(prefs)
	}}

	body := `{"origin":"WARSAW","budget":0,"travel_style":"culture","weather_preference":"mild"}`
	w := do(t, buildRouter(searcher, nil, nil, nil), http.MethodPost, "/api/v1/search", body, true)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var got struct {
		Error  string                  `json:"error"`
		Fields []validation.FieldError `json:"fields"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "validation failed", got.Error)
	require.Len(t, got.Fields, 2)
	assert.Equal(t, "Preferences.Origin", got.Fields[0].Field)
	assert.Equal(t, "Preferences.Budget", got.Fields[1].Field)
}

func TestSearch_PlainValidationError(t *testing.T) {
	searcher := &mockSearcher{searchFn: func(context.Context, destination.Preferences) (*search.Response, error) {
		return nil, destination.Validationf("return_date must be after departure_date")
	}}

	w := do(t, buildRouter(searcher, nil, nil, nil), http.MethodPost, "/api/v1/search", validBody, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "return_date must be after departure_date")
}

func TestSearch_AuthErrorIsBadGateway(t *testing.T) {
	searcher := &mockSearcher{searchFn: func(context.Context, destination.Preferences) (*search.Response, error) {
		return nil, fmt.Errorf("discovering destinations: %w", destination.ErrAuth)
	}}

	w := do(t, buildRouter(searcher, nil, nil, nil), http.MethodPost, "/api/v1/search", validBody, true)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.NotContains(t, w.Body.String(), "discovering")
}

func TestSearch_UnexpectedError(t *testing.T) {
	searcher := &mockSearcher{searchFn: func(context.Context, destination.Preferences) (*search.Response, error) {
		return nil, fmt.Errorf("boom")
	}}

	w := do(t, buildRouter(searcher, nil, nil, nil), http.MethodPost, "/api/v1/search", validBody, true)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// ---- GET /api/v1/destinations/{code} ----

func TestGetDestination_DBHit(t *testing.T) {
	repo := &mockRepo{getFn: func(_ context.Context, code string) (*destination.ReferenceDestination, error) {
		assert.Equal(t, "PRG", code)
		return &destination.ReferenceDestination{Code: "PRG", Name: "Prague (db)", Fare: 99}, nil
	}}

	w := do(t, buildRouter(nil, repo, nil, nil), http.MethodGet, "/api/v1/destinations/prg", "", true)
	require.Equal(t, http.StatusOK, w.Code)

	var got destination.ReferenceDestination
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "Prague (db)", got.Name)
}

func TestGetDestination_FallsBackToEmbeddedData(t *testing.T) {
	repo := &mockRepo{getFn: func(context.Context, string) (*destination.ReferenceDestination, error) {
		return nil, fmt.Errorf("connection reset")
	}}

	w := do(t, buildRouter(nil, repo, nil, nil), http.MethodGet, "/api/v1/destinations/KRK", "", true)
	require.Equal(t, http.StatusOK, w.Code)

	var got destination.ReferenceDestination
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, "Krakow", got.Name)
	assert.Contains(t, got.Styles, destination.StyleCulture)
}

func TestGetDestination_NoRepository(t *testing.T) {
	w := do(t, buildRouter(nil, nil, nil, nil), http.MethodGet, "/api/v1/destinations/BCN", "", true)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetDestination_NotFound(t *testing.T) {
	repo := &mockRepo{getFn: func(context.Context, string) (*destination.ReferenceDestination, error) {
		return nil, nil
	}}

	w := do(t, buildRouter(nil, repo, nil, nil), http.MethodGet, "/api/v1/destinations/XYZ", "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetDestination_InvalidCode(t *testing.T) {
	w := do(t, buildRouter(nil, nil, nil, nil), http.MethodGet, "/api/v1/destinations/Paris", "", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ---- GET /api/v1/cache/stats ----

func TestCacheStats(t *testing.T) {
	w := do(t, buildRouter(nil, nil, nil, nil), http.MethodGet, "/api/v1/cache/stats", "", true)
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]cache.Stats
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, int64(3), got["geocode"].Hits)
	assert.Equal(t, 5000, got["weather"].Capacity)
	assert.Equal(t, int64(2), got["weather"].Evictions)
}

// ---- GET /api/v1/health ----

func TestHealth_OK(t *testing.T) {
	w := do(t, buildRouter(nil, nil, &mockPinger{}, &mockPinger{}), http.MethodGet, "/api/v1/health", "", false)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["db"])
	assert.Equal(t, "ok", body["redis"])
}

func TestHealth_DependenciesDisabled(t *testing.T) {
	w := do(t, buildRouter(nil, nil, nil, nil), http.MethodGet, "/api/v1/health", "", false)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "disabled", body["db"])
	assert.Equal(t, "disabled", body["redis"])
}

func TestHealth_DBDown(t *testing.T) {
	w := do(t, buildRouter(nil, nil, &mockPinger{err: fmt.Errorf("db unreachable")}, &mockPinger{}),
		http.MethodGet, "/api/v1/health", "", false)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "error", body["db"])
	assert.Equal(t, "degraded", body["status"])
}

func TestHealth_RedisDown(t *testing.T) {
	w := do(t, buildRouter(nil, nil, &mockPinger{}, &mockPinger{err: fmt.Errorf("redis unreachable")}),
		http.MethodGet, "/api/v1/health", "", false)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

// ---- GET /metrics ----

func TestMetrics_NoAuth(t *testing.T) {
	w := do(t, buildRouter(nil, nil, nil, nil), http.MethodGet, "/metrics", "", false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

// ---- Auth middleware ----

func TestBearerAuth_NoHeader(t *testing.T) {
	w := do(t, buildRouter(nil, nil, nil, nil), http.MethodPost, "/api/v1/search", validBody, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerAuth_WrongToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil)
	req.Header.Set("Authorization", "Bearer wrong-token")
	w := httptest.NewRecorder()
	buildRouter(nil, nil, nil, nil).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBearerAuth_MissingBearerPrefix(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cache/stats", nil)
	req.Header.Set("Authorization", testToken) // no "Bearer " prefix
	w := httptest.NewRecorder()
	buildRouter(nil, nil, nil, nil).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

// ---- Rate limiting ----

func TestRateLimit_PerIP(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := api.NewRouter(api.NewHandlers(okSearcher(), nil, nil, log), testToken, 2, nil, nil, log)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
