package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/neexbeast/tripfinder/internal/cache"
	"github.com/neexbeast/tripfinder/internal/destination"
	"github.com/neexbeast/tripfinder/internal/discovery"
	"github.com/neexbeast/tripfinder/internal/validation"
)

const maxBodyBytes = 64 << 10

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	searcher Searcher
	repo     ReferenceRepo
	caches   map[string]StatsReporter
	log      *slog.Logger
}

// NewHandlers constructs Handlers. repo may be nil when no database is configured.
func NewHandlers(searcher Searcher, repo ReferenceRepo, caches map[string]StatsReporter, log *slog.Logger) *Handlers {
	return &Handlers{
		searcher: searcher,
		repo:     repo,
		caches:   caches,
		log:      log,
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error  string                  `json:"error"`
	Fields []validation.FieldError `json:"fields,omitempty"`
}

type searchRequest struct {
	Origin                string   `json:"origin"`
	Budget                float64  `json:"budget"`
	TravelStyle           string   `json:"travel_style"`
	WeatherPreference     string   `json:"weather_preference"`
	PreferredDestinations []string `json:"preferred_destinations"`
	DepartureDate         string   `json:"departure_date"`
	ReturnDate            string   `json:"return_date"`
}

func (req searchRequest) preferences() (destination.Preferences, error) {
	prefs := destination.Preferences{
		Origin:                req.Origin,
		Budget:                req.Budget,
		TravelStyle:           destination.TravelStyle(strings.ToLower(strings.TrimSpace(req.TravelStyle))),
		WeatherPreference:     destination.WeatherPreference(strings.ToLower(strings.TrimSpace(req.WeatherPreference))),
		PreferredDestinations: req.PreferredDestinations,
	}

	var err error
	if prefs.DepartureDate, err = parseDate("departure_date", req.DepartureDate); err != nil {
		return prefs, err
	}
	if prefs.ReturnDate, err = parseDate("return_date", req.ReturnDate); err != nil {
		return prefs, err
	}
	return prefs, nil
}

func parseDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(destination.DateLayout, s)
	if err != nil {
		return nil, destination.Validationf("%s must be YYYY-MM-DD, got %q", field, s)
	}
	return &t, nil
}

// Search handles POST /api/v1/search.
// Invalid input is a 400; a credential failure upstream is a 502.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return
	}

	prefs, err := req.preferences()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	resp, err := h.searcher.Search(r.Context(), prefs)
	if err != nil {
		h.writeSearchError(w, prefs, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) writeSearchError(w http.ResponseWriter, prefs destination.Preferences, err error) {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, destination.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, destination.ErrAuth):
		h.log.Error("search failed on upstream credentials", "origin", prefs.Origin, "err", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "upstream authentication failed"})
	case errors.Is(err, context.Canceled):
		h.log.Info("search abandoned by client", "origin", prefs.Origin)
	default:
		h.log.Error("search failed", "origin", prefs.Origin, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

// GetDestination handles GET /api/v1/destinations/{code}.
// DB hit → return. Embedded dataset hit → return. Neither → 404.
func (h *Handlers) GetDestination(w http.ResponseWriter, r *http.Request) {
	code, err := destination.NormalizeCode(chi.URLParam(r, "code"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	if h.repo != nil {
		ref, err := h.repo.GetReferenceDestination(r.Context(), code)
		if err != nil {
			h.log.Error("db get failed", "code", code, "err", err)
		}
		if ref != nil {
			writeJSON(w, http.StatusOK, ref)
			return
		}
	}

	for _, ref := range discovery.ReferenceDestinations() {
		if ref.Code == code {
			writeJSON(w, http.StatusOK, ref)
			return
		}
	}

	writeJSON(w, http.StatusNotFound, errorBody{Error: "destination not found"})
}

// CacheStats handles GET /api/v1/cache/stats.
func (h *Handlers) CacheStats(w http.ResponseWriter, _ *http.Request) {
	names := make([]string, 0, len(h.caches))
	for name := range h.caches {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]cache.Stats, len(names))
	for _, name := range names {
		out[name] = h.caches[name].Stats()
	}
	writeJSON(w, http.StatusOK, out)
}

// Pinger is satisfied by the database pool and the Redis client adapters.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlerFunc returns an http.HandlerFunc that checks db and redis connectivity.
// A nil pinger is reported as "disabled" and does not affect the status.
func HealthHandlerFunc(db, redis Pinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		check := func(name string, p Pinger) string {
			if p == nil {
				return "disabled"
			}
			if err := p.Ping(ctx); err != nil {
				log.Error("health check: ping failed", "dependency", name, "err", err)
				status = http.StatusServiceUnavailable
				return "error"
			}
			return "ok"
		}
		dbStatus := check("db", db)
		redisStatus := check("redis", redis)

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		writeJSON(w, status, map[string]string{
			"status": overall,
			"db":     dbStatus,
			"redis":  redisStatus,
		})
	}
}
