package api

import (
	"context"

	"github.com/neexbeast/tripfinder/internal/cache"
	"github.com/neexbeast/tripfinder/internal/destination"
	"github.com/neexbeast/tripfinder/internal/search"
)

// Searcher runs a destination search.
type Searcher interface {
	Search(ctx context.Context, prefs destination.Preferences) (*search.Response, error)
}

// ReferenceRepo defines the storage operations needed by handlers.
type ReferenceRepo interface {
	GetReferenceDestination(ctx context.Context, code string) (*destination.ReferenceDestination, error)
}

// StatsReporter exposes a cache's counters.
type StatsReporter interface {
	Stats() cache.Stats
}
