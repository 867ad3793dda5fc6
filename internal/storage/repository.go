package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neexbeast/tripfinder/internal/destination"
)

// Querier abstracts the subset of pgxpool.Pool used by Repository.
// This allows injection of a mock in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides database access for reference destinations.
type Repository struct {
	q Querier
}

// NewRepository constructs a Repository backed by the given pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool}
}

// NewRepositoryWithQuerier constructs a Repository with a custom Querier (for tests).
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{q: q}
}

// ListReferenceDestinations returns every destination whose fare is at most
// maxPrice, cheapest first. A maxPrice of zero or less returns all of them.
func (r *Repository) ListReferenceDestinations(ctx context.Context, maxPrice float64) ([]destination.ReferenceDestination, error) {
	const q = `
		SELECT code, name, country_code, latitude, longitude, fare, direct, styles
		FROM reference_destinations
		WHERE $1::float8 <= 0 OR fare <= $1::float8
		ORDER BY fare, code
	`

	rows, err := r.q.Query(ctx, q, maxPrice)
	if err != nil {
		return nil, fmt.Errorf("querying reference destinations: %w", err)
	}
	defer rows.Close()

	var results []destination.ReferenceDestination
	for rows.Next() {
		var d destination.ReferenceDestination
		var stylesJSON []byte

		if err := rows.Scan(
			&d.Code,
			&d.Name,
			&d.CountryCode,
			&d.Coordinates.Latitude,
			&d.Coordinates.Longitude,
			&d.Fare,
			&d.Direct,
			&stylesJSON,
		); err != nil {
			return nil, fmt.Errorf("scanning reference destination row: %w", err)
		}

		if len(stylesJSON) > 0 {
			if err := json.Unmarshal(stylesJSON, &d.Styles); err != nil {
				return nil, fmt.Errorf("unmarshaling styles for %s: %w", d.Code, err)
			}
		}

		results = append(results, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reference destination rows: %w", err)
	}

	return results, nil
}

// GetReferenceDestination retrieves one destination by code.
// Returns nil, nil when the code is not found.
func (r *Repository) GetReferenceDestination(ctx context.Context, code string) (*destination.ReferenceDestination, error) {
	const q = `
		SELECT code, name, country_code, latitude, longitude, fare, direct, styles
		FROM reference_destinations
		WHERE code = $1
	`

	var d destination.ReferenceDestination
	var stylesJSON []byte

	err := r.q.QueryRow(ctx, q, code).Scan(
		&d.Code,
		&d.Name,
		&d.CountryCode,
		&d.Coordinates.Latitude,
		&d.Coordinates.Longitude,
		&d.Fare,
		&d.Direct,
		&stylesJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying reference destination %s: %w", code, err)
	}

	if len(stylesJSON) > 0 {
		if err := json.Unmarshal(stylesJSON, &d.Styles); err != nil {
			return nil, fmt.Errorf("unmarshaling styles for %s: %w", code, err)
		}
	}

	return &d, nil
}

// UpsertReferenceDestinations inserts or updates each destination.
// On conflict (code), every column except created_at is replaced.
func (r *Repository) UpsertReferenceDestinations(ctx context.Context, dests []destination.ReferenceDestination) error {
	const q = `
		INSERT INTO reference_destinations
			(code, name, country_code, latitude, longitude, fare, direct, styles, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (code) DO UPDATE
		SET name         = EXCLUDED.name,
		    country_code = EXCLUDED.country_code,
		    latitude     = EXCLUDED.latitude,
		    longitude    = EXCLUDED.longitude,
		    fare         = EXCLUDED.fare,
		    direct       = EXCLUDED.direct,
		    styles       = EXCLUDED.styles,
		    updated_at   = EXCLUDED.updated_at
	`

	for _, d := range dests {
		styles := d.Styles
		if styles == nil {
			styles = []destination.TravelStyle{}
		}
		stylesJSON, err := json.Marshal(styles)
		if err != nil {
			return fmt.Errorf("marshaling styles for %s: %w", d.Code, err)
		}

		if _, err := r.q.Exec(ctx, q,
			d.Code, d.Name, d.CountryCode,
			d.Coordinates.Latitude, d.Coordinates.Longitude,
			d.Fare, d.Direct, string(stylesJSON),
		); err != nil {
			return fmt.Errorf("upserting reference destination %s: %w", d.Code, err)
		}
	}

	return nil
}
