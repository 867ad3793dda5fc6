package storage_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/tripfinder/internal/destination"
	"github.com/neexbeast/tripfinder/internal/storage"
)

// ---- mock Querier ----

type mockQuerier struct {
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFn    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	execFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return m.queryRowFn(ctx, sql, args...)
}
func (m *mockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return m.queryFn(ctx, sql, args...)
}
func (m *mockQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return m.execFn(ctx, sql, args...)
}

// ---- mock pgx.Row ----

type fakeRow struct {
	scanFn func(dest ...any) error
}

func (f *fakeRow) Scan(dest ...any) error { return f.scanFn(dest...) }

// ---- mock pgx.Rows ----

type fakeRows struct {
	rows    [][]any
	idx     int
	rowErr  error
	scanErr error
}

func (f *fakeRows) Next() bool                                   { f.idx++; return f.idx <= len(f.rows) }
func (f *fakeRows) Err() error                                   { return f.rowErr }
func (f *fakeRows) Close()                                       {}
func (f *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (f *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (f *fakeRows) RawValues() [][]byte                          { return nil }
func (f *fakeRows) Conn() *pgx.Conn                              { return nil }

func (f *fakeRows) Scan(dest ...any) error {
	if f.scanErr != nil {
		return f.scanErr
	}
	row := f.rows[f.idx-1]
	for i, d := range dest {
		if i >= len(row) {
			break
		}
		switch v := d.(type) {
		case *string:
			*v = row[i].(string)
		case *float64:
			*v = row[i].(float64)
		case *bool:
			*v = row[i].(bool)
		case *[]byte:
			if row[i] == nil {
				*v = nil
			} else {
				*v = row[i].([]byte)
			}
		}
	}
	return nil
}

// ---- mock MigrationPool ----

type mockMigrationPool struct {
	beginFn func(ctx context.Context) (pgx.Tx, error)
}

func (m *mockMigrationPool) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.beginFn(ctx)
}

// mockTx is a minimal pgx.Tx implementation for testing migrations.
type mockTx struct {
	execFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	commitFn   func(ctx context.Context) error
	rollbackFn func(ctx context.Context) error
}

func (t *mockTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.execFn(ctx, sql, args...)
}
func (t *mockTx) Commit(ctx context.Context) error   { return t.commitFn(ctx) }
func (t *mockTx) Rollback(ctx context.Context) error { return t.rollbackFn(ctx) }

// pgx.Tx has many more methods, stub them all out.
func (t *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (t *mockTx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *mockTx) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }
func (t *mockTx) LargeObjects() pgx.LargeObjects                             { return pgx.LargeObjects{} }
func (t *mockTx) Prepare(_ context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (t *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *mockTx) Conn() *pgx.Conn { return nil }

// ---- helpers ----

func writeSQLFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func referenceRow(code, name string, fare float64, direct bool, styles string) []any {
	var stylesJSON any
	if styles != "" {
		stylesJSON = []byte(styles)
	}
	return []any{code, name, "XX", 41.3, 2.08, fare, direct, stylesJSON}
}

// ---- ListReferenceDestinations tests ----

func TestListReferenceDestinations_Found(t *testing.T) {
	var capturedArgs []any
	rows := &fakeRows{rows: [][]any{
		referenceRow("KRK", "Krakow", 70, true, `["culture"]`),
		referenceRow("BCN", "Barcelona", 120, true, `["culture","party"]`),
	}}
	q := &mockQuerier{
		queryFn: func(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
			assert.Contains(t, sql, "FROM reference_destinations")
			capturedArgs = args
			return rows, nil
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	results, err := repo.ListReferenceDestinations(context.Background(), 150)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []any{150.0}, capturedArgs)

	assert.Equal(t, "KRK", results[0].Code)
	assert.Equal(t, 70.0, results[0].Fare)
	assert.True(t, results[0].Direct)
	assert.Equal(t, 41.3, results[0].Coordinates.Latitude)
	assert.Equal(t, []destination.TravelStyle{destination.StyleCulture, destination.StyleParty}, results[1].Styles)
	assert.True(t, results[1].HasStyle(destination.StyleParty))
}

func TestListReferenceDestinations_NullStyles(t *testing.T) {
	rows := &fakeRows{rows: [][]any{referenceRow("OSL", "Oslo", 170, true, "")}}
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return rows, nil },
	}

	repo := storage.NewRepositoryWithQuerier(q)
	results, err := repo.ListReferenceDestinations(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Styles)
}

func TestListReferenceDestinations_Empty(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
			return &fakeRows{}, nil
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	results, err := repo.ListReferenceDestinations(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestListReferenceDestinations_QueryError(t *testing.T) {
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) {
			return nil, fmt.Errorf("query failed")
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.ListReferenceDestinations(context.Background(), 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying reference destinations")
}

func TestListReferenceDestinations_ScanError(t *testing.T) {
	rows := &fakeRows{
		rows:    [][]any{referenceRow("KRK", "Krakow", 70, true, "[]")},
		scanErr: fmt.Errorf("scan failed"),
	}
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return rows, nil },
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.ListReferenceDestinations(context.Background(), 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scanning")
}

func TestListReferenceDestinations_RowsErr(t *testing.T) {
	rows := &fakeRows{rowErr: fmt.Errorf("rows iteration error")}
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return rows, nil },
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.ListReferenceDestinations(context.Background(), 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "iterating")
}

func TestListReferenceDestinations_BadJSON(t *testing.T) {
	rows := &fakeRows{rows: [][]any{referenceRow("KRK", "Krakow", 70, true, "not-json")}}
	q := &mockQuerier{
		queryFn: func(_ context.Context, _ string, _ ...any) (pgx.Rows, error) { return rows, nil },
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.ListReferenceDestinations(context.Background(), 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshaling")
}

// ---- GetReferenceDestination tests ----

func TestGetReferenceDestination_Found(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, args ...any) pgx.Row {
			assert.Equal(t, []any{"PRG"}, args)
			return &fakeRow{scanFn: func(dest ...any) error {
				*dest[0].(*string) = "PRG"
				*dest[1].(*string) = "Prague"
				*dest[2].(*string) = "CZ"
				*dest[3].(*float64) = 50.1
				*dest[4].(*float64) = 14.26
				*dest[5].(*float64) = 95
				*dest[6].(*bool) = true
				*dest[7].(*[]byte) = []byte(`["culture","party"]`)
				return nil
			}}
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	d, err := repo.GetReferenceDestination(context.Background(), "PRG")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "Prague", d.Name)
	assert.Equal(t, 95.0, d.Fare)
	assert.Len(t, d.Styles, 2)
}

func TestGetReferenceDestination_NotFound(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return &fakeRow{scanFn: func(dest ...any) error { return pgx.ErrNoRows }}
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	d, err := repo.GetReferenceDestination(context.Background(), "XXX")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestGetReferenceDestination_DBError(t *testing.T) {
	q := &mockQuerier{
		queryRowFn: func(_ context.Context, _ string, _ ...any) pgx.Row {
			return &fakeRow{scanFn: func(dest ...any) error { return fmt.Errorf("connection reset") }}
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	_, err := repo.GetReferenceDestination(context.Background(), "PRG")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "querying reference destination")
}

// ---- UpsertReferenceDestinations tests ----

func TestUpsertReferenceDestinations_Success(t *testing.T) {
	var calls [][]any
	q := &mockQuerier{
		execFn: func(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
			calls = append(calls, args)
			return pgconn.CommandTag{}, nil
		},
	}

	dests := []destination.ReferenceDestination{
		{Code: "BCN", Name: "Barcelona", CountryCode: "ES", Fare: 120, Direct: true,
			Styles: []destination.TravelStyle{destination.StyleCulture}},
		{Code: "OSL", Name: "Oslo", CountryCode: "NO", Fare: 170},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	err := repo.UpsertReferenceDestinations(context.Background(), dests)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	require.Len(t, calls[0], 8)
	assert.Equal(t, "BCN", calls[0][0])
	assert.Equal(t, 120.0, calls[0][5])
	assert.Equal(t, `["culture"]`, calls[0][7])
	assert.Equal(t, "[]", calls[1][7])
}

func TestUpsertReferenceDestinations_DBError(t *testing.T) {
	q := &mockQuerier{
		execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, fmt.Errorf("db error")
		},
	}

	repo := storage.NewRepositoryWithQuerier(q)
	err := repo.UpsertReferenceDestinations(context.Background(), []destination.ReferenceDestination{{Code: "BCN"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upserting reference destination BCN")
}

// ---- NewRepository ----

func TestNewRepository_NotNil(t *testing.T) {
	repo := storage.NewRepository(nil)
	assert.NotNil(t, repo)
}

// ---- RunMigrations tests ----

func TestRunMigrations_MissingDir(t *testing.T) {
	err := storage.RunMigrations(context.Background(), nil, "/nonexistent/dir")
	require.Error(t, err)
}

func TestRunMigrations_EmptyDir(t *testing.T) {
	err := storage.RunMigrations(context.Background(), nil, t.TempDir())
	require.NoError(t, err)
}

func TestRunMigrations_Success(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "001_test.sql", "SELECT 1;")

	tx := &mockTx{
		execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, nil
		},
		commitFn:   func(_ context.Context) error { return nil },
		rollbackFn: func(_ context.Context) error { return nil },
	}
	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return tx, nil },
	}

	err := storage.RunMigrations(context.Background(), pool, dir)
	require.NoError(t, err)
}

func TestRunMigrations_BeginError(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "001_test.sql", "SELECT 1;")

	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return nil, fmt.Errorf("cannot begin") },
	}

	err := storage.RunMigrations(context.Background(), pool, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "executing migration")
}

func TestRunMigrations_ExecError(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "001_test.sql", "INVALID SQL;")

	tx := &mockTx{
		execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, fmt.Errorf("syntax error")
		},
		commitFn:   func(_ context.Context) error { return nil },
		rollbackFn: func(_ context.Context) error { return nil },
	}
	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return tx, nil },
	}

	err := storage.RunMigrations(context.Background(), pool, dir)
	require.Error(t, err)
}

func TestRunMigrations_CommitError(t *testing.T) {
	dir := t.TempDir()
	writeSQLFile(t, dir, "001_test.sql", "SELECT 1;")

	tx := &mockTx{
		execFn: func(_ context.Context, _ string, _ ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, nil
		},
		commitFn:   func(_ context.Context) error { return fmt.Errorf("commit failed") },
		rollbackFn: func(_ context.Context) error { return nil },
	}
	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return tx, nil },
	}

	err := storage.RunMigrations(context.Background(), pool, dir)
	require.Error(t, err)
}

func TestRunMigrations_SortsFilesLexicographically(t *testing.T) {
	dir := t.TempDir()
	var order []string
	writeSQLFile(t, dir, "003_c.sql", "SELECT 3;")
	writeSQLFile(t, dir, "001_a.sql", "SELECT 1;")
	writeSQLFile(t, dir, "002_b.sql", "SELECT 2;")

	tx := &mockTx{
		execFn: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
			order = append(order, sql)
			return pgconn.CommandTag{}, nil
		},
		commitFn:   func(_ context.Context) error { return nil },
		rollbackFn: func(_ context.Context) error { return nil },
	}
	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return tx, nil },
	}

	err := storage.RunMigrations(context.Background(), pool, dir)
	require.NoError(t, err)
	require.Len(t, order, 3)
	assert.Equal(t, "SELECT 1;", order[0])
	assert.Equal(t, "SELECT 2;", order[1])
	assert.Equal(t, "SELECT 3;", order[2])
}

func TestRunMigrations_ShippedMigrations(t *testing.T) {
	var executed []string
	tx := &mockTx{
		execFn: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
			executed = append(executed, sql)
			return pgconn.CommandTag{}, nil
		},
		commitFn:   func(_ context.Context) error { return nil },
		rollbackFn: func(_ context.Context) error { return nil },
	}
	pool := &mockMigrationPool{
		beginFn: func(_ context.Context) (pgx.Tx, error) { return tx, nil },
	}

	err := storage.RunMigrations(context.Background(), pool, filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)
	require.NotEmpty(t, executed)
	assert.Contains(t, executed[0], "CREATE TABLE IF NOT EXISTS reference_destinations")
}

// ---- Connect tests ----

func TestConnect_BadURL(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := storage.Connect(ctx, "postgres://invalid-host-xyz:5432/db?sslmode=disable", 4)
	require.Error(t, err)
}

func TestConnect_UnparsableURL(t *testing.T) {
	_, err := storage.Connect(context.Background(), "postgres://%zz", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing database url")
}
