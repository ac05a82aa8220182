package store

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

var (
	// A connection or query level failure. The underlying driver
	// message travels along through wrapping.
	ErrStorage = errors.New("storage failure")

	// A record is missing a required field.
	ErrValidation = errors.New("validation failure")
)

// Store owns the pooled database handle. Construct one explicitly and
// pass it to whichever component needs it, there is no ambient instance.
type Store struct {
	DB *bun.DB
}

type Options struct {
	URI string

	// Pool bounds. Every operation checks a connection out of the pool
	// for its duration and returns it on every exit path.
	MinConns int
	MaxConns int

	// How many times the initial connection is attempted, with a fixed
	// one second backoff, before surfacing a fatal error.
	ConnectRetries int
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.ConnectRetries < 1 {
		opts.ConnectRetries = 1
	}

	sqldb, err := sql.Open("sqlite3", opts.URI)
	if err != nil {
		return nil, errors.Wrapf(ErrStorage, "could not open database: %v", err)
	}
	if opts.MinConns > 0 {
		sqldb.SetMaxIdleConns(opts.MinConns)
	}
	if opts.MaxConns > 0 {
		sqldb.SetMaxOpenConns(opts.MaxConns)
	}

	var last error
	for attempt := 1; attempt <= opts.ConnectRetries; attempt++ {
		if last = sqldb.PingContext(ctx); last == nil {
			break
		}

		slog.Warn(
			"could not connect to the database",
			"attempt", attempt,
			"retries", opts.ConnectRetries,
			"err", last,
		)
		if attempt < opts.ConnectRetries {
			time.Sleep(time.Second)
		}
	}
	if last != nil {
		sqldb.Close()
		return nil, errors.Wrapf(ErrStorage, "could not connect to database: %v", last)
	}

	return &Store{DB: bun.NewDB(sqldb, sqlitedialect.New())}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// CreateTables creates the schema. It is a no-op when the tables
// already exist.
func (s *Store) CreateTables(ctx context.Context) error {
	models := []any{(*Account)(nil), (*BackupRecord)(nil)}
	for _, model := range models {
		_, err := s.DB.NewCreateTable().Model(model).IfNotExists().Exec(ctx)
		if err != nil {
			return errors.Wrapf(ErrStorage, "could not create table: %v", err)
		}
	}
	return nil
}

// Execute runs a raw statement and returns the affected row count.
// It exists as an escape hatch, regular operations should go through
// the typed methods instead.
func (s *Store) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	result, err := s.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrapf(ErrStorage, "could not execute query: %v", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrapf(ErrStorage, "could not read affected rows: %v", err)
	}
	return affected, nil
}

// QueryAll runs a raw query and returns every row as a column to value
// mapping.
func (s *Store) QueryAll(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(ErrStorage, "could not run query: %v", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrapf(ErrStorage, "could not read columns: %v", err)
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, errors.Wrapf(ErrStorage, "could not scan row: %v", err)
		}

		row := make(map[string]any, len(columns))
		for i, column := range columns {
			row[column] = values[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(ErrStorage, "could not read rows: %v", err)
	}

	return results, nil
}

// QueryOne runs a raw query and returns the first row, or nil when the
// query matched nothing.
func (s *Store) QueryOne(ctx context.Context, query string, args ...any) (map[string]any, error) {
	rows, err := s.QueryAll(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}
