package history

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRecorder stores runs in a Postgres table.
type PostgresRecorder struct {
	pool  *pgxpool.Pool
	table string
}

var validTable = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// NewPostgresRecorder wraps an existing pool. An empty table means "crew_runs".
func NewPostgresRecorder(pool *pgxpool.Pool, table string) (*PostgresRecorder, error) {
	if table == "" {
		table = "crew_runs"
	}
	if !validTable.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresRecorder{pool: pool, table: table}, nil
}

// OpenPostgres connects to dsn and creates the runs table if needed.
func OpenPostgres(ctx context.Context, dsn, table string) (*PostgresRecorder, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	r, err := NewPostgresRecorder(pool, table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := r.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return r, nil
}

// Migrate creates the runs table.
func (r *PostgresRecorder) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id text PRIMARY KEY,
	mode text NOT NULL,
	input text NOT NULL,
	output text NOT NULL,
	error text NOT NULL DEFAULT '',
	duration_ms bigint NOT NULL,
	created_at timestamptz NOT NULL DEFAULT now()
)`, r.table))
	if err != nil {
		return fmt.Errorf("create %s: %w", r.table, err)
	}
	return nil
}

func (r *PostgresRecorder) Close() { r.pool.Close() }

func (r *PostgresRecorder) Record(ctx context.Context, run Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := r.pool.Exec(ctx,
		fmt.Sprintf("INSERT INTO %s (id, mode, input, output, error, duration_ms, created_at) VALUES ($1,$2,$3,$4,$5,$6,$7) ON CONFLICT (id) DO NOTHING", r.table),
		run.ID, run.Mode, run.Input, run.Output, run.Error, run.Duration.Milliseconds(), run.CreatedAt)
	return err
}

func (r *PostgresRecorder) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf("SELECT id, mode, input, output, error, duration_ms, created_at FROM %s ORDER BY created_at DESC LIMIT $1", r.table), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]Run, 0, limit)
	for rows.Next() {
		var (
			run Run
			ms  int64
		)
		if err := rows.Scan(&run.ID, &run.Mode, &run.Input, &run.Output, &run.Error, &ms, &run.CreatedAt); err != nil {
			return nil, err
		}
		run.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, run)
	}
	return out, rows.Err()
}

var _ Recorder = (*PostgresRecorder)(nil)
