package remote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/dedup"
)

// Store is the hosted Postgres database that receives incremental syncs.
type Store struct {
	pool *pgxpool.Pool
}

var _ dedup.RemoteStore = (*Store)(nil)

// Connect opens a pool against dsn and checks it is reachable.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("remote dsn must be provided")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid remote dsn: %w", err)
	}
	cfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open remote pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("remote ping failed: %w", err)
	}
	log.Info().Str("host", cfg.ConnConfig.Host).Msg("Connected to remote database")
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// FetchPage reads every requested column as text so values compare the same
// way whatever the remote column types are.
func (s *Store) FetchPage(ctx context.Context, table string, columns []string, dateColumn string, minDate time.Time, offset, limit int) ([]dedup.Record, error) {
	query := pageQuery(table, columns, dateColumn, !minDate.IsZero())
	args := []any{limit, offset}
	if !minDate.IsZero() {
		args = append(args, minDate.Format("2006-01-02"))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var out []dedup.Record
	for rows.Next() {
		vals := make([]*string, len(columns))
		dest := make([]any, len(columns))
		for i := range vals {
			dest[i] = &vals[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		rec := make(dedup.Record, len(columns))
		for i, c := range columns {
			if vals[i] != nil {
				rec[c] = *vals[i]
			} else {
				rec[c] = nil
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s rows: %w", table, err)
	}
	return out, nil
}

// Insert appends rows with COPY. The batch is one statement, so it lands
// entirely or not at all.
func (s *Store) Insert(ctx context.Context, table string, columns []string, rows []dedup.Record) error {
	if len(rows) == 0 {
		return nil
	}
	values := make([][]any, len(rows))
	for i, r := range rows {
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = r[c]
		}
		values[i] = row
	}

	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(values))
	if err != nil {
		return fmt.Errorf("failed to copy into %s: %w", table, err)
	}
	log.Debug().Str("table", table).Int64("rows", n).Msg("Copied batch")
	return nil
}

func pageQuery(table string, columns []string, dateColumn string, since bool) string {
	sel := make([]string, len(columns))
	for i, c := range columns {
		id := pgx.Identifier{c}.Sanitize()
		sel[i] = id + "::text AS " + id
	}
	date := pgx.Identifier{dateColumn}.Sanitize()

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(sel, ", "), pgx.Identifier{table}.Sanitize())
	if since {
		fmt.Fprintf(&b, " WHERE %s >= $3", date)
	}
	// A stable order keeps offsets meaningful across pages.
	fmt.Fprintf(&b, " ORDER BY %s, ctid LIMIT $1 OFFSET $2", date)
	return b.String()
}
