package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/jeanpool1937/Sistema-Integrado-de-PCP/backend-go/internal/config"
)

const connectBackoff = 2 * time.Second

// DB is the planning database handle. Writers go through WithTx, which holds
// one of a fixed number of slots for the whole transaction.
type DB struct {
	*sqlx.DB
	writeSlots *semaphore.Weighted
}

// DSN renders the lib/pq connection string of cfg.
func DSN(cfg *config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// NewDB opens the pool and pings it, retrying while the server starts up.
func NewDB(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	db, err := sqlx.Open("postgres", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	applyPool(db, cfg)

	attempts := max(cfg.ConnectRetries, 1)
	for attempt := 1; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			break
		}
		if attempt >= attempts {
			_ = db.Close()
			return nil, fmt.Errorf("ping database after %d attempts: %w", attempt, err)
		}
		log.Warn().Err(err).Int("attempt", attempt).Str("host", cfg.Host).Msg("Database not ready, retrying")
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(connectBackoff * time.Duration(attempt)):
		}
	}

	slots := cfg.WriteSlots
	if slots <= 0 {
		slots = 1
	}
	log.Info().Str("host", cfg.Host).Str("db", cfg.DBName).Int64("write_slots", slots).Msg("Connected to database")
	return &DB{DB: db, writeSlots: semaphore.NewWeighted(slots)}, nil
}

func applyPool(db *sqlx.DB, cfg *config.DatabaseConfig) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}
}

// WithTx runs fn in a transaction. fn's error rolls it back and is returned
// unchanged so callers can match on it.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	if err := db.writeSlots.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("wait for write slot: %w", err)
	}
	defer db.writeSlots.Release(1)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("Rollback failed")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
