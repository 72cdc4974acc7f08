package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/okian/scrawl/internal/domain/model"
	"github.com/okian/scrawl/pkg/logger"
	"github.com/okian/scrawl/pkg/metrics"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Default PostgreSQL store configuration constants.
const (
	defaultPingTimeout  = 5 * time.Second
	defaultMaxOpenConns = 10
)

// PGStore implements Store on PostgreSQL so standings survive restarts.
type PGStore struct {
	conn         *sql.DB
	pingTimeout  time.Duration
	maxOpenConns int
	logger       logger.Logger
}

// NewPGStore connects to PostgreSQL, applies embedded migrations, and
// returns a ready store.
func NewPGStore(ctx context.Context, dsn string, opts ...PGOption) (*PGStore, error) {
	s := &PGStore{
		pingTimeout:  defaultPingTimeout,
		maxOpenConns: defaultMaxOpenConns,
		logger:       logger.Get().Named("pgstore"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	conn.SetMaxOpenConns(s.maxOpenConns)

	pingCtx, cancel := context.WithTimeout(ctx, s.pingTimeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	s.conn = conn

	if err := s.migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	s.logger.Info(ctx, "connected to postgres leaderboard store")
	return s, nil
}

// migrate applies the embedded migrations in lexical order.
func (s *PGStore) migrate(ctx context.Context) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations dir: %w", err)
	}

	for _, entry := range entries {
		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}
		if _, err := s.conn.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", entry.Name(), err)
		}
		s.logger.Info(ctx, "applied migration", logger.String("name", entry.Name()))
	}
	return nil
}

// FetchAll returns every row, ranked by Elo descending.
func (s *PGStore) FetchAll(ctx context.Context) ([]model.LeaderboardRow, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT id, name, elo, avg_time_seconds, param_count, correct_guesses
		FROM models`)
	if err != nil {
		return nil, fmt.Errorf("fetching standings: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only cursor

	var out []model.LeaderboardRow
	for rows.Next() {
		var row model.LeaderboardRow
		if err := rows.Scan(&row.ID, &row.Model, &row.Elo, &row.AvgTimeSeconds, &row.ParamCount, &row.CorrectGuesses); err != nil {
			return nil, fmt.Errorf("scanning standing: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating standings: %w", err)
	}

	return assignRanks(out), nil
}

// Get returns the row for one model id.
func (s *PGStore) Get(ctx context.Context, id string) (model.LeaderboardRow, error) {
	// Rank depends on the full table, so read everything and pick.
	all, err := s.FetchAll(ctx)
	if err != nil {
		return model.LeaderboardRow{}, err
	}
	for _, row := range all {
		if row.ID == id {
			return row, nil
		}
	}
	return model.LeaderboardRow{}, fmt.Errorf("get %q: %w", id, ErrNotFound)
}

// Upsert inserts or replaces the given rows.
func (s *PGStore) Upsert(ctx context.Context, rows []model.LeaderboardRow) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning upsert: %w", err)
	}

	for _, row := range rows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO models (id, name, elo, avg_time_seconds, param_count, correct_guesses, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				elo = EXCLUDED.elo,
				avg_time_seconds = EXCLUDED.avg_time_seconds,
				param_count = EXCLUDED.param_count,
				correct_guesses = EXCLUDED.correct_guesses,
				updated_at = now()`,
			row.ID, row.Model, row.Elo, row.AvgTimeSeconds, row.ParamCount, row.CorrectGuesses,
		)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Warn(ctx, "rollback failed", logger.Error(rbErr))
			}
			return fmt.Errorf("upserting %s: %w", row.ID, err)
		}
		metrics.UpdateModelElo(row.Model, row.Elo)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing upsert: %w", err)
	}
	metrics.UpdateTotalModels(s.Count(ctx))
	return nil
}

// Count returns the number of models tracked on the leaderboard.
func (s *PGStore) Count(ctx context.Context) int {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM models`).Scan(&n); err != nil {
		s.logger.Warn(ctx, "counting models", logger.Error(err))
		return 0
	}
	return n
}

// Close releases the connection pool.
func (s *PGStore) Close() error {
	return s.conn.Close()
}
