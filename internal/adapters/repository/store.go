// Package repository defines the leaderboard store interface and errors.
//
// Two implementations exist: an in-memory store for single-node play
// and a PostgreSQL store for durable standings.
package repository

import (
	"context"

	"github.com/okian/scrawl/internal/domain/model"
	"github.com/okian/scrawl/internal/domain/rating"
)

// Store provides read/write access to model standings.
type Store interface {
	// FetchAll returns every row, ranked by Elo descending.
	FetchAll(ctx context.Context) ([]model.LeaderboardRow, error)

	// Get returns the row for one model id.
	// Returns ErrNotFound if the model is unknown.
	Get(ctx context.Context, id string) (model.LeaderboardRow, error)

	// Upsert inserts or replaces the given rows.
	Upsert(ctx context.Context, rows []model.LeaderboardRow) error

	// Count returns the number of models tracked on the leaderboard.
	Count(ctx context.Context) int

	// Close releases any resources held by the store.
	Close() error
}

// assignRanks orders rows by Elo descending and assigns shared ranks
// to equal ratings.
func assignRanks(rows []model.LeaderboardRow) []model.LeaderboardRow {
	return rating.Rank(rows)
}
