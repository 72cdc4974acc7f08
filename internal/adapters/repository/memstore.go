package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/scrawl/internal/domain/model"
	"github.com/okian/scrawl/pkg/metrics"
)

// MemStore implements Store with a mutex-guarded map. Standings do not
// survive a restart; suitable for single-node play and tests.
type MemStore struct {
	mu     sync.RWMutex
	rows   map[string]model.LeaderboardRow
	closed bool
}

// NewMemStore creates an empty in-memory store with configuration
// options.
func NewMemStore(opts ...Option) *MemStore {
	s := &MemStore{
		rows: make(map[string]model.LeaderboardRow),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	metrics.UpdateTotalModels(0)

	return s
}

// FetchAll returns every row, ranked by Elo descending.
func (s *MemStore) FetchAll(_ context.Context) ([]model.LeaderboardRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}

	rows := make([]model.LeaderboardRow, 0, len(s.rows))
	for _, row := range s.rows {
		rows = append(rows, row)
	}
	return assignRanks(rows), nil
}

// Get returns the row for one model id.
func (s *MemStore) Get(ctx context.Context, id string) (model.LeaderboardRow, error) {
	rows, err := s.FetchAll(ctx)
	if err != nil {
		return model.LeaderboardRow{}, err
	}
	for _, row := range rows {
		if row.ID == id {
			return row, nil
		}
	}
	return model.LeaderboardRow{}, fmt.Errorf("get %q: %w", id, ErrNotFound)
}

// Upsert inserts or replaces the given rows.
func (s *MemStore) Upsert(_ context.Context, rows []model.LeaderboardRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	for _, row := range rows {
		s.rows[row.ID] = row
		metrics.UpdateModelElo(row.Model, row.Elo)
	}
	metrics.UpdateTotalModels(len(s.rows))
	return nil
}

// Count returns the number of models tracked on the leaderboard.
func (s *MemStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Close marks the store closed; later calls fail with ErrClosed.
func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
