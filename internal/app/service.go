// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/scrawl/internal/adapters/inference"
	repository "github.com/okian/scrawl/internal/adapters/repository"
	"github.com/okian/scrawl/internal/domain/model"
	"github.com/okian/scrawl/internal/domain/rating"
	"github.com/okian/scrawl/internal/domain/types"
	"github.com/okian/scrawl/internal/domain/vocab"
	"github.com/okian/scrawl/internal/game"
	"github.com/okian/scrawl/pkg/logger"
	"github.com/okian/scrawl/pkg/metrics"
)

// Store driver and classifier kind selectors.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	ClassifierSim    = "sim"
	ClassifierRemote = "remote"

	seedElo = 1000
)

// Service owns the store, the vocabulary, and the session manager, and
// implements the API dependency bundle plus the round recorder.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	vocabulary *vocab.Vocabulary
	manager    *game.Manager

	// Configuration
	storeDriver       string
	storeDSN          string
	classifierKind    string
	classifierURL     string
	classifierTimeout time.Duration
	classifierRetries int
	simLatencyMin     time.Duration
	simLatencyMax     time.Duration
	models            [2]string
	paramCounts       [2]int64
	rules             game.Rules
	rulesSet          bool
	bannedLabels      []string
	wordsFile         string
	publicURL         string
	queueSize         int
	sessionTTL        time.Duration

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore selects the leaderboard store driver and, for postgres, its DSN.
func WithStore(driver, dsn string) Option {
	return func(s *Service) {
		if driver != "" {
			s.storeDriver = driver
		}
		s.storeDSN = dsn
	}
}

// WithClassifier selects the inference backend and, for remote, its base URL.
func WithClassifier(kind, url string) Option {
	return func(s *Service) {
		if kind != "" {
			s.classifierKind = kind
		}
		s.classifierURL = url
	}
}

// WithClassifierTransport tunes the remote classifier's HTTP behavior.
func WithClassifierTransport(timeout time.Duration, retries int) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.classifierTimeout = timeout
		}
		if retries >= 0 {
			s.classifierRetries = retries
		}
	}
}

// WithSimLatencyRange sets the simulated inference latency range.
func WithSimLatencyRange(minLatency, maxLatency time.Duration) Option {
	return func(s *Service) {
		if minLatency > 0 && maxLatency > minLatency {
			s.simLatencyMin = minLatency
			s.simLatencyMax = maxLatency
		}
	}
}

// WithModels names the dueling pair and their parameter counts.
func WithModels(one, two string, oneParams, twoParams int64) Option {
	return func(s *Service) {
		if one != "" && two != "" {
			s.models = [2]string{one, two}
			s.paramCounts = [2]int64{oneParams, twoParams}
		}
	}
}

// WithRules overrides the default round rules.
func WithRules(rules game.Rules) Option {
	return func(s *Service) {
		s.rules = rules
		s.rulesSet = true
	}
}

// WithBannedLabels replaces the vocabulary's banned set.
func WithBannedLabels(banned []string) Option {
	return func(s *Service) {
		if banned != nil {
			s.bannedLabels = banned
		}
	}
}

// WithWordsFile loads the vocabulary from a file instead of the
// embedded list.
func WithWordsFile(path string) Option {
	return func(s *Service) {
		s.wordsFile = path
	}
}

// WithPublicURL sets the externally reachable base URL used in join
// links. Empty keeps the links relative.
func WithPublicURL(url string) Option {
	return func(s *Service) {
		s.publicURL = strings.TrimSuffix(url, "/")
	}
}

// WithQueueSize bounds each model's inference queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithSessionTTL sets how long an idle duel survives before reaping.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storeDriver:       StoreMemory,
		classifierKind:    ClassifierSim,
		classifierTimeout: 5 * time.Second,
		classifierRetries: 2,
		simLatencyMin:     80 * time.Millisecond,
		simLatencyMax:     150 * time.Millisecond,
		models:            [2]string{"sketchnet-s", "sketchnet-m"},
		paramCounts:       [2]int64{1_300_000, 5_800_000},
		queueSize:         64,
		sessionTTL:        30 * time.Minute,
		logger:            nil, // Will be replaced when service starts
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	// Initialize logger if not already set
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting duel service...")

	var vocabOpts []vocab.Option
	if s.wordsFile != "" {
		vocabOpts = append(vocabOpts, vocab.WithWordsFile(s.wordsFile))
	}
	if s.bannedLabels != nil {
		vocabOpts = append(vocabOpts, vocab.WithBannedLabels(s.bannedLabels))
	}
	v, err := vocab.New(vocabOpts...)
	if err != nil {
		return fmt.Errorf("building vocabulary: %w", err)
	}
	s.vocabulary = v

	store, err := s.openStore(ctx)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", s.storeDriver, err)
	}
	s.store = store

	if err := s.seedModels(ctx); err != nil {
		_ = s.store.Close()
		return fmt.Errorf("seeding model rows: %w", err)
	}

	if !s.rulesSet {
		s.rules = game.DefaultRules(v.Banned())
	} else if s.rules.Filter.Banned == nil {
		s.rules.Filter.Banned = v.Banned()
	}

	s.manager = game.NewManager(v, s.classifierFactory(), s, s.models, s.rules,
		game.WithSessionTTL(s.sessionTTL),
		game.WithQueueCapacity(s.queueSize),
	)
	s.manager.Start(ctx)

	metrics.UpdateTotalModels(s.store.Count(ctx))

	s.started = true
	s.logger.Info(ctx, "duel service started",
		logger.String("store", s.storeDriver),
		logger.String("classifier", s.classifierKind),
		logger.String("modelOne", s.models[0]),
		logger.String("modelTwo", s.models[1]),
		logger.Int("vocabulary", v.Len()),
	)

	return nil
}

// openStore builds the configured leaderboard store.
func (s *Service) openStore(ctx context.Context) (repository.Store, error) {
	switch s.storeDriver {
	case StorePostgres:
		s.logger.Info(ctx, "using postgres store")
		return repository.NewPGStore(ctx, s.storeDSN)
	default:
		s.logger.Info(ctx, "using in-memory store")
		return repository.NewMemStore(), nil
	}
}

// seedModels inserts a fresh row for any competing model the store does
// not know yet.
func (s *Service) seedModels(ctx context.Context) error {
	var missing []model.LeaderboardRow
	for i, name := range s.models {
		_, err := s.store.Get(ctx, name)
		switch {
		case err == nil:
			continue
		case errors.Is(err, repository.ErrNotFound):
			missing = append(missing, model.LeaderboardRow{
				ID:         name,
				Model:      name,
				Elo:        seedElo,
				ParamCount: s.paramCounts[i],
			})
		default:
			return err
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return s.store.Upsert(ctx, missing)
}

// classifierFactory builds the per-worker classifier constructor.
func (s *Service) classifierFactory() inference.Factory {
	if s.classifierKind == ClassifierRemote {
		url := s.classifierURL
		timeout := s.classifierTimeout
		retries := s.classifierRetries
		return func(name string) (inference.Classifier, error) {
			return inference.NewHTTPClassifier(name, url,
				inference.WithTimeout(timeout),
				inference.WithRetries(retries),
			), nil
		}
	}

	labels := s.vocabulary.Words()
	minLatency, maxLatency := s.simLatencyMin, s.simLatencyMax
	return func(name string) (inference.Classifier, error) {
		return inference.NewSimClassifier(name, labels,
			inference.WithLatencyRange(minLatency, maxLatency),
		)
	}
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping duel service...")

	if s.manager != nil {
		_ = s.manager.Shutdown(ctx)
	}
	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(ctx, "duel service stopped")
}

// CreateDuel opens a new session and describes how to join it.
func (s *Service) CreateDuel(ctx context.Context) (types.DuelInfo, error) {
	sess, err := s.manager.Create(ctx)
	if err != nil {
		return types.DuelInfo{}, err
	}
	return s.duelInfo(sess), nil
}

// duelInfo renders the join links for one session. With no public URL
// configured the links stay relative to the serving host.
func (s *Service) duelInfo(sess *game.Session) types.DuelInfo {
	base := s.publicURL
	wsBase := ""
	if base != "" {
		wsBase = "ws" + strings.TrimPrefix(base, "http")
	}
	return types.DuelInfo{
		ID:      sess.ID(),
		Code:    sess.Code(),
		WSURL:   wsBase + "/ws/" + sess.ID(),
		JoinURL: base + "/duels/" + sess.ID(),
		QRURL:   base + "/duels/" + sess.ID() + "/qr.png",
	}
}

// Duel returns the live session for a duel id.
func (s *Service) Duel(_ context.Context, id string) (*game.Session, error) {
	return s.manager.Get(id)
}

// Snapshot returns a point-in-time view of a duel.
func (s *Service) Snapshot(_ context.Context, id string) (types.Snapshot, error) {
	sess, err := s.manager.Get(id)
	if err != nil {
		return types.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// Leaderboard returns the top ranked rows.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]types.Entry, error) {
	rows, err := s.store.FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}

	// Convert to API format
	entries := make([]types.Entry, len(rows))
	for i, row := range rows {
		entries[i] = types.Entry{
			Rank:           row.Rank,
			Model:          row.Model,
			Elo:            row.Elo,
			AvgTimeSeconds: row.AvgTimeSeconds,
			ParamCount:     row.ParamCount,
			CorrectGuesses: row.CorrectGuesses,
		}
	}
	return entries, nil
}

// RecordResult folds one finished round into the leaderboard and
// returns the fresh ranked rows for the summary broadcast.
func (s *Service) RecordResult(ctx context.Context, stats map[string]model.ModelStats, pair [2]string) ([]model.LeaderboardRow, error) {
	rows, err := s.store.FetchAll(ctx)
	if err != nil {
		metrics.RecordLeaderboardError()
		return nil, fmt.Errorf("fetching standings: %w", err)
	}

	updated, err := rating.Update(stats, pair, rows)
	if err != nil {
		metrics.RecordLeaderboardError()
		return nil, fmt.Errorf("rating round: %w", err)
	}

	// Only the competing pair changed; persist just those rows.
	changed := make([]model.LeaderboardRow, 0, 2)
	for _, row := range updated {
		if row.Model == pair[0] || row.Model == pair[1] {
			changed = append(changed, row)
		}
	}
	if err := s.store.Upsert(ctx, changed); err != nil {
		metrics.RecordLeaderboardError()
		return nil, fmt.Errorf("persisting standings: %w", err)
	}

	metrics.RecordLeaderboardUpdate()
	for _, row := range changed {
		metrics.UpdateModelElo(row.Model, row.Elo)
	}

	s.logger.Info(ctx, "round recorded",
		logger.String("modelOne", pair[0]),
		logger.Int("correctOne", stats[pair[0]].Correct),
		logger.String("modelTwo", pair[1]),
		logger.Int("correctTwo", stats[pair[1]].Correct),
	)

	return rating.Rank(updated), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":    s.started,
		"store":      s.storeDriver,
		"classifier": s.classifierKind,
		"modelOne":   s.models[0],
		"modelTwo":   s.models[1],
	}

	if s.started {
		ctx := context.Background()
		sessions := s.manager.Count()
		totalModels := s.store.Count(ctx)

		stats["activeSessions"] = sessions
		stats["totalModels"] = totalModels
		stats["vocabularySize"] = s.vocabulary.Len()

		// Update metrics
		metrics.UpdateActiveSessions(sessions)
		metrics.UpdateTotalModels(totalModels)
	}

	return stats
}
