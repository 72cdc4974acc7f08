package game

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/okian/scrawl/internal/adapters/inference"
	"github.com/okian/scrawl/internal/adapters/mq/queue"
	"github.com/okian/scrawl/internal/adapters/mq/worker"
	"github.com/okian/scrawl/internal/domain/dedupe"
	"github.com/okian/scrawl/internal/domain/vocab"
	"github.com/okian/scrawl/pkg/logger"
	"github.com/okian/scrawl/pkg/metrics"
)

// Default manager configuration constants.
const (
	defaultSessionTTL      = 30 * time.Minute
	defaultQueueCapacity   = 64
	reapInterval           = time.Minute
	joinCodeLength         = 6
	joinCodeAttempts       = 64
	sessionShutdownTimeout = 10 * time.Second

	// No easily-confused characters (0/O, 1/I/L) in join codes.
	joinCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

// Manager creates, looks up, and reaps duel sessions. It owns the
// classifier factory so every session gets its own worker pair.
type Manager struct {
	vocabulary  *vocab.Vocabulary
	factory     inference.Factory
	recorder    Recorder
	models      [2]string
	rules       Rules
	ttl         time.Duration
	queueCap    int
	codes       dedupe.Deduper
	sessionOpts []SessionOption
	logger      logger.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	byCode   map[string]string
	closed   bool

	runCtx context.Context //nolint:containedctx // lifetime anchor for session goroutines
	cancel context.CancelFunc
}

// NewManager wires a session manager with configuration options.
func NewManager(v *vocab.Vocabulary, factory inference.Factory, recorder Recorder, models [2]string, rules Rules, opts ...ManagerOption) *Manager {
	m := &Manager{
		vocabulary: v,
		factory:    factory,
		recorder:   recorder,
		models:     models,
		rules:      rules,
		ttl:        defaultSessionTTL,
		queueCap:   defaultQueueCapacity,
		codes:      dedupe.NewInMemoryDeduper(),
		logger:     logger.Get().Named("manager"),
		sessions:   make(map[string]*Session),
		byCode:     make(map[string]string),
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Start anchors session goroutines to ctx and launches the idle-session
// reaper.
func (m *Manager) Start(ctx context.Context) {
	m.runCtx, m.cancel = context.WithCancel(ctx)
	go m.reapLoop(m.runCtx)
}

// Create builds a new session with a unique join code and starts its
// run loop.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrManagerClosed
	}

	code, err := m.reserveCode(ctx)
	if err != nil {
		return nil, err
	}

	pair := worker.NewPair(m.models, m.factory, worker.WithQueues([2]*queue.InMemoryQueue{
		queue.NewInMemoryQueue(queue.WithCapacity(m.queueCap)),
		queue.NewInMemoryQueue(queue.WithCapacity(m.queueCap)),
	}))

	sess := NewSession(uuid.NewString(), code, m.models, m.vocabulary, pair, m.recorder, m.rules, m.sessionOpts...)
	go sess.Run(m.runCtx)

	m.sessions[sess.ID()] = sess
	m.byCode[code] = sess.ID()

	metrics.RecordSessionCreated()
	metrics.UpdateActiveSessions(len(m.sessions))
	m.logger.Info(ctx, "session created",
		logger.String("id", sess.ID()),
		logger.String("code", code),
	)

	return sess, nil
}

// reserveCode draws join codes until the deduper accepts one. Must be
// called with m.mu held.
func (m *Manager) reserveCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < joinCodeAttempts; attempt++ {
		code, err := randomCode()
		if err != nil {
			return "", fmt.Errorf("generating join code: %w", err)
		}
		if !m.codes.SeenAndRecord(ctx, code) {
			return code, nil
		}
	}
	return "", ErrCodeExhausted
}

// randomCode draws a join code from the unambiguous alphabet.
func randomCode() (string, error) {
	buf := make([]byte, joinCodeLength)
	for i := range buf {
		n, err := crand.Int(crand.Reader, big.NewInt(int64(len(joinCodeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("reading randomness: %w", err)
		}
		buf[i] = joinCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, ErrSessionNotFound)
	}
	return sess, nil
}

// GetByCode returns the session behind a join code.
func (m *Manager) GetByCode(code string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byCode[code]
	if !ok {
		return nil, fmt.Errorf("code %q: %w", code, ErrSessionNotFound)
	}
	return m.sessions[id], nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// reapLoop closes sessions idle past the TTL.
func (m *Manager) reapLoop(ctx context.Context) {
	ticker := time.NewTicker(reapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.reap(ctx)
		}
	}
}

// reap removes every session whose last activity is older than the TTL.
func (m *Manager) reap(ctx context.Context) {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.RLock()
	var stale []*Session
	for _, sess := range m.sessions {
		if sess.LastActive().Before(cutoff) {
			stale = append(stale, sess)
		}
	}
	m.mu.RUnlock()

	for _, sess := range stale {
		m.logger.Info(ctx, "reaping idle session",
			logger.String("id", sess.ID()),
			logger.String("code", sess.Code()),
		)
		m.remove(ctx, sess)
	}
}

// remove tears down one session and releases its join code.
func (m *Manager) remove(ctx context.Context, sess *Session) {
	m.mu.Lock()
	delete(m.sessions, sess.ID())
	delete(m.byCode, sess.Code())
	m.mu.Unlock()

	sess.Close(ctx)
	m.codes.Unrecord(ctx, sess.Code())
	metrics.UpdateActiveSessions(m.Count())
}

// Shutdown closes every session and stops the reaper.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.Unlock()

	shutdownCtx, cancel := context.WithTimeout(ctx, sessionShutdownTimeout)
	defer cancel()
	for _, sess := range sessions {
		m.remove(shutdownCtx, sess)
	}

	if m.cancel != nil {
		m.cancel()
	}
	return nil
}
