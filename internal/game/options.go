package game

import (
	"math/rand"
	"time"

	"github.com/okian/scrawl/internal/domain/dedupe"
	"github.com/okian/scrawl/pkg/logger"
)

// SessionOption applies a configuration option to a Session.
type SessionOption func(*Session)

// WithClock injects a clock, letting tests drive round time manually.
func WithClock(c Clock) SessionOption {
	return func(s *Session) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithRNG injects the shuffle source for deterministic target queues.
func WithRNG(rng *rand.Rand) SessionOption {
	return func(s *Session) {
		if rng != nil {
			s.rng = rng
		}
	}
}

// WithSessionLogger sets a custom logger for the session.
func WithSessionLogger(l logger.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// ManagerOption applies a configuration option to the Manager.
type ManagerOption func(*Manager)

// WithSessionTTL sets how long an idle session survives before the
// reaper closes it.
func WithSessionTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithQueueCapacity sets the per-model inference queue capacity for new
// sessions.
func WithQueueCapacity(capacity int) ManagerOption {
	return func(m *Manager) {
		if capacity > 0 {
			m.queueCap = capacity
		}
	}
}

// WithDeduper injects the join-code uniqueness tracker.
func WithDeduper(d dedupe.Deduper) ManagerOption {
	return func(m *Manager) {
		if d != nil {
			m.codes = d
		}
	}
}

// WithSessionOptions forwards options to every session the manager
// creates.
func WithSessionOptions(opts ...SessionOption) ManagerOption {
	return func(m *Manager) {
		m.sessionOpts = append(m.sessionOpts, opts...)
	}
}
