// Package repository defines the leaderboard store interface and errors.
package repository

import "time"

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// PGOption applies a configuration option to the PGStore.
type PGOption func(*PGStore)

// WithPingTimeout bounds how long the initial connectivity check may
// take.
func WithPingTimeout(timeout time.Duration) PGOption {
	return func(s *PGStore) {
		if timeout > 0 {
			s.pingTimeout = timeout
		}
	}
}

// WithMaxOpenConns caps the connection pool size.
func WithMaxOpenConns(n int) PGOption {
	return func(s *PGStore) {
		if n > 0 {
			s.maxOpenConns = n
		}
	}
}
