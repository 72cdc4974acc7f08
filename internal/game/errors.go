package game

import "errors"

// Sentinel errors for session management.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrManagerClosed   = errors.New("manager closed")
	ErrCodeExhausted   = errors.New("join code space exhausted")
)
