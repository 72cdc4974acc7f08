package inference

import "errors"

// Sentinel errors for inference operations.
var (
	// ErrNoLabels indicates a sim classifier was built without a vocabulary.
	ErrNoLabels = errors.New("no labels configured")

	// ErrUnexpectedStatus indicates a remote endpoint answered with a
	// non-2xx status code.
	ErrUnexpectedStatus = errors.New("unexpected response status")

	// ErrRetriesExhausted indicates all attempts against a remote
	// endpoint failed.
	ErrRetriesExhausted = errors.New("retries exhausted")
)
