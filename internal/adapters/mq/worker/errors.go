package worker

import "errors"

// Sentinel errors for worker operations.
var (
	// ErrNoClassifier indicates a load or classify request arrived
	// before setModel configured the worker.
	ErrNoClassifier = errors.New("no classifier configured")
)
