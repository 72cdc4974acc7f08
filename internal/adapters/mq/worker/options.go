// Package worker drives the model classifiers that compete in a duel.
package worker

import (
	"github.com/okian/scrawl/internal/adapters/inference"
	"github.com/okian/scrawl/internal/adapters/mq/queue"
	"github.com/okian/scrawl/pkg/logger"
)

// Option applies a configuration option to the ModelWorker.
type Option func(*ModelWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *ModelWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *ModelWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// PairOption applies a configuration option to the Pair.
type PairOption func(*Pair)

// WithQueues supplies pre-built queues, one per model.
func WithQueues(queues [2]*queue.InMemoryQueue) PairOption {
	return func(p *Pair) {
		p.queues = queues
	}
}

// WithReplyBuffer sets the fan-in reply channel capacity.
func WithReplyBuffer(size int) PairOption {
	return func(p *Pair) {
		if size > 0 {
			p.replies = make(chan inference.Reply, size)
		}
	}
}
