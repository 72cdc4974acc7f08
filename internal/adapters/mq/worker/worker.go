// Package worker drives the model classifiers that compete in a duel.
//
// Each model gets one worker goroutine reading requests off its own
// queue. Replies from both workers fan in to a single channel consumed
// by the session run loop.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/scrawl/internal/adapters/inference"
	"github.com/okian/scrawl/internal/adapters/mq/queue"
	"github.com/okian/scrawl/pkg/logger"
	"github.com/okian/scrawl/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultReplyBuffer    = 64
	workerShutdownTimeout = 5 * time.Second
	pairShutdownTimeout   = 10 * time.Second
)

// Request abstracts what workers read off the queue.
// Using the inference.Request type for consistency.
type Request = inference.Request

// Queue defines how workers receive requests.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Request
}

// Worker processes inference requests for a single model.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// ModelWorker implements Worker for one competing model.
type ModelWorker struct {
	queue      Queue
	factory    inference.Factory
	classifier inference.Classifier
	replies    chan<- inference.Reply
	name       string

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	// Logging
	logger logger.Logger
}

// NewModelWorker creates a new worker with configuration options.
func NewModelWorker(q Queue, factory inference.Factory, replies chan<- inference.Reply, opts ...Option) *ModelWorker {
	w := &ModelWorker{
		queue:    q,
		factory:  factory,
		replies:  replies,
		name:     "worker", // default name
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(w)
	}

	// Set up logger with worker name if not already set
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *ModelWorker) Run(ctx context.Context) {
	defer func() {
		close(w.done)
	}()

	requestChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case req, ok := <-requestChan:
			if !ok {
				// Channel closed, worker should stop
				return
			}

			w.process(ctx, req)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *ModelWorker) Shutdown(ctx context.Context) error {
	// Signal shutdown
	close(w.shutdown)

	// Wait for worker to finish or context to timeout
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process handles a single request.
func (w *ModelWorker) process(ctx context.Context, req Request) {
	switch req.Action {
	case inference.ActionSetModel:
		w.setModel(ctx, req)
	case inference.ActionLoad:
		w.load(ctx, req)
	case inference.ActionClassify:
		w.classify(ctx, req)
	default:
		w.logger.Warn(ctx, "unknown request action", logger.String("action", string(req.Action)))
	}
}

// setModel builds the classifier for the requested model.
func (w *ModelWorker) setModel(ctx context.Context, req Request) {
	clf, err := w.factory(req.Model)
	if err != nil {
		metrics.RecordInferenceError(req.Model)
		metrics.RecordErrorByComponent("worker", "set_model_error")
		w.logger.Error(ctx, "building classifier failed",
			logger.String("model", req.Model),
			logger.Error(err),
		)
		w.send(ctx, inference.Reply{Status: inference.StatusError, Model: req.Model, Err: err.Error()})
		return
	}
	w.classifier = clf
	w.name = req.Model
}

// load warms the classifier and reports readiness.
func (w *ModelWorker) load(ctx context.Context, req Request) {
	if w.classifier == nil {
		w.send(ctx, inference.Reply{Status: inference.StatusError, Model: req.Model, Err: ErrNoClassifier.Error()})
		return
	}

	if err := w.classifier.Warm(ctx); err != nil {
		metrics.RecordInferenceError(w.classifier.Name())
		metrics.RecordErrorByComponent("worker", "load_error")
		w.logger.Error(ctx, "model warm-up failed",
			logger.String("model", w.classifier.Name()),
			logger.Error(err),
		)
		w.send(ctx, inference.Reply{Status: inference.StatusError, Model: w.classifier.Name(), Err: err.Error()})
		return
	}

	w.send(ctx, inference.Reply{Status: inference.StatusReady, Model: w.classifier.Name()})
}

// classify runs the classifier on the sketch and reports the ranked
// predictions.
func (w *ModelWorker) classify(ctx context.Context, req Request) {
	if w.classifier == nil {
		w.send(ctx, inference.Reply{Status: inference.StatusError, Model: req.Model, Seq: req.Seq, Err: ErrNoClassifier.Error()})
		return
	}

	start := time.Now()
	preds, err := w.classifier.Classify(ctx, req.Image)
	latency := time.Since(start).Milliseconds()
	metrics.RecordInferenceLatency(w.classifier.Name(), float64(latency))

	if err != nil {
		metrics.RecordInferenceError(w.classifier.Name())
		metrics.RecordErrorByComponent("worker", "classify_error")
		metrics.RecordErrorByType("classify_error", "high")
		w.logger.Error(ctx, "classification failed",
			logger.String("model", w.classifier.Name()),
			logger.Uint64("seq", req.Seq),
			logger.Error(err),
		)
		w.send(ctx, inference.Reply{
			Status: inference.StatusError,
			Model:  w.classifier.Name(),
			Seq:    req.Seq,
			DrawMS: req.DrawMS,
			Err:    err.Error(),
		})
		return
	}

	w.send(ctx, inference.Reply{
		Status:      inference.StatusResult,
		Model:       w.classifier.Name(),
		Seq:         req.Seq,
		Predictions: preds,
		DrawMS:      req.DrawMS,
	})
}

// send delivers a reply without wedging the worker if the consumer is
// gone.
func (w *ModelWorker) send(ctx context.Context, reply inference.Reply) {
	select {
	case w.replies <- reply:
	case <-w.shutdown:
	case <-ctx.Done():
	}
}

// Pair manages the two workers that compete in a duel session.
type Pair struct {
	models  [2]string
	queues  [2]*queue.InMemoryQueue
	workers [2]*ModelWorker
	replies chan inference.Reply

	// Logging
	logger logger.Logger
}

// NewPair creates queues and workers for both duel models.
func NewPair(models [2]string, factory inference.Factory, opts ...PairOption) *Pair {
	p := &Pair{
		models:  models,
		replies: make(chan inference.Reply, defaultReplyBuffer),
		logger:  logger.Get().Named("worker-pair"),
	}

	// Apply all options
	for _, opt := range opts {
		opt(p)
	}

	for i := range p.models {
		if p.queues[i] == nil {
			p.queues[i] = queue.NewInMemoryQueue()
		}
		p.workers[i] = NewModelWorker(
			p.queues[i],
			factory,
			p.replies,
			WithName(p.models[i]),
		)
	}

	return p
}

// Start starts both worker loops.
func (p *Pair) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Dispatch routes a request to the worker serving its model.
// Returns false when the model is unknown or its queue rejected the
// request.
func (p *Pair) Dispatch(ctx context.Context, req Request) bool {
	for i, m := range p.models {
		if m == req.Model {
			return p.queues[i].Enqueue(ctx, req)
		}
	}
	p.logger.Warn(ctx, "dispatch to unknown model", logger.String("model", req.Model))
	return false
}

// Replies returns the fan-in channel carrying both workers' replies.
func (p *Pair) Replies() <-chan inference.Reply {
	return p.replies
}

// Stop gracefully shuts down both workers and their queues.
func (p *Pair) Stop(ctx context.Context) error {
	// Close the queues first so drained workers exit their loops
	for _, q := range p.queues {
		if err := q.Close(); err != nil {
			p.logger.Warn(ctx, "closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, pairShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		workerCtx, workerCancel := context.WithTimeout(shutdownCtx, workerShutdownTimeout)
		if err := w.Shutdown(workerCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out",
				logger.String("model", p.models[i]),
				logger.Error(err),
			)
		}
		workerCancel()
	}

	return nil
}
