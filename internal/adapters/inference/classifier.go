// Package inference defines the contract between the game loop and the
// vision models that try to recognize the player's sketch.
//
// Requests and replies form a small tagged-union protocol so the same
// worker loop can drive model selection, warm-up, and classification.
package inference

import (
	"context"

	"github.com/okian/scrawl/internal/domain/model"
)

// Action identifies what a worker should do with a request.
type Action string

// Worker request actions.
const (
	ActionSetModel Action = "setModel"
	ActionLoad     Action = "load"
	ActionClassify Action = "classify"
)

// Status identifies the kind of reply a worker produced.
type Status string

// Worker reply statuses.
const (
	StatusReady  Status = "ready"
	StatusResult Status = "result"
	StatusError  Status = "error"
)

// Request is a single unit of work dispatched to a model worker.
type Request struct {
	Action Action
	Model  string
	// Seq tags classify requests so stale replies can be discarded.
	Seq    uint64
	Image  *model.Raster
	DrawMS int64
}

// Reply is the worker's answer, fanned in to the session run loop.
type Reply struct {
	Status      Status
	Model       string
	Seq         uint64
	Predictions []model.Prediction
	DrawMS      int64
	Err         string
}

// Classifier turns a raster into a ranked list of label predictions.
type Classifier interface {
	// Name returns the model identifier this classifier serves.
	Name() string

	// Warm prepares the model for classification. Called once before
	// the first Classify.
	Warm(ctx context.Context) error

	// Classify scores the raster against the vocabulary, honoring ctx
	// for cancellation.
	Classify(ctx context.Context, r *model.Raster) ([]model.Prediction, error)
}

// Factory builds a classifier for a model name. Sessions use it to give
// each worker pair its own classifier instances.
type Factory func(modelName string) (Classifier, error)
