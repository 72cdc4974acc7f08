// Package filter turns a raw ranked prediction list into a banned-label
// filtered, handicap-adjusted, re-normalized probability distribution.
//
// The handicap is the "easy mode" rubber band: once a human has been
// drawing for a while without being recognized, the models' own most
// confident guesses are progressively suppressed, which extends
// playability instead of ending a word instantly.
package filter

import (
	"math"
	"sort"
	"time"

	"github.com/okian/scrawl/internal/domain/model"
)

// Params configures one filter application. The zero value disables the
// handicap entirely and only drops banned labels.
type Params struct {
	// Banned labels are removed before any scoring consideration.
	Banned map[string]struct{}

	// StartRejectThreshold is the top score above which the handicap
	// engages once the delay has passed.
	StartRejectThreshold float64

	// RejectTimeDelay is how long a drawing must be in progress before
	// any suppression starts.
	RejectTimeDelay time.Duration

	// RejectTimePerLabel is the additional drawing time it takes to
	// suppress one more label rank.
	RejectTimePerLabel time.Duration
}

// Apply filters raw predictions for a sketch that has been drawn for
// drawingDuration. It never mutates its input; the returned slice holds
// fresh values that sum to 1. An empty result means "no confident
// prediction this tick" and callers must skip word-advance checks.
func Apply(raw []model.Prediction, drawingDuration time.Duration, p Params) []model.Prediction {
	out := make([]model.Prediction, 0, len(raw))
	for _, pred := range raw {
		if _, banned := p.Banned[pred.Label]; banned {
			continue
		}
		out = append(out, pred)
	}
	if len(out) == 0 {
		return nil
	}

	damp(out, drawingDuration, p)

	// Stable keeps the original ranking for equal scores.
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	return normalize(out)
}

// damp applies the easy-mode suppression in place on the already
// banned-filtered, still rank-ordered slice.
func damp(preds []model.Prediction, drawingDuration time.Duration, p Params) {
	excess := drawingDuration - p.RejectTimeDelay
	if excess <= 0 || p.RejectTimePerLabel <= 0 {
		return
	}
	if preds[0].Score <= p.StartRejectThreshold {
		return
	}

	// One additional rank is cleared for every RejectTimePerLabel past
	// the delay; the boundary rank is only fractionally damped.
	amount := float64(excess) / float64(p.RejectTimePerLabel)
	last := int(math.Floor(amount)) + 1
	if last > len(preds)-1 {
		last = len(preds) - 1
	}
	for i := 0; i <= last; i++ {
		preds[i].Score *= clamp01(float64(i) - amount)
	}
}

// normalize scales scores to sum to 1. An all-zero distribution has no
// meaningful normalization and yields an empty result instead of NaN.
func normalize(preds []model.Prediction) []model.Prediction {
	var sum float64
	for _, p := range preds {
		sum += p.Score
	}
	if sum <= 0 {
		return nil
	}
	for i := range preds {
		preds[i].Score /= sum
	}
	return preds
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
