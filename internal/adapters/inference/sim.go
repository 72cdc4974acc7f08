package inference

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/okian/scrawl/internal/domain/model"
)

// Default sim classifier configuration constants.
const (
	defaultSimMinLatency = 80 * time.Millisecond
	defaultSimMaxLatency = 150 * time.Millisecond
	defaultSimSeed       = 42
	defaultSimTopN       = 10

	// hintPixelCount is the number of leading pixels a hinted raster
	// uses to carry a label signature.
	hintPixelCount = 8

	// hintBoost is the score added to a hinted label, scaled by ink
	// coverage so an empty canvas never wins.
	hintBoost = 2.0
)

// SimClassifier implements Classifier with deterministic pseudo-random
// scoring derived from the raster content. Two calls with the same
// raster and seed produce the same ranked list, which keeps round tests
// reproducible.
type SimClassifier struct {
	name   string
	labels []string

	// Simulated inference latency range
	minLatency time.Duration
	maxLatency time.Duration

	seed uint64
	topN int

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSimClassifier creates a simulated classifier over the given
// vocabulary labels.
func NewSimClassifier(name string, labels []string, opts ...SimOption) (*SimClassifier, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("sim classifier %q: %w", name, ErrNoLabels)
	}

	s := &SimClassifier{
		name:       name,
		labels:     append([]string(nil), labels...),
		minLatency: defaultSimMinLatency,
		maxLatency: defaultSimMaxLatency,
		seed:       defaultSimSeed,
		topN:       defaultSimTopN,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	s.rng = rand.New(rand.NewSource(int64(s.seed))) //nolint:gosec // deterministic seed for reproducible play

	return s, nil
}

// Name returns the model identifier this classifier serves.
func (s *SimClassifier) Name() string {
	return s.name
}

// Warm is a no-op for the simulated model.
func (s *SimClassifier) Warm(_ context.Context) error {
	return nil
}

// Classify scores the raster against the vocabulary. Latency is
// simulated inside the configured range; cancellation is honored while
// waiting.
func (s *SimClassifier) Classify(ctx context.Context, r *model.Raster) ([]model.Prediction, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("sim classify: %w", err)
	}

	if err := s.sleep(ctx); err != nil {
		return nil, err
	}

	hinted := decodeHint(r, s.labels)
	coverage := inkCoverage(r)

	preds := make([]model.Prediction, 0, len(s.labels))
	var total float64
	for _, label := range s.labels {
		score := pseudoScore(s.seed, label, r.Pixels)
		if label == hinted {
			score += coverage * hintBoost
		}
		preds = append(preds, model.Prediction{Label: label, Score: score})
		total += score
	}

	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Score > preds[j].Score
	})

	if len(preds) > s.topN {
		preds = preds[:s.topN]
	}

	if total > 0 {
		for i := range preds {
			preds[i].Score /= total
		}
	}

	return preds, nil
}

// sleep blocks for a pseudo-random duration in the configured latency
// range, or until ctx is done.
func (s *SimClassifier) sleep(ctx context.Context) error {
	s.mu.Lock()
	span := int64(s.maxLatency - s.minLatency)
	latency := s.minLatency
	if span > 0 {
		latency += time.Duration(s.rng.Int63n(span))
	}
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("sim classify cancelled: %w", ctx.Err())
	case <-time.After(latency):
		return nil
	}
}

// EncodeHint stamps a label signature into the leading pixels of a
// raster so the sim classifier can recognize machine-drawn sketches.
// Used by the duel bot; human strokes are vanishingly unlikely to form
// a valid signature.
func EncodeHint(r *model.Raster, label string) {
	if r == nil || len(r.Pixels) < hintPixelCount {
		return
	}
	sig := labelSignature(label)
	for i := 0; i < hintPixelCount; i++ {
		r.Pixels[i] = byte(sig >> (8 * i))
	}
}

// decodeHint reads a label signature from the leading pixels and
// returns the matching label, or "" when no label matches.
func decodeHint(r *model.Raster, labels []string) string {
	if len(r.Pixels) < hintPixelCount {
		return ""
	}
	var sig uint64
	for i := 0; i < hintPixelCount; i++ {
		sig |= uint64(r.Pixels[i]) << (8 * i)
	}
	if sig == 0 {
		return ""
	}
	for _, label := range labels {
		if labelSignature(label) == sig {
			return label
		}
	}
	return ""
}

// labelSignature hashes a label into the 64-bit value EncodeHint stamps
// into the raster.
func labelSignature(label string) uint64 {
	h := fnv.New64a()
	h.Write([]byte("hint:"))
	h.Write([]byte(label))
	return h.Sum64()
}

// pseudoScore derives a stable score in (0,1) from the seed, label, and
// raster content.
func pseudoScore(seed uint64, label string, pixels []byte) float64 {
	h := fnv.New64a()
	var seedBytes [8]byte
	for i := 0; i < 8; i++ {
		seedBytes[i] = byte(seed >> (8 * i))
	}
	h.Write(seedBytes[:])
	h.Write([]byte(label))
	h.Write(pixels)
	// Map to (0,1); +1 avoids an exact zero score.
	return float64(h.Sum64()%100000+1) / 100001.0
}

// inkCoverage returns the fraction of non-zero pixels in the raster.
func inkCoverage(r *model.Raster) float64 {
	if len(r.Pixels) == 0 {
		return 0
	}
	var set int
	for _, p := range r.Pixels {
		if p != 0 {
			set++
		}
	}
	return float64(set) / float64(len(r.Pixels))
}
