package duelbot

import (
	"math/rand"

	"github.com/okian/scrawl/internal/adapters/inference"
	"github.com/okian/scrawl/internal/domain/model"
)

// Synthetic canvas constants.
const (
	canvasSize = 64
	inkValue   = 255

	// hintReserve keeps the leading pixels free for the label hint.
	hintReserve = 8
)

// sketcher fakes a human drawing one target word: each stroke adds a
// short run of ink, and the raster carries the label hint the simulated
// classifiers recognize once enough of the canvas is covered.
type sketcher struct {
	target  string
	raster  *model.Raster
	rng     *rand.Rand
	strokes int
}

// newSketcher starts a blank hinted canvas for the target.
func newSketcher(target string, rng *rand.Rand) *sketcher {
	r := &model.Raster{
		Width:  canvasSize,
		Height: canvasSize,
		Pixels: make([]byte, canvasSize*canvasSize),
	}
	inference.EncodeHint(r, target)
	return &sketcher{target: target, raster: r, rng: rng}
}

// addStroke inks a short random run of pixels, like one pen movement.
func (s *sketcher) addStroke() {
	runLen := 20 + s.rng.Intn(40)
	start := hintReserve + s.rng.Intn(len(s.raster.Pixels)-hintReserve-runLen)
	for i := start; i < start+runLen; i++ {
		s.raster.Pixels[i] = inkValue
	}
	s.strokes++
}

// sketch returns a snapshot of the current canvas.
func (s *sketcher) sketch() *model.Raster {
	return s.raster.Clone()
}

// coverage reports the inked fraction of the canvas.
func (s *sketcher) coverage() float64 {
	var set int
	for _, p := range s.raster.Pixels {
		if p != 0 {
			set++
		}
	}
	return float64(set) / float64(len(s.raster.Pixels))
}
