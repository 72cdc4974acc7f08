// Package model contains domain models passed between layers.
package model

// Prediction is a single (label, confidence) pair produced by a
// classification model. A full classification result is an ordered
// slice of Predictions, highest score first, covering the whole
// label vocabulary.
type Prediction struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Top returns the highest-ranked prediction of a result, or nil when
// the result is empty.
func Top(preds []Prediction) *Prediction {
	if len(preds) == 0 {
		return nil
	}
	p := preds[0]
	return &p
}
