package model

// HistoryEntry records the outcome of one target word within a round:
// guessed, skipped, or force-closed when the round timed out.
type HistoryEntry struct {
	Target       string      `json:"target"`
	ModelOneTop  *Prediction `json:"model_one_top,omitempty"`
	ModelTwoTop  *Prediction `json:"model_two_top,omitempty"`
	Sketch       *Raster     `json:"sketch,omitempty"`
	Correct      bool        `json:"correct"`
	GuessedBy    []string    `json:"guessed_by,omitempty"`
	ElapsedMS    int64       `json:"elapsed_ms"`
}
