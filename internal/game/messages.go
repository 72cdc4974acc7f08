package game

import (
	"github.com/okian/scrawl/internal/domain/model"
	"github.com/okian/scrawl/internal/domain/types"
)

// MessageType tags a server→client broadcast.
type MessageType string

// Broadcast message types.
const (
	MessagePhase       MessageType = "phase"
	MessageReady       MessageType = "ready"
	MessagePredictions MessageType = "predictions"
	MessageWord        MessageType = "word"
	MessageSummary     MessageType = "summary"
	MessageClear       MessageType = "clear"
	MessageError       MessageType = "error"
)

// Message is one broadcast unit fanned out to attached clients.
type Message struct {
	Type MessageType `json:"type"`
	Data any         `json:"data,omitempty"`
}

// PhasePayload announces a phase change; Countdown is set only during
// the countdown phase.
type PhasePayload struct {
	Phase     string `json:"phase"`
	Countdown int    `json:"countdown,omitempty"`
}

// ReadyPayload announces that one model finished warming up.
type ReadyPayload struct {
	Model string `json:"model"`
}

// PredictionsPayload carries one model's freshly filtered ranking.
type PredictionsPayload struct {
	Model       string             `json:"model"`
	Predictions []model.Prediction `json:"predictions"`
}

// WordPayload announces the current target word.
type WordPayload struct {
	Target    string `json:"target"`
	Index     int    `json:"index"`
	Remaining int    `json:"remaining"`
}

// ClearPayload commands the sketch client to wipe its canvas.
// ResetTimer distinguishes a word advance (fresh drawing clock) from a
// round-end wipe.
type ClearPayload struct {
	ResetTimer bool `json:"reset_timer"`
}

// SummaryPayload closes a round with its full outcome.
type SummaryPayload struct {
	History []model.HistoryEntry    `json:"history"`
	Stats   map[string]SummaryStats `json:"stats"`
	Rows    []model.LeaderboardRow  `json:"leaderboard,omitempty"`
}

// SummaryStats is the per-model slice of a round summary.
type SummaryStats struct {
	Correct    int     `json:"correct"`
	AvgSeconds float64 `json:"avg_seconds"`
}

// ErrorPayload reports a recoverable failure to clients.
type ErrorPayload struct {
	Message string `json:"message"`
}

// snapshotTop converts a filtered output head into the API type.
func snapshotTop(preds []model.Prediction) (types.Top, bool) {
	top := model.Top(preds)
	if top == nil {
		return types.Top{}, false
	}
	return types.Top{Label: top.Label, Score: top.Score}, true
}
