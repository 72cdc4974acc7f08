// Package types contains the read shapes shared by the HTTP API and
// the service layer.
package types

// Entry is one leaderboard row as served to clients.
type Entry struct {
	Rank           int     `json:"rank"`
	Model          string  `json:"model"`
	Elo            int     `json:"elo"`
	AvgTimeSeconds float64 `json:"avg_time_seconds"`
	ParamCount     int64   `json:"param_count"`
	CorrectGuesses int     `json:"correct_guesses"`
}

// DuelInfo describes a freshly created duel session and how to join it.
type DuelInfo struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	WSURL   string `json:"ws_url"`
	JoinURL string `json:"join_url"`
	QRURL   string `json:"qr_url"`
}

// Snapshot is a point-in-time view of one duel session.
type Snapshot struct {
	ID            string         `json:"id"`
	Code          string         `json:"code"`
	Phase         string         `json:"phase"`
	Countdown     int            `json:"countdown,omitempty"`
	Target        string         `json:"target,omitempty"`
	TargetIndex   int            `json:"target_index"`
	ElapsedMS     int64          `json:"elapsed_ms"`
	RemainingMS   int64          `json:"remaining_ms"`
	WordsResolved int            `json:"words_resolved"`
	Models        [2]string      `json:"models"`
	TopGuesses    map[string]Top `json:"top_guesses,omitempty"`
}

// Top is the highest-ranked filtered guess of one model.
type Top struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}
