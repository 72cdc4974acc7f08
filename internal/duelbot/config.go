package duelbot

import "time"

// Config holds configuration for one bot run.
type Config struct {
	BaseURL        string        // Base URL of the service
	Rounds         int           // Number of rounds to play
	StrokeInterval time.Duration // Delay between synthetic strokes
	SkipEvery      int           // Skip every Nth word (0 disables)
	Timeout        time.Duration // HTTP request timeout
	LogFile        string        // Log file for bot output
	Verbose        bool          // Enable verbose logging
}

// DuelInfo mirrors the duel-creation response.
type DuelInfo struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	WSURL   string `json:"ws_url"`
	JoinURL string `json:"join_url"`
	QRURL   string `json:"qr_url"`
}

// Entry mirrors one leaderboard row.
type Entry struct {
	Rank           int     `json:"rank"`
	Model          string  `json:"model"`
	Elo            int     `json:"elo"`
	AvgTimeSeconds float64 `json:"avg_time_seconds"`
	CorrectGuesses int     `json:"correct_guesses"`
}

// Stats holds bot run statistics.
type Stats struct {
	RoundsPlayed int
	WordsGuessed int
	WordsSkipped int
	StrokesSent  int
	EloBefore    map[string]int
	EloAfter     map[string]int
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
}
