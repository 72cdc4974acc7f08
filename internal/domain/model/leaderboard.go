package model

// LeaderboardRow is the persisted standing of one classification model.
// Rank is derived by sorting on Elo descending and may be stale until
// the store re-ranks a snapshot.
type LeaderboardRow struct {
	ID             string
	Rank           int
	Model          string
	Elo            int
	AvgTimeSeconds float64
	ParamCount     int64
	CorrectGuesses int
}
