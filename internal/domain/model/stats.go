package model

import "time"

// ModelStats accumulates per-model counters over a single round-session.
// It is reset on entry to the playing phase and consumed once by the
// rating engine at round end.
type ModelStats struct {
	Correct       int       // correct guesses this session
	LastCorrectAt time.Time // timestamp of the latest correct guess
	AvgSeconds    float64   // running average time-to-correct-guess
}

// RecordCorrect folds one correct guess into the running counters.
// elapsed is the time spent on the word that was just recognized.
func (s *ModelStats) RecordCorrect(now time.Time, elapsed time.Duration) {
	s.Correct++
	s.LastCorrectAt = now
	s.AvgSeconds += (elapsed.Seconds() - s.AvgSeconds) / float64(s.Correct)
}
