// Package rating computes Elo updates and aggregate statistics for the
// two classification models that competed in a round-session.
package rating

import (
	"math"
	"sort"

	"github.com/okian/scrawl/internal/domain/model"
)

// K-factor tiers: established high-rated models move slowly.
const (
	kLow  = 32 // below 2100
	kMid  = 24 // [2100, 2400)
	kHigh = 16 // at or above 2400

	midTier  = 2100
	highTier = 2400

	drawScore = 0.5
)

// Update merges one session's per-model stats into the leaderboard.
// The two rows named by pair get new Elo, average time, and correct
// counts; every other row passes through unchanged. The caller re-sorts
// and re-ranks before persisting or displaying (see Rank).
func Update(stats map[string]model.ModelStats, pair [2]string, rows []model.LeaderboardRow) ([]model.LeaderboardRow, error) {
	if stats == nil {
		return nil, ErrMissingStats
	}

	idx := map[string]int{}
	out := make([]model.LeaderboardRow, len(rows))
	copy(out, rows)
	for i, row := range out {
		idx[row.Model] = i
	}
	i1, ok1 := idx[pair[0]]
	i2, ok2 := idx[pair[1]]
	if !ok1 || !ok2 {
		return nil, ErrMissingRow
	}

	s1, s2 := stats[pair[0]], stats[pair[1]]
	o1, o2 := outcome(s1.Correct, s2.Correct)

	elo1, elo2 := out[i1].Elo, out[i2].Elo
	out[i1].Elo = newElo(elo1, elo2, o1)
	out[i2].Elo = newElo(elo2, elo1, o2)

	out[i1].AvgTimeSeconds = mergeAvg(out[i1].AvgTimeSeconds, out[i1].CorrectGuesses, s1.AvgSeconds, s1.Correct)
	out[i2].AvgTimeSeconds = mergeAvg(out[i2].AvgTimeSeconds, out[i2].CorrectGuesses, s2.AvgSeconds, s2.Correct)
	out[i1].CorrectGuesses += s1.Correct
	out[i2].CorrectGuesses += s2.Correct

	return out, nil
}

// outcome maps session correct-guess counts to match scores: the
// strictly better model takes 1, equal counts are a draw.
func outcome(correct1, correct2 int) (float64, float64) {
	switch {
	case correct1 > correct2:
		return 1, 0
	case correct2 > correct1:
		return 0, 1
	default:
		return drawScore, drawScore
	}
}

// expected is the classical Elo expectation of the current model
// against its opponent.
func expected(current, opponent int) float64 {
	return 1 / (1 + math.Pow(10, float64(opponent-current)/400))
}

func kFactor(elo int) float64 {
	switch {
	case elo >= highTier:
		return kHigh
	case elo >= midTier:
		return kMid
	default:
		return kLow
	}
}

// newElo applies one rated result and rounds to an integer so the
// persisted rating is always finite.
func newElo(current, opponent int, score float64) int {
	delta := kFactor(current) * (score - expected(current, opponent))
	return int(math.Round(float64(current) + delta))
}

// mergeAvg folds a session average into the historical one, weighted by
// correct-guess counts. With no new correct guesses the old average is
// kept as-is.
func mergeAvg(oldAvg float64, oldCount int, sessionAvg float64, sessionCount int) float64 {
	if sessionCount <= 0 {
		return oldAvg
	}
	total := oldCount + sessionCount
	return (oldAvg*float64(oldCount) + sessionAvg*float64(sessionCount)) / float64(total)
}

// Rank sorts rows by Elo descending (name ascending on ties, so order
// is stable across snapshots) and assigns ranks, equal ratings sharing
// a rank.
func Rank(rows []model.LeaderboardRow) []model.LeaderboardRow {
	out := make([]model.LeaderboardRow, len(rows))
	copy(out, rows)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Elo != out[j].Elo {
			return out[i].Elo > out[j].Elo
		}
		return out[i].Model < out[j].Model
	})
	for i := range out {
		if i > 0 && out[i].Elo == out[i-1].Elo {
			out[i].Rank = out[i-1].Rank
			continue
		}
		out[i].Rank = i + 1
	}
	return out
}
