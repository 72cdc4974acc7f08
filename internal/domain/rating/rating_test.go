package rating_test

import (
	"testing"

	"github.com/okian/scrawl/internal/domain/model"
	rating "github.com/okian/scrawl/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

func rows(elo1, elo2 int) []model.LeaderboardRow {
	return []model.LeaderboardRow{
		{ID: "1", Model: "sketchnet-s", Elo: elo1},
		{ID: "2", Model: "sketchnet-m", Elo: elo2},
		{ID: "3", Model: "bystander", Elo: 1500, CorrectGuesses: 7},
	}
}

func pair() [2]string { return [2]string{"sketchnet-s", "sketchnet-m"} }

func TestUpdate(t *testing.T) {
	Convey("Given two equally rated models at 1000", t, func() {
		Convey("When model one wins 5 correct guesses to 2", func() {
			stats := map[string]model.ModelStats{
				"sketchnet-s": {Correct: 5, AvgSeconds: 4},
				"sketchnet-m": {Correct: 2, AvgSeconds: 9},
			}
			out, err := rating.Update(stats, pair(), rows(1000, 1000))

			Convey("Then K=32 moves the winner to 1016 and the loser to 984", func() {
				So(err, ShouldBeNil)
				So(out[0].Elo, ShouldEqual, 1016)
				So(out[1].Elo, ShouldEqual, 984)
			})

			Convey("Then the deltas have opposite signs", func() {
				So(out[0].Elo-1000, ShouldBeGreaterThan, 0)
				So(out[1].Elo-1000, ShouldBeLessThan, 0)
			})

			Convey("Then correct counts and averages merge in", func() {
				So(out[0].CorrectGuesses, ShouldEqual, 5)
				So(out[0].AvgTimeSeconds, ShouldAlmostEqual, 4.0)
				So(out[1].CorrectGuesses, ShouldEqual, 2)
				So(out[1].AvgTimeSeconds, ShouldAlmostEqual, 9.0)
			})

			Convey("Then non-participant rows pass through unchanged", func() {
				So(out[2], ShouldResemble, rows(1000, 1000)[2])
			})
		})

		Convey("When the session is a draw", func() {
			stats := map[string]model.ModelStats{
				"sketchnet-s": {Correct: 3},
				"sketchnet-m": {Correct: 3},
			}
			out, err := rating.Update(stats, pair(), rows(1000, 1000))

			Convey("Then neither rating moves", func() {
				So(err, ShouldBeNil)
				So(out[0].Elo, ShouldEqual, 1000)
				So(out[1].Elo, ShouldEqual, 1000)
			})
		})
	})

	Convey("Given the tiered K-factor boundaries", t, func() {
		win := map[string]model.ModelStats{
			"sketchnet-s": {Correct: 1},
			"sketchnet-m": {Correct: 0},
		}

		Convey("When both models sit just below 2100", func() {
			out, err := rating.Update(win, pair(), rows(2099, 2099))
			So(err, ShouldBeNil)
			So(out[0].Elo, ShouldEqual, 2099+16) // K=32, expected 0.5
		})

		Convey("When both models sit at 2100", func() {
			out, err := rating.Update(win, pair(), rows(2100, 2100))
			So(err, ShouldBeNil)
			So(out[0].Elo, ShouldEqual, 2100+12) // K=24
		})

		Convey("When both models sit at 2400", func() {
			out, err := rating.Update(win, pair(), rows(2400, 2400))
			So(err, ShouldBeNil)
			So(out[0].Elo, ShouldEqual, 2400+8) // K=16
		})
	})

	Convey("Given malformed inputs", t, func() {
		Convey("When the stats map is nil", func() {
			_, err := rating.Update(nil, pair(), rows(1000, 1000))
			So(err, ShouldWrap, rating.ErrMissingStats)
		})

		Convey("When a participant has no leaderboard row", func() {
			_, err := rating.Update(map[string]model.ModelStats{}, [2]string{"ghost", "sketchnet-m"}, rows(1000, 1000))
			So(err, ShouldWrap, rating.ErrMissingRow)
		})
	})
}

func TestMergeAvg(t *testing.T) {
	Convey("Given a historical average of 6s over 4 guesses", t, func() {
		base := rows(1000, 1000)
		base[0].AvgTimeSeconds = 6
		base[0].CorrectGuesses = 4

		Convey("When the session adds 2 guesses averaging 3s", func() {
			stats := map[string]model.ModelStats{
				"sketchnet-s": {Correct: 2, AvgSeconds: 3},
				"sketchnet-m": {Correct: 0},
			}
			out, err := rating.Update(stats, pair(), base)

			Convey("Then the merge is weighted by counts", func() {
				So(err, ShouldBeNil)
				So(out[0].AvgTimeSeconds, ShouldAlmostEqual, (6*4+3*2)/6.0)
				So(out[0].CorrectGuesses, ShouldEqual, 6)
			})
		})

		Convey("When the session had no correct guesses", func() {
			stats := map[string]model.ModelStats{
				"sketchnet-s": {Correct: 0, AvgSeconds: 0},
				"sketchnet-m": {Correct: 1, AvgSeconds: 2},
			}
			out, err := rating.Update(stats, pair(), base)

			Convey("Then the old average is preserved", func() {
				So(err, ShouldBeNil)
				So(out[0].AvgTimeSeconds, ShouldAlmostEqual, 6.0)
			})
		})
	})
}

func TestRank(t *testing.T) {
	Convey("Given unranked rows", t, func() {
		in := []model.LeaderboardRow{
			{Model: "a", Elo: 1000},
			{Model: "b", Elo: 1200},
			{Model: "c", Elo: 1200},
			{Model: "d", Elo: 900},
		}

		Convey("When ranked", func() {
			out := rating.Rank(in)

			Convey("Then rows sort by Elo descending with shared ranks for ties", func() {
				So(out[0].Model, ShouldEqual, "b")
				So(out[0].Rank, ShouldEqual, 1)
				So(out[1].Model, ShouldEqual, "c")
				So(out[1].Rank, ShouldEqual, 1)
				So(out[2].Model, ShouldEqual, "a")
				So(out[2].Rank, ShouldEqual, 3)
				So(out[3].Rank, ShouldEqual, 4)
			})

			Convey("Then the input order is untouched", func() {
				So(in[0].Model, ShouldEqual, "a")
				So(in[0].Rank, ShouldEqual, 0)
			})
		})
	})
}
