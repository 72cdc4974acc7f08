package filter

import (
	"testing"
	"time"

	"github.com/okian/scrawl/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func params(banned ...string) Params {
	b := make(map[string]struct{}, len(banned))
	for _, label := range banned {
		b[label] = struct{}{}
	}
	return Params{
		Banned:               b,
		StartRejectThreshold: 0.2,
		RejectTimeDelay:      3 * time.Second,
		RejectTimePerLabel:   3 * time.Second,
	}
}

func TestApply(t *testing.T) {
	Convey("Given a raw ranked prediction list", t, func() {
		raw := []model.Prediction{
			{Label: "cat", Score: 0.9},
			{Label: "circle", Score: 0.05},
			{Label: "dog", Score: 0.05},
		}

		Convey("When a banned label is present and no time has passed", func() {
			out := Apply(raw, 0, params("circle"))

			Convey("Then the banned label is dropped and the rest re-normalized", func() {
				So(out, ShouldHaveLength, 2)
				So(out[0].Label, ShouldEqual, "cat")
				So(out[0].Score, ShouldAlmostEqual, 0.9/0.95)
				So(out[1].Label, ShouldEqual, "dog")
				So(out[1].Score, ShouldAlmostEqual, 0.05/0.95)
			})

			Convey("Then the input is left untouched", func() {
				So(raw[0].Score, ShouldAlmostEqual, 0.9)
				So(raw[1].Label, ShouldEqual, "circle")
			})
		})

		Convey("When the result is non-empty", func() {
			out := Apply(raw, 10*time.Second, params("circle"))

			Convey("Then the scores sum to one", func() {
				var sum float64
				for _, p := range out {
					sum += p.Score
				}
				So(sum, ShouldAlmostEqual, 1.0)
			})
		})

		Convey("When every label is banned", func() {
			out := Apply(raw, 0, params("cat", "circle", "dog"))

			Convey("Then the result is empty", func() {
				So(out, ShouldBeEmpty)
			})
		})

		Convey("When the input is empty", func() {
			So(Apply(nil, 0, params()), ShouldBeEmpty)
		})
	})
}

func TestEasyMode(t *testing.T) {
	Convey("Given a confident top prediction", t, func() {
		p := params()

		Convey("When drawing time is delay + 1.5x the per-label step", func() {
			raw := []model.Prediction{
				{Label: "cat", Score: 0.9},
				{Label: "dog", Score: 0.06},
				{Label: "fish", Score: 0.04},
			}
			duration := p.RejectTimeDelay + time.Duration(1.5*float64(p.RejectTimePerLabel))
			out := Apply(raw, duration, p)

			Convey("Then ranks 0 and 1 are zeroed and rank 2 is half-damped", func() {
				// amount = 1.5: factors clamp01(0-1.5)=0, clamp01(1-1.5)=0,
				// clamp01(2-1.5)=0.5; only fish survives normalization.
				So(out, ShouldHaveLength, 1)
				So(out[0].Label, ShouldEqual, "fish")
				So(out[0].Score, ShouldAlmostEqual, 1.0)
			})
		})

		Convey("When the top score is below the engage threshold", func() {
			raw := []model.Prediction{
				{Label: "cat", Score: 0.15},
				{Label: "dog", Score: 0.1},
			}
			out := Apply(raw, time.Minute, p)

			Convey("Then no suppression happens", func() {
				So(out[0].Label, ShouldEqual, "cat")
				So(out[0].Score, ShouldAlmostEqual, 0.15/0.25)
			})
		})

		Convey("When suppression zeroes every score", func() {
			raw := []model.Prediction{{Label: "cat", Score: 0.9}}
			out := Apply(raw, time.Minute, p)

			Convey("Then the result is empty rather than NaN", func() {
				So(out, ShouldBeEmpty)
			})
		})
	})
}

func TestDampMonotonicity(t *testing.T) {
	Convey("Given increasing drawing durations past the delay", t, func() {
		p := params()
		base := []model.Prediction{
			{Label: "cat", Score: 0.9},
			{Label: "dog", Score: 0.05},
			{Label: "fish", Score: 0.03},
			{Label: "tree", Score: 0.02},
		}

		Convey("Then the damped top score never increases with duration", func() {
			prev := base[0].Score + 1
			for step := 0; step < 12; step++ {
				preds := make([]model.Prediction, len(base))
				copy(preds, base)

				duration := p.RejectTimeDelay + time.Duration(step)*time.Second
				damp(preds, duration, p)

				top := preds[0].Score
				for _, pr := range preds[1:] {
					if pr.Score > top {
						top = pr.Score
					}
				}
				So(top, ShouldBeLessThanOrEqualTo, prev)
				prev = top
			}
		})
	})
}
