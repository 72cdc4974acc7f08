package vocab_test

import (
	"math/rand"
	"testing"

	vocab "github.com/okian/scrawl/internal/domain/vocab"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNew(t *testing.T) {
	Convey("Given the embedded vocabulary", t, func() {
		v, err := vocab.New()
		So(err, ShouldBeNil)

		Convey("Then it should contain drawable words", func() {
			So(v.Len(), ShouldBeGreaterThan, 0)
			So(len(v.Drawable()), ShouldBeGreaterThan, 0)
		})

		Convey("Then the banned set is a subset of the vocabulary", func() {
			for b := range v.Banned() {
				_, known := v.Index(b)
				So(known, ShouldBeTrue)
			}
		})

		Convey("Then no drawable word is banned", func() {
			for _, w := range v.Drawable() {
				So(v.IsBanned(w), ShouldBeFalse)
			}
		})

		Convey("Then labels resolve by index both ways", func() {
			label, ok := v.Label(0)
			So(ok, ShouldBeTrue)
			i, ok := v.Index(label)
			So(ok, ShouldBeTrue)
			So(i, ShouldEqual, 0)

			_, ok = v.Label(v.Len())
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given a banned-label override", t, func() {
		Convey("When the override names a known label", func() {
			v, err := vocab.New(vocab.WithBannedLabels([]string{"cat"}))

			Convey("Then only that label is banned", func() {
				So(err, ShouldBeNil)
				So(v.IsBanned("cat"), ShouldBeTrue)
				So(v.IsBanned("circle"), ShouldBeFalse)
			})
		})

		Convey("When the override names an unknown label", func() {
			_, err := vocab.New(vocab.WithBannedLabels([]string{"not-a-word"}))

			Convey("Then building fails", func() {
				So(err, ShouldWrap, vocab.ErrUnknownBannedLabel)
			})
		})
	})
}

func TestBuild(t *testing.T) {
	Convey("Given a built target queue", t, func() {
		v, err := vocab.New()
		So(err, ShouldBeNil)

		rng := rand.New(rand.NewSource(1)) //nolint:gosec // deterministic shuffle for testing
		q := v.Build(rng)

		Convey("Then it is a permutation of the drawable vocabulary", func() {
			targets := q.Targets()
			So(targets, ShouldHaveLength, len(v.Drawable()))

			seen := make(map[string]struct{}, len(targets))
			for _, w := range targets {
				_, dup := seen[w]
				So(dup, ShouldBeFalse)
				seen[w] = struct{}{}
				So(v.IsBanned(w), ShouldBeFalse)
			}
		})

		Convey("Then the same seed produces the same order", func() {
			other := v.Build(rand.New(rand.NewSource(1))) //nolint:gosec // deterministic shuffle for testing
			So(other.Targets(), ShouldResemble, q.Targets())
		})

		Convey("Then the cursor only moves forward", func() {
			first := q.Current()
			So(first, ShouldNotBeEmpty)
			So(q.Index(), ShouldEqual, 0)

			q.Advance()
			So(q.Index(), ShouldEqual, 1)
			So(q.Current(), ShouldNotEqual, first)
			So(q.Remaining(), ShouldEqual, len(q.Targets())-1)
		})
	})
}
