package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/scrawl/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new in-memory deduper", t, func() {
		d := dedupe.NewInMemoryDeduper()
		ctx := context.Background()

		Convey("When an id is recorded for the first time", func() {
			seen := d.SeenAndRecord(ctx, "code-1")

			Convey("Then it reports unseen and tracks it", func() {
				So(seen, ShouldBeFalse)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When the same id is recorded twice", func() {
			d.SeenAndRecord(ctx, "code-1")
			seen := d.SeenAndRecord(ctx, "code-1")

			Convey("Then the second record reports seen", func() {
				So(seen, ShouldBeTrue)
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When an id is unrecorded", func() {
			d.SeenAndRecord(ctx, "code-1")
			d.Unrecord(ctx, "code-1")

			Convey("Then it can be recorded again", func() {
				So(d.Size(), ShouldEqual, 0)
				So(d.SeenAndRecord(ctx, "code-1"), ShouldBeFalse)
			})
		})

		Convey("When an unknown id is unrecorded", func() {
			d.Unrecord(ctx, "ghost")

			Convey("Then nothing changes", func() {
				So(d.Size(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given a bounded deduper of size 3", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))
		ctx := context.Background()

		Convey("When a fourth id is recorded", func() {
			for i := 0; i < 4; i++ {
				So(d.SeenAndRecord(ctx, fmt.Sprintf("code-%d", i)), ShouldBeFalse)
			}

			Convey("Then the oldest id was evicted", func() {
				So(d.Size(), ShouldEqual, 3)
				So(d.SeenAndRecord(ctx, "code-0"), ShouldBeFalse)
				So(d.SeenAndRecord(ctx, "code-3"), ShouldBeTrue)
			})
		})
	})

	Convey("Given concurrent recorders", t, func() {
		d := dedupe.NewInMemoryDeduper()
		ctx := context.Background()

		const goroutines = 16
		const perGoroutine = 100

		var wg sync.WaitGroup
		for g := 0; g < goroutines; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				for i := 0; i < perGoroutine; i++ {
					d.SeenAndRecord(ctx, fmt.Sprintf("g%d-i%d", g, i))
				}
			}(g)
		}
		wg.Wait()

		Convey("Then every id is tracked exactly once", func() {
			So(d.Size(), ShouldEqual, goroutines*perGoroutine)
		})
	})
}
