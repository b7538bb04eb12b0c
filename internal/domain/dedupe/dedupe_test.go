package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	dedupe "github.com/okian/hoopiq/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	Convey("Given a new InMemoryDeduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()

		Convey("When a key is claimed for the first time", func() {
			owner, claimed := d.Claim(ctx, "upload-1", "job-a")

			Convey("Then the caller owns it", func() {
				So(claimed, ShouldBeTrue)
				So(owner, ShouldEqual, "job-a")
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When the same key is claimed again", func() {
			d.Claim(ctx, "upload-1", "job-a")
			owner, claimed := d.Claim(ctx, "upload-1", "job-b")

			Convey("Then the first owner is returned", func() {
				So(claimed, ShouldBeFalse)
				So(owner, ShouldEqual, "job-a")
				So(d.Size(), ShouldEqual, 1)
			})
		})

		Convey("When a claimed key is unrecorded", func() {
			d.Claim(ctx, "upload-1", "job-a")
			d.Unrecord(ctx, "upload-1")
			d.Unrecord(ctx, "never-claimed")
			owner, claimed := d.Claim(ctx, "upload-1", "job-b")

			Convey("Then it can be claimed by a new job", func() {
				So(claimed, ShouldBeTrue)
				So(owner, ShouldEqual, "job-b")
			})
		})
	})

	Convey("Given a deduper bounded to two keys", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(2))

		Convey("When a third key is claimed", func() {
			d.Claim(ctx, "k1", "j1")
			d.Claim(ctx, "k2", "j2")
			d.Claim(ctx, "k3", "j3")

			Convey("Then the oldest key is evicted", func() {
				So(d.Size(), ShouldEqual, 2)
				_, claimed := d.Claim(ctx, "k1", "j4")
				So(claimed, ShouldBeTrue)
				owner, claimed := d.Claim(ctx, "k3", "j5")
				So(claimed, ShouldBeFalse)
				So(owner, ShouldEqual, "j3")
			})
		})
	})

	Convey("Given an unbounded deduper", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))

		Convey("When many keys are claimed", func() {
			for i := 0; i < 500; i++ {
				d.Claim(ctx, fmt.Sprint(i), "j")
			}

			Convey("Then none is evicted", func() {
				So(d.Size(), ShouldEqual, 500)
			})
		})
	})
}

func TestInMemoryDeduperConcurrency(t *testing.T) {
	Convey("Given many goroutines racing for one key", t, func() {
		ctx := context.Background()
		d := dedupe.NewInMemoryDeduper()
		var wins atomic.Int32
		var wg sync.WaitGroup

		for i := 0; i < 64; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if _, claimed := d.Claim(ctx, "same", fmt.Sprint(i)); claimed {
					wins.Add(1)
				}
			}(i)
		}
		wg.Wait()

		Convey("Then exactly one claim succeeds", func() {
			So(wins.Load(), ShouldEqual, 1)
			So(d.Size(), ShouldEqual, 1)
		})
	})
}
