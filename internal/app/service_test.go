package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/okian/scrawl/internal/domain/model"
	"github.com/okian/scrawl/internal/game"
	"github.com/okian/scrawl/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	m.Run()
}

func startedService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	svc := New(opts...)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("starting service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func TestServiceLifecycle(t *testing.T) {
	Convey("Given a started service on the in-memory store", t, func() {
		svc := startedService(t)
		ctx := context.Background()

		Convey("Then both models are seeded at the baseline rating", func() {
			entries, err := svc.Leaderboard(ctx, 10)
			So(err, ShouldBeNil)
			So(entries, ShouldHaveLength, 2)
			So(entries[0].Elo, ShouldEqual, 1000)
			So(entries[1].Elo, ShouldEqual, 1000)
			So(entries[0].Rank, ShouldEqual, 1)
			So(entries[1].Rank, ShouldEqual, 1)
		})

		Convey("Then the stats map reports the running components", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldBeTrue)
			So(stats["store"], ShouldEqual, StoreMemory)
			So(stats["classifier"], ShouldEqual, ClassifierSim)
			So(stats["totalModels"], ShouldEqual, 2)
		})

		Convey("When Start is called again", func() {
			So(svc.Start(ctx), ShouldBeNil)

			Convey("Then it is a no-op", func() {
				So(svc.GetStats()["started"], ShouldBeTrue)
			})
		})

		Convey("When the service is stopped twice", func() {
			svc.Stop()
			svc.Stop()

			Convey("Then it stays stopped", func() {
				So(svc.GetStats()["started"], ShouldBeFalse)
			})
		})
	})
}

func TestCreateDuel(t *testing.T) {
	Convey("Given a started service without a public URL", t, func() {
		svc := startedService(t)
		ctx := context.Background()

		Convey("When a duel is created", func() {
			info, err := svc.CreateDuel(ctx)
			So(err, ShouldBeNil)

			Convey("Then the join links are relative", func() {
				So(info.ID, ShouldNotBeEmpty)
				So(info.Code, ShouldHaveLength, 6)
				So(info.WSURL, ShouldEqual, "/ws/"+info.ID)
				So(info.JoinURL, ShouldEqual, "/duels/"+info.ID)
				So(info.QRURL, ShouldEqual, "/duels/"+info.ID+"/qr.png")
			})

			Convey("Then the session is reachable by id", func() {
				sess, err := svc.Duel(ctx, info.ID)
				So(err, ShouldBeNil)
				So(sess.Code(), ShouldEqual, info.Code)

				snap, err := svc.Snapshot(ctx, info.ID)
				So(err, ShouldBeNil)
				So(snap.Phase, ShouldEqual, "menu")
			})
		})

		Convey("When an unknown duel is looked up", func() {
			_, err := svc.Duel(ctx, "ghost")
			So(err, ShouldWrap, game.ErrSessionNotFound)

			_, err = svc.Snapshot(ctx, "ghost")
			So(err, ShouldWrap, game.ErrSessionNotFound)
		})
	})

	Convey("Given a started service with a public URL", t, func() {
		svc := startedService(t, WithPublicURL("https://scrawl.example.com/"))
		ctx := context.Background()

		Convey("When a duel is created", func() {
			info, err := svc.CreateDuel(ctx)
			So(err, ShouldBeNil)

			Convey("Then the links are absolute and the WS link swaps scheme", func() {
				So(info.JoinURL, ShouldEqual, "https://scrawl.example.com/duels/"+info.ID)
				So(info.WSURL, ShouldEqual, "wss://scrawl.example.com/ws/"+info.ID)
				So(strings.HasSuffix(info.QRURL, "/qr.png"), ShouldBeTrue)
			})
		})
	})
}

func TestRecordResult(t *testing.T) {
	Convey("Given a started service with seeded standings", t, func() {
		svc := startedService(t, WithSimLatencyRange(time.Millisecond, 2*time.Millisecond))
		ctx := context.Background()
		pair := svc.models

		Convey("When one model clearly wins a round", func() {
			stats := map[string]model.ModelStats{
				pair[0]: {Correct: 3, AvgSeconds: 4.2},
				pair[1]: {Correct: 1, AvgSeconds: 7.5},
			}
			rows, err := svc.RecordResult(ctx, stats, pair)
			So(err, ShouldBeNil)

			Convey("Then the winner gains what the loser gives up", func() {
				So(rows, ShouldHaveLength, 2)
				So(rows[0].Model, ShouldEqual, pair[0])
				So(rows[0].Elo, ShouldEqual, 1016)
				So(rows[1].Elo, ShouldEqual, 984)
				So(rows[0].Rank, ShouldEqual, 1)
				So(rows[1].Rank, ShouldEqual, 2)
			})

			Convey("Then the standings persist across reads", func() {
				entries, err := svc.Leaderboard(ctx, 10)
				So(err, ShouldBeNil)
				So(entries[0].Elo, ShouldEqual, 1016)
				So(entries[0].CorrectGuesses, ShouldEqual, 3)
				So(entries[0].AvgTimeSeconds, ShouldAlmostEqual, 4.2, 0.0001)
			})
		})

		Convey("When the stats map is missing", func() {
			_, err := svc.RecordResult(ctx, nil, pair)

			Convey("Then the recorder refuses", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
