package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/julienschmidt/httprouter"
	api "github.com/okian/scrawl/internal/adapters/http/api"
	"github.com/okian/scrawl/internal/domain/types"
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

// stubDeps satisfies api.Dependencies with canned answers.
type stubDeps struct {
	info    types.DuelInfo
	snap    types.Snapshot
	entries []api.Entry
	known   map[string]bool
	fail    error
}

func (s *stubDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"sessions": 1}
}

func (s *stubDeps) CreateDuel(context.Context) (types.DuelInfo, error) {
	if s.fail != nil {
		return types.DuelInfo{}, s.fail
	}
	return s.info, nil
}

func (s *stubDeps) Duel(_ context.Context, id string) (*game.Session, error) {
	if !s.known[id] {
		return nil, game.ErrSessionNotFound
	}
	return &game.Session{}, nil
}

func (s *stubDeps) Snapshot(_ context.Context, id string) (types.Snapshot, error) {
	if !s.known[id] {
		return types.Snapshot{}, game.ErrSessionNotFound
	}
	return s.snap, nil
}

func (s *stubDeps) Leaderboard(_ context.Context, limit int) ([]api.Entry, error) {
	if limit < len(s.entries) {
		return s.entries[:limit], nil
	}
	return s.entries, nil
}

func newTestServer(deps *stubDeps) *httptest.Server {
	router := httprouter.New()
	api.NewServer(deps, 50).Register(router)
	return httptest.NewServer(router)
}

func TestDuelEndpoints(t *testing.T) {
	Convey("Given the API over a stub service", t, func() {
		deps := &stubDeps{
			info: types.DuelInfo{
				ID:      "d-1",
				Code:    "KXQPT2",
				WSURL:   "ws://host/ws/d-1",
				JoinURL: "http://host/duels/d-1",
				QRURL:   "http://host/duels/d-1/qr.png",
			},
			snap:  types.Snapshot{ID: "d-1", Phase: "playing", Target: "cat"},
			known: map[string]bool{"d-1": true},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When a duel is created", func() {
			resp, err := http.Post(srv.URL+"/duels", "application/json", nil)
			So(err, ShouldBeNil)
			defer resp.Body.Close() //nolint:errcheck // test teardown

			Convey("Then 201 with the join info is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusCreated)
				var info types.DuelInfo
				So(json.NewDecoder(resp.Body).Decode(&info), ShouldBeNil)
				So(info, ShouldResemble, deps.info)
			})
		})

		Convey("When a known duel snapshot is fetched", func() {
			resp, err := http.Get(srv.URL + "/duels/d-1")
			So(err, ShouldBeNil)
			defer resp.Body.Close() //nolint:errcheck // test teardown

			Convey("Then the snapshot is served", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var snap types.Snapshot
				So(json.NewDecoder(resp.Body).Decode(&snap), ShouldBeNil)
				So(snap.Phase, ShouldEqual, "playing")
				So(snap.Target, ShouldEqual, "cat")
			})
		})

		Convey("When an unknown duel is fetched", func() {
			resp, err := http.Get(srv.URL + "/duels/ghost")
			So(err, ShouldBeNil)
			defer resp.Body.Close() //nolint:errcheck // test teardown

			Convey("Then 404 with an error body is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
				var body map[string]string
				So(json.NewDecoder(resp.Body).Decode(&body), ShouldBeNil)
				So(body["code"], ShouldEqual, "not_found")
			})
		})

		Convey("When the QR code for a known duel is fetched", func() {
			resp, err := http.Get(srv.URL + "/duels/d-1/qr.png")
			So(err, ShouldBeNil)
			defer resp.Body.Close() //nolint:errcheck // test teardown

			Convey("Then a PNG is served", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(resp.Header.Get("Content-Type"), ShouldEqual, "image/png")
			})
		})
	})
}

func TestLeaderboardEndpoint(t *testing.T) {
	Convey("Given a leaderboard with three entries", t, func() {
		deps := &stubDeps{
			entries: []api.Entry{
				{Rank: 1, Model: "sketchnet-l", Elo: 1040},
				{Rank: 2, Model: "sketchnet-s", Elo: 1000},
				{Rank: 3, Model: "sketchnet-m", Elo: 960},
			},
			known: map[string]bool{},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When fetched without a limit", func() {
			resp, err := http.Get(srv.URL + "/leaderboard")
			So(err, ShouldBeNil)
			defer resp.Body.Close() //nolint:errcheck // test teardown

			Convey("Then the whole board is served", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				var entries []api.Entry
				So(json.NewDecoder(resp.Body).Decode(&entries), ShouldBeNil)
				So(entries, ShouldHaveLength, 3)
			})
		})

		Convey("When fetched with limit=2", func() {
			resp, err := http.Get(srv.URL + "/leaderboard?limit=2")
			So(err, ShouldBeNil)
			defer resp.Body.Close() //nolint:errcheck // test teardown

			Convey("Then only the top entries are served", func() {
				var entries []api.Entry
				So(json.NewDecoder(resp.Body).Decode(&entries), ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0].Model, ShouldEqual, "sketchnet-l")
			})
		})

		Convey("When fetched with an invalid limit", func() {
			for _, q := range []string{"limit=0", "limit=-3", "limit=abc", "limit=9999"} {
				resp, err := http.Get(srv.URL + "/leaderboard?" + q)
				So(err, ShouldBeNil)
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				_ = resp.Body.Close()
			}
		})
	})
}

func TestOperationalEndpoints(t *testing.T) {
	Convey("Given the API over a stub service", t, func() {
		deps := &stubDeps{known: map[string]bool{}}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When /stats is fetched", func() {
			resp, err := http.Get(srv.URL + "/stats")
			So(err, ShouldBeNil)
			defer resp.Body.Close() //nolint:errcheck // test teardown

			Convey("Then the stats map is served as JSON", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(resp.Header.Get("Content-Type"), ShouldStartWith, "application/json")
				var stats map[string]any
				So(json.NewDecoder(resp.Body).Decode(&stats), ShouldBeNil)
				So(stats["sessions"], ShouldEqual, 1)
			})
		})

		Convey("When /healthz is fetched", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			So(err, ShouldBeNil)
			defer resp.Body.Close() //nolint:errcheck // test teardown

			Convey("Then Prometheus metrics are served", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(resp.Header.Get("Content-Type"), ShouldContainSubstring, "text")
			})
		})
	})
}
