package config

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewDefaults(t *testing.T) {
	Convey("Given a default Config", t, func() {
		cfg := New()

		Convey("Then the service defaults are sane", func() {
			So(cfg.Addr, ShouldEqual, ":9080")
			So(cfg.LogLevel, ShouldEqual, "info")
			So(cfg.StoreDriver, ShouldEqual, "memory")
			So(cfg.Classifier, ShouldEqual, "sim")
			So(cfg.MaxLeaderboardLimit, ShouldEqual, 100)
		})

		Convey("Then the round defaults match the game rules", func() {
			So(cfg.GameDurationSeconds, ShouldEqual, 30.5)
			So(cfg.CountdownSeconds, ShouldEqual, 3)
			So(cfg.TickMS, ShouldEqual, 10)
			So(cfg.StartRejectThreshold, ShouldEqual, 0.2)
			So(cfg.SkipPenaltyMS, ShouldEqual, 3000)
		})

		Convey("Then the two models are distinct", func() {
			So(cfg.ModelOne, ShouldNotEqual, cfg.ModelTwo)
			So(cfg.ModelOneParams, ShouldBeGreaterThan, 0)
			So(cfg.ModelTwoParams, ShouldBeGreaterThan, 0)
		})

		Convey("Then the defaults validate", func() {
			So(cfg.Validate(), ShouldBeNil)
		})
	})
}

func TestValidate(t *testing.T) {
	Convey("Given configs with one broken field each", t, func() {
		cases := []struct {
			name   string
			mutate func(*Config)
		}{
			{"empty addr", func(c *Config) { c.Addr = "" }},
			{"unknown store driver", func(c *Config) { c.StoreDriver = "sqlite" }},
			{"postgres without dsn", func(c *Config) { c.StoreDriver = "postgres" }},
			{"unknown classifier", func(c *Config) { c.Classifier = "onnx" }},
			{"remote without url", func(c *Config) { c.Classifier = "remote" }},
			{"inverted latency bounds", func(c *Config) { c.SimLatencyMinMS = 200; c.SimLatencyMaxMS = 100 }},
			{"zero duration", func(c *Config) { c.GameDurationSeconds = 0 }},
			{"zero tick", func(c *Config) { c.TickMS = 0 }},
			{"threshold out of range", func(c *Config) { c.StartRejectThreshold = 1.0 }},
			{"identical models", func(c *Config) { c.ModelTwo = c.ModelOne }},
			{"zero queue", func(c *Config) { c.QueueSize = 0 }},
			{"zero ttl", func(c *Config) { c.SessionTTLMinutes = 0 }},
			{"zero leaderboard cap", func(c *Config) { c.MaxLeaderboardLimit = 0 }},
		}

		for _, tc := range cases {
			Convey("Then "+tc.name+" is rejected", func() {
				cfg := New()
				tc.mutate(cfg)
				So(cfg.Validate(), ShouldWrap, ErrInvalidConfig)
			})
		}
	})
}
