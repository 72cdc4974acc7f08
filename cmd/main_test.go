package main

import (
	"context"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/okian/scrawl/internal/adapters/http/api"
	"github.com/okian/scrawl/internal/adapters/http/swagger"
	app "github.com/okian/scrawl/internal/app"
	"github.com/okian/scrawl/internal/config"
	"github.com/okian/scrawl/pkg/logger"
	"github.com/okian/scrawl/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	m.Run()
}

func TestRootCommand(t *testing.T) {
	convey.Convey("Given the root command", t, func() {
		cmd := newRootCmd()

		convey.Convey("Then it is wired as the scrawl binary", func() {
			convey.So(cmd.Use, convey.ShouldEqual, "scrawl")
			convey.So(cmd.RunE, convey.ShouldNotBeNil)
		})

		convey.Convey("Then it exposes the config flag", func() {
			flag := cmd.Flags().Lookup("config")
			convey.So(flag, convey.ShouldNotBeNil)
			convey.So(flag.Shorthand, convey.ShouldEqual, "c")
		})
	})
}

func TestRulesFromConfig(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		cfg := config.New()

		convey.Convey("When mapped onto round rules", func() {
			rules := rulesFromConfig(cfg)

			convey.Convey("Then the timings carry over", func() {
				convey.So(rules.GameDuration, convey.ShouldEqual, 30500*time.Millisecond)
				convey.So(rules.Countdown, convey.ShouldEqual, 3)
				convey.So(rules.Tick, convey.ShouldEqual, 10*time.Millisecond)
				convey.So(rules.SkipPenalty, convey.ShouldEqual, 3*time.Second)
			})

			convey.Convey("Then the filter parameters carry over", func() {
				convey.So(rules.Filter.StartRejectThreshold, convey.ShouldEqual, 0.2)
				convey.So(rules.Filter.RejectTimeDelay, convey.ShouldEqual, 3*time.Second)
				convey.So(rules.Filter.Banned, convey.ShouldBeNil)
			})
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When testing the system metrics updater", func() {
			convey.Convey("Then it should run until its context ends", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startSystemMetricsUpdater(ctx)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing the service metrics updater", func() {
			svc := app.New()
			convey.So(svc, convey.ShouldNotBeNil)

			convey.Convey("Then it should run until its context ends", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startServiceMetricsUpdater(ctx, svc)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When updating system metrics directly", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("When updating service metrics on a stopped service", func() {
			svc := app.New()
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})
	})
}

func TestMainApplicationIntegration(t *testing.T) {
	convey.Convey("Given the full application setup", t, func() {
		t.Setenv("SCRAWL_ADDR", ":8080")
		t.Setenv("SCRAWL_QUEUE_SIZE", "32")

		convey.Convey("Then all components work together", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			cfg, err := config.Load()
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 32)

			svc := app.New(
				app.WithStore(cfg.StoreDriver, cfg.StoreDSN),
				app.WithClassifier(cfg.Classifier, cfg.ClassifierURL),
				app.WithModels(cfg.ModelOne, cfg.ModelTwo, cfg.ModelOneParams, cfg.ModelTwoParams),
				app.WithQueueSize(cfg.QueueSize),
			)
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			router := httprouter.New()
			swagger.Register(router)
			apiServer := api.NewServer(svc, cfg.MaxLeaderboardLimit)
			apiServer.Register(router)
			convey.So(apiServer, convey.ShouldNotBeNil)
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given invalid configuration", t, func() {
		t.Setenv("SCRAWL_STORE_DRIVER", "sqlite")

		convey.Convey("Then configuration loading fails", func() {
			cfg, err := config.Load()
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestMetricsManagerCreation(t *testing.T) {
	convey.Convey("Given a custom registry", t, func() {
		registry := prometheus.NewRegistry()

		convey.Convey("Then a metrics manager should be creatable", func() {
			manager := metrics.NewManager(metrics.WithPrometheusRegistry(registry))
			convey.So(manager, convey.ShouldNotBeNil)
		})
	})
}
