package config

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoad(t *testing.T) {
	Convey("Given a clean environment", t, func() {
		for _, key := range []string{"SCRAWL_CONFIG", "SCRAWL_ADDR", "SCRAWL_QUEUE_SIZE", "SCRAWL_MODEL_ONE"} {
			So(os.Unsetenv(key), ShouldBeNil)
		}

		Convey("When loading with no overrides", func() {
			cfg, err := Load()

			Convey("Then the defaults come back", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":9080")
				So(cfg.Classifier, ShouldEqual, "sim")
			})
		})

		Convey("When environment variables override fields", func() {
			t.Setenv("SCRAWL_ADDR", ":7070")
			t.Setenv("SCRAWL_QUEUE_SIZE", "16")
			t.Setenv("SCRAWL_MODEL_ONE", "sketchnet-xl")
			cfg, err := Load()

			Convey("Then the overrides win over the defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":7070")
				So(cfg.QueueSize, ShouldEqual, 16)
				So(cfg.ModelOne, ShouldEqual, "sketchnet-xl")
				So(cfg.ModelTwo, ShouldEqual, "sketchnet-m")
			})
		})

		Convey("When a YAML file and env both override a field", func() {
			path := filepath.Join(t.TempDir(), "scrawl.yaml")
			yaml := "addr: \":6060\"\nsession_ttl_minutes: 5\n"
			So(os.WriteFile(path, []byte(yaml), 0o600), ShouldBeNil)
			t.Setenv("SCRAWL_CONFIG", path)
			t.Setenv("SCRAWL_ADDR", ":7070")
			cfg, err := Load()

			Convey("Then env beats file and file beats defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.Addr, ShouldEqual, ":7070")
				So(cfg.SessionTTLMinutes, ShouldEqual, 5)
			})
		})

		Convey("When the config file does not exist", func() {
			t.Setenv("SCRAWL_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
			_, err := Load()

			Convey("Then loading fails with the load sentinel", func() {
				So(err, ShouldWrap, ErrLoadConfig)
			})
		})

		Convey("When an override breaks validation", func() {
			t.Setenv("SCRAWL_ADDR", "")
			_, err := Load()

			Convey("Then loading fails with the validation sentinel", func() {
				So(err, ShouldWrap, ErrInvalidConfig)
			})
		})
	})
}
