// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keep fields unexported where possible and use functional options.
// - Provide New(...Option) initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// PublicURL is the externally reachable base URL used when building
	// join links and QR codes, e.g. "https://scrawl.example.com". When
	// empty, links are derived from the request host.
	PublicURL string `koanf:"public_url"`

	// StoreDriver selects the leaderboard store: memory or postgres.
	StoreDriver string `koanf:"store_driver"`

	// StoreDSN is the postgres connection string. Required when
	// StoreDriver is postgres.
	StoreDSN string `koanf:"store_dsn"`

	// Classifier selects the inference backend: sim or remote.
	Classifier string `koanf:"classifier"`

	// ClassifierURL is the base URL of the remote inference service.
	ClassifierURL string `koanf:"classifier_url"`

	// ClassifierTimeoutMS bounds one remote inference call.
	ClassifierTimeoutMS int `koanf:"classifier_timeout_ms"`

	// ClassifierRetries sets how many times a failed remote call is retried.
	ClassifierRetries int `koanf:"classifier_retries"`

	// SimLatencyMinMS and SimLatencyMaxMS bound the simulated inference latency.
	SimLatencyMinMS int `koanf:"sim_latency_min_ms"`
	SimLatencyMaxMS int `koanf:"sim_latency_max_ms"`

	// GameDurationSeconds is the drawing time per round.
	GameDurationSeconds float64 `koanf:"game_duration_seconds"`

	// CountdownSeconds is the pre-round countdown length.
	CountdownSeconds int `koanf:"countdown_seconds"`

	// TickMS is the scheduler tick interval during play.
	TickMS int `koanf:"tick_ms"`

	// StartRejectThreshold suppresses guesses in the opening fraction of a word.
	StartRejectThreshold float64 `koanf:"start_reject_threshold"`

	// RejectTimeDelayMS and RejectTimePerLabelMS shape the per-label
	// time-based guess rejection window.
	RejectTimeDelayMS    int `koanf:"reject_time_delay_ms"`
	RejectTimePerLabelMS int `koanf:"reject_time_per_label_ms"`

	// SkipPenaltyMS is the time cost of skipping a word.
	SkipPenaltyMS int `koanf:"skip_penalty_ms"`

	// BannedLabels are excluded from both the vocabulary and model outputs.
	BannedLabels []string `koanf:"banned_labels"`

	// ModelOne and ModelTwo name the two dueling models.
	ModelOne string `koanf:"model_one"`
	ModelTwo string `koanf:"model_two"`

	// ModelOneParams and ModelTwoParams record parameter counts for the
	// leaderboard.
	ModelOneParams int64 `koanf:"model_one_params"`
	ModelTwoParams int64 `koanf:"model_two_params"`

	// QueueSize bounds each model's in-memory inference queue.
	QueueSize int `koanf:"queue_size"`

	// SessionTTLMinutes is how long an idle duel survives before reaping.
	SessionTTLMinutes int `koanf:"session_ttl_minutes"`

	// WordsFile optionally points to a newline-separated vocabulary file.
	WordsFile string `koanf:"words_file"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		StoreDriver:          "memory",
		Classifier:           "sim",
		ClassifierTimeoutMS:  5000,
		ClassifierRetries:    2,
		SimLatencyMinMS:      80,
		SimLatencyMaxMS:      150,
		GameDurationSeconds:  30.5,
		CountdownSeconds:     3,
		TickMS:               10,
		StartRejectThreshold: 0.2,
		RejectTimeDelayMS:    3000,
		RejectTimePerLabelMS: 3000,
		SkipPenaltyMS:        3000,
		ModelOne:             "sketchnet-s",
		ModelTwo:             "sketchnet-m",
		ModelOneParams:       1_300_000,
		ModelTwoParams:       5_800_000,
		QueueSize:            64,
		SessionTTLMinutes:    30,
		MaxLeaderboardLimit:  100,
	}
}
