package main

import (
	"context"
	"os"
	"time"

	"github.com/okian/scrawl/internal/duelbot"
	"github.com/spf13/cobra"
)

// Default configuration constants.
const (
	defaultRounds         = 3
	defaultStrokeInterval = 250 * time.Millisecond
	defaultSkipEvery      = 5
	defaultTimeout        = 30 * time.Second
	defaultBotTimeout     = 10 * time.Minute
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &duelbot.Config{}

	cmd := &cobra.Command{
		Use:          "duelbot",
		Short:        "Plays duel rounds against a running scrawl server",
		Long:         "Creates a duel over HTTP, attaches as the sketch client over WebSocket, draws synthetic strokes until the models recognize them, and verifies the Elo standings moved.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := duelbot.SetupLogging(cfg.LogFile); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), defaultBotTimeout)
			defer cancel()

			return duelbot.Run(ctx, cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	flags.IntVar(&cfg.Rounds, "rounds", defaultRounds, "number of rounds to play")
	flags.DurationVar(&cfg.StrokeInterval, "stroke-interval", defaultStrokeInterval, "delay between synthetic strokes")
	flags.IntVar(&cfg.SkipEvery, "skip-every", defaultSkipEvery, "skip every Nth word (0 disables)")
	flags.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	flags.StringVar(&cfg.LogFile, "log", "", "log file for bot output (default: duelbot_TIMESTAMP.log)")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "enable verbose logging")
	return cmd
}
