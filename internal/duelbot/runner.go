// Package duelbot plays full duel rounds against a running server: it
// creates a session over HTTP, attaches to it as a sketch client over
// WebSocket, draws synthetic hinted strokes until the models recognize
// them, and verifies the Elo standings moved.
package duelbot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/okian/scrawl/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600

	// roundDeadline bounds one round: game time plus warm-up slack.
	roundDeadline = 90 * time.Second
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "duelbot_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// Run executes the complete bot session.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
		EloBefore: make(map[string]int),
		EloAfter:  make(map[string]int),
	}

	logger.Get().Info(ctx, "starting duel bot",
		logger.String("baseURL", config.BaseURL),
		logger.Int("rounds", config.Rounds),
		logger.String("strokeInterval", config.StrokeInterval.String()),
		logger.Int("skipEvery", config.SkipEvery),
		logger.Any("verbose", config.Verbose))

	client := newHTTPClient(config.Timeout)

	// Step 1: Check service health
	if err := client.checkHealth(ctx, config.BaseURL); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Snapshot standings before play
	before, err := client.getLeaderboard(ctx, config.BaseURL)
	if err != nil {
		return fmt.Errorf("fetching initial standings: %w", err)
	}
	for _, e := range before {
		stats.EloBefore[e.Model] = e.Elo
	}

	// Step 3: Create a duel and attach as the sketch client
	info, err := client.createDuel(ctx, config.BaseURL)
	if err != nil {
		return fmt.Errorf("duel creation failed: %w", err)
	}
	log.Printf("🎨 Duel created: id=%s code=%s", info.ID, info.Code)

	conn, err := dialDuel(ctx, config.BaseURL, info)
	if err != nil {
		return fmt.Errorf("websocket attach failed: %w", err)
	}
	defer conn.close()

	// Step 4: Play the configured number of rounds
	msgs := conn.messages()
	for round := 1; round <= config.Rounds; round++ {
		log.Printf("🥊 Round %d/%d", round, config.Rounds)
		if err := playRound(ctx, conn, msgs, config, stats, round == 1); err != nil {
			return fmt.Errorf("round %d failed: %w", round, err)
		}
		stats.RoundsPlayed++
	}
	if err := conn.sendControl("exit"); err != nil {
		logger.Get().Warn(ctx, "sending exit", logger.Error(err))
	}

	// Step 5: Snapshot standings after play and verify movement
	after, err := client.getLeaderboard(ctx, config.BaseURL)
	if err != nil {
		return fmt.Errorf("fetching final standings: %w", err)
	}
	for _, e := range after {
		stats.EloAfter[e.Model] = e.Elo
	}

	if err := verifyResults(before, after, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "bot run completed successfully")
	return nil
}

// playRound drives one round from start (or rematch) to the summary.
func playRound(ctx context.Context, conn *botConn, msgs <-chan serverMessage, config *Config, stats *Stats, first bool) error {
	control := "again"
	if first {
		control = "start"
	}
	if err := conn.sendControl(control); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // stroke jitter, not crypto
	deadline := time.NewTimer(roundDeadline)
	defer deadline.Stop()
	strokes := time.NewTicker(config.StrokeInterval)
	defer strokes.Stop()

	var (
		playing bool
		ended   bool
		pen     *sketcher
		drawMS  int64
		words   int
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("round deadline of %s exceeded", roundDeadline)

		case <-strokes.C:
			if !playing || pen == nil {
				continue
			}
			pen.addStroke()
			drawMS += config.StrokeInterval.Milliseconds()
			if err := conn.sendStroke(pen.sketch(), drawMS); err != nil {
				return err
			}
			stats.StrokesSent++

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("connection closed mid-round")
			}
			switch msg.Type {
			case "phase":
				var phase struct {
					Phase     string `json:"phase"`
					Countdown int    `json:"countdown"`
				}
				if err := json.Unmarshal(msg.Data, &phase); err != nil {
					continue
				}
				if config.Verbose {
					log.Printf("   phase: %s %d", phase.Phase, phase.Countdown)
				}
				switch phase.Phase {
				case "playing":
					playing = true
				case "end":
					// The summary trails the end broadcast; wait for it
					// so the round's outcome is counted.
					playing = false
					ended = true
				}

			case "word":
				var word struct {
					Target string `json:"target"`
				}
				if err := json.Unmarshal(msg.Data, &word); err != nil {
					continue
				}
				words++
				pen = newSketcher(word.Target, rng)
				drawMS = 0
				if config.Verbose {
					log.Printf("   target: %s", word.Target)
				}
				if config.SkipEvery > 0 && words%config.SkipEvery == 0 {
					log.Printf("   ⏭  skipping %q", word.Target)
					if err := conn.sendControl("skip"); err != nil {
						return err
					}
					stats.WordsSkipped++
				}

			case "summary":
				var summary struct {
					History []struct {
						Correct bool `json:"correct"`
					} `json:"history"`
				}
				if err := json.Unmarshal(msg.Data, &summary); err != nil {
					continue
				}
				for _, h := range summary.History {
					if h.Correct {
						stats.WordsGuessed++
					}
				}
				if ended {
					return nil
				}

			case "error":
				var fail struct {
					Message string `json:"message"`
				}
				_ = json.Unmarshal(msg.Data, &fail)
				return fmt.Errorf("session error: %s", fail.Message)
			}
		}
	}
}

// displayFinalStats prints the final bot statistics.
func displayFinalStats(stats *Stats) {
	var wordsPerRound float64
	if stats.RoundsPlayed > 0 {
		wordsPerRound = float64(stats.WordsGuessed) / float64(stats.RoundsPlayed)
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("roundsPlayed", stats.RoundsPlayed),
		logger.Int("wordsGuessed", stats.WordsGuessed),
		logger.Int("wordsSkipped", stats.WordsSkipped),
		logger.Int("strokesSent", stats.StrokesSent),
		logger.Float64("wordsPerRound", wordsPerRound),
		logger.String("duration", stats.Duration.String()))
}
