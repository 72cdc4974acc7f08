// Package game hosts the round state machine and the session manager.
//
// Each duel session runs a single goroutine that exclusively owns the
// round state; client commands, worker replies, and ticker ticks all
// arrive as messages into that loop, so phase transitions and tick
// processing can never interleave.
package game

import (
	"context"
	"math/rand"
	"time"

	"github.com/okian/scrawl/internal/adapters/inference"
	"github.com/okian/scrawl/internal/domain/filter"
	"github.com/okian/scrawl/internal/domain/model"
	"github.com/okian/scrawl/internal/domain/types"
	"github.com/okian/scrawl/internal/domain/vocab"
	"github.com/okian/scrawl/pkg/logger"
	"github.com/okian/scrawl/pkg/metrics"
)

// Phase is the round state machine phase.
type Phase string

// Round phases.
const (
	PhaseMenu      Phase = "menu"
	PhaseLoading   Phase = "loading"
	PhaseCountdown Phase = "countdown"
	PhasePlaying   Phase = "playing"
	PhaseEnd       Phase = "end"
)

// Default round rule constants.
const (
	DefaultGameDuration = 30500 * time.Millisecond
	DefaultCountdown    = 3
	DefaultTick         = 10 * time.Millisecond
	DefaultSkipPenalty  = 3 * time.Second

	commandBuffer = 32
)

// Rules bundles the tunable round parameters.
type Rules struct {
	GameDuration time.Duration
	Countdown    int
	Tick         time.Duration
	SkipPenalty  time.Duration
	Filter       filter.Params
}

// DefaultRules returns the stock round rules with the given banned set.
func DefaultRules(banned map[string]struct{}) Rules {
	return Rules{
		GameDuration: DefaultGameDuration,
		Countdown:    DefaultCountdown,
		Tick:         DefaultTick,
		SkipPenalty:  DefaultSkipPenalty,
		Filter: filter.Params{
			Banned:               banned,
			StartRejectThreshold: 0.2,
			RejectTimeDelay:      3 * time.Second,
			RejectTimePerLabel:   3 * time.Second,
		},
	}
}

// Dispatcher is the session's handle on its worker pair.
type Dispatcher interface {
	Start(ctx context.Context)
	Dispatch(ctx context.Context, req inference.Request) bool
	Replies() <-chan inference.Reply
	Stop(ctx context.Context) error
}

// Recorder folds a finished round into the leaderboard and returns the
// fresh ranked rows for the summary broadcast.
type Recorder interface {
	RecordResult(ctx context.Context, stats map[string]model.ModelStats, pair [2]string) ([]model.LeaderboardRow, error)
}

// Sink receives broadcast messages; Send must not block and reports
// false when the receiver is wedged, after which the session drops it.
type Sink interface {
	Send(msg Message) bool
	CloseSend()
}

// Session is one duel: a sketching human against a racing model pair.
type Session struct {
	id     string
	code   string
	models [2]string
	rules  Rules

	vocabulary *vocab.Vocabulary
	rng        *rand.Rand
	clock      Clock
	dispatcher Dispatcher
	recorder   Recorder
	logger     logger.Logger

	// Run loop plumbing
	cmds chan func()
	stop chan struct{}
	done chan struct{}

	// Round state, owned exclusively by the run loop
	phase         Phase
	countdownLeft int
	startedAt     time.Time
	now           time.Time
	wordStartedAt time.Time
	targets       *vocab.Queue
	history       []model.HistoryEntry

	raster *model.Raster
	drawMS int64
	dirty  bool

	seq        uint64
	predicting map[string]bool
	lastOutput map[string][]model.Prediction
	ready      map[string]bool
	stats      map[string]model.ModelStats
	finalized  bool

	sinks        map[Sink]struct{}
	lastActivity time.Time
}

// NewSession wires a session; the caller starts the run loop with Run.
func NewSession(id, code string, models [2]string, v *vocab.Vocabulary, d Dispatcher, r Recorder, rules Rules, opts ...SessionOption) *Session {
	s := &Session{
		id:         id,
		code:       code,
		models:     models,
		rules:      rules,
		vocabulary: v,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // shuffle quality, not crypto
		clock:      realClock{},
		dispatcher: d,
		recorder:   r,
		logger:     logger.Get().Named("session"),
		cmds:       make(chan func(), commandBuffer),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		phase:      PhaseMenu,
		predicting: make(map[string]bool),
		lastOutput: make(map[string][]model.Prediction),
		ready:      make(map[string]bool),
		stats:      make(map[string]model.ModelStats),
		sinks:      make(map[Sink]struct{}),
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	s.lastActivity = s.clock.Now()

	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Code returns the short join code.
func (s *Session) Code() string { return s.code }

// Models returns the competing pair.
func (s *Session) Models() [2]string { return s.models }

// Run drives the session until ctx is done or Close is called.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)

	tick := time.NewTicker(s.rules.Tick)
	defer tick.Stop()
	second := time.NewTicker(time.Second)
	defer second.Stop()

	s.dispatcher.Start(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case fn := <-s.cmds:
			fn()
		case reply := <-s.dispatcher.Replies():
			s.applyReply(ctx, reply)
		case <-tick.C:
			s.tick(ctx)
		case <-second.C:
			s.countdownStep(ctx)
		}
	}
}

// Close stops the run loop and tears down the worker pair.
func (s *Session) Close(ctx context.Context) {
	select {
	case <-s.stop:
		// already closed
	default:
		close(s.stop)
	}
	<-s.done
	if err := s.dispatcher.Stop(ctx); err != nil {
		s.logger.Warn(ctx, "stopping worker pair", logger.Error(err))
	}
}

// post queues fn onto the run loop; dropped when the session is closed.
func (s *Session) post(fn func()) {
	select {
	case s.cmds <- fn:
	case <-s.stop:
	case <-s.done:
	}
}

// Start requests a round start from the menu or end phase.
func (s *Session) Start(ctx context.Context) { s.post(func() { s.handleStart(ctx) }) }

// Again requests an immediate rematch from the end phase.
func (s *Session) Again(ctx context.Context) { s.post(func() { s.handleAgain(ctx) }) }

// Skip gives up on the current word at a time penalty.
func (s *Session) Skip(ctx context.Context) { s.post(func() { s.handleSkip(ctx) }) }

// Exit abandons the round (or leaves the end screen).
func (s *Session) Exit(ctx context.Context) { s.post(func() { s.handleExit(ctx) }) }

// Stroke mirrors the client's latest canvas raster and drawing time.
func (s *Session) Stroke(r *model.Raster, drawMS int64) {
	s.post(func() { s.handleStroke(r, drawMS) })
}

// Attach subscribes a sink to session broadcasts.
func (s *Session) Attach(sink Sink) {
	s.post(func() {
		s.sinks[sink] = struct{}{}
		s.lastActivity = s.clock.Now()
		metrics.UpdateConnectedClients(len(s.sinks))
		// Late joiners need the current phase to render anything.
		sink.Send(Message{Type: MessagePhase, Data: PhasePayload{Phase: string(s.phase), Countdown: s.countdownLeft}})
	})
}

// Detach unsubscribes a sink.
func (s *Session) Detach(sink Sink) {
	s.post(func() {
		if _, ok := s.sinks[sink]; ok {
			delete(s.sinks, sink)
			sink.CloseSend()
			metrics.UpdateConnectedClients(len(s.sinks))
		}
	})
}

// Snapshot returns a point-in-time view, computed on the run loop.
func (s *Session) Snapshot() types.Snapshot {
	out := make(chan types.Snapshot, 1)
	s.post(func() { out <- s.snapshot() })
	select {
	case snap := <-out:
		return snap
	case <-s.done:
		return types.Snapshot{ID: s.id, Code: s.code, Phase: string(PhaseMenu), Models: s.models}
	}
}

// LastActive reports the most recent client interaction, for TTL
// reaping.
func (s *Session) LastActive() time.Time {
	out := make(chan time.Time, 1)
	s.post(func() { out <- s.lastActivity })
	select {
	case t := <-out:
		return t
	case <-s.done:
		return time.Time{}
	}
}

// --- run-loop handlers ---

// handleStart moves menu → loading and kicks off model warm-up.
func (s *Session) handleStart(ctx context.Context) {
	if s.phase != PhaseMenu && s.phase != PhaseEnd {
		return
	}
	s.lastActivity = s.clock.Now()
	s.phase = PhaseLoading
	s.ready = make(map[string]bool)
	s.broadcastPhase()

	for _, m := range s.models {
		if !s.dispatcher.Dispatch(ctx, inference.Request{Action: inference.ActionSetModel, Model: m}) ||
			!s.dispatcher.Dispatch(ctx, inference.Request{Action: inference.ActionLoad, Model: m}) {
			s.logger.Error(ctx, "worker dispatch rejected during load", logger.String("model", m))
			s.broadcast(Message{Type: MessageError, Data: ErrorPayload{Message: "model worker unavailable: " + m}})
		}
	}
}

// handleAgain rematches directly from the end screen; workers stay
// warm, so loading is skipped.
func (s *Session) handleAgain(ctx context.Context) {
	if s.phase != PhaseEnd {
		return
	}
	s.lastActivity = s.clock.Now()
	s.beginCountdown(ctx)
}

// applyReply routes one worker reply into the round state.
func (s *Session) applyReply(ctx context.Context, reply inference.Reply) {
	switch reply.Status {
	case inference.StatusReady:
		if s.phase != PhaseLoading {
			return
		}
		s.ready[reply.Model] = true
		s.broadcast(Message{Type: MessageReady, Data: ReadyPayload{Model: reply.Model}})
		if s.ready[s.models[0]] && s.ready[s.models[1]] {
			s.beginCountdown(ctx)
		}

	case inference.StatusError:
		if s.phase == PhaseLoading {
			// Remain in loading; the client may retry with start.
			s.broadcast(Message{Type: MessageError, Data: ErrorPayload{Message: reply.Err}})
			return
		}
		// Failed classify: no new output this tick.
		delete(s.predicting, reply.Model)

	case inference.StatusResult:
		if s.phase != PhasePlaying || reply.Seq != s.seq {
			metrics.RecordStaleReplyDropped()
			return
		}
		delete(s.predicting, reply.Model)
		filtered := filter.Apply(reply.Predictions, time.Duration(reply.DrawMS)*time.Millisecond, s.rules.Filter)
		if len(filtered) == 0 {
			// No confident prediction; skip win checks until the
			// next result.
			s.lastOutput[reply.Model] = nil
			return
		}
		s.lastOutput[reply.Model] = filtered
		s.broadcast(Message{Type: MessagePredictions, Data: PredictionsPayload{Model: reply.Model, Predictions: filtered}})
	}
}

// beginCountdown rebuilds the target queue and starts the 1 Hz
// countdown.
func (s *Session) beginCountdown(_ context.Context) {
	s.phase = PhaseCountdown
	s.countdownLeft = s.rules.Countdown
	s.targets = s.vocabulary.Build(s.rng)
	s.broadcastPhase()
}

// countdownStep advances the countdown once per second.
func (s *Session) countdownStep(ctx context.Context) {
	if s.phase != PhaseCountdown {
		return
	}
	s.countdownLeft--
	if s.countdownLeft > 0 {
		s.broadcastPhase()
		return
	}
	s.beginPlaying(ctx)
}

// beginPlaying resets per-round state and opens the playing phase.
func (s *Session) beginPlaying(_ context.Context) {
	s.phase = PhasePlaying
	s.countdownLeft = 0
	s.startedAt = s.clock.Now()
	s.now = s.startedAt
	s.wordStartedAt = s.startedAt
	s.history = nil
	s.finalized = false
	s.raster = nil
	s.drawMS = 0
	s.dirty = false
	s.predicting = make(map[string]bool)
	s.lastOutput = make(map[string][]model.Prediction)
	s.stats = map[string]model.ModelStats{
		s.models[0]: {},
		s.models[1]: {},
	}
	s.broadcastPhase()
	s.broadcastWord()
}

// tick runs one scheduler step: advance time, check timeout, check for
// a win, dispatch the dirty sketch, clear the dirty flag.
func (s *Session) tick(ctx context.Context) {
	if s.phase != PhasePlaying {
		return
	}
	s.now = s.clock.Now()

	if s.now.Sub(s.startedAt) >= s.rules.GameDuration {
		s.finish(ctx, true)
		return
	}

	if guessedBy := s.winners(); len(guessedBy) > 0 {
		s.resolveWord(ctx, guessedBy)
	}

	if s.dirty && !s.predicting[s.models[0]] && !s.predicting[s.models[1]] && s.raster != nil {
		s.dispatchSketch(ctx)
	}
	s.dirty = false
}

// winners returns the models whose current top guess matches the
// target. Empty until both models have produced an output for this
// sketch.
func (s *Session) winners() []string {
	out1, out2 := s.lastOutput[s.models[0]], s.lastOutput[s.models[1]]
	if out1 == nil || out2 == nil {
		return nil
	}
	target := s.targets.Current()
	var guessedBy []string
	for _, m := range s.models {
		if top := model.Top(s.lastOutput[m]); top != nil && top.Label == target {
			guessedBy = append(guessedBy, m)
		}
	}
	return guessedBy
}

// dispatchSketch sends the current raster to both models under a fresh
// sequence number.
func (s *Session) dispatchSketch(ctx context.Context) {
	s.seq++
	for _, m := range s.models {
		req := inference.Request{
			Action: inference.ActionClassify,
			Model:  m,
			Seq:    s.seq,
			Image:  s.raster.Clone(),
			DrawMS: s.drawMS,
		}
		if !s.dispatcher.Dispatch(ctx, req) {
			// Backpressure: both flags stay unset so the next stroke
			// redispatches.
			delete(s.predicting, s.models[0])
			delete(s.predicting, s.models[1])
			metrics.RecordErrorByComponent("session", "dispatch_rejected")
			return
		}
		s.predicting[m] = true
		metrics.RecordInferenceDispatched(m)
	}
}

// resolveWord credits the guessing models and advances to the next
// target.
func (s *Session) resolveWord(ctx context.Context, guessedBy []string) {
	elapsed := s.now.Sub(s.wordStartedAt)
	for _, m := range guessedBy {
		st := s.stats[m]
		st.RecordCorrect(s.now, elapsed)
		s.stats[m] = st
		metrics.RecordWordGuessed(m)
	}

	s.appendHistory(true, guessedBy, elapsed)
	s.advanceWord(ctx, true)
}

// handleSkip gives up on the current word; the penalty is charged by
// pulling startedAt back.
func (s *Session) handleSkip(ctx context.Context) {
	if s.phase != PhasePlaying {
		return
	}
	s.lastActivity = s.clock.Now()
	s.now = s.clock.Now()
	s.startedAt = s.startedAt.Add(-s.rules.SkipPenalty)
	metrics.RecordWordSkipped()

	s.appendHistory(false, nil, s.now.Sub(s.wordStartedAt))
	s.advanceWord(ctx, true)
}

// appendHistory records the outcome of the current word.
func (s *Session) appendHistory(correct bool, guessedBy []string, elapsed time.Duration) {
	var sketch *model.Raster
	if s.raster != nil {
		sketch = s.raster.Clone()
	}
	s.history = append(s.history, model.HistoryEntry{
		Target:      s.targets.Current(),
		ModelOneTop: model.Top(s.lastOutput[s.models[0]]),
		ModelTwoTop: model.Top(s.lastOutput[s.models[1]]),
		Sketch:      sketch,
		Correct:     correct,
		GuessedBy:   guessedBy,
		ElapsedMS:   elapsed.Milliseconds(),
	})
}

// advanceWord moves to the next target and wipes the sketch state.
func (s *Session) advanceWord(_ context.Context, resetTimer bool) {
	s.targets.Advance()
	s.wordStartedAt = s.now
	s.raster = nil
	s.drawMS = 0
	s.dirty = false
	s.lastOutput = make(map[string][]model.Prediction)
	s.broadcast(Message{Type: MessageClear, Data: ClearPayload{ResetTimer: resetTimer}})
	s.broadcastWord()
}

// handleExit abandons the round from playing, or leaves the end screen.
func (s *Session) handleExit(ctx context.Context) {
	s.lastActivity = s.clock.Now()
	switch s.phase {
	case PhasePlaying:
		s.finish(ctx, false)
	case PhaseEnd, PhaseCountdown, PhaseLoading:
		s.phase = PhaseMenu
		s.broadcastPhase()
	case PhaseMenu:
	}
}

// finish closes the round. A timeout records the in-progress word as
// unresolved; an explicit exit does not.
func (s *Session) finish(ctx context.Context, timedOut bool) {
	if timedOut {
		s.appendHistory(false, nil, s.now.Sub(s.wordStartedAt))
	}
	// Round-end wipe keeps the drawing clock; nothing follows it.
	s.broadcast(Message{Type: MessageClear, Data: ClearPayload{ResetTimer: false}})

	rows := s.finalize(ctx)

	if timedOut {
		s.phase = PhaseEnd
	} else {
		s.phase = PhaseMenu
	}
	s.broadcastPhase()

	summary := SummaryPayload{
		History: s.history,
		Stats:   make(map[string]SummaryStats, len(s.models)),
		Rows:    rows,
	}
	for _, m := range s.models {
		summary.Stats[m] = SummaryStats{Correct: s.stats[m].Correct, AvgSeconds: s.stats[m].AvgSeconds}
	}
	s.broadcast(Message{Type: MessageSummary, Data: summary})
}

// finalize runs the rating update exactly once per round.
func (s *Session) finalize(ctx context.Context) []model.LeaderboardRow {
	if s.finalized {
		return nil
	}
	s.finalized = true

	metrics.RecordRoundPlayed()
	metrics.RecordRoundDuration(s.now.Sub(s.startedAt).Seconds())

	if len(s.stats) == 0 {
		s.logger.Warn(ctx, "finalize with no stats; skipping rating update", logger.String("session", s.id))
		return nil
	}

	rows, err := s.recorder.RecordResult(ctx, s.stats, s.models)
	if err != nil {
		// Rating failures must not break gameplay.
		s.logger.Error(ctx, "recording round result", logger.String("session", s.id), logger.Error(err))
		return nil
	}
	return rows
}

// handleStroke mirrors the latest client raster.
func (s *Session) handleStroke(r *model.Raster, drawMS int64) {
	if s.phase != PhasePlaying {
		return
	}
	s.lastActivity = s.clock.Now()
	s.raster = r
	s.drawMS = drawMS
	s.dirty = true
}

// snapshot builds the API view from run-loop state.
func (s *Session) snapshot() types.Snapshot {
	snap := types.Snapshot{
		ID:        s.id,
		Code:      s.code,
		Phase:     string(s.phase),
		Countdown: s.countdownLeft,
		Models:    s.models,
	}
	if s.targets != nil {
		snap.Target = s.targets.Current()
		snap.TargetIndex = s.targets.Index()
	}
	snap.WordsResolved = len(s.history)
	if s.phase == PhasePlaying {
		elapsed := s.now.Sub(s.startedAt)
		snap.ElapsedMS = elapsed.Milliseconds()
		remaining := s.rules.GameDuration - elapsed
		if remaining < 0 {
			remaining = 0
		}
		snap.RemainingMS = remaining.Milliseconds()
	}
	tops := make(map[string]types.Top)
	for _, m := range s.models {
		if top, ok := snapshotTop(s.lastOutput[m]); ok {
			tops[m] = top
		}
	}
	if len(tops) > 0 {
		snap.TopGuesses = tops
	}
	return snap
}

// broadcast fans a message out to every attached sink, dropping the
// wedged ones.
func (s *Session) broadcast(msg Message) {
	for sink := range s.sinks {
		if !sink.Send(msg) {
			delete(s.sinks, sink)
			sink.CloseSend()
			metrics.UpdateConnectedClients(len(s.sinks))
		}
	}
}

func (s *Session) broadcastPhase() {
	s.broadcast(Message{Type: MessagePhase, Data: PhasePayload{Phase: string(s.phase), Countdown: s.countdownLeft}})
}

func (s *Session) broadcastWord() {
	s.broadcast(Message{Type: MessageWord, Data: WordPayload{
		Target:    s.targets.Current(),
		Index:     s.targets.Index(),
		Remaining: s.targets.Remaining(),
	}})
}
