// Package app wires all Parlano subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems (phrase bank, history store, STT provider, metrics), Practice
// runs one scored pronunciation attempt end to end, and Shutdown tears
// everything down in order.
//
// For testing, inject mock implementations via functional options
// (WithHistoryStore, WithBank, etc.). When an option is not provided, New
// creates real implementations from the config.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/parlano/parlano/internal/config"
	"github.com/parlano/parlano/internal/observe"
	"github.com/parlano/parlano/internal/phrase"
	"github.com/parlano/parlano/internal/phrase/llmgen"
	"github.com/parlano/parlano/internal/session"
	sessionpg "github.com/parlano/parlano/internal/session/postgres"
	"github.com/parlano/parlano/pkg/audio"
	"github.com/parlano/parlano/pkg/difficulty"
	"github.com/parlano/parlano/pkg/feedback"
	"github.com/parlano/parlano/pkg/provider/stt"
	"github.com/parlano/parlano/pkg/scoring"
	"github.com/parlano/parlano/pkg/types"
)

// sttFormat is the audio format delivered to STT providers. Practice audio
// in any other format is converted before streaming.
var sttFormat = audio.Format{SampleRate: 16000, Channels: 1}

// chunkSize is the PCM chunk size streamed per SendAudio call: 100 ms of
// 16 kHz mono 16-bit audio.
const chunkSize = 3200

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	STT       stt.Provider
	Generator *llmgen.Generator
}

// Result is the complete outcome of one practice attempt.
type Result struct {
	// Phrase is the target phrase the learner attempted.
	Phrase string

	// Transcript is what the STT provider heard.
	Transcript string

	// Breakdown carries the score and its components.
	Breakdown scoring.Breakdown

	// Report lists missed, added, and substituted words.
	Report scoring.ErrorReport

	// Bundle is the graded coaching feedback for the attempt.
	Bundle feedback.Bundle

	// Tier is the difficulty classification of the target phrase.
	Tier difficulty.Tier

	// Rating is the 1–10 difficulty rating of the target phrase.
	Rating int

	// STTDuration is how long transcription took.
	STTDuration time.Duration
}

// App owns all subsystem lifetimes and orchestrates practice attempts.
type App struct {
	cfg       *config.Config
	providers *Providers

	// Subsystems — initialised in New, torn down in Shutdown.
	bank    *phrase.Bank
	picker  *phrase.Picker
	history *session.History
	store   session.Store // optional durable store
	metrics *observe.Metrics
	userID  string

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithHistoryStore injects a durable history store instead of creating one
// from config.
func WithHistoryStore(s session.Store) Option {
	return func(a *App) { a.store = s }
}

// WithBank injects a phrase bank instead of loading one from config.
func WithBank(b *phrase.Bank) Option {
	return func(a *App) { a.bank = b }
}

// WithMetrics injects a Metrics instance instead of using the package
// default. Tests use this with a manual reader.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). Use Option
// functions to inject test doubles for any subsystem.
//
// New performs all initialisation synchronously: phrase bank loading,
// history store connection, and history preload.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:       cfg,
		providers: providers,
		userID:    cfg.History.UserID,
	}
	for _, o := range opts {
		o(a)
	}

	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if err := a.initBank(); err != nil {
		return nil, fmt.Errorf("app: init phrase bank: %w", err)
	}

	if err := a.initHistory(ctx); err != nil {
		return nil, fmt.Errorf("app: init history: %w", err)
	}

	return a, nil
}

// initBank loads the phrase bank from config unless one was injected, then
// builds the picker.
func (a *App) initBank() error {
	if a.bank == nil {
		if a.cfg.Phrases.Path == "" {
			// No bank configured: practice still works with explicit phrases.
			a.bank = phrase.NewBank(nil)
		} else {
			b, err := phrase.Load(a.cfg.Phrases.Path)
			if err != nil {
				return err
			}
			a.bank = b
			slog.Info("loaded phrase bank", "path", a.cfg.Phrases.Path, "phrases", b.Len())
		}
	}
	a.picker = phrase.NewPicker(a.bank, rand.New(rand.NewSource(time.Now().UnixNano())))
	return nil
}

// initHistory sets up the in-memory window and the durable store (PostgreSQL
// when a DSN is configured, otherwise the JSON-lines file if a path is set),
// then preloads the window from the store.
func (a *App) initHistory(ctx context.Context) error {
	capacity := a.cfg.History.Capacity
	if capacity <= 0 {
		capacity = session.DefaultCapacity
	}
	a.history = session.NewHistory(capacity)

	if a.store == nil {
		switch {
		case a.cfg.History.PostgresDSN != "":
			pool, err := pgxpool.New(ctx, a.cfg.History.PostgresDSN)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			store := sessionpg.New(pool)
			if err := store.Migrate(ctx); err != nil {
				pool.Close()
				return fmt.Errorf("migrate history schema: %w", err)
			}
			a.store = store
			a.closers = append(a.closers, func() error {
				pool.Close()
				return nil
			})
		case a.cfg.History.FilePath != "":
			a.store = session.NewFileStore(a.cfg.History.FilePath)
		}
	}

	if a.store != nil {
		recs, err := a.store.Recent(ctx, a.userID, capacity)
		if err != nil {
			return fmt.Errorf("preload history: %w", err)
		}
		a.history.Preload(recs)
		slog.Debug("preloaded practice history", "records", len(recs))
	}

	return nil
}

// ─── Practice ────────────────────────────────────────────────────────────────

// Practice runs one scored pronunciation attempt: the PCM audio is streamed
// to the STT provider with the target phrase as a recognition hint, the
// final transcript is scored against the target, and the attempt is recorded
// in the history.
//
// The audio must be 16-bit signed little-endian PCM in the given format; it
// is converted to 16 kHz mono before streaming. An attempt in which nothing
// intelligible was heard yields a Result with a zero score rather than an
// error.
func (a *App) Practice(ctx context.Context, target string, pcm []byte, format audio.Format) (*Result, error) {
	if strings.TrimSpace(target) == "" {
		return nil, fmt.Errorf("app: target phrase must not be empty")
	}
	if a.providers.STT == nil {
		return nil, fmt.Errorf("app: no STT provider configured")
	}

	ctx, span := observe.StartSpan(ctx, "practice.attempt")
	defer span.End()
	log := observe.Logger(ctx)

	a.metrics.ActiveSessions.Add(ctx, 1)
	defer a.metrics.ActiveSessions.Add(ctx, -1)

	pcm = audio.Convert(pcm, format, sttFormat)

	start := time.Now()
	transcript, err := a.transcribe(ctx, target, pcm)
	if err != nil {
		a.metrics.RecordProviderError(ctx, a.cfg.STT.Name, "stt")
		return nil, fmt.Errorf("app: transcribe attempt: %w", err)
	}
	sttDur := time.Since(start)
	a.metrics.STTDuration.Record(ctx, sttDur.Seconds())

	res := a.Evaluate(target, transcript)
	res.STTDuration = sttDur

	a.recordAttempt(ctx, target, res)

	log.Info("practice attempt scored",
		"target", target,
		"heard", transcript,
		"score", res.Breakdown.Final,
		"grade", res.Bundle.Grade,
	)
	return res, nil
}

// Evaluate scores a transcript against the target phrase without touching
// the STT provider or the history. The text-only CLI commands use it
// directly.
func (a *App) Evaluate(target, transcript string) *Result {
	breakdown := scoring.ScoreBreakdown(transcript, target)
	report := scoring.AnalyzeErrors(transcript, target)
	prior := a.history.RecentScores(session.TrendWindow)

	return &Result{
		Phrase:     target,
		Transcript: transcript,
		Breakdown:  breakdown,
		Report:     report,
		Bundle:     feedback.Compose(transcript, target, breakdown.Final, report, prior),
		Tier:       difficulty.Analyze(target),
		Rating:     difficulty.Rate(target),
	}
}

// transcribe streams pcm to the STT provider and returns the concatenated
// final transcript. The feeder and collector run concurrently so providers
// that emit mid-stream finals never block on a full channel.
func (a *App) transcribe(ctx context.Context, target string, pcm []byte) (string, error) {
	handle, err := a.providers.STT.StartStream(ctx, stt.StreamConfig{
		SampleRate: sttFormat.SampleRate,
		Channels:   sttFormat.Channels,
		Language:   a.cfg.STT.Language,
		Hint:       types.PhraseHint{Text: target},
	})
	if err != nil {
		return "", fmt.Errorf("start stream: %w", err)
	}

	var parts []string
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for off := 0; off < len(pcm); off += chunkSize {
			if err := ctx.Err(); err != nil {
				return err
			}
			end := off + chunkSize
			if end > len(pcm) {
				end = len(pcm)
			}
			if err := handle.SendAudio(pcm[off:end]); err != nil {
				return fmt.Errorf("send audio: %w", err)
			}
		}
		// Close flushes buffered audio and ends the Finals stream.
		return handle.Close()
	})

	g.Go(func() error {
		for t := range handle.Finals() {
			if t.Text == "" {
				continue
			}
			parts = append(parts, strings.TrimSpace(t.Text))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return "", err
	}
	return strings.Join(parts, " "), nil
}

// recordAttempt appends the attempt to the in-memory window, persists it
// best-effort, and updates metrics.
func (a *App) recordAttempt(ctx context.Context, target string, res *Result) {
	rec := session.Record{
		Timestamp: time.Now().UTC(),
		UserID:    a.userID,
		Phrase:    target,
		Score:     res.Breakdown.Final,
	}
	a.history.Append(rec)

	if a.store != nil {
		if err := a.store.Append(ctx, rec); err != nil {
			slog.Warn("failed to persist attempt", "err", err)
		}
	}

	a.metrics.RecordAttempt(ctx, res.Breakdown.Final, res.Bundle.Grade, string(res.Tier))
}

// ─── Phrase selection ────────────────────────────────────────────────────────

// NextPhrase returns a practice phrase for the given tier. When an LLM
// generator is configured it produces a fresh phrase; otherwise one is
// picked from the bank. soundFocus optionally narrows selection to phrases
// exercising a particular sound (e.g. "th").
func (a *App) NextPhrase(ctx context.Context, tier difficulty.Tier, soundFocus string) (phrase.Phrase, error) {
	if a.providers.Generator != nil {
		phrases, err := a.providers.Generator.Generate(ctx, tier, soundFocus, 1)
		if err == nil && len(phrases) > 0 {
			a.metrics.PhrasesGenerated.Add(ctx, int64(len(phrases)))
			return phrases[0], nil
		}
		if err != nil {
			a.metrics.RecordProviderError(ctx, a.cfg.Generator.Name, "generator")
			slog.Warn("phrase generation failed, falling back to bank", "err", err)
		}
	}

	if soundFocus != "" {
		return a.picker.PickFocused(soundFocus, tier)
	}
	return a.picker.Pick(tier)
}

// History exposes the in-memory practice window.
func (a *App) History() *session.History { return a.history }

// Bank exposes the loaded phrase bank.
func (a *App) Bank() *phrase.Bank { return a.bank }

// Ready reports whether the app's durable dependencies are reachable. With no
// durable store configured it always succeeds.
func (a *App) Ready(ctx context.Context) error {
	if a.store == nil {
		return nil
	}
	if _, err := a.store.Recent(ctx, a.userID, 1); err != nil {
		return fmt.Errorf("history store: %w", err)
	}
	return nil
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
	})
	return shutdownErr
}
