// Command parlano is the pronunciation coaching CLI.
//
// Usage:
//
//	parlano [-config config.yaml] <command> [args]
//
// Commands:
//
//	score <target> <spoken>        score a transcript against a phrase
//	errors <target> <spoken>       word-level error report
//	difficulty <phrase>            tier and 1-10 rating for a phrase
//	practice <target> <audio.wav>  transcribe a recording and score it
//	suggest [tier] [focus]         pick or generate a practice phrase
//	bank                           list the loaded phrase bank
//	history [n]                    show the n most recent attempts
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parlano/parlano/internal/app"
	"github.com/parlano/parlano/internal/config"
	"github.com/parlano/parlano/internal/health"
	"github.com/parlano/parlano/internal/observe"
	"github.com/parlano/parlano/internal/resilience"
	"github.com/parlano/parlano/internal/phrase/llmgen"
	"github.com/parlano/parlano/pkg/audio"
	"github.com/parlano/parlano/pkg/difficulty"
	"github.com/parlano/parlano/pkg/provider/stt"
	"github.com/parlano/parlano/pkg/provider/stt/deepgram"
	"github.com/parlano/parlano/pkg/provider/stt/openaistt"
	"github.com/parlano/parlano/pkg/provider/stt/whisper"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "parlano: no command given — try score, errors, difficulty, practice, suggest, bank, or history")
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// The text-only commands work without a config file.
			cfg = &config.Config{}
		} else {
			fmt.Fprintf(os.Stderr, "parlano: %v\n", err)
			return 1
		}
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "parlano"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sc, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sc); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	providers, err := buildProviders(cfg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}
	defer func() {
		sc, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := application.Shutdown(sc); err != nil {
			slog.Warn("shutdown error", "err", err)
		}
	}()

	if cfg.Server.MetricsAddr != "" {
		hh := health.New()
		hh.Probe("history", application.Ready)
		startMetricsServer(ctx, cfg.Server.MetricsAddr, hh)
	}

	if err := dispatch(ctx, application, args); err != nil {
		fmt.Fprintf(os.Stderr, "parlano: %v\n", err)
		return 1
	}
	return 0
}

// dispatch routes a subcommand to its handler.
func dispatch(ctx context.Context, a *app.App, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "score":
		return cmdScore(a, rest)
	case "errors":
		return cmdErrors(a, rest)
	case "difficulty":
		return cmdDifficulty(rest)
	case "practice":
		return cmdPractice(ctx, a, rest)
	case "suggest":
		return cmdSuggest(ctx, a, rest)
	case "bank":
		return cmdBank(a)
	case "history":
		return cmdHistory(a, rest)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// ── Commands ─────────────────────────────────────────────────────────────────

func cmdScore(a *app.App, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: parlano score <target> <spoken>")
	}
	res := a.Evaluate(args[0], args[1])
	printResult(res)
	return nil
}

func cmdErrors(a *app.App, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: parlano errors <target> <spoken>")
	}
	res := a.Evaluate(args[0], args[1])
	printErrorReport(res)
	return nil
}

func cmdDifficulty(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: parlano difficulty <phrase>")
	}
	p := args[0]
	fmt.Printf("phrase : %s\n", p)
	fmt.Printf("tier   : %s\n", difficulty.Analyze(p))
	fmt.Printf("rating : %d/10\n", difficulty.Rate(p))
	return nil
}

func cmdPractice(ctx context.Context, a *app.App, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: parlano practice <target> <audio.wav>")
	}
	target, path := args[0], args[1]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read recording: %w", err)
	}
	pcm, format, err := audio.DecodeWAV(data)
	if err != nil {
		return fmt.Errorf("decode recording: %w", err)
	}

	res, err := a.Practice(ctx, target, pcm, format)
	if err != nil {
		return err
	}

	fmt.Printf("heard  : %s\n", res.Transcript)
	printResult(res)
	printErrorReport(res)
	return nil
}

func cmdSuggest(ctx context.Context, a *app.App, args []string) error {
	tier := difficulty.Basic
	focus := ""
	if len(args) > 0 {
		tier = difficulty.Tier(args[0])
		if !tier.IsValid() {
			return fmt.Errorf("unknown tier %q (want basic, intermediate, or advanced)", args[0])
		}
	}
	if len(args) > 1 {
		focus = args[1]
	}

	p, err := a.NextPhrase(ctx, tier, focus)
	if err != nil {
		return err
	}
	fmt.Printf("phrase : %s\n", p.Text)
	fmt.Printf("tier   : %s\n", p.Tier)
	fmt.Printf("rating : %d/10\n", difficulty.Rate(p.Text))
	return nil
}

func cmdBank(a *app.App) error {
	phrases := a.Bank().All()
	if len(phrases) == 0 {
		fmt.Println("phrase bank is empty — set phrases.path in the config")
		return nil
	}
	for _, p := range phrases {
		focus := p.SoundFocus
		if focus == "" {
			focus = "-"
		}
		fmt.Printf("%-12s  %-6s  %s\n", p.Tier, focus, p.Text)
	}
	return nil
}

func cmdHistory(a *app.App, args []string) error {
	n := 10
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			return fmt.Errorf("invalid count %q", args[0])
		}
		n = v
	}

	recs := a.History().Recent(n)
	if len(recs) == 0 {
		fmt.Println("no practice history yet")
		return nil
	}
	for _, r := range recs {
		fmt.Printf("%s  %3d  %s\n", r.Timestamp.Format(time.RFC3339), r.Score, r.Phrase)
	}
	return nil
}

// ── Output helpers ───────────────────────────────────────────────────────────

func printResult(res *app.Result) {
	b := res.Breakdown
	fmt.Printf("score  : %d/100 (%s)\n", b.Final, res.Bundle.Grade)
	fmt.Printf("         base %.1f, length penalty %.1f, order bonus %.1f\n",
		b.Base, b.LengthPenalty, b.OrderBonus)
	for _, line := range res.Bundle.Feedback {
		fmt.Printf("tip    : %s\n", line)
	}
	fmt.Printf("coach  : %s\n", res.Bundle.Motivation)
}

func printErrorReport(res *app.Result) {
	r := res.Report
	if r.Clean() {
		fmt.Println("errors : none")
		return
	}
	if len(r.Missed) > 0 {
		fmt.Printf("missed : %s\n", strings.Join(r.Missed, ", "))
	}
	if len(r.Added) > 0 {
		fmt.Printf("added  : %s\n", strings.Join(r.Added, ", "))
	}
	for _, s := range r.Substitutions {
		fmt.Printf("swap   : %s → %s\n", s.Original, s.Spoken)
	}
}

// ── Provider wiring ──────────────────────────────────────────────────────────

// buildProviders instantiates the providers named in cfg and returns them in
// an [app.Providers] struct for the application to consume.
func buildProviders(cfg *config.Config) (*app.Providers, error) {
	ps := &app.Providers{}

	if name := cfg.STT.Name; name != "" {
		p, err := buildSTT(cfg.STT)
		if err != nil {
			return nil, fmt.Errorf("create stt provider %q: %w", name, err)
		}
		ps.STT = p
		slog.Info("provider created", "kind", "stt", "name", name)

		if len(cfg.STTFallbacks) > 0 {
			fb := resilience.NewSTTFallback(p, name, resilience.FallbackConfig{})
			for _, entry := range cfg.STTFallbacks {
				s, err := buildSTT(entry)
				if err != nil {
					return nil, fmt.Errorf("create stt fallback %q: %w", entry.Name, err)
				}
				fb.AddFallback(entry.Name, s)
				slog.Info("provider created", "kind", "stt", "name", entry.Name, "role", "fallback")
			}
			ps.STT = fb
		}
	}

	if name := cfg.Generator.Name; name != "" {
		g, err := buildGenerator(cfg.Generator)
		if err != nil {
			return nil, fmt.Errorf("create generator provider %q: %w", name, err)
		}
		ps.Generator = g
		slog.Info("provider created", "kind", "generator", "name", name)
	}

	return ps, nil
}

// buildSTT constructs the STT provider selected by entry.Name.
func buildSTT(entry config.ProviderEntry) (stt.Provider, error) {
	switch entry.Name {
	case "whisper":
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if entry.Language != "" {
			opts = append(opts, whisper.WithLanguage(entry.Language))
		}
		if entry.SampleRate > 0 {
			opts = append(opts, whisper.WithSampleRate(entry.SampleRate))
		}
		return whisper.New(entry.BaseURL, opts...)

	case "whisper-native":
		// BaseURL carries the model file path for the native provider.
		var opts []whisper.NativeOption
		if entry.Language != "" {
			opts = append(opts, whisper.WithNativeLanguage(entry.Language))
		}
		if entry.SampleRate > 0 {
			opts = append(opts, whisper.WithNativeSampleRate(entry.SampleRate))
		}
		return whisper.NewNative(entry.BaseURL, opts...)

	case "deepgram":
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if entry.Language != "" {
			opts = append(opts, deepgram.WithLanguage(entry.Language))
		}
		if entry.SampleRate > 0 {
			opts = append(opts, deepgram.WithSampleRate(entry.SampleRate))
		}
		return deepgram.New(entry.APIKey, opts...)

	case "openai":
		var opts []openaistt.Option
		if entry.BaseURL != "" {
			opts = append(opts, openaistt.WithBaseURL(entry.BaseURL))
		}
		return openaistt.New(entry.APIKey, entry.Model, opts...)

	default:
		return nil, fmt.Errorf("unknown stt provider %q", entry.Name)
	}
}

// buildGenerator constructs the LLM phrase generator selected by entry.Name.
func buildGenerator(entry config.ProviderEntry) (*llmgen.Generator, error) {
	var opts []anyllmlib.Option
	if entry.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	return llmgen.New(entry.Name, entry.Model, opts...)
}

// ── Metrics ──────────────────────────────────────────────────────────────────

// startMetricsServer serves the Prometheus /metrics endpoint plus the health
// routes until ctx ends.
func startMetricsServer(ctx context.Context, addr string, hh *health.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	hh.Register(mux)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		slog.Info("metrics endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Warn("metrics server error", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		sc, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sc)
	}()
}

// ── Logger ───────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
