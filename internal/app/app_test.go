package app_test

import (
	"context"
	"errors"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/parlano/parlano/internal/app"
	"github.com/parlano/parlano/internal/config"
	"github.com/parlano/parlano/internal/observe"
	"github.com/parlano/parlano/internal/phrase"
	"github.com/parlano/parlano/internal/session"
	"github.com/parlano/parlano/pkg/audio"
	"github.com/parlano/parlano/pkg/difficulty"
	"github.com/parlano/parlano/pkg/provider/stt/mock"
	"github.com/parlano/parlano/pkg/types"
)

// newMockSession returns a mock STT session that will deliver the given
// final transcript once the session is closed.
func newMockSession(finalText string) *mock.Session {
	s := &mock.Session{
		PartialsCh: make(chan types.Transcript, 4),
		FinalsCh:   make(chan types.Transcript, 4),
	}
	if finalText != "" {
		s.FinalsCh <- types.Transcript{Text: finalText, IsFinal: true}
	}
	s.CloseFunc = func() {
		close(s.PartialsCh)
		close(s.FinalsCh)
	}
	return s
}

func testConfig() *config.Config {
	return &config.Config{
		STT:     config.ProviderEntry{Name: "whisper", Language: "en"},
		History: config.HistoryConfig{Capacity: 10, UserID: "learner-1"},
	}
}

func newTestApp(t *testing.T, provider *mock.Provider) (*app.App, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	a, err := app.New(context.Background(), testConfig(),
		&app.Providers{STT: provider},
		app.WithMetrics(metrics),
		app.WithBank(phrase.NewBank([]phrase.Phrase{
			{Text: "the cat sat on the mat"},
			{Text: "she sells seashells by the seashore"},
		})),
	)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	return a, reader
}

func TestPractice_PerfectAttempt(t *testing.T) {
	t.Parallel()

	const target = "she sells seashells"
	sess := newMockSession(target)
	provider := &mock.Provider{Session: sess}
	a, _ := newTestApp(t, provider)

	pcm := make([]byte, 16000) // 500 ms of silence-valued PCM
	res, err := a.Practice(context.Background(), target, pcm, audio.Format{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatalf("Practice: %v", err)
	}

	if res.Breakdown.Final != 100 {
		t.Errorf("score = %d, want 100", res.Breakdown.Final)
	}
	if res.Bundle.Grade != "A+" {
		t.Errorf("grade = %q, want A+", res.Bundle.Grade)
	}
	if !res.Report.Clean() {
		t.Errorf("expected clean error report, got %+v", res.Report)
	}
	if res.Transcript != target {
		t.Errorf("transcript = %q, want %q", res.Transcript, target)
	}

	// The hint must carry the target phrase to the provider.
	if len(provider.StartStreamCalls) != 1 {
		t.Fatalf("StartStream called %d times, want 1", len(provider.StartStreamCalls))
	}
	if got := provider.StartStreamCalls[0].Cfg.Hint.Text; got != target {
		t.Errorf("hint = %q, want %q", got, target)
	}

	// Audio must have been streamed in chunks and the session closed.
	if sess.SendAudioCallCount() == 0 {
		t.Error("no audio was sent to the session")
	}
	if sess.CloseCallCount == 0 {
		t.Error("session was not closed")
	}

	// The attempt lands in the history window.
	if a.History().Len() != 1 {
		t.Errorf("history length = %d, want 1", a.History().Len())
	}
}

func TestPractice_NothingHeard_ScoresZero(t *testing.T) {
	t.Parallel()

	sess := newMockSession("")
	a, _ := newTestApp(t, &mock.Provider{Session: sess})

	res, err := a.Practice(context.Background(), "the cat sat", make([]byte, 3200), audio.Format{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatalf("Practice: %v", err)
	}
	if res.Breakdown.Final != 0 {
		t.Errorf("score = %d, want 0 for empty transcript", res.Breakdown.Final)
	}
	if res.Transcript != "" {
		t.Errorf("transcript = %q, want empty", res.Transcript)
	}
}

func TestPractice_EmptyTarget_ReturnsError(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, &mock.Provider{Session: newMockSession("x")})
	if _, err := a.Practice(context.Background(), "   ", nil, audio.Format{SampleRate: 16000, Channels: 1}); err == nil {
		t.Fatal("expected error for blank target phrase")
	}
}

func TestPractice_NoSTTProvider_ReturnsError(t *testing.T) {
	t.Parallel()

	a, err := app.New(context.Background(), testConfig(), &app.Providers{},
		app.WithBank(phrase.NewBank([]phrase.Phrase{{Text: "hi there"}})))
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	if _, err := a.Practice(context.Background(), "hi there", nil, audio.Format{SampleRate: 16000, Channels: 1}); err == nil {
		t.Fatal("expected error when no STT provider is configured")
	}
}

func TestPractice_ProviderError_Propagates(t *testing.T) {
	t.Parallel()

	provider := &mock.Provider{StartStreamErr: errors.New("boom")}
	a, reader := newTestApp(t, provider)

	_, err := a.Practice(context.Background(), "hello world", make([]byte, 320), audio.Format{SampleRate: 16000, Channels: 1})
	if err == nil {
		t.Fatal("expected error from failing provider")
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if !metricPresent(rm, "parlano.provider.errors") {
		t.Error("provider error was not recorded")
	}
}

func TestPractice_RecordsMetrics(t *testing.T) {
	t.Parallel()

	const target = "toy boat"
	a, reader := newTestApp(t, &mock.Provider{Session: newMockSession(target)})

	if _, err := a.Practice(context.Background(), target, make([]byte, 3200), audio.Format{SampleRate: 16000, Channels: 1}); err != nil {
		t.Fatalf("Practice: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	for _, name := range []string{"parlano.attempts", "parlano.attempt.score", "parlano.stt.duration"} {
		if !metricPresent(rm, name) {
			t.Errorf("metric %s was not recorded", name)
		}
	}
}

func TestPractice_StereoAudioIsConverted(t *testing.T) {
	t.Parallel()

	const target = "red lorry"
	sess := newMockSession(target)
	a, _ := newTestApp(t, &mock.Provider{Session: sess})

	// 100 ms of 48 kHz stereo (192 bytes per ms) converts down to 3200
	// bytes of 16 kHz mono.
	pcm := make([]byte, 19200)
	if _, err := a.Practice(context.Background(), target, pcm, audio.Format{SampleRate: 48000, Channels: 2}); err != nil {
		t.Fatalf("Practice: %v", err)
	}

	var sent int
	for _, call := range sess.SendAudioCalls {
		sent += len(call.Chunk)
	}
	if sent != 3200 {
		t.Errorf("sent %d bytes after conversion, want 3200", sent)
	}
}

func TestPractice_PersistsToStore(t *testing.T) {
	t.Parallel()

	const target = "unique new york"
	store := session.NewFileStore(t.TempDir() + "/history.jsonl")

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	a, err := app.New(context.Background(), testConfig(),
		&app.Providers{STT: &mock.Provider{Session: newMockSession(target)}},
		app.WithMetrics(metrics),
		app.WithHistoryStore(store),
		app.WithBank(phrase.NewBank([]phrase.Phrase{{Text: target}})),
	)
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}

	if _, err := a.Practice(context.Background(), target, make([]byte, 3200), audio.Format{SampleRate: 16000, Channels: 1}); err != nil {
		t.Fatalf("Practice: %v", err)
	}

	recs, err := store.Recent(context.Background(), "learner-1", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("stored %d records, want 1", len(recs))
	}
	if recs[0].Phrase != target || recs[0].Score != 100 {
		t.Errorf("stored record = %+v, want phrase %q score 100", recs[0], target)
	}
}

func TestEvaluate_DoesNotTouchHistory(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, &mock.Provider{})
	res := a.Evaluate("the cat sat", "the bat sat")

	if res.Breakdown.Final >= 100 || res.Breakdown.Final <= 0 {
		t.Errorf("score = %d, want a mid-range value", res.Breakdown.Final)
	}
	if len(res.Report.Substitutions) != 1 {
		t.Errorf("substitutions = %+v, want exactly one", res.Report.Substitutions)
	}
	if a.History().Len() != 0 {
		t.Errorf("Evaluate must not append to history, got %d records", a.History().Len())
	}
}

func TestNextPhrase_FallsBackToBank(t *testing.T) {
	t.Parallel()

	a, _ := newTestApp(t, &mock.Provider{})
	p, err := a.NextPhrase(context.Background(), difficulty.Basic, "")
	if err != nil {
		t.Fatalf("NextPhrase: %v", err)
	}
	if p.Text == "" {
		t.Error("expected a phrase from the bank")
	}
}

func metricPresent(rm metricdata.ResourceMetrics, name string) bool {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return true
			}
		}
	}
	return false
}
