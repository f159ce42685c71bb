// Package openaistt provides an STT provider backed by the OpenAI audio
// transcription API. It implements the stt.Provider interface.
//
// OpenAI transcription is a batch API, so the provider cannot stream: a
// session buffers all PCM audio it receives and submits one WAV upload when
// the session is closed. A partial and a final with identical text are
// emitted for the single utterance, mirroring the local whisper provider.
//
// The target practice phrase from StreamConfig.Hint is forwarded as the
// transcription prompt, which biases decoding toward the expected words.
package openaistt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/parlano/parlano/pkg/audio"
	"github.com/parlano/parlano/pkg/provider/stt"
	"github.com/parlano/parlano/pkg/types"
)

// DefaultModel is the default OpenAI transcription model.
const DefaultModel = oai.AudioModelWhisper1

const (
	defaultLanguage   = "en"
	defaultSampleRate = 16000

	// transcribeTimeout bounds the final upload performed during Close.
	transcribeTimeout = 60 * time.Second
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// config holds optional configuration for the provider.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL. Useful for
// OpenAI-compatible transcription servers and for tests.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Provider implements stt.Provider using the OpenAI transcription API.
type Provider struct {
	client   oai.Client
	model    string
	language string
}

// New constructs a new OpenAI transcription Provider. If model is empty,
// DefaultModel (whisper-1) is used.
func New(apiKey string, model string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openaistt: apiKey must not be empty")
	}
	if model == "" {
		model = DefaultModel
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	client := oai.NewClient(reqOpts...)
	return &Provider{client: client, model: model, language: defaultLanguage}, nil
}

// ModelID returns the transcription model in use.
func (p *Provider) ModelID() string { return p.model }

// StartStream opens a buffering session. No network connection is
// established until Close submits the accumulated audio.
func (p *Provider) StartStream(ctx context.Context, cfg stt.StreamConfig) (stt.SessionHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("openaistt: context already cancelled: %w", err)
	}

	lang := cfg.Language
	if lang == "" {
		lang = p.language
	}
	sr := cfg.SampleRate
	if sr <= 0 {
		sr = defaultSampleRate
	}
	ch := cfg.Channels
	if ch <= 0 {
		ch = 1
	}

	return &session{
		client:     p.client,
		model:      p.model,
		language:   lang,
		prompt:     cfg.Hint.Text,
		sampleRate: sr,
		channels:   ch,
		partials:   make(chan types.Transcript, 1),
		finals:     make(chan types.Transcript, 1),
	}, nil
}

// ---- session ----------------------------------------------------------------

// session buffers audio until Close, then performs one transcription call.
// It implements stt.SessionHandle.
type session struct {
	client     oai.Client
	model      string
	language   string
	prompt     string
	sampleRate int
	channels   int

	partials chan types.Transcript
	finals   chan types.Transcript

	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool

	once sync.Once
}

// SendAudio appends a chunk of raw 16-bit little-endian PCM audio to the
// session buffer. Calling SendAudio after Close returns an error.
func (s *session) SendAudio(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("openaistt: session is closed")
	}
	s.buf.Write(chunk)
	return nil
}

// Partials returns a read-only channel that emits at most one interim
// Transcript, issued alongside the final when Close completes.
func (s *session) Partials() <-chan types.Transcript { return s.partials }

// Finals returns a read-only channel that emits at most one authoritative
// Transcript once Close has submitted the buffered audio.
func (s *session) Finals() <-chan types.Transcript { return s.finals }

// Close submits the buffered audio for transcription, emits the result, and
// closes the Partials and Finals channels. Calling Close more than once is
// safe; only the first call transcribes.
func (s *session) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		pcm := s.buf.Bytes()
		s.mu.Unlock()

		defer close(s.partials)
		defer close(s.finals)

		if len(pcm) == 0 {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), transcribeTimeout)
		defer cancel()

		var text string
		text, err = s.transcribe(ctx, pcm)
		if err != nil || text == "" {
			return
		}

		// Channels are buffered with capacity 1 and only written here.
		s.partials <- types.Transcript{Text: text, IsFinal: false}
		s.finals <- types.Transcript{Text: text, IsFinal: true}
	})
	return err
}

// transcribe encodes pcm as WAV and calls the OpenAI transcription endpoint.
func (s *session) transcribe(ctx context.Context, pcm []byte) (string, error) {
	wav := audio.EncodeWAV(pcm, audio.Format{SampleRate: s.sampleRate, Channels: s.channels})

	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(wav), "audio.wav", "audio/wav"),
		Model: s.model,
	}
	if s.language != "" {
		params.Language = param.NewOpt(s.language)
	}
	if s.prompt != "" {
		params.Prompt = param.NewOpt(s.prompt)
	}

	resp, err := s.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openaistt: transcribe: %w", err)
	}
	return resp.Text, nil
}

// Compile-time assertion that session satisfies stt.SessionHandle.
var _ stt.SessionHandle = (*session)(nil)
