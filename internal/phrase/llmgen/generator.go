// Package llmgen generates fresh practice phrases through an LLM when the
// bank runs thin for a tier or sound focus. It wraps
// github.com/mozilla-ai/any-llm-go, a unified multi-provider interface that
// supports OpenAI, Anthropic, Gemini, Ollama, and others.
//
// Generated phrases are plain candidate text: the caller re-derives word
// count and difficulty tier through the analyzer before admitting them to
// the bank, because LLMs routinely miss the requested difficulty.
package llmgen

import (
	"context"
	"fmt"
	"strings"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/parlano/parlano/internal/phrase"
	"github.com/parlano/parlano/pkg/difficulty"
)

const systemPrompt = `You write short English phrases for pronunciation practice.
Reply with exactly one phrase per line and nothing else: no numbering, no quotes, no commentary.`

// Option is a functional option for configuring a [Generator].
type Option func(*Generator)

// WithTemperature sets the sampling temperature for generation requests.
// Default: 0.9 — phrase variety matters more than determinism here.
func WithTemperature(t float64) Option {
	return func(g *Generator) {
		g.temperature = t
	}
}

// WithMaxTokens caps the completion length. Default: 256.
func WithMaxTokens(n int) Option {
	return func(g *Generator) {
		g.maxTokens = n
	}
}

// Backend is the completion surface the generator needs from an any-llm-go
// provider. [anyllmlib.Provider] satisfies it.
type Backend interface {
	Completion(ctx context.Context, params anyllmlib.CompletionParams) (*anyllmlib.ChatCompletion, error)
}

// Generator produces practice phrases through an any-llm-go backend.
// Safe for concurrent use — the Generator is read-only after construction.
type Generator struct {
	backend     Backend
	model       string
	temperature float64
	maxTokens   int
}

// New creates a Generator for the given provider name ("openai",
// "anthropic", "gemini", "ollama") and model. Without an API key option the
// backend falls back to its usual environment variable (OPENAI_API_KEY,
// ANTHROPIC_API_KEY, …).
func New(providerName, model string, opts ...anyllmlib.Option) (*Generator, error) {
	if model == "" {
		return nil, fmt.Errorf("llmgen: model must not be empty")
	}
	backend, err := createBackend(providerName, opts...)
	if err != nil {
		return nil, fmt.Errorf("llmgen: create %q backend: %w", providerName, err)
	}
	return &Generator{
		backend:     backend,
		model:       model,
		temperature: 0.9,
		maxTokens:   256,
	}, nil
}

// NewWithBackend creates a Generator over an existing backend. Used by tests
// to inject a fake provider.
func NewWithBackend(backend Backend, model string, opts ...Option) *Generator {
	g := &Generator{
		backend:     backend,
		model:       model,
		temperature: 0.9,
		maxTokens:   256,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// createBackend creates the underlying any-llm-go provider for the given name.
func createBackend(providerName string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(providerName) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unknown provider %q (supported: openai, anthropic, gemini, ollama)", providerName)
	}
}

// Generate asks the LLM for count phrases at the given tier, optionally
// drilling a sound focus. Each returned phrase has its word count and tier
// re-derived by the difficulty analyzer — the requested tier is a prompt
// hint, not a guarantee.
func (g *Generator) Generate(ctx context.Context, tier difficulty.Tier, soundFocus string, count int) ([]phrase.Phrase, error) {
	if count <= 0 {
		return nil, nil
	}

	prompt := fmt.Sprintf("Write %d %s-level English pronunciation practice phrases.", count, tier)
	switch tier {
	case difficulty.Basic:
		prompt += " Use short, common words."
	case difficulty.Intermediate:
		prompt += " Use everyday vocabulary with a few longer words."
	case difficulty.Advanced:
		prompt += " Use long words, consonant clusters, and tongue-twister alliteration."
	}
	if soundFocus != "" {
		prompt += fmt.Sprintf(" Every phrase must exercise the %q sound.", soundFocus)
	}

	temp := g.temperature
	maxTokens := g.maxTokens
	resp, err := g.backend.Completion(ctx, anyllmlib.CompletionParams{
		Model: g.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: systemPrompt},
			{Role: anyllmlib.RoleUser, Content: prompt},
		},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("llmgen: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("llmgen: empty choices in response")
	}

	return parsePhrases(resp.Choices[0].Message.ContentString(), soundFocus, count), nil
}

// parsePhrases splits the raw completion into phrases, one per line,
// dropping blanks and anything beyond count, and derives each phrase's
// computed fields.
func parsePhrases(raw, soundFocus string, count int) []phrase.Phrase {
	var out []phrase.Phrase
	for _, line := range strings.Split(raw, "\n") {
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		out = append(out, phrase.Phrase{
			Text:       text,
			SoundFocus: soundFocus,
			WordCount:  len(strings.Fields(text)),
			Tier:       difficulty.Analyze(text),
		})
		if len(out) == count {
			break
		}
	}
	return out
}
