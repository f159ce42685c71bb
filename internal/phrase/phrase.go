// Package phrase provides the practice phrase bank: immutable phrases
// loaded from a YAML file, categorized by difficulty tier at load time, and
// selected through a seeded random [Picker] so phrase choice stays testable.
package phrase

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/parlano/parlano/pkg/difficulty"
)

// Phrase is one practice phrase. Created at bank load time (or by a
// generator), never mutated, and discarded when the session ends.
type Phrase struct {
	// Text is the display text the learner is asked to say.
	Text string `yaml:"text"`

	// SoundFocus optionally tags the phoneme cluster the phrase drills
	// (e.g., "th", "r_l").
	SoundFocus string `yaml:"sound_focus,omitempty"`

	// WordCount is derived from Text at load time.
	WordCount int `yaml:"-"`

	// Tier is derived from Text at load time.
	Tier difficulty.Tier `yaml:"-"`
}

// bankFile is the YAML document shape of a phrase bank file.
type bankFile struct {
	Phrases []Phrase `yaml:"phrases"`
}

// Bank is an immutable collection of practice phrases indexed by difficulty
// tier and sound focus. Safe for concurrent use after construction.
type Bank struct {
	phrases []Phrase
	byTier  map[difficulty.Tier][]Phrase
	byFocus map[string][]Phrase
}

// Load reads the YAML phrase bank file at path and returns a [Bank].
func Load(path string) (*Bank, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("phrase: open %q: %w", path, err)
	}
	defer f.Close()

	bank, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("phrase: parse %q: %w", path, err)
	}
	return bank, nil
}

// LoadFromReader decodes a YAML phrase bank from r. Unknown fields are
// rejected so typos in bank files fail loudly. Phrases with empty text are
// an error; word count and difficulty tier are derived for the rest.
func LoadFromReader(r io.Reader) (*Bank, error) {
	var file bankFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("phrase: decode yaml: %w", err)
	}
	if len(file.Phrases) == 0 {
		return nil, fmt.Errorf("phrase: bank contains no phrases")
	}

	phrases := make([]Phrase, 0, len(file.Phrases))
	for i, p := range file.Phrases {
		if strings.TrimSpace(p.Text) == "" {
			return nil, fmt.Errorf("phrase: phrases[%d].text is empty", i)
		}
		phrases = append(phrases, derive(p))
	}
	return NewBank(phrases), nil
}

// NewBank builds a Bank from already-derived phrases. Used by loaders and by
// the generator path when folding in fresh phrases.
func NewBank(phrases []Phrase) *Bank {
	b := &Bank{
		phrases: phrases,
		byTier:  make(map[difficulty.Tier][]Phrase),
		byFocus: make(map[string][]Phrase),
	}
	for _, p := range phrases {
		b.byTier[p.Tier] = append(b.byTier[p.Tier], p)
		if p.SoundFocus != "" {
			b.byFocus[p.SoundFocus] = append(b.byFocus[p.SoundFocus], p)
		}
	}
	return b
}

// derive fills the computed fields of p from its text.
func derive(p Phrase) Phrase {
	p.WordCount = len(strings.Fields(p.Text))
	p.Tier = difficulty.Analyze(p.Text)
	return p
}

// Len returns the total number of phrases in the bank.
func (b *Bank) Len() int { return len(b.phrases) }

// All returns every phrase in bank order. The returned slice is shared;
// callers must not modify it.
func (b *Bank) All() []Phrase { return b.phrases }

// ByTier returns the phrases categorized into the given tier.
func (b *Bank) ByTier(t difficulty.Tier) []Phrase { return b.byTier[t] }

// BySoundFocus returns the phrases tagged with the given sound focus.
func (b *Bank) BySoundFocus(tag string) []Phrase { return b.byFocus[tag] }

// Picker selects random phrases from a bank. Randomness is injected so
// tests can seed it; the scoring core itself stays deterministic.
type Picker struct {
	bank *Bank
	rng  *rand.Rand
}

// NewPicker creates a Picker over bank using rng as its randomness source.
// rng must not be nil.
func NewPicker(bank *Bank, rng *rand.Rand) *Picker {
	return &Picker{bank: bank, rng: rng}
}

// Pick returns a random phrase from the given tier. When the tier holds no
// phrases it falls back to the whole bank; an empty bank is an error.
func (p *Picker) Pick(tier difficulty.Tier) (Phrase, error) {
	pool := p.bank.ByTier(tier)
	if len(pool) == 0 {
		pool = p.bank.All()
	}
	if len(pool) == 0 {
		return Phrase{}, fmt.Errorf("phrase: bank is empty")
	}
	return pool[p.rng.Intn(len(pool))], nil
}

// PickFocused returns a random phrase drilling the given sound focus,
// falling back to the tier pick when no phrase carries the tag.
func (p *Picker) PickFocused(tag string, tier difficulty.Tier) (Phrase, error) {
	pool := p.bank.BySoundFocus(tag)
	if len(pool) == 0 {
		return p.Pick(tier)
	}
	return pool[p.rng.Intn(len(pool))], nil
}
