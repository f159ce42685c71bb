package phrase_test

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/parlano/parlano/internal/phrase"
	"github.com/parlano/parlano/pkg/difficulty"
)

const bankYAML = `
phrases:
  - text: hello
  - text: cat sat on a mat
  - text: think before you leap
    sound_focus: th
  - text: she sells sea shells by the sea shore
    sound_focus: th
  - text: Peter Piper picked a peck of pickled peppers
`

func loadBank(t *testing.T) *phrase.Bank {
	t.Helper()
	bank, err := phrase.LoadFromReader(strings.NewReader(bankYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	return bank
}

func TestLoadFromReader_DerivesFields(t *testing.T) {
	t.Parallel()

	bank := loadBank(t)
	if bank.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", bank.Len())
	}

	all := bank.All()
	if all[1].WordCount != 5 {
		t.Errorf("WordCount = %d, want 5", all[1].WordCount)
	}
	if all[0].Tier != difficulty.Basic {
		t.Errorf("Tier(%q) = %q, want basic", all[0].Text, all[0].Tier)
	}
	if got := bank.ByTier(difficulty.Advanced); len(got) == 0 {
		t.Error("expected at least one advanced phrase (alliteration)")
	}
	if got := bank.BySoundFocus("th"); len(got) != 2 {
		t.Errorf("BySoundFocus(th) = %d phrases, want 2", len(got))
	}
}

func TestLoadFromReader_RejectsUnknownFields(t *testing.T) {
	t.Parallel()

	_, err := phrase.LoadFromReader(strings.NewReader("phrases:\n  - text: hi\n    difficulty: 9\n"))
	if err == nil {
		t.Fatal("expected an error for unknown field, got nil")
	}
}

func TestLoadFromReader_RejectsEmpty(t *testing.T) {
	t.Parallel()

	if _, err := phrase.LoadFromReader(strings.NewReader("phrases: []\n")); err == nil {
		t.Fatal("expected an error for empty bank, got nil")
	}
	if _, err := phrase.LoadFromReader(strings.NewReader("phrases:\n  - text: \"  \"\n")); err == nil {
		t.Fatal("expected an error for blank phrase text, got nil")
	}
}

func TestPicker_Deterministic(t *testing.T) {
	t.Parallel()

	bank := loadBank(t)

	a := phrase.NewPicker(bank, rand.New(rand.NewSource(42)))
	b := phrase.NewPicker(bank, rand.New(rand.NewSource(42)))
	for i := 0; i < 10; i++ {
		pa, err := a.Pick(difficulty.Basic)
		if err != nil {
			t.Fatalf("Pick: %v", err)
		}
		pb, _ := b.Pick(difficulty.Basic)
		if pa.Text != pb.Text {
			t.Fatalf("same seed diverged at pick %d: %q vs %q", i, pa.Text, pb.Text)
		}
	}
}

func TestPicker_PickRespectsTier(t *testing.T) {
	t.Parallel()

	bank := loadBank(t)
	picker := phrase.NewPicker(bank, rand.New(rand.NewSource(1)))

	for i := 0; i < 20; i++ {
		p, err := picker.Pick(difficulty.Basic)
		if err != nil {
			t.Fatalf("Pick: %v", err)
		}
		if p.Tier != difficulty.Basic {
			t.Fatalf("Pick(basic) returned %q with tier %q", p.Text, p.Tier)
		}
	}
}

func TestPicker_FocusFallsBackToTier(t *testing.T) {
	t.Parallel()

	bank := loadBank(t)
	picker := phrase.NewPicker(bank, rand.New(rand.NewSource(1)))

	p, err := picker.PickFocused("r_l", difficulty.Basic)
	if err != nil {
		t.Fatalf("PickFocused: %v", err)
	}
	if p.Tier != difficulty.Basic {
		t.Errorf("fallback pick = %q (tier %q), want a basic phrase", p.Text, p.Tier)
	}

	p, err = picker.PickFocused("th", difficulty.Basic)
	if err != nil {
		t.Fatalf("PickFocused: %v", err)
	}
	if p.SoundFocus != "th" {
		t.Errorf("PickFocused(th) = %q with focus %q, want a th phrase", p.Text, p.SoundFocus)
	}
}
