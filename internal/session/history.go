// Package session tracks a learner's practice history: a fixed-capacity
// in-memory window of recent attempts for trend and motivation logic, and a
// pluggable [Store] for best-effort persistence.
//
// The scoring core never sees this package — it receives history as a plain
// ordered slice of prior scores.
package session

import (
	"context"
	"time"
)

// DefaultCapacity is the number of records the in-memory window retains.
const DefaultCapacity = 50

// TrendWindow is how many recent scores feed trend and motivation logic.
const TrendWindow = 10

// Record is one completed practice attempt.
type Record struct {
	// Timestamp is when the attempt finished.
	Timestamp time.Time `json:"timestamp"`

	// UserID identifies the learner. Empty for single-user CLI use.
	UserID string `json:"user_id,omitempty"`

	// Phrase is the target phrase text that was practiced.
	Phrase string `json:"phrase"`

	// Score is the 0–100 accuracy score.
	Score int `json:"score"`
}

// Store persists practice records. Implementations must be safe for
// concurrent use. Persistence is best-effort from the app's point of view:
// callers log and continue on error.
type Store interface {
	// Append adds a record to the store.
	Append(ctx context.Context, rec Record) error

	// Recent returns up to n of the user's most recent records,
	// oldest first.
	Recent(ctx context.Context, userID string, n int) ([]Record, error)
}

// History is a fixed-capacity ring buffer of practice records. When full,
// appending evicts the oldest record. The zero value is not usable; create
// one with [NewHistory].
//
// History is not safe for concurrent use — it belongs to a single practice
// session, matching how the app drives one attempt at a time.
type History struct {
	records []Record
	start   int // index of the oldest record
	size    int
}

// NewHistory creates a History holding at most capacity records.
// A capacity of zero or less falls back to [DefaultCapacity].
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &History{records: make([]Record, capacity)}
}

// Append adds rec to the history, evicting the oldest record when full.
func (h *History) Append(rec Record) {
	idx := (h.start + h.size) % len(h.records)
	h.records[idx] = rec
	if h.size < len(h.records) {
		h.size++
	} else {
		h.start = (h.start + 1) % len(h.records)
	}
}

// Len returns the number of records currently held.
func (h *History) Len() int { return h.size }

// Recent returns up to n of the most recent records, oldest first.
func (h *History) Recent(n int) []Record {
	if n > h.size {
		n = h.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]Record, 0, n)
	for i := h.size - n; i < h.size; i++ {
		out = append(out, h.records[(h.start+i)%len(h.records)])
	}
	return out
}

// RecentScores returns up to n of the most recent scores, oldest first, in
// the shape the feedback layer consumes.
func (h *History) RecentScores(n int) []int {
	recs := h.Recent(n)
	scores := make([]int, len(recs))
	for i, r := range recs {
		scores[i] = r.Score
	}
	return scores
}

// Preload replaces the window contents with records loaded from a [Store],
// assumed oldest first. Records beyond capacity are folded in FIFO order so
// only the newest survive.
func (h *History) Preload(recs []Record) {
	h.start, h.size = 0, 0
	for _, r := range recs {
		h.Append(r)
	}
}
