// Package stt defines the Provider interface for speech-to-text backends.
//
// An STT provider wraps a transcription service (Deepgram, OpenAI, or a
// local whisper.cpp model) and exposes a uniform streaming interface. The
// central abstraction is SessionHandle: once opened, a session accepts raw
// PCM audio and emits two streams of Transcript values — low-latency
// partials for responsiveness and authoritative finals that the scoring
// engine consumes.
//
// The scoring core never imports this package; it receives the final
// transcript as a plain string. Implementations must be safe for concurrent
// use.
package stt

import (
	"context"
	"errors"

	"github.com/parlano/parlano/pkg/types"
)

// ErrNotSupported is returned for capabilities a provider does not offer,
// such as phrase-hint boosting on backends without a vocabulary API.
var ErrNotSupported = errors.New("stt: not supported by this provider")

// StreamConfig describes the audio format and recognition hints for a new
// STT session.
type StreamConfig struct {
	// SampleRate is the audio sample rate in Hz. Practice audio is
	// 16000 Hz mono unless a provider states otherwise.
	SampleRate int

	// Channels is the number of audio channels. 1 = mono (required by most
	// STT providers). Implementations may downmix stereo internally.
	Channels int

	// Language is the BCP-47 language tag for recognition (e.g., "en").
	// An empty string lets the provider auto-detect, if supported.
	Language string

	// Hint carries the target practice phrase. Providers that support
	// vocabulary boosting use it to bias recognition toward the words the
	// learner is expected to say; others ignore it.
	Hint types.PhraseHint
}

// SessionHandle represents an open STT streaming session. It is an
// interface so test code can provide mock implementations without a live
// provider connection.
//
// Callers must call Close when the session is no longer needed; failing to
// do so may leak goroutines and network connections. All methods must be
// safe for concurrent use.
type SessionHandle interface {
	// SendAudio delivers a chunk of raw 16-bit little-endian PCM audio to
	// the provider. The chunk must match the SampleRate and Channels agreed
	// in StreamConfig. Calling SendAudio after Close returns an error.
	SendAudio(chunk []byte) error

	// Partials returns a read-only channel emitting low-latency interim
	// Transcript values. Suitable for progress display only — scoring uses
	// finals. Closed when the session ends.
	Partials() <-chan types.Transcript

	// Finals returns a read-only channel emitting authoritative Transcript
	// values once the provider has committed to a recognition result.
	// Closed when the session ends.
	Finals() <-chan types.Transcript

	// Close terminates the session, flushes any pending audio, and releases
	// all associated resources. After Close returns, the Partials and
	// Finals channels will be closed. Calling Close more than once is safe
	// and returns nil.
	Close() error
}

// Provider is the abstraction over any STT backend. Multiple sessions may
// be open simultaneously.
type Provider interface {
	// StartStream opens a new streaming transcription session with the
	// given audio format and recognition configuration. The returned
	// SessionHandle is ready to accept audio immediately; the caller owns
	// it and must call Close when done.
	StartStream(ctx context.Context, cfg StreamConfig) (SessionHandle, error)
}
