// Package types defines the shared types used across all Parlano packages.
//
// These types form the lingua franca between the STT providers, the scoring
// core, and the app orchestrator. They are intentionally minimal — each
// package defines its own domain types, but cross-cutting data structures
// live here to avoid circular imports.
package types

import "time"

// AudioFrame represents a single chunk of PCM audio flowing into an STT
// provider. Frames are the atomic unit of audio transport.
type AudioFrame struct {
	// PCM audio data, 16-bit signed little-endian.
	Data []byte

	// SampleRate in Hz (e.g., 16000 for STT input).
	SampleRate int

	// Channels: 1 for mono (STT input), 2 for stereo sources before downmix.
	Channels int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Transcript represents a speech-to-text result from an STT provider.
// Both partial (interim) and final transcripts use this type.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string

	// IsFinal indicates whether this is a final (authoritative) or partial (interim) transcript.
	IsFinal bool

	// Confidence is the overall confidence score (0.0–1.0). May be zero if the provider
	// does not report confidence.
	Confidence float64

	// Words contains per-word detail when available (Deepgram). May be nil
	// for providers that don't support word-level output.
	Words []WordDetail

	// Timestamp marks when the utterance started, relative to session start.
	Timestamp time.Duration

	// Duration is the length of the utterance.
	Duration time.Duration
}

// WordDetail holds per-word metadata from STT providers that support it.
type WordDetail struct {
	Word       string
	Start      time.Duration
	End        time.Duration
	Confidence float64
}

// DefaultHintBoost is the keyword boost applied when a PhraseHint does not
// specify one.
const DefaultHintBoost = 2.0

// PhraseHint represents the practice phrase passed to an STT provider as a
// recognition hint. Providers that support keyword boosting use it to bias
// recognition toward the words the learner is expected to say.
type PhraseHint struct {
	// Text is the full target phrase.
	Text string

	// Boost is the intensity of the boost (provider-specific scale).
	// Zero means use DefaultHintBoost.
	Boost float64
}
