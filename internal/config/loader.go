package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":       {"whisper", "whisper-native", "deepgram", "openai"},
	"generator": {"openai", "anthropic", "gemini", "ollama"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("stt", cfg.STT.Name)
	validateProviderName("generator", cfg.Generator.Name)

	errs = append(errs, validateSTTEntry("stt", cfg.STT)...)

	// Fallback STT entries follow the same rules as the primary, and only
	// make sense when a primary is configured.
	if len(cfg.STTFallbacks) > 0 && cfg.STT.Name == "" {
		errs = append(errs, fmt.Errorf("stt_fallbacks requires a primary stt provider"))
	}
	for i, fb := range cfg.STTFallbacks {
		prefix := fmt.Sprintf("stt_fallbacks[%d]", i)
		validateProviderName("stt", fb.Name)
		if fb.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name must not be empty", prefix))
			continue
		}
		errs = append(errs, validateSTTEntry(prefix, fb)...)
	}

	// Generator availability warning — phrase generation is optional.
	if cfg.Generator.Name != "" && cfg.Generator.Model == "" {
		errs = append(errs, fmt.Errorf("generator.model is required when generator.name is set"))
	}

	// History
	if cfg.History.Capacity < 0 {
		errs = append(errs, fmt.Errorf("history.capacity %d must not be negative", cfg.History.Capacity))
	}
	if cfg.History.FilePath == "" && cfg.History.PostgresDSN == "" {
		slog.Warn("history.file_path and history.postgres_dsn are both empty; practice history will not survive restarts")
	}

	return errors.Join(errs...)
}

// validateSTTEntry applies the per-provider requirements to one STT entry.
// prefix names the YAML location in error messages.
func validateSTTEntry(prefix string, e ProviderEntry) []error {
	var errs []error
	switch e.Name {
	case "deepgram", "openai":
		if e.APIKey == "" {
			errs = append(errs, fmt.Errorf("%s.api_key is required when %s.name is %q", prefix, prefix, e.Name))
		}
	case "whisper":
		if e.BaseURL == "" {
			errs = append(errs, fmt.Errorf("%s.base_url (whisper-server address) is required when %s.name is \"whisper\"", prefix, prefix))
		}
	case "whisper-native":
		if e.BaseURL == "" {
			errs = append(errs, fmt.Errorf("%s.base_url (model file path) is required when %s.name is \"whisper-native\"", prefix, prefix))
		}
	}
	if e.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("%s.sample_rate %d must not be negative", prefix, e.SampleRate))
	}
	return errs
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
