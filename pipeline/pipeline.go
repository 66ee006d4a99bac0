// Package pipeline drives a full translation run: field selection,
// batched backend calls over a bounded worker pool, assembly, and file
// output. It is the only package that sequences the others.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Arean82/jsontrans/cache"
	"github.com/Arean82/jsontrans/langs"
	"github.com/Arean82/jsontrans/translate"
)

// Mode selects the output-shaping strategy.
type Mode string

const (
	// ModeMerged produces a single document where each translatable leaf
	// becomes a language-to-text mapping.
	ModeMerged Mode = "merged"
	// ModeBlog produces one structurally identical document per target
	// language.
	ModeBlog Mode = "blog"
)

// ParseMode converts a user-supplied mode string.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "merged", "non-blog", "nonblog":
		return ModeMerged, nil
	case "blog":
		return ModeBlog, nil
	}
	return "", &ValidationError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q (want merged or blog)", s)}
}

// Phase is a coarse progress stage reported through Config.OnPhase.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSelecting
	PhaseTranslating
	PhaseAssembling
	PhaseWriting
	PhaseDone
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSelecting:
		return "selecting"
	case PhaseTranslating:
		return "translating"
	case PhaseAssembling:
		return "assembling"
	case PhaseWriting:
		return "writing"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// ValidationError reports a rejected configuration before any backend
// call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

const (
	defaultBatchSize     = 5
	defaultBlogBatchSize = 10
	defaultConcurrency   = 4
	maxConcurrency       = 8
	defaultMaxRetries    = 3
)

// Config describes one run.
type Config struct {
	InputPath   string
	OutputDir   string
	SourceLang  string
	TargetLangs []string
	Mode        Mode
	Backend     translate.Backend

	// BatchSize caps how many strings go into one backend call.
	// Zero selects the default for the mode.
	BatchSize int
	// MaxConcurrent caps in-flight backend calls (1..8, default 4).
	MaxConcurrent int
	// MaxRetries bounds retries of a rate-limited batch (default 3).
	MaxRetries int

	// Cache, if set, supplies translations for unchanged fields and is
	// updated with every new translation. The caller owns persistence
	// except that Run saves it after a successful write phase.
	Cache *cache.File

	// OnPhase, if set, is called from the run goroutine on every phase
	// transition.
	OnPhase func(Phase)
	// OnProgress, if set, is called after each completed batch with the
	// number of finished and total (field, language) pairs.
	OnProgress func(done, total int)

	Logger *logrus.Logger
}

// Validate checks the configuration without touching the backend.
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return &ValidationError{Field: "input", Reason: "no input file"}
	}
	if c.Backend == nil {
		return &ValidationError{Field: "backend", Reason: "no backend configured"}
	}
	if c.Mode != ModeMerged && c.Mode != ModeBlog {
		return &ValidationError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", string(c.Mode))}
	}
	if c.SourceLang == "" {
		return &ValidationError{Field: "source", Reason: "no source language"}
	}
	if len(c.TargetLangs) == 0 {
		return &ValidationError{Field: "languages", Reason: "no target languages"}
	}
	seen := make(map[string]bool, len(c.TargetLangs))
	for _, lang := range c.TargetLangs {
		code := langs.Canonicalize(lang)
		if code == "" {
			return &ValidationError{Field: "languages", Reason: "empty language code"}
		}
		if !langs.Known(code) {
			return &ValidationError{Field: "languages", Reason: fmt.Sprintf("unsupported language %q", lang)}
		}
		if seen[code] {
			return &ValidationError{Field: "languages", Reason: fmt.Sprintf("duplicate target language %q", lang)}
		}
		seen[code] = true
		if code == langs.Canonicalize(c.SourceLang) {
			return &ValidationError{Field: "languages", Reason: fmt.Sprintf("target language %q equals the source language", lang)}
		}
	}
	if c.BatchSize < 0 {
		return &ValidationError{Field: "batch-size", Reason: "must not be negative"}
	}
	if c.MaxConcurrent < 0 || c.MaxConcurrent > maxConcurrency {
		return &ValidationError{Field: "concurrency", Reason: fmt.Sprintf("must be between 1 and %d", maxConcurrency)}
	}
	return nil
}

func (c *Config) effectiveBatchSize() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	if c.Mode == ModeBlog {
		return defaultBlogBatchSize
	}
	return defaultBatchSize
}

func (c *Config) effectiveConcurrency() int {
	if c.MaxConcurrent > 0 {
		return c.MaxConcurrent
	}
	return defaultConcurrency
}

func (c *Config) effectiveMaxRetries() int {
	if c.MaxRetries > 0 {
		return c.MaxRetries
	}
	return defaultMaxRetries
}

func (c *Config) logger() *logrus.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	log := logrus.New()
	log.SetLevel(logrus.WarnLevel)
	return log
}

func (c *Config) setPhase(p Phase) {
	if c.OnPhase != nil {
		c.OnPhase(p)
	}
}
