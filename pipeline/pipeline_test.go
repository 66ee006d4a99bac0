package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Arean82/jsontrans/jsondoc"
)

func TestParseMode(t *testing.T) {
	cases := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"merged", ModeMerged, false},
		{"Merged", ModeMerged, false},
		{"non-blog", ModeMerged, false},
		{"blog", ModeBlog, false},
		{" BLOG ", ModeBlog, false},
		{"sideways", "", true},
		{"", "", true},
	}
	for _, c := range cases {
		got, err := ParseMode(c.in)
		if c.wantErr {
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("ParseMode(%q) err = %v, want *ValidationError", c.in, err)
			}
			continue
		}
		if err != nil || got != c.want {
			t.Errorf("ParseMode(%q) = %q, %v", c.in, got, err)
		}
	}
}

func TestPhaseString(t *testing.T) {
	phases := map[Phase]string{
		PhaseIdle:        "idle",
		PhaseSelecting:   "selecting",
		PhaseTranslating: "translating",
		PhaseAssembling:  "assembling",
		PhaseWriting:     "writing",
		PhaseDone:        "done",
		PhaseFailed:      "failed",
	}
	for p, want := range phases {
		if got := p.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", int(p), got, want)
		}
	}
}

func validConfig() Config {
	return Config{
		InputPath:   "in.json",
		SourceLang:  "en",
		TargetLangs: []string{"fr", "es"},
		Mode:        ModeMerged,
		Backend:     &fakeBackend{},
	}
}

func TestConfigValidate(t *testing.T) {
	if err := func() error { c := validConfig(); return c.Validate() }(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no input", func(c *Config) { c.InputPath = "" }},
		{"no backend", func(c *Config) { c.Backend = nil }},
		{"bad mode", func(c *Config) { c.Mode = "sideways" }},
		{"no source", func(c *Config) { c.SourceLang = "" }},
		{"no targets", func(c *Config) { c.TargetLangs = nil }},
		{"duplicate target", func(c *Config) { c.TargetLangs = []string{"fr", "fr"} }},
		{"duplicate after canonicalization", func(c *Config) { c.TargetLangs = []string{"pt_br", "pt-BR"} }},
		{"target equals source", func(c *Config) { c.TargetLangs = []string{"fr", "en"} }},
		{"empty target", func(c *Config) { c.TargetLangs = []string{"fr", " "} }},
		{"unsupported target", func(c *Config) { c.TargetLangs = []string{"fr", "xx"} }},
		{"negative batch", func(c *Config) { c.BatchSize = -1 }},
		{"too much concurrency", func(c *Config) { c.MaxConcurrent = 9 }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := validConfig()
			c.mutate(&cfg)
			err := cfg.Validate()
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("Validate() = %v, want *ValidationError", err)
			}
		})
	}
}

func TestConfigDefaults(t *testing.T) {
	c := Config{Mode: ModeMerged}
	if c.effectiveBatchSize() != defaultBatchSize {
		t.Errorf("merged batch size = %d", c.effectiveBatchSize())
	}
	c.Mode = ModeBlog
	if c.effectiveBatchSize() != defaultBlogBatchSize {
		t.Errorf("blog batch size = %d", c.effectiveBatchSize())
	}
	c.BatchSize = 2
	if c.effectiveBatchSize() != 2 {
		t.Errorf("explicit batch size ignored")
	}
	if c.effectiveConcurrency() != defaultConcurrency {
		t.Errorf("concurrency = %d", c.effectiveConcurrency())
	}
	if c.effectiveMaxRetries() != defaultMaxRetries {
		t.Errorf("retries = %d", c.effectiveMaxRetries())
	}
}

func TestValidationRunsBeforeBackend(t *testing.T) {
	fb := &fakeBackend{}
	cfg := validConfig()
	cfg.Backend = fb
	cfg.TargetLangs = []string{"fr", "fr"}

	_, err := Run(context.Background(), cfg)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("Run = %v, want *ValidationError", err)
	}
	if fb.verifyCalls != 0 || fb.calls() != 0 {
		t.Error("backend was called despite invalid config")
	}
}

func TestBuildJobs(t *testing.T) {
	doc := parseDoc(t, `{"a": "1", "b": "2", "c": "3", "d": "4", "e": "5"}`)
	fields := selectFields(doc)

	pending := map[string][]jsondoc.Field{"fr": fields, "es": fields}
	jobs := buildJobs(pending, []string{"fr", "es"}, 2)
	if len(jobs) != 6 {
		t.Fatalf("len(jobs) = %d, want 6", len(jobs))
	}
	// Batches keep document order within each language.
	if jobs[0].lang != "fr" || len(jobs[0].fields) != 2 || jobs[0].fields[0].Text != "1" {
		t.Errorf("jobs[0] = %+v", jobs[0])
	}
	if jobs[2].lang != "fr" || len(jobs[2].fields) != 1 {
		t.Errorf("last fr batch = %+v", jobs[2])
	}
	if jobs[3].lang != "es" {
		t.Errorf("jobs[3].lang = %q", jobs[3].lang)
	}
}

func TestRateGate(t *testing.T) {
	var g rateGate
	if g.isPaused() {
		t.Fatal("new gate is paused")
	}

	g.pause(5 * time.Millisecond)
	if !g.isPaused() {
		t.Fatal("pause did not take effect")
	}
	if err := g.wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if g.isPaused() {
		t.Error("gate still paused after wait")
	}
}

func TestRateGateCancel(t *testing.T) {
	var g rateGate
	g.pause(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("wait = %v, want context.Canceled", err)
	}
}

func TestRateGateExtendsNotShrinks(t *testing.T) {
	var g rateGate
	g.pause(time.Minute)
	g.pause(time.Millisecond)

	g.mu.Lock()
	remaining := time.Until(g.pauseEnd)
	g.mu.Unlock()
	if remaining < 30*time.Second {
		t.Errorf("later shorter pause shrank the window: %s left", remaining)
	}
}
