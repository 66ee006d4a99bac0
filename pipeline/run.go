package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Arean82/jsontrans/assemble"
	"github.com/Arean82/jsontrans/jsondoc"
	"github.com/Arean82/jsontrans/langs"
	"github.com/Arean82/jsontrans/translate"
)

// Report summarizes a finished run.
type Report struct {
	Fields     int
	Translated int
	// Cached counts (field, language) pairs served from the cache
	// without a backend call.
	Cached      int
	OutputPaths []string
	// FailedPairs counts fields that stayed untranslated, per language.
	FailedPairs map[string]int
	// DroppedLangs lists target languages with zero successful
	// translations, excluded from the output entirely.
	DroppedLangs []string
	Warnings     []assemble.Warning
	Elapsed      time.Duration
}

// batchJob is one unit of backend work: a slice of fields for one
// target language.
type batchJob struct {
	lang   string
	fields []jsondoc.Field
}

// Run executes the whole pipeline for one input document. A returned
// error means no output was written; partial per-language failures are
// reported through Report.FailedPairs and Report.Warnings instead.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	start := time.Now()
	log := cfg.logger()

	if err := cfg.Validate(); err != nil {
		cfg.setPhase(PhaseFailed)
		return nil, err
	}

	if err := cfg.Backend.Verify(ctx); err != nil {
		cfg.setPhase(PhaseFailed)
		return nil, fmt.Errorf("verifying %s backend: %w", cfg.Backend.Name(), err)
	}

	cfg.setPhase(PhaseSelecting)
	doc, err := jsondoc.ParseFile(cfg.InputPath)
	if err != nil {
		cfg.setPhase(PhaseFailed)
		return nil, err
	}
	fields := jsondoc.SelectFields(doc)
	log.WithFields(map[string]interface{}{
		"input":  cfg.InputPath,
		"fields": len(fields),
		"langs":  len(cfg.TargetLangs),
	}).Info("selected translatable fields")

	targets := make([]string, len(cfg.TargetLangs))
	for i, lang := range cfg.TargetLangs {
		targets[i] = langs.Canonicalize(lang)
	}

	report := &Report{
		Fields:      len(fields),
		FailedPairs: make(map[string]int),
	}

	if len(fields) > 0 {
		cfg.setPhase(PhaseTranslating)
	}

	rs := assemble.NewResultSet()
	succeeded := make(map[string]int, len(targets))

	// Cache hits skip the backend entirely; only the remainder is batched.
	pending := make(map[string][]jsondoc.Field, len(targets))
	for _, lang := range targets {
		for _, f := range fields {
			if cfg.Cache != nil {
				if text, ok := cfg.Cache.Lookup(lang, f.Path.ID(), f.Text); ok {
					rs.Put(f.Path, lang, text)
					succeeded[lang]++
					report.Cached++
					continue
				}
			}
			pending[lang] = append(pending[lang], f)
		}
	}
	if report.Cached > 0 {
		log.WithField("cached", report.Cached).Info("reusing cached translations")
	}

	jobs := buildJobs(pending, targets, cfg.effectiveBatchSize())
	totalPairs := 0
	for _, j := range jobs {
		totalPairs += len(j.fields)
	}

	var (
		done      int64
		failedMu  sync.Mutex
		gate      rateGate
		aborted   int32
		abortErr  error
		abortOnce sync.Once
	)

	worker := func(ctx context.Context, job batchJob) {
		if atomic.LoadInt32(&aborted) == 1 {
			return
		}
		okIdx, err := runBatch(ctx, cfg, &gate, job, rs)
		if cfg.Cache != nil {
			for _, i := range okIdx {
				f := job.fields[i]
				if text, ok := rs.Get(f.Path, job.lang); ok {
					cfg.Cache.Store(job.lang, f.Path.ID(), f.Text, text)
				}
			}
		}
		failedMu.Lock()
		succeeded[job.lang] += len(okIdx)
		if n := len(job.fields) - len(okIdx); n > 0 {
			report.FailedPairs[job.lang] += n
		}
		failedMu.Unlock()
		if err != nil {
			var authErr *translate.AuthError
			if errors.As(err, &authErr) || errors.Is(err, context.Canceled) {
				abortOnce.Do(func() { abortErr = err })
				atomic.StoreInt32(&aborted, 1)
				return
			}
			log.WithField("lang", job.lang).WithError(err).Warn("batch failed")
		}
		n := int(atomic.AddInt64(&done, int64(len(job.fields))))
		if cfg.OnProgress != nil {
			cfg.OnProgress(n, totalPairs)
		}
	}

	runParallel(ctx, jobs, cfg.effectiveConcurrency(), worker)

	if abortErr != nil {
		cfg.setPhase(PhaseFailed)
		return nil, abortErr
	}
	if err := ctx.Err(); err != nil {
		cfg.setPhase(PhaseFailed)
		return nil, err
	}

	// Languages with nothing translated are excluded from the output.
	kept := targets[:0:0]
	for _, lang := range targets {
		if len(fields) > 0 && succeeded[lang] == 0 {
			report.DroppedLangs = append(report.DroppedLangs, lang)
			continue
		}
		kept = append(kept, lang)
	}
	if len(fields) > 0 && len(kept) == 0 {
		cfg.setPhase(PhaseFailed)
		return nil, fmt.Errorf("no language produced any translation")
	}
	report.Translated = rs.Len()

	cfg.setPhase(PhaseAssembling)
	base := strings.TrimSuffix(filepath.Base(cfg.InputPath), filepath.Ext(cfg.InputPath))
	outDir := cfg.OutputDir
	if outDir == "" {
		outDir = filepath.Dir(cfg.InputPath)
	}

	type output struct {
		path string
		doc  *jsondoc.Value
	}
	var outputs []output

	switch cfg.Mode {
	case ModeMerged:
		merged, warnings, err := assemble.Merged(doc, fields, rs, langs.Canonicalize(cfg.SourceLang), kept)
		if err != nil {
			cfg.setPhase(PhaseFailed)
			return nil, err
		}
		report.Warnings = append(report.Warnings, warnings...)
		outputs = append(outputs, output{filepath.Join(outDir, "Non-Blog", base+".json"), merged})
	case ModeBlog:
		for _, lang := range kept {
			perLang, warnings, err := assemble.PerLanguage(doc, fields, rs, lang)
			if err != nil {
				cfg.setPhase(PhaseFailed)
				return nil, err
			}
			report.Warnings = append(report.Warnings, warnings...)
			outputs = append(outputs, output{filepath.Join(outDir, "Blog", base+"."+lang+".json"), perLang})
		}
	}

	cfg.setPhase(PhaseWriting)
	for _, out := range outputs {
		if err := out.doc.WriteFile(out.path); err != nil {
			cfg.setPhase(PhaseFailed)
			return nil, err
		}
		report.OutputPaths = append(report.OutputPaths, out.path)
	}

	if cfg.Cache != nil {
		keys := make([]string, len(fields))
		for i, f := range fields {
			keys[i] = f.Path.ID()
		}
		for _, lang := range kept {
			cfg.Cache.Clean(lang, keys)
		}
		if err := cfg.Cache.Save(); err != nil {
			log.WithError(err).Warn("saving translation cache")
		}
	}

	sort.Strings(report.DroppedLangs)
	report.Elapsed = time.Since(start)
	cfg.setPhase(PhaseDone)
	return report, nil
}

// buildJobs splits each language's pending fields into batches. Batch
// order inside a language follows document order.
func buildJobs(pending map[string][]jsondoc.Field, targets []string, batchSize int) []batchJob {
	var jobs []batchJob
	for _, lang := range targets {
		fields := pending[lang]
		for i := 0; i < len(fields); i += batchSize {
			end := i + batchSize
			if end > len(fields) {
				end = len(fields)
			}
			jobs = append(jobs, batchJob{lang: lang, fields: fields[i:end]})
		}
	}
	return jobs
}

// runBatch translates one batch with retries and stores every successful
// string in the result set. It returns the indices that succeeded. A
// returned error is batch-fatal after retries were exhausted; auth errors
// propagate so the run can abort.
func runBatch(ctx context.Context, cfg Config, gate *rateGate, job batchJob, rs *assemble.ResultSet) ([]int, error) {
	texts := make([]string, len(job.fields))
	for i, f := range job.fields {
		texts[i] = f.Text
	}

	maxRetries := cfg.effectiveMaxRetries()
	retriedMalformed := false

	for attempt := 0; ; attempt++ {
		if err := gate.wait(ctx); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// An in-flight call is allowed to finish even if the run is
		// cancelled meanwhile; the client timeout still bounds it.
		results, err := cfg.Backend.Translate(context.WithoutCancel(ctx), texts, cfg.SourceLang, job.lang)
		if err == nil {
			return storeBatch(rs, job, results, nil), nil
		}

		var rateErr *translate.RateLimitedError
		var malformedErr *translate.MalformedResponseError
		var partialErr *translate.PartialFailureError
		switch {
		case errors.As(err, &rateErr):
			if attempt >= maxRetries {
				return nil, err
			}
			delay := rateErr.RetryAfter
			if delay <= 0 {
				delay = time.Duration(math.Pow(2, float64(attempt))) * time.Second
			}
			gate.pause(delay)
			cfg.logger().WithField("lang", job.lang).WithField("delay", delay).Warn("rate limited, pausing")
		case errors.As(err, &malformedErr):
			if retriedMalformed {
				return nil, err
			}
			retriedMalformed = true
			cfg.logger().WithField("lang", job.lang).Warn("malformed response, retrying once")
		case errors.As(err, &partialErr):
			return storeBatch(rs, job, results, partialErr.Indices), err
		default:
			return nil, err
		}
	}
}

// storeBatch writes the successful entries of a batch result into the
// result set and returns their indices. Blank source strings never reach
// the selector so results align one to one with job.fields.
func storeBatch(rs *assemble.ResultSet, job batchJob, results []string, failedIdx []int) []int {
	failed := make(map[int]bool, len(failedIdx))
	for _, i := range failedIdx {
		failed[i] = true
	}
	var ok []int
	for i := range job.fields {
		if i >= len(results) || failed[i] {
			continue
		}
		rs.Put(job.fields[i].Path, job.lang, results[i])
		ok = append(ok, i)
	}
	return ok
}

// runParallel runs jobs with a bounded number of in-flight workers.
func runParallel(ctx context.Context, jobs []batchJob, maxConcurrent int, fn func(context.Context, batchJob)) {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(j batchJob) {
			defer func() {
				<-sem
				wg.Done()
			}()
			fn(ctx, j)
		}(job)
	}
	wg.Wait()
}
