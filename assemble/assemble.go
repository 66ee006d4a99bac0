// Package assemble implements the two output-shaping strategies that merge
// translated values back into a copy of the source document.
//
// Both strategies are pure: they take the original document, the selected
// fields, and a result set, and return a new document. The original is
// never mutated.
package assemble

import (
	"fmt"
	"sync"

	"github.com/Arean82/jsontrans/jsondoc"
)

// ResultSet stores translated strings keyed by (field path, language).
// Every key is write-once: each worker owns a disjoint slice of the key
// space, so a second write to the same key is a programming error and
// panics rather than racing. Lookup misses are normal and drive the
// missing-translation policy in the strategies below.
type ResultSet struct {
	mu sync.Mutex
	m  map[string]string
}

// NewResultSet returns an empty result set.
func NewResultSet() *ResultSet {
	return &ResultSet{m: make(map[string]string)}
}

func resultKey(p jsondoc.Path, lang string) string {
	return p.ID() + "\x00" + lang
}

// Put records a translation. Safe for concurrent use across distinct keys.
// Panics if the key was already written.
func (rs *ResultSet) Put(p jsondoc.Path, lang, text string) {
	key := resultKey(p, lang)
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if _, ok := rs.m[key]; ok {
		panic(fmt.Sprintf("assemble: duplicate write for %s/%s", p, lang))
	}
	rs.m[key] = text
}

// Get returns the translation for (p, lang) if one was recorded.
func (rs *ResultSet) Get(p jsondoc.Path, lang string) (string, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	text, ok := rs.m[resultKey(p, lang)]
	return text, ok
}

// Len returns the number of recorded translations.
func (rs *ResultSet) Len() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.m)
}

// Warning names a (field, language) pair that had no translation when a
// document was assembled.
type Warning struct {
	Path jsondoc.Path
	Lang string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: no %s translation", w.Path, w.Lang)
}

// Merged builds the single multi-language document: each selected leaf is
// replaced by an object mapping the source language to the original text
// and each target language to its translation, targets in request order.
// Pairs missing from the result set are omitted from the mapping and
// returned as warnings, never zero-filled.
func Merged(doc *jsondoc.Value, fields []jsondoc.Field, rs *ResultSet, sourceLang string, targetLangs []string) (*jsondoc.Value, []Warning, error) {
	out := doc.Clone()
	var warnings []Warning

	for _, f := range fields {
		leaf := jsondoc.NewObject()
		leaf.Obj().Set(sourceLang, jsondoc.String(f.Text))
		for _, lang := range targetLangs {
			text, ok := rs.Get(f.Path, lang)
			if !ok {
				warnings = append(warnings, Warning{Path: f.Path, Lang: lang})
				continue
			}
			leaf.Obj().Set(lang, jsondoc.String(text))
		}
		if err := out.SetAt(f.Path, leaf); err != nil {
			return nil, nil, fmt.Errorf("merging %s: %w", f.Path, err)
		}
	}

	return out, warnings, nil
}

// PerLanguage builds one document for a single target language: a
// structural clone of the source with each selected leaf replaced by that
// language's translation. A missing pair keeps the original source text at
// the leaf and is returned as a warning.
func PerLanguage(doc *jsondoc.Value, fields []jsondoc.Field, rs *ResultSet, lang string) (*jsondoc.Value, []Warning, error) {
	out := doc.Clone()
	var warnings []Warning

	for _, f := range fields {
		text, ok := rs.Get(f.Path, lang)
		if !ok {
			warnings = append(warnings, Warning{Path: f.Path, Lang: lang})
			continue
		}
		if err := out.SetAt(f.Path, jsondoc.String(text)); err != nil {
			return nil, nil, fmt.Errorf("applying %s: %w", f.Path, err)
		}
	}

	return out, warnings, nil
}
