// Package cache persists translations between runs so unchanged fields
// are not sent to the backend again. Entries are keyed by target language
// and field path and carry a checksum of the source text, so any edit to
// the source invalidates the cached translation.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileName is the cache file stored next to the input document.
const FileName = "jsontrans.lock"

const currentVersion = 1

// Entry holds one cached translation together with the checksum of the
// source text it was produced from.
type Entry struct {
	Hash string `yaml:"hash"`
	Text string `yaml:"text"`
}

// File is an on-disk translation cache. All methods are safe for
// concurrent use.
type File struct {
	Version int                         `yaml:"version"`
	Entries map[string]map[string]Entry `yaml:"entries"`

	mu   sync.Mutex
	path string
}

// Load reads the cache file from dir. A missing file yields an empty
// cache bound to the same path, so Save works either way.
func Load(dir string) (*File, error) {
	path := filepath.Join(dir, FileName)
	f := &File{
		Version: currentVersion,
		Entries: make(map[string]map[string]Entry),
		path:    path,
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if f.Entries == nil {
		f.Entries = make(map[string]map[string]Entry)
	}
	f.Version = currentVersion
	return f, nil
}

// Save writes the cache back to the path it was loaded from.
func (f *File) Save() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding cache: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", f.path, err)
	}
	return nil
}

// Hash returns the checksum used to detect source text changes.
func Hash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Lookup returns the cached translation for (lang, key) if one exists
// and was produced from the same source text.
func (f *File) Lookup(lang, key, sourceText string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.Entries[lang][key]
	if !ok || entry.Hash != Hash(sourceText) {
		return "", false
	}
	return entry.Text, true
}

// Store records a translation for (lang, key).
func (f *File) Store(lang, key, sourceText, translated string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.Entries[lang] == nil {
		f.Entries[lang] = make(map[string]Entry)
	}
	f.Entries[lang][key] = Entry{Hash: Hash(sourceText), Text: translated}
}

// Clean drops entries for lang whose key is no longer present in the
// document and returns how many were removed.
func (f *File) Clean(lang string, keys []string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries := f.Entries[lang]
	if len(entries) == 0 {
		return 0
	}
	keep := make(map[string]bool, len(keys))
	for _, k := range keys {
		keep[k] = true
	}
	removed := 0
	for k := range entries {
		if !keep[k] {
			delete(entries, k)
			removed++
		}
	}
	if len(entries) == 0 {
		delete(f.Entries, lang)
	}
	return removed
}

// RemoveLang drops every entry for lang.
func (f *File) RemoveLang(lang string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.Entries, lang)
}

// Stats returns the number of cached entries per language.
func (f *File) Stats() map[string]int {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := make(map[string]int, len(f.Entries))
	for lang, entries := range f.Entries {
		stats[lang] = len(entries)
	}
	return stats
}
