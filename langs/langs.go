// Package langs provides the language registry: ISO code metadata plus the
// user's persisted target-language selection.
package langs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Meta describes language display metadata.
type Meta struct {
	Name string
	Flag string
}

// Registry contains canonical language metadata. Locale variants are
// resolved in Resolve via normalization and base-language fallback.
var Registry = map[string]Meta{
	"ar":    {Name: "العربية", Flag: "🇸🇦"},
	"bg":    {Name: "Български", Flag: "🇧🇬"},
	"bn":    {Name: "বাংলা", Flag: "🇧🇩"},
	"cs":    {Name: "Čeština", Flag: "🇨🇿"},
	"da":    {Name: "Dansk", Flag: "🇩🇰"},
	"de":    {Name: "Deutsch", Flag: "🇩🇪"},
	"el":    {Name: "Ελληνικά", Flag: "🇬🇷"},
	"en":    {Name: "English", Flag: "🇺🇸"},
	"en-GB": {Name: "English (UK)", Flag: "🇬🇧"},
	"es":    {Name: "Español", Flag: "🇪🇸"},
	"es-MX": {Name: "Español (México)", Flag: "🇲🇽"},
	"et":    {Name: "Eesti", Flag: "🇪🇪"},
	"fa":    {Name: "فارسی", Flag: "🇮🇷"},
	"fi":    {Name: "Suomi", Flag: "🇫🇮"},
	"fr":    {Name: "Français", Flag: "🇫🇷"},
	"fr-CA": {Name: "Français (Canada)", Flag: "🇨🇦"},
	"he":    {Name: "עברית", Flag: "🇮🇱"},
	"hi":    {Name: "हिन्दी", Flag: "🇮🇳"},
	"hr":    {Name: "Hrvatski", Flag: "🇭🇷"},
	"hu":    {Name: "Magyar", Flag: "🇭🇺"},
	"id":    {Name: "Bahasa Indonesia", Flag: "🇮🇩"},
	"it":    {Name: "Italiano", Flag: "🇮🇹"},
	"ja":    {Name: "日本語", Flag: "🇯🇵"},
	"ko":    {Name: "한국어", Flag: "🇰🇷"},
	"lt":    {Name: "Lietuvių", Flag: "🇱🇹"},
	"lv":    {Name: "Latviešu", Flag: "🇱🇻"},
	"ms":    {Name: "Bahasa Melayu", Flag: "🇲🇾"},
	"nl":    {Name: "Nederlands", Flag: "🇳🇱"},
	"no":    {Name: "Norsk", Flag: "🇳🇴"},
	"pl":    {Name: "Polski", Flag: "🇵🇱"},
	"pt":    {Name: "Português", Flag: "🇵🇹"},
	"pt-BR": {Name: "Português (Brasil)", Flag: "🇧🇷"},
	"ro":    {Name: "Română", Flag: "🇷🇴"},
	"ru":    {Name: "Русский", Flag: "🇷🇺"},
	"sk":    {Name: "Slovenčina", Flag: "🇸🇰"},
	"sl":    {Name: "Slovenščina", Flag: "🇸🇮"},
	"sr":    {Name: "Српски", Flag: "🇷🇸"},
	"sv":    {Name: "Svenska", Flag: "🇸🇪"},
	"th":    {Name: "ไทย", Flag: "🇹🇭"},
	"tr":    {Name: "Türkçe", Flag: "🇹🇷"},
	"uk":    {Name: "Українська", Flag: "🇺🇦"},
	"ur":    {Name: "اردو", Flag: "🇵🇰"},
	"vi":    {Name: "Tiếng Việt", Flag: "🇻🇳"},
	"zh":    {Name: "中文", Flag: "🇨🇳"},
	"zh-TW": {Name: "繁體中文", Flag: "🇹🇼"},
}

// Canonicalize normalizes a language code: lowercase base, uppercase
// region, "-" separator (pt_br -> pt-BR).
func Canonicalize(lang string) string {
	normalized := strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if normalized == "" {
		return ""
	}
	parts := strings.Split(normalized, "-")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) >= 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "-")
}

// Known reports whether the code (or its canonical/base form) is in the
// registry.
func Known(lang string) bool {
	if _, ok := Registry[lang]; ok {
		return true
	}
	normalized := Canonicalize(lang)
	if _, ok := Registry[normalized]; ok {
		return true
	}
	if parts := strings.SplitN(normalized, "-", 2); len(parts) == 2 {
		_, ok := Registry[parts[0]]
		return ok
	}
	return false
}

// Resolve returns best-effort metadata for a language code, supporting
// variants like pt_BR and pt-BR with base-language fallback. Unknown codes
// resolve to the code itself with no flag.
func Resolve(lang string) Meta {
	if m, ok := Registry[lang]; ok {
		return m
	}
	normalized := Canonicalize(lang)
	if m, ok := Registry[normalized]; ok {
		return m
	}
	if parts := strings.SplitN(normalized, "-", 2); len(parts) == 2 {
		if m, ok := Registry[parts[0]]; ok {
			return m
		}
	}
	return Meta{Name: lang}
}

// Codes returns all registry codes, sorted.
func Codes() []string {
	out := make([]string, 0, len(Registry))
	for code := range Registry {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// ---------------------------------------------------------------------------
// Persisted selection
// ---------------------------------------------------------------------------

// selectionFile holds the user's target languages as a JSON string array.
const selectionFile = "languages.json"

// DefaultSelection is used when no selection has been saved yet.
var DefaultSelection = []string{"ar", "fr", "es"}

// Selection is the user's chosen set of target languages. Codes are unique
// and validated against the registry on Add.
type Selection struct {
	dir   string
	codes []string
}

// LoadSelection reads the saved selection from dir, falling back to the
// defaults when the file is missing or unreadable.
func LoadSelection(dir string) *Selection {
	s := &Selection{dir: dir}
	data, err := os.ReadFile(filepath.Join(dir, selectionFile))
	if err != nil {
		s.codes = append([]string(nil), DefaultSelection...)
		return s
	}
	if err := json.Unmarshal(data, &s.codes); err != nil || len(s.codes) == 0 {
		s.codes = append([]string(nil), DefaultSelection...)
	}
	return s
}

// Save writes the selection to its directory with stable formatting.
func (s *Selection) Save() error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	data, err := json.MarshalIndent(s.codes, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling languages: %w", err)
	}
	path := filepath.Join(s.dir, selectionFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Codes returns the selected codes in insertion order.
func (s *Selection) Codes() []string {
	return append([]string(nil), s.codes...)
}

// Add appends a code after validating it against the registry and the
// uniqueness invariant.
func (s *Selection) Add(code string) error {
	code = Canonicalize(code)
	if code == "" {
		return fmt.Errorf("language code cannot be empty")
	}
	if !Known(code) {
		return fmt.Errorf("unknown language code %q", code)
	}
	for _, c := range s.codes {
		if c == code {
			return fmt.Errorf("language %q already selected", code)
		}
	}
	s.codes = append(s.codes, code)
	return nil
}

// Remove deletes a code from the selection.
func (s *Selection) Remove(code string) error {
	code = Canonicalize(code)
	for i, c := range s.codes {
		if c == code {
			s.codes = append(s.codes[:i], s.codes[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("language %q not in selection", code)
}
