package jsondoc

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func mustParse(t *testing.T, src string) *Value {
	t.Helper()
	v, err := Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	return v
}

func TestParsePreservesKeyOrder(t *testing.T) {
	doc := mustParse(t, `{"zebra": 1, "apple": 2, "mango": {"c": 3, "a": 4}}`)

	got := doc.Obj().Keys()
	want := []string{"zebra", "apple", "mango"}
	if len(got) != len(want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Keys()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	inner, _ := doc.Obj().Get("mango")
	if keys := inner.Obj().Keys(); keys[0] != "c" || keys[1] != "a" {
		t.Errorf("nested Keys() = %v, want [c a]", keys)
	}
}

func TestParseNumberLiteralKeptVerbatim(t *testing.T) {
	for _, lit := range []string{"3.14000", "1e3", "-0.5", "12345678901234567890"} {
		doc := mustParse(t, `{"n": `+lit+`}`)
		n, _ := doc.Obj().Get("n")
		if n.NumberLit() != lit {
			t.Errorf("NumberLit() = %q, want %q", n.NumberLit(), lit)
		}
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		`{"a": }`,
		`[1, 2`,
		`{"a": 1} trailing`,
		`{"a": 1} {"b": 2}`,
		`{"title": "Welcome"} GARBAGE NOT JSON`,
		``,
	}
	for _, src := range cases {
		if _, err := Parse([]byte(src)); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", src)
		}
	}
}

func TestMarshalIsIdempotent(t *testing.T) {
	src := `{
  "title": "Welcome",
  "tags": [
    "a",
    "b"
  ],
  "meta": {
    "count": 2,
    "draft": false,
    "extra": null
  }
}
`
	doc := mustParse(t, src)
	first := doc.Marshal()
	if string(first) != src {
		t.Fatalf("Marshal() changed formatting:\ngot:\n%s\nwant:\n%s", first, src)
	}

	reparsed := mustParse(t, string(first))
	second := reparsed.Marshal()
	if !bytes.Equal(first, second) {
		t.Fatalf("Marshal() not idempotent:\n%s\nvs\n%s", first, second)
	}
}

func TestMarshalKeepsNonASCIIVerbatim(t *testing.T) {
	doc := NewObject()
	doc.Obj().Set("greeting", String("こんにちは"))
	doc.Obj().Set("arabic", String("مرحبا"))

	out := string(doc.Marshal())
	if !strings.Contains(out, "こんにちは") || !strings.Contains(out, "مرحبا") {
		t.Fatalf("non-ASCII text was escaped:\n%s", out)
	}
}

func TestMarshalEscapes(t *testing.T) {
	doc := NewObject()
	doc.Obj().Set("s", String("a\"b\\c\nd\te\x01"))

	out := string(doc.Marshal())
	want := `"a\"b\\c\nd\te\u0001"`
	if !strings.Contains(out, want) {
		t.Fatalf("Marshal() = %s, want it to contain %s", out, want)
	}
}

func TestMarshalEmptyContainers(t *testing.T) {
	doc := mustParse(t, `{"obj": {}, "arr": []}`)
	out := string(doc.Marshal())
	if !strings.Contains(out, `"obj": {}`) || !strings.Contains(out, `"arr": []`) {
		t.Fatalf("empty containers rendered wrong:\n%s", out)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	doc := mustParse(t, `{"a": {"b": "original"}, "list": ["x"]}`)
	clone := doc.Clone()

	inner, _ := clone.Obj().Get("a")
	inner.Obj().Set("b", String("changed"))
	clone.Obj().Set("new", Bool(true))

	origInner, _ := doc.Obj().Get("a")
	origB, _ := origInner.Obj().Get("b")
	if origB.Str() != "original" {
		t.Errorf("mutating clone changed the original: %q", origB.Str())
	}
	if _, ok := doc.Obj().Get("new"); ok {
		t.Error("key added to clone appeared in the original")
	}
}

func TestWriteFileCreatesParentDirs(t *testing.T) {
	dir := t.TempDir()
	doc := mustParse(t, `{"k": "v"}`)

	path := filepath.Join(dir, "nested", "out", "doc.json")
	if err := doc.WriteFile(path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	back, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	v, _ := back.Obj().Get("k")
	if v.Str() != "v" {
		t.Errorf("round-trip value = %q, want %q", v.Str(), "v")
	}
}

func TestParseFileMissing(t *testing.T) {
	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("ParseFile on missing file succeeded, want error")
	}
}
