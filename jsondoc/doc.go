// Package jsondoc implements an order-preserving JSON document model.
//
// The standard map-based decoding loses object member order, which matters
// here: translated documents must keep the same key order as the source so
// that diffs stay readable and repeated runs produce identical output. Values
// are parsed with a token decoder and written back with a hand-rolled
// marshaller (2-space indent, no HTML escaping, non-ASCII text verbatim).
package jsondoc

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
)

// Kind identifies the JSON type of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	}
	return "invalid"
}

// Value is a single JSON value. Object member order is preserved.
type Value struct {
	kind Kind
	b    bool
	num  string // number literal, kept verbatim
	str  string
	obj  *Object
	arr  []*Value
}

// Null returns a JSON null.
func Null() *Value { return &Value{kind: KindNull} }

// Bool returns a JSON boolean.
func Bool(b bool) *Value { return &Value{kind: KindBool, b: b} }

// Number returns a JSON number from its literal form (e.g. "3.14").
// The literal is written back verbatim, so no float precision is lost.
func Number(lit string) *Value { return &Value{kind: KindNumber, num: lit} }

// String returns a JSON string.
func String(s string) *Value { return &Value{kind: KindString, str: s} }

// Array returns a JSON array holding the given elements.
func Array(elems ...*Value) *Value { return &Value{kind: KindArray, arr: elems} }

// NewObject returns an empty JSON object value.
func NewObject() *Value {
	return &Value{kind: KindObject, obj: &Object{values: make(map[string]*Value)}}
}

// Kind returns the JSON type of the value.
func (v *Value) Kind() Kind { return v.kind }

// Str returns the string content; valid only for KindString.
func (v *Value) Str() string { return v.str }

// BoolVal returns the boolean content; valid only for KindBool.
func (v *Value) BoolVal() bool { return v.b }

// NumberLit returns the number literal; valid only for KindNumber.
func (v *Value) NumberLit() string { return v.num }

// Obj returns the ordered object; nil unless KindObject.
func (v *Value) Obj() *Object {
	if v.kind != KindObject {
		return nil
	}
	return v.obj
}

// Elems returns the array elements; nil unless KindArray.
func (v *Value) Elems() []*Value {
	if v.kind != KindArray {
		return nil
	}
	return v.arr
}

// Append adds an element to an array value.
func (v *Value) Append(elem *Value) {
	v.arr = append(v.arr, elem)
}

// Clone returns a deep copy. The copy shares nothing with the original, so
// transforms can replace leaves without touching the source document.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	out := &Value{kind: v.kind, b: v.b, num: v.num, str: v.str}
	switch v.kind {
	case KindObject:
		out.obj = &Object{
			keys:   append([]string(nil), v.obj.keys...),
			values: make(map[string]*Value, len(v.obj.values)),
		}
		for k, child := range v.obj.values {
			out.obj.values[k] = child.Clone()
		}
	case KindArray:
		out.arr = make([]*Value, len(v.arr))
		for i, child := range v.arr {
			out.arr[i] = child.Clone()
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Ordered object
// ---------------------------------------------------------------------------

// Object is a JSON object that remembers member insertion order.
type Object struct {
	keys   []string
	values map[string]*Value
}

// Set inserts or replaces a member. New keys go to the end.
func (o *Object) Set(key string, v *Value) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Get returns the member value for key.
func (o *Object) Get(key string) (*Value, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Keys returns the member keys in insertion order.
func (o *Object) Keys() []string { return o.keys }

// Len returns the number of members.
func (o *Object) Len() int { return len(o.keys) }

// ---------------------------------------------------------------------------
// Parsing
// ---------------------------------------------------------------------------

// ParseFile reads and parses a JSON document from disk.
func ParseFile(path string) (*Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	v, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return v, nil
}

// Parse parses a JSON document, preserving object member order.
func Parse(data []byte) (*Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := parseValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("trailing data after JSON value")
	}
	return v, nil
}

func parseValue(dec *json.Decoder) (*Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return parseFromToken(dec, tok)
}

func parseFromToken(dec *json.Decoder, tok json.Token) (*Value, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return parseObject(dec)
		case '[':
			return parseArray(dec)
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	case string:
		return String(t), nil
	case json.Number:
		return Number(t.String()), nil
	case bool:
		return Bool(t), nil
	case nil:
		return Null(), nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

func parseObject(dec *json.Decoder) (*Value, error) {
	v := NewObject()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", keyTok)
		}
		child, err := parseValue(dec)
		if err != nil {
			return nil, err
		}
		v.obj.Set(key, child)
	}
	// Consume closing brace.
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return v, nil
}

func parseArray(dec *json.Decoder) (*Value, error) {
	v := &Value{kind: KindArray}
	for dec.More() {
		child, err := parseValue(dec)
		if err != nil {
			return nil, err
		}
		v.arr = append(v.arr, child)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return v, nil
}

// ---------------------------------------------------------------------------
// Marshalling
// ---------------------------------------------------------------------------

// Marshal renders the document with 2-space indentation and a trailing
// newline. Output is deterministic: identical documents produce identical
// bytes.
func (v *Value) Marshal() []byte {
	var b strings.Builder
	writeValue(&b, v, 0)
	b.WriteByte('\n')
	return []byte(b.String())
}

// WriteFile writes the document to path, creating parent directories.
func (v *Value) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return os.WriteFile(path, v.Marshal(), 0644)
}

func writeValue(b *strings.Builder, v *Value, depth int) {
	switch v.kind {
	case KindNull:
		b.WriteString("null")
	case KindBool:
		if v.b {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case KindNumber:
		b.WriteString(v.num)
	case KindString:
		writeJSONString(b, v.str)
	case KindObject:
		if v.obj.Len() == 0 {
			b.WriteString("{}")
			return
		}
		b.WriteString("{\n")
		for i, key := range v.obj.keys {
			writeIndent(b, depth+1)
			writeJSONString(b, key)
			b.WriteString(": ")
			writeValue(b, v.obj.values[key], depth+1)
			if i < len(v.obj.keys)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		writeIndent(b, depth)
		b.WriteByte('}')
	case KindArray:
		if len(v.arr) == 0 {
			b.WriteString("[]")
			return
		}
		b.WriteString("[\n")
		for i, elem := range v.arr {
			writeIndent(b, depth+1)
			writeValue(b, elem, depth+1)
			if i < len(v.arr)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		writeIndent(b, depth)
		b.WriteByte(']')
	}
}

func writeIndent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

const hexDigits = "0123456789abcdef"

// writeJSONString writes s as a JSON string without escaping non-ASCII
// characters, so translated text stays human-readable in the output files.
func writeJSONString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				b.WriteString(`\u00`)
				b.WriteByte(hexDigits[byte(r)>>4])
				b.WriteByte(hexDigits[byte(r)&0xf])
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
}
