package jsondoc

import "strings"

// Field is a selected translatable leaf: its location and source text.
type Field struct {
	Path Path
	Text string
}

// Walk visits every leaf of the document depth-first. Object members are
// visited in insertion order, array elements by index, so the traversal is
// deterministic and restartable: calling Walk twice visits the same leaves
// in the same order.
func Walk(v *Value, fn func(Path, *Value)) {
	walk(v, nil, fn)
}

func walk(v *Value, p Path, fn func(Path, *Value)) {
	switch v.kind {
	case KindObject:
		for _, key := range v.obj.keys {
			walk(v.obj.values[key], append(p, Key(key)), fn)
		}
	case KindArray:
		for i, elem := range v.arr {
			walk(elem, append(p, Index(i)), fn)
		}
	default:
		fn(p, v)
	}
}

// SelectFields returns every translatable leaf of the document: string
// leaves that are non-empty after trimming. Empty strings, null, numbers,
// and booleans are skipped without being reported.
func SelectFields(doc *Value) []Field {
	var fields []Field
	Walk(doc, func(p Path, leaf *Value) {
		if leaf.kind != KindString {
			return
		}
		if strings.TrimSpace(leaf.str) == "" {
			return
		}
		fields = append(fields, Field{Path: p.Clone(), Text: leaf.str})
	})
	return fields
}
