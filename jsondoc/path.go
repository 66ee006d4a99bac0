package jsondoc

import (
	"fmt"
	"strconv"
	"strings"
)

// Step is one component of a Path: an object key or an array index.
type Step struct {
	Key     string
	Index   int
	IsIndex bool
}

// Key returns an object-key step.
func Key(k string) Step { return Step{Key: k} }

// Index returns an array-index step.
func Index(i int) Step { return Step{Index: i, IsIndex: true} }

// Path identifies one leaf inside a document as a sequence of keys and
// indices from the root.
type Path []Step

// Clone returns an independent copy of the path.
func (p Path) Clone() Path {
	return append(Path(nil), p...)
}

// String renders the path in dotted form for logs and reports,
// e.g. `additionalContent.en[2].text`.
func (p Path) String() string {
	var b strings.Builder
	for i, s := range p {
		if s.IsIndex {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(s.Index))
			b.WriteByte(']')
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.Key)
	}
	return b.String()
}

// ID returns an unambiguous encoding of the path, usable as a map key.
// Unlike String, keys containing dots or brackets cannot collide here.
func (p Path) ID() string {
	var b strings.Builder
	for _, s := range p {
		if s.IsIndex {
			b.WriteByte('#')
			b.WriteString(strconv.Itoa(s.Index))
		} else {
			b.WriteByte('/')
			b.WriteString(strconv.Quote(s.Key))
		}
	}
	return b.String()
}

// Lookup resolves a path against the value and returns the leaf it points
// to. The second return is false when any step does not exist.
func (v *Value) Lookup(p Path) (*Value, bool) {
	cur := v
	for _, s := range p {
		switch {
		case s.IsIndex:
			if cur.kind != KindArray || s.Index < 0 || s.Index >= len(cur.arr) {
				return nil, false
			}
			cur = cur.arr[s.Index]
		default:
			if cur.kind != KindObject {
				return nil, false
			}
			child, ok := cur.obj.Get(s.Key)
			if !ok {
				return nil, false
			}
			cur = child
		}
	}
	return cur, true
}

// SetAt replaces the value at p with nv. The path must resolve to an
// existing position; key order of the enclosing object is unchanged.
func (v *Value) SetAt(p Path, nv *Value) error {
	if len(p) == 0 {
		return fmt.Errorf("empty path")
	}
	parent, ok := v.Lookup(p[:len(p)-1])
	if !ok {
		return fmt.Errorf("path %s: parent not found", p)
	}
	last := p[len(p)-1]
	switch {
	case last.IsIndex:
		if parent.kind != KindArray || last.Index < 0 || last.Index >= len(parent.arr) {
			return fmt.Errorf("path %s: index out of range", p)
		}
		parent.arr[last.Index] = nv
	default:
		if parent.kind != KindObject {
			return fmt.Errorf("path %s: parent is %s, not object", p, parent.kind)
		}
		if _, ok := parent.obj.Get(last.Key); !ok {
			return fmt.Errorf("path %s: key not found", p)
		}
		parent.obj.Set(last.Key, nv)
	}
	return nil
}
