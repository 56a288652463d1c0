package schema

import (
	"strings"

	"github.com/commontoolsinc/labs-sub005/entity"
	"github.com/commontoolsinc/labs-sub005/util/verbose"
)

// refDepthLimit bounds $ref chains; longer chains are treated as
// unresolvable.
const refDepthLimit = 16

// Context pairs the schema in force at the cursor with the root schema its
// $refs resolve against.
type Context struct {
	Schema *Schema
	Root   *Schema

	fp string
}

// NewContext builds a context; a nil root falls back to the schema itself.
func NewContext(s, root *Schema) *Context {
	if root == nil {
		root = s
	}
	return &Context{Schema: s, Root: root}
}

// Fingerprint identifies the context logically, not by pointer. Cycle
// guards, memo tables and the read ledger key on it.
func (c *Context) Fingerprint() string {
	if c == nil {
		return ""
	}
	if c.fp == "" {
		c.fp = c.Schema.Fingerprint() + "|" + c.Root.Fingerprint()
	}
	return c.fp
}

// Resolve chases $ref through the root's definition registry to a fixed
// point. It returns nil when a reference is unresolvable or the chain
// exceeds refDepthLimit; callers treat nil as "admits nothing".
func (c *Context) Resolve(s *Schema) *Schema {
	for i := 0; i < refDepthLimit; i++ {
		if s == nil || s.Ref == "" {
			return s
		}
		s = c.lookupRef(s.Ref)
	}
	return nil
}

func (c *Context) lookupRef(ref string) *Schema {
	root := c.Root
	if root == nil {
		return nil
	}
	if ref == "#" {
		return root
	}
	if !strings.HasPrefix(ref, "#/") {
		verbose.Warn("unsupported schema reference %q", ref)
		return nil
	}
	segs := strings.Split(ref[2:], "/")
	cur := root
	for i := 0; i < len(segs); i += 2 {
		if segs[i] != "$defs" && segs[i] != "definitions" {
			verbose.Warn("unsupported schema reference %q", ref)
			return nil
		}
		if i+1 >= len(segs) || cur == nil || cur.Defs == nil {
			return nil
		}
		cur = cur.Defs[unescapePointer(segs[i+1])]
	}
	return cur
}

// unescapePointer handles the two JSON pointer escapes.
func unescapePointer(s string) string {
	s = strings.Replace(s, "~1", "/", -1)
	return strings.Replace(s, "~0", "~", -1)
}

// At narrows the context by walking path through the schema: properties for
// object segments, prefixItems/items for canonical indexes. Entries the
// schema does not mention narrow to unconstrained; false short-circuits.
func (c *Context) At(path entity.Path) *Context {
	if c == nil {
		return nil
	}
	s := c.Schema
	for _, seg := range path {
		s = c.Resolve(s)
		if s == nil {
			return NewContext(falseSchema, c.Root)
		}
		if s.IsFalse() {
			return NewContext(falseSchema, c.Root)
		}
		if s.IsUnconstrained() {
			return NewContext(trueSchema, c.Root)
		}
		s = c.step(s, seg)
	}
	if s == nil {
		s = trueSchema
	}
	return NewContext(s, c.Root)
}

func (c *Context) step(s *Schema, seg string) *Schema {
	if ps, declared := s.PropertySchema(seg); declared {
		return ps
	}
	if i, ok := entity.CanonicalIndex(seg); ok {
		if es := s.ElementSchema(i); es != nil {
			return es
		}
	}
	if s.Additional != nil {
		return s.Additional
	}
	return trueSchema
}
