// Package value holds the immutable JSON trees the engine traverses.
//
// Nodes are compared by pointer wherever the engine needs value identity:
// the store adapter hands out stable nodes, the cycle guard and memo tables
// key on them, and materialized output shares substructure with earlier
// results by reference. Undefined is a nil *Node and never appears inside a
// tree.
package value

import (
	"encoding/json"
	"math"

	"github.com/commontoolsinc/labs-sub005/d"
	"github.com/commontoolsinc/labs-sub005/link"
)

type Kind uint8

const (
	NullKind Kind = iota
	BoolKind
	NumberKind
	StringKind
	ListKind
	MapKind
	LinkKind
)

// String returns the JSON type name; links render as "link".
func (k Kind) String() string {
	switch k {
	case NullKind:
		return "null"
	case BoolKind:
		return "boolean"
	case NumberKind:
		return "number"
	case StringKind:
		return "string"
	case ListKind:
		return "array"
	case MapKind:
		return "object"
	case LinkKind:
		return "link"
	}
	panic("unknown kind")
}

// Node is one immutable JSON value.
type Node struct {
	kind   Kind
	b      bool
	num    json.Number
	s      string
	elems  []*Node
	keys   []string
	fields map[string]*Node
	lnk    *link.Link

	// raw holds the exact decoded bytes for containers and links, so
	// untouched subtrees re-encode byte-for-byte.
	raw   []byte
	linky bool
}

var (
	nullNode  = &Node{kind: NullKind}
	trueNode  = &Node{kind: BoolKind, b: true}
	falseNode = &Node{kind: BoolKind}
)

func Null() *Node { return nullNode }

func Bool(b bool) *Node {
	if b {
		return trueNode
	}
	return falseNode
}

func Number(f float64) *Node {
	b, err := json.Marshal(f)
	d.Chk.NoError(err)
	return &Node{kind: NumberKind, num: json.Number(b)}
}

func NumberLit(lit json.Number) *Node {
	return &Node{kind: NumberKind, num: lit}
}

func String(s string) *Node {
	return &Node{kind: StringKind, s: s}
}

func NewList(elems []*Node) *Node {
	n := &Node{kind: ListKind, elems: elems}
	for _, e := range elems {
		d.Chk.NotNil(e)
		if e.linky {
			n.linky = true
		}
	}
	return n
}

// NewMap builds an object node; keys carries the field order and must match
// fields exactly.
func NewMap(keys []string, fields map[string]*Node) *Node {
	d.Chk.Equal(len(keys), len(fields))
	n := &Node{kind: MapKind, keys: keys, fields: fields}
	for _, k := range keys {
		e, ok := fields[k]
		d.Chk.True(ok)
		d.Chk.NotNil(e)
		if e.linky {
			n.linky = true
		}
	}
	return n
}

func NewLink(l *link.Link) *Node {
	d.Chk.NotNil(l)
	return &Node{kind: LinkKind, lnk: l, raw: l.Raw(), linky: true}
}

func (n *Node) Kind() Kind { return n.kind }

func (n *Node) AsBool() bool {
	d.Chk.True(n.kind == BoolKind)
	return n.b
}

func (n *Node) Num() json.Number {
	d.Chk.True(n.kind == NumberKind)
	return n.num
}

func (n *Node) Float() float64 {
	f, err := n.Num().Float64()
	d.Chk.NoError(err)
	return f
}

// IsIntegral reports whether a number node has no fractional part.
func (n *Node) IsIntegral() bool {
	f := n.Float()
	return !math.IsInf(f, 0) && f == math.Trunc(f)
}

func (n *Node) Str() string {
	d.Chk.True(n.kind == StringKind)
	return n.s
}

func (n *Node) Len() int {
	d.Chk.True(n.kind == ListKind)
	return len(n.elems)
}

func (n *Node) Index(i int) *Node {
	d.Chk.True(n.kind == ListKind)
	return n.elems[i]
}

// Keys returns the field order. Callers must not mutate it.
func (n *Node) Keys() []string {
	d.Chk.True(n.kind == MapKind)
	return n.keys
}

func (n *Node) Get(key string) (*Node, bool) {
	d.Chk.True(n.kind == MapKind)
	e, ok := n.fields[key]
	return e, ok
}

func (n *Node) Link() *link.Link {
	d.Chk.True(n.kind == LinkKind)
	return n.lnk
}

// ContainsLink reports whether any node in the subtree is a link.
func (n *Node) ContainsLink() bool { return n.linky }

// Raw returns the wire bytes n was decoded from, nil for built nodes and
// primitives.
func (n *Node) Raw() []byte { return n.raw }

// Equals is deep structural equality: numbers compare by numeric value,
// objects by field set, links by encoded form.
func (n *Node) Equals(o *Node) bool {
	if n == o {
		return true
	}
	if n == nil || o == nil || n.kind != o.kind {
		return false
	}
	switch n.kind {
	case NullKind:
		return true
	case BoolKind:
		return n.b == o.b
	case NumberKind:
		return n.Float() == o.Float()
	case StringKind:
		return n.s == o.s
	case ListKind:
		if len(n.elems) != len(o.elems) {
			return false
		}
		for i, e := range n.elems {
			if !e.Equals(o.elems[i]) {
				return false
			}
		}
		return true
	case MapKind:
		if len(n.keys) != len(o.keys) {
			return false
		}
		for k, e := range n.fields {
			oe, ok := o.fields[k]
			if !ok || !e.Equals(oe) {
				return false
			}
		}
		return true
	case LinkKind:
		return string(n.lnk.Encode()) == string(o.lnk.Encode())
	}
	return false
}
