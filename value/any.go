package value

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/commontoolsinc/labs-sub005/d"
)

// FromAny builds a node from the shapes encoding/json produces: nil, bool,
// json.Number, float64, int, string, []interface{} and
// map[string]interface{}. Keys of built objects are sorted; decoded objects
// keep their stored order instead.
func FromAny(v interface{}) *Node {
	switch t := v.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case json.Number:
		return NumberLit(t)
	case float64:
		return Number(t)
	case int:
		return Number(float64(t))
	case string:
		return String(t)
	case []interface{}:
		elems := make([]*Node, len(t))
		for i, e := range t {
			elems[i] = FromAny(e)
		}
		return NewList(elems)
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make(map[string]*Node, len(t))
		for _, k := range keys {
			fields[k] = FromAny(t[k])
		}
		return NewMap(keys, fields)
	case *Node:
		d.Chk.NotNil(t)
		return t
	}
	d.Chk.Fail("no node shape for value of type %T", v)
	return nil
}

// ToAny converts n to the shapes encoding/json produces. Numbers come back
// as json.Number so literals survive; links come back as the object form
// they encode to. A nil node converts to nil.
func (n *Node) ToAny() interface{} {
	if n == nil {
		return nil
	}
	switch n.kind {
	case NullKind:
		return nil
	case BoolKind:
		return n.b
	case NumberKind:
		return n.num
	case StringKind:
		return n.s
	case ListKind:
		out := make([]interface{}, len(n.elems))
		for i, e := range n.elems {
			out[i] = e.ToAny()
		}
		return out
	case MapKind:
		out := make(map[string]interface{}, len(n.keys))
		for _, k := range n.keys {
			out[k] = n.fields[k].ToAny()
		}
		return out
	case LinkKind:
		var out map[string]interface{}
		dec := json.NewDecoder(bytes.NewReader(n.Encode()))
		dec.UseNumber()
		d.Chk.NoError(dec.Decode(&out))
		return out
	}
	d.Chk.Fail("no JSON shape for kind %s", n.kind)
	return nil
}
