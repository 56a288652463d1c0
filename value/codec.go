package value

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	"github.com/commontoolsinc/labs-sub005/d"
	"github.com/commontoolsinc/labs-sub005/link"
	"github.com/commontoolsinc/labs-sub005/util/verbose"
)

// Decode parses one JSON value. Container nodes remember their exact byte
// range; an object holding the single key "/" is decoded as a link when its
// body parses, and degrades to a plain object with a warning when it does
// not.
func Decode(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	n, err := decodeValue(dec, data)
	if err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return n, nil
}

// MustDecode is Decode for values known to be well-formed (store payloads,
// test fixtures).
func MustDecode(data []byte) *Node {
	n, err := Decode(data)
	d.Chk.NoError(err)
	return n
}

func decodeValue(dec *json.Decoder, data []byte) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case nil:
		return nullNode, nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return &Node{kind: NumberKind, num: t}, nil
	case string:
		return &Node{kind: StringKind, s: t}, nil
	case json.Delim:
		if t == '[' {
			return decodeList(dec, data)
		}
		d.Chk.True(t == '{')
		return decodeMap(dec, data)
	}
	return nil, errors.Errorf("unexpected token %v", tok)
}

func decodeList(dec *json.Decoder, data []byte) (*Node, error) {
	start := dec.InputOffset() - 1
	var elems []*Node
	for dec.More() {
		child, err := decodeValue(dec, data)
		if err != nil {
			return nil, err
		}
		elems = append(elems, child)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	n := NewList(elems)
	n.raw = data[start:dec.InputOffset()]
	return n, nil
}

func decodeMap(dec *json.Decoder, data []byte) (*Node, error) {
	start := dec.InputOffset() - 1
	var keys []string
	fields := map[string]*Node{}
	for dec.More() {
		ktok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := ktok.(string)
		d.Chk.True(ok)
		child, err := decodeValue(dec, data)
		if err != nil {
			return nil, err
		}
		if _, dup := fields[key]; !dup {
			keys = append(keys, key)
		}
		fields[key] = child
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	raw := data[start:dec.InputOffset()]

	if len(keys) == 1 && keys[0] == link.SigilKey {
		l, err := link.Parse(raw)
		if err == nil {
			return &Node{kind: LinkKind, lnk: l, raw: raw, linky: true}, nil
		}
		verbose.Warn("treating malformed link as a plain value: %s", err)
	}

	n := NewMap(keys, fields)
	n.raw = raw
	return n, nil
}

// Encode returns n's wire form. Subtrees decoded from stored bytes re-emit
// them unchanged; built nodes serialize compactly.
func (n *Node) Encode() []byte {
	var buf bytes.Buffer
	n.encodeTo(&buf)
	return buf.Bytes()
}

func (n *Node) encodeTo(buf *bytes.Buffer) {
	if n.raw != nil {
		buf.Write(n.raw)
		return
	}
	switch n.kind {
	case NullKind:
		buf.WriteString("null")
	case BoolKind:
		buf.WriteString(strconv.FormatBool(n.b))
	case NumberKind:
		buf.WriteString(string(n.num))
	case StringKind:
		b, err := json.Marshal(n.s)
		d.Chk.NoError(err)
		buf.Write(b)
	case LinkKind:
		buf.Write(n.lnk.Encode())
	case ListKind:
		buf.WriteByte('[')
		for i, e := range n.elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			e.encodeTo(buf)
		}
		buf.WriteByte(']')
	case MapKind:
		buf.WriteByte('{')
		for i, k := range n.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			d.Chk.NoError(err)
			buf.Write(kb)
			buf.WriteByte(':')
			n.fields[k].encodeTo(buf)
		}
		buf.WriteByte('}')
	}
}
