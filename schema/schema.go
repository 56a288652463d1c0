// Package schema models the JSON Schema subset the traversal engine
// understands and the selector algebra that rewrites read scopes as the
// cursor moves between documents.
//
// Schemas are data, not validators: the materializer interprets them as
// filters. Boolean schemas are first-class; `true` (and the empty object
// form) admit everything, `false` admits nothing.
package schema

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/commontoolsinc/labs-sub005/d"
)

var (
	trueSchema  = &Schema{isBool: true, boolVal: true}
	falseSchema = &Schema{isBool: true}
)

// Schema is one parsed schema node. Immutable after parse.
type Schema struct {
	isBool  bool
	boolVal bool

	// Object-form keywords. Additional and Items are nil when the keyword
	// is absent; absence is semantically distinct from false.
	Types       []string
	Properties  map[string]*Schema
	Additional  *Schema
	Items       *Schema
	PrefixItems []*Schema
	Required    []string
	Ref         string
	Defs        map[string]*Schema

	raw   interface{}
	canon string
}

func True() *Schema  { return trueSchema }
func False() *Schema { return falseSchema }

// Parse decodes a schema from JSON text.
func Parse(data []byte) (*Schema, error) {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return FromAny(v)
}

// FromAny builds a schema from a decoded JSON shape. Booleans and objects
// are the only valid forms. Wrong-typed keywords inside an object form are
// ignored rather than rejected.
func FromAny(v interface{}) (*Schema, error) {
	switch t := v.(type) {
	case bool:
		if t {
			return trueSchema, nil
		}
		return falseSchema, nil
	case map[string]interface{}:
		return fromObject(t)
	default:
		return nil, errors.Errorf("schema must be a boolean or an object, got %T", v)
	}
}

func fromObject(m map[string]interface{}) (*Schema, error) {
	s := &Schema{raw: m}
	switch t := m["type"].(type) {
	case string:
		s.Types = []string{t}
	case []interface{}:
		for _, e := range t {
			if name, ok := e.(string); ok {
				s.Types = append(s.Types, name)
			}
		}
	}
	if props, ok := m["properties"].(map[string]interface{}); ok {
		s.Properties = make(map[string]*Schema, len(props))
		for k, pv := range props {
			if ps, err := FromAny(pv); err == nil {
				s.Properties[k] = ps
			}
		}
	}
	if av, present := m["additionalProperties"]; present {
		if as, err := FromAny(av); err == nil {
			s.Additional = as
		}
	}
	if iv, present := m["items"]; present {
		if is, err := FromAny(iv); err == nil {
			s.Items = is
		}
	}
	if pv, ok := m["prefixItems"].([]interface{}); ok {
		for _, e := range pv {
			es, err := FromAny(e)
			if err != nil {
				es = trueSchema
			}
			s.PrefixItems = append(s.PrefixItems, es)
		}
	}
	if rv, ok := m["required"].([]interface{}); ok {
		for _, e := range rv {
			if name, ok := e.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}
	if ref, ok := m["$ref"].(string); ok {
		s.Ref = ref
	}
	for _, key := range []string{"definitions", "$defs"} {
		if defs, ok := m[key].(map[string]interface{}); ok {
			if s.Defs == nil {
				s.Defs = make(map[string]*Schema, len(defs))
			}
			for k, dv := range defs {
				if ds, err := FromAny(dv); err == nil {
					s.Defs[k] = ds
				}
			}
		}
	}
	return s, nil
}

func (s *Schema) IsTrue() bool {
	return s != nil && s.isBool && s.boolVal
}

func (s *Schema) IsFalse() bool {
	return s != nil && s.isBool && !s.boolVal
}

// IsUnconstrained reports whether s admits every value unfiltered: nil,
// true, or an object form carrying no constraining keywords. A bare
// definition registry does not constrain.
func (s *Schema) IsUnconstrained() bool {
	if s == nil || s.IsTrue() {
		return true
	}
	if s.isBool {
		return false
	}
	return s.Types == nil && s.Properties == nil && s.Additional == nil &&
		s.Items == nil && s.PrefixItems == nil && s.Required == nil && s.Ref == ""
}

// AdmitsType reports whether a value of the named JSON type passes the
// `type` keyword. integral marks numbers with no fractional part, which
// also satisfy "integer".
func (s *Schema) AdmitsType(name string, integral bool) bool {
	if s == nil || s.Types == nil {
		return true
	}
	for _, t := range s.Types {
		if t == name {
			return true
		}
		if t == "integer" && name == "number" && integral {
			return true
		}
	}
	return false
}

// PropertySchema returns the declared schema for key, distinguishing
// "declared" from "covered by additionalProperties" and from "neither".
func (s *Schema) PropertySchema(key string) (*Schema, bool) {
	if s == nil || s.Properties == nil {
		return nil, false
	}
	ps, ok := s.Properties[key]
	return ps, ok
}

// ElementSchema returns the schema constraining element i, or nil when the
// element is unconstrained.
func (s *Schema) ElementSchema(i int) *Schema {
	if s == nil {
		return nil
	}
	if i >= 0 && i < len(s.PrefixItems) {
		return s.PrefixItems[i]
	}
	return s.Items
}

// Fingerprint is a canonical encoding of s; logically equal schemas
// fingerprint equally regardless of key order.
func (s *Schema) Fingerprint() string {
	if s == nil {
		return ""
	}
	if s.canon == "" {
		if s.isBool {
			if s.boolVal {
				s.canon = "true"
			} else {
				s.canon = "false"
			}
		} else {
			b, err := json.Marshal(s.raw)
			d.Chk.NoError(err)
			s.canon = string(b)
		}
	}
	return s.canon
}
