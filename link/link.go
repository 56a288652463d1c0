// Package link models the wire-level pointer one document embeds to
// reference another: a single-key object whose "/" field holds a versioned
// tag body.
//
//	{"/": {"link@0.1": {"id": "of:…", "path": ["a","0"], "overwrite": "redirect"}}}
//
// Links decoded from stored bytes keep those bytes, so re-encoding a value
// that was not rewritten round-trips byte-for-byte.
package link

import (
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	"github.com/commontoolsinc/labs-sub005/d"
	"github.com/commontoolsinc/labs-sub005/entity"
	"github.com/commontoolsinc/labs-sub005/schema"
	"github.com/commontoolsinc/labs-sub005/util/verbose"
)

const (
	// SigilKey marks an object as a link carrier.
	SigilKey = "/"
	// Tag is the versioned body key. Unknown tags are not links.
	Tag = "link@0.1"

	OverwriteRedirect = "redirect"
	OverwriteThis     = "this"
)

// Link is one parsed pointer. The zero ID means "the holding document".
type Link struct {
	ID         string
	Path       entity.Path
	Space      string
	Schema     *schema.Schema
	RootSchema *schema.Schema
	Overwrite  string

	raw []byte
}

// New builds a link programmatically; Encode will synthesize its wire form.
func New(id string, path entity.Path) *Link {
	return &Link{ID: id, Path: path}
}

// IsWriteRedirect reports whether reads must follow this link to its target
// before materializing.
func (l *Link) IsWriteRedirect() bool {
	return l.Overwrite == OverwriteRedirect
}

// Target names the document the link points at. Links never change the
// media type; a link with no id stays inside holder.
func (l *Link) Target(holder entity.Address) entity.Address {
	if l.ID == "" {
		return holder
	}
	return entity.Address{ID: l.ID, MediaType: holder.MediaType}
}

// SchemaContext returns the attached schema context, or nil when the link
// carries none.
func (l *Link) SchemaContext() *schema.Context {
	if l.Schema == nil {
		return nil
	}
	return schema.NewContext(l.Schema, l.RootSchema)
}

// Raw returns the exact wire bytes this link was decoded from, or nil for
// programmatically built links.
func (l *Link) Raw() []byte {
	return l.raw
}

type wireBody struct {
	ID         string          `json:"id,omitempty"`
	Path       []string        `json:"path,omitempty"`
	Space      string          `json:"space,omitempty"`
	Schema     json.RawMessage `json:"schema,omitempty"`
	RootSchema json.RawMessage `json:"rootSchema,omitempty"`
	Overwrite  string          `json:"overwrite,omitempty"`
}

// Encode returns the wire form: decoded links re-emit their original bytes,
// built links synthesize a canonical body.
func (l *Link) Encode() []byte {
	if l.raw != nil {
		return l.raw
	}
	body := wireBody{
		ID:        l.ID,
		Path:      []string(l.Path),
		Space:     l.Space,
		Overwrite: l.Overwrite,
	}
	if l.Schema != nil {
		body.Schema = json.RawMessage(l.Schema.Fingerprint())
	}
	if l.RootSchema != nil {
		body.RootSchema = json.RawMessage(l.RootSchema.Fingerprint())
	}
	b, err := json.Marshal(map[string]map[string]wireBody{SigilKey: {Tag: body}})
	d.Chk.NoError(err)
	return b
}

func (l *Link) String() string {
	s := l.ID
	if s == "" {
		s = "<self>"
	}
	if !l.Path.IsEmpty() {
		s += l.Path.String()
	}
	if l.Overwrite != "" {
		s += "!" + l.Overwrite
	}
	return s
}

// Parse decodes the full sigil object bytes. The outer shape, the tag and
// the field types are strict; a malformed schema payload is dropped with a
// warning rather than failing the link.
func Parse(raw []byte) (*Link, error) {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil {
		return nil, errors.Wrap(err, "link carrier is not an object")
	}
	body, ok := outer[SigilKey]
	if !ok || len(outer) != 1 {
		return nil, errors.New("link carrier must hold the single key \"/\"")
	}

	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(body, &tagged); err != nil {
		return nil, errors.Wrap(err, "link body is not an object")
	}
	inner, ok := tagged[Tag]
	if !ok || len(tagged) != 1 {
		return nil, errors.Errorf("link body must hold the single tag %q", Tag)
	}

	var fields struct {
		ID         interface{}     `json:"id"`
		Path       []interface{}   `json:"path"`
		Space      interface{}     `json:"space"`
		Schema     json.RawMessage `json:"schema"`
		RootSchema json.RawMessage `json:"rootSchema"`
		Overwrite  interface{}     `json:"overwrite"`
	}
	if err := json.Unmarshal(inner, &fields); err != nil {
		return nil, errors.Wrap(err, "link fields")
	}

	l := &Link{raw: raw}
	var err error
	if l.ID, err = stringField("id", fields.ID); err != nil {
		return nil, err
	}
	if l.Space, err = stringField("space", fields.Space); err != nil {
		return nil, err
	}
	if l.Overwrite, err = stringField("overwrite", fields.Overwrite); err != nil {
		return nil, err
	}
	switch l.Overwrite {
	case "", OverwriteThis, OverwriteRedirect:
	default:
		verbose.Warn("link %s: unknown overwrite %q treated as a plain link", l.ID, l.Overwrite)
		l.Overwrite = ""
	}
	if l.Path, err = parseWirePath(fields.Path); err != nil {
		return nil, err
	}
	l.Schema = parseAttachedSchema("schema", fields.Schema)
	l.RootSchema = parseAttachedSchema("rootSchema", fields.RootSchema)
	return l, nil
}

func stringField(name string, v interface{}) (string, error) {
	if v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", errors.Errorf("link field %q must be a string, got %T", name, v)
	}
	return s, nil
}

// parseWirePath accepts strings and non-negative integral numbers as
// segments; numbers normalize to their canonical decimal form.
func parseWirePath(elems []interface{}) (entity.Path, error) {
	if len(elems) == 0 {
		return nil, nil
	}
	p := make(entity.Path, 0, len(elems))
	for _, e := range elems {
		switch t := e.(type) {
		case string:
			p = append(p, t)
		case float64:
			if t < 0 || t != float64(int64(t)) {
				return nil, errors.Errorf("link path index %v is not a non-negative integer", t)
			}
			p = append(p, strconv.FormatInt(int64(t), 10))
		default:
			return nil, errors.Errorf("link path segment must be a string or index, got %T", e)
		}
	}
	return p, nil
}

func parseAttachedSchema(name string, raw json.RawMessage) *schema.Schema {
	if len(raw) == 0 {
		return nil
	}
	s, err := schema.Parse(raw)
	if err != nil {
		verbose.Warn("dropping malformed link %s: %s", name, err)
		return nil
	}
	return s
}
