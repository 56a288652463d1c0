package schema

import "github.com/commontoolsinc/labs-sub005/entity"

// Selector is a read scope inside one document: the subtree at Path, read
// under Context. A nil Context reads unconstrained.
type Selector struct {
	Path    entity.Path
	Context *Context
}

// Minimal is the selector provenance loads register: whole document, no
// schema.
func Minimal() Selector {
	return Selector{}
}

// Fingerprint identifies the selector for ledger dedup.
func (s Selector) Fingerprint() string {
	return s.Path.String() + "|" + s.Context.Fingerprint()
}

func (s Selector) String() string {
	if s.Context == nil {
		return s.Path.String()
	}
	return s.Path.String() + " under " + s.Context.Schema.Fingerprint()
}
