package storage

import (
	"sort"

	"github.com/commontoolsinc/labs-sub005/entity"
	"github.com/commontoolsinc/labs-sub005/util/verbose"
	"github.com/commontoolsinc/labs-sub005/value"
)

// Attestation is a witnessed read: the document at Entity held Value at the
// interior position Path. A nil Value is a retraction; the document exists
// without a current value. Attestations returned by an Adapter are stable:
// the same address yields the same pointer until Reset, which is what lets
// the engine key guards and memo tables on value identity.
type Attestation struct {
	Entity entity.Address
	Path   entity.Path
	Value  *value.Node
}

// Child derives the attestation for one step down into the same document.
func (a *Attestation) Child(seg string, v *value.Node) *Attestation {
	return &Attestation{Entity: a.Entity, Path: a.Path.Append(seg), Value: v}
}

// WithValue keeps the position but swaps the witnessed value.
func (a *Attestation) WithValue(v *value.Node) *Attestation {
	return &Attestation{Entity: a.Entity, Path: a.Path, Value: v}
}

// Adapter is the engine's only read surface over a Store. It caches every
// successful load by document key and coalesces every miss into a missing
// set, so one traversal hits the backend at most once per document and the
// sync layer afterwards sees exactly what to fetch.
//
// Loads never block and never error: absence is an answer.
type Adapter struct {
	store   Store
	reads   map[string]*Attestation
	order   []string
	missing map[string]entity.Address
}

func NewAdapter(s Store) *Adapter {
	a := &Adapter{store: s}
	a.Reset()
	return a
}

// Load returns the attestation for the document at addr, nil when the
// store has no revision for it. Both outcomes are cached until Reset.
func (a *Adapter) Load(addr entity.Address) *Attestation {
	key := addr.Key()
	if att, ok := a.reads[key]; ok {
		return att
	}
	if _, miss := a.missing[key]; miss {
		return nil
	}
	rev := a.store.Get(addr)
	if rev.IsZero() || rev.IsRetraction() {
		verbose.Log("load miss %s (retracted: %t)", key, rev.IsRetraction())
		a.missing[key] = addr
		return nil
	}
	att := &Attestation{Entity: addr, Value: rev.Value}
	a.reads[key] = att
	a.order = append(a.order, key)
	return att
}

// Reset drops the read cache and the missing set. The next pass sees fresh
// store state and fresh attestation identities.
func (a *Adapter) Reset() {
	a.reads = map[string]*Attestation{}
	a.order = nil
	a.missing = map[string]entity.Address{}
}

// Missing returns the coalesced missing set, sorted by key.
func (a *Adapter) Missing() []entity.Address {
	keys := make([]string, 0, len(a.missing))
	for k := range a.missing {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	addrs := make([]entity.Address, len(keys))
	for i, k := range keys {
		addrs[i] = a.missing[k]
	}
	return addrs
}

// Reads returns every attestation loaded so far, in load order.
func (a *Adapter) Reads() []*Attestation {
	atts := make([]*Attestation, len(a.order))
	for i, k := range a.order {
		atts[i] = a.reads[k]
	}
	return atts
}

func (a *Adapter) ReadCount() int {
	return len(a.reads)
}

func (a *Adapter) MissingCount() int {
	return len(a.missing)
}

// Store exposes the wrapped store; the replica writes through it.
func (a *Adapter) Store() Store {
	return a.store
}
