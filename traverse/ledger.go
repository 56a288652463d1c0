package traverse

import (
	"sort"

	"github.com/commontoolsinc/labs-sub005/schema"
)

// Ledger accumulates which documents a traversal read and under which
// selectors. It is the engine's contract with the sync layer: keep these
// documents warm, read under these selectors.
type Ledger struct {
	selectors map[string][]schema.Selector
	seen      map[string]map[string]bool
}

func NewLedger() *Ledger {
	return &Ledger{
		selectors: map[string][]schema.Selector{},
		seen:      map[string]map[string]bool{},
	}
}

// Record adds sel for the document key. Selectors are deduplicated by
// fingerprint and kept in first-recorded order.
func (l *Ledger) Record(key string, sel schema.Selector) {
	fps := l.seen[key]
	if fps == nil {
		fps = map[string]bool{}
		l.seen[key] = fps
	}
	fp := sel.Fingerprint()
	if fps[fp] {
		return
	}
	fps[fp] = true
	l.selectors[key] = append(l.selectors[key], sel)
}

// Selectors returns the recorded selectors for key in recorded order. The
// returned slice is the ledger's own; callers must not mutate it.
func (l *Ledger) Selectors(key string) []schema.Selector {
	return l.selectors[key]
}

// Keys returns every recorded document key, sorted.
func (l *Ledger) Keys() []string {
	keys := make([]string, 0, len(l.selectors))
	for k := range l.selectors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len is the number of distinct document keys recorded.
func (l *Ledger) Len() int {
	return len(l.selectors)
}

// Merge folds every entry of other into l.
func (l *Ledger) Merge(other *Ledger) {
	if other == nil {
		return
	}
	for key, sels := range other.selectors {
		for _, sel := range sels {
			l.Record(key, sel)
		}
	}
}
