// Package replica fronts a local store with the materialization engine and
// the pull loop that heals missing documents from a remote.
//
// A Replica is single-threaded like the engine it wraps; callers serialize
// access. Reads go through the engine's adapter and are cached until
// Refresh; writes refresh the replica so the next query observes them.
package replica

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/commontoolsinc/labs-sub005/d"
	"github.com/commontoolsinc/labs-sub005/entity"
	"github.com/commontoolsinc/labs-sub005/schema"
	"github.com/commontoolsinc/labs-sub005/storage"
	"github.com/commontoolsinc/labs-sub005/traverse"
	"github.com/commontoolsinc/labs-sub005/util/verbose"
	"github.com/commontoolsinc/labs-sub005/value"
)

type Replica struct {
	store storage.Store
	eng   *traverse.Engine

	// subs accumulates every (document, selector) pair queries have
	// depended on. It survives Refresh: it is the replica's interest set,
	// not a cache.
	subs *traverse.Ledger
}

func New(store storage.Store) *Replica {
	return &Replica{
		store: store,
		eng:   traverse.NewEngine(storage.NewAdapter(store)),
		subs:  traverse.NewLedger(),
	}
}

// Get reads the document at addr through the adapter. Absent and retracted
// documents come back nil and land in the missing set.
func (r *Replica) Get(addr entity.Address) *storage.Attestation {
	return r.eng.Adapter().Load(addr)
}

// Put writes v as the next revision of addr; a nil v retracts it. The
// replica refreshes so the write is visible to the next query.
func (r *Replica) Put(addr entity.Address, v *value.Node) storage.Revision {
	rev := storage.NextRevision(r.store.Get(addr), v)
	r.store.Put(addr, rev)
	r.Refresh()
	return rev
}

// Query materializes the document at addr under sel. The call's ledger is
// returned and also merged into the replica's subscription set.
func (r *Replica) Query(addr entity.Address, sel schema.Selector) (*value.Node, *traverse.Ledger) {
	out, led := r.eng.Materialize(r.Get(addr), sel)
	r.subs.Merge(led)
	return out, led
}

// Missing reports the documents queries failed to load since the last
// Refresh.
func (r *Replica) Missing() []entity.Address {
	return r.eng.Adapter().Missing()
}

// Subscriptions returns the accumulated interest set keyed by document.
func (r *Replica) Subscriptions() map[string][]schema.Selector {
	out := map[string][]schema.Selector{}
	for _, key := range r.subs.Keys() {
		out[key] = r.subs.Selectors(key)
	}
	return out
}

// Refresh drops the engine and adapter state so the next query observes
// current store contents. Subscriptions persist.
func (r *Replica) Refresh() {
	r.eng.Reset()
}

// Pull copies the named revisions from remote into the local store and
// reports how many actually arrived. Documents the remote does not have are
// skipped. Version chains carry over as stored, so both sides agree on
// revision history afterwards.
func (r *Replica) Pull(remote storage.Store, addrs []entity.Address, progress func(done, total int, bytes uint64)) int {
	pulled := 0
	var bytes uint64
	for i, addr := range addrs {
		rev := remote.Get(addr)
		if rev.IsZero() {
			verbose.Log("pull: %s not on remote", addr.Key())
		} else {
			r.store.Put(addr, rev)
			pulled++
			bytes += uint64(len(rev.Version))
			if rev.Value != nil {
				bytes += uint64(len(rev.Value.Encode()))
			}
		}
		if progress != nil {
			progress(i+1, len(addrs), bytes)
		}
	}
	return pulled
}

// Resolve materializes addr under sel, pulling whatever the traversal found
// missing from remote and re-invoking, until a pass completes with nothing
// missing or the pass budget runs out. The last pass's partial result comes
// back alongside any error.
func (r *Replica) Resolve(remote storage.Store, addr entity.Address, sel schema.Selector, maxPasses int) (*value.Node, error) {
	d.Exp.True(maxPasses > 0, "resolve needs a positive pass budget, got %d", maxPasses)
	for pass := 1; ; pass++ {
		out, _ := r.Query(addr, sel)
		missing := r.Missing()
		if len(missing) == 0 {
			return out, nil
		}
		if pass >= maxPasses {
			return out, errors.Errorf("%d documents still unresolved after %d passes: %s",
				len(missing), pass, joinKeys(missing))
		}
		pulled := r.Pull(remote, missing, nil)
		if pulled == 0 {
			return out, errors.Errorf("remote has none of: %s", joinKeys(missing))
		}
		verbose.Log("resolve pass %d pulled %d of %d missing documents", pass, pulled, len(missing))
		r.Refresh()
	}
}

func joinKeys(addrs []entity.Address) string {
	keys := make([]string, len(addrs))
	for i, addr := range addrs {
		keys[i] = addr.Key()
	}
	return strings.Join(keys, ", ")
}
