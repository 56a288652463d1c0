package traverse

import (
	"github.com/commontoolsinc/labs-sub005/d"
	"github.com/commontoolsinc/labs-sub005/entity"
	"github.com/commontoolsinc/labs-sub005/schema"
	"github.com/commontoolsinc/labs-sub005/storage"
	"github.com/commontoolsinc/labs-sub005/util/verbose"
	"github.com/commontoolsinc/labs-sub005/value"
)

// walk moves the cursor from att through remaining to the position sel
// names, resolving link chains to a fixed point along the way. It returns
// the attestation at the final position plus the selector rebased into
// whatever document the cursor ended up in. A nil attestation means
// not-found: a missing target, a dangling path segment, or a link chain
// that cycled.
//
// Invariant throughout: sel.Path == att.Path + remaining.
func (t *traversal) walk(att *storage.Attestation, remaining entity.Path, sel schema.Selector) (*storage.Attestation, schema.Selector) {
	// Link guard entries pile up across hops and unwind when the walk
	// exits, so a chain that loops back on itself is caught here.
	var releases []func()
	defer func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}()

	for {
		for att.Value.Kind() == value.LinkKind {
			release, ok := t.guard.Enter(att.Value, sel.Context.Fingerprint())
			if !ok {
				t.cycleAt(att)
				return nil, sel
			}
			releases = append(releases, release)

			lnk := att.Value.Link()
			target := lnk.Target(att.Entity)
			next := schema.Rebase(sel, att.Path, lnk.Path)
			if lctx := lnk.SchemaContext(); lctx != nil {
				next.Context = lctx.At(remaining)
			}

			if target == att.Entity {
				// Same document, different position: no load.
				att = t.eng.ad.Load(att.Entity)
				d.Chk.NotNil(att, "document under traversal vanished from the adapter")
			} else {
				t.ledger.Record(target.Key(), next)
				att = t.eng.ad.Load(target)
				if att == nil {
					return nil, next
				}
				t.loadProvenance(att)
			}
			sel = next
			remaining = sel.Path
		}

		if len(remaining) == 0 {
			d.Chk.True(att.Path.Equals(sel.Path), "walk finished at %s for selector path %s", att.Path, sel.Path)
			return att, sel
		}

		seg := remaining[0]
		node := att.Value
		switch node.Kind() {
		case value.ListKind:
			idx, ok := entity.CanonicalIndex(seg)
			if !ok {
				verbose.Warn("non-canonical array index %q in %s at %s", seg, att.Entity.Key(), att.Path)
				return nil, sel
			}
			if idx >= node.Len() {
				return nil, sel
			}
			att = att.Child(seg, node.Index(idx))
		case value.MapKind:
			child, ok := node.Get(seg)
			if !ok {
				return nil, sel
			}
			att = att.Child(seg, child)
		default:
			// A primitive with path left to consume has no such element.
			return nil, sel
		}
		remaining = remaining[1:]
	}
}

func (t *traversal) cycleAt(att *storage.Attestation) {
	if t.expectCycles {
		return
	}
	verbose.Warn("cycle detected in %s at %s", att.Entity.Key(), att.Path)
}
