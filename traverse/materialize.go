// Package traverse materializes schema-filtered views of linked documents.
//
// The Engine walks a document graph held in a storage.Adapter, following
// links across documents, narrowing the schema context as it descends, and
// building output values that share substructure with the inputs wherever
// filtering leaves them untouched. Traversals are synchronous and
// single-threaded; when a document is missing the affected subtree comes
// back absent on this pass and the caller re-invokes after fetching (the
// adapter's missing set says what to fetch).
package traverse

import (
	"strconv"

	"github.com/commontoolsinc/labs-sub005/d"
	"github.com/commontoolsinc/labs-sub005/entity"
	"github.com/commontoolsinc/labs-sub005/schema"
	"github.com/commontoolsinc/labs-sub005/storage"
	"github.com/commontoolsinc/labs-sub005/value"
)

type memoKey struct {
	node *value.Node
	fp   string
}

// Engine owns the adapter and the memo table. The memo keys on value
// identity plus context fingerprint and survives across Materialize calls,
// so repeated materializations of the same subtree hand back the same
// nodes. Reset clears both together; their lifetimes must agree or the
// identity keys go stale.
type Engine struct {
	ad   *storage.Adapter
	memo map[memoKey]*value.Node
}

func NewEngine(ad *storage.Adapter) *Engine {
	return &Engine{ad: ad, memo: map[memoKey]*value.Node{}}
}

func (e *Engine) Adapter() *storage.Adapter {
	return e.ad
}

// Reset drops the memo table and the adapter caches so the next pass
// observes fresh store state.
func (e *Engine) Reset() {
	e.memo = map[memoKey]*value.Node{}
	e.ad.Reset()
}

// traversal is the per-call state: one ledger, one guard, one provenance
// visit set. Nothing here leaks across Materialize calls.
type traversal struct {
	eng          *Engine
	ledger       *Ledger
	guard        *visitGuard
	expectCycles bool
	provSeen     map[string]bool
	defsSeen     map[string]bool
}

// Materialize filters the subtree at att through sel and reports every
// document the traversal touched. The result is nil when the subtree does
// not satisfy the schema or could not be reached; value.Null() inside the
// result marks a severed cycle edge.
func (e *Engine) Materialize(att *storage.Attestation, sel schema.Selector) (*value.Node, *Ledger) {
	t := &traversal{
		eng:      e,
		ledger:   NewLedger(),
		guard:    newVisitGuard(),
		provSeen: map[string]bool{},
		defsSeen: map[string]bool{},
	}
	if att != nil {
		t.ledger.Record(att.Entity.Key(), sel)
		t.loadProvenance(att)
	}
	out := t.materialize(att, sel)
	return out, t.ledger
}

func (t *traversal) materialize(att *storage.Attestation, sel schema.Selector) *value.Node {
	if att == nil {
		return nil
	}
	d.Chk.NotNil(att.Value, "attestation for %s carries no value", att.Entity.Key())

	if !att.Path.Equals(sel.Path) {
		att, sel = t.walk(att, pathSuffix(att.Path, sel.Path), sel)
		if att == nil {
			return nil
		}
	}

	fp := sel.Context.Fingerprint()
	key := memoKey{att.Value, fp}
	if out, ok := t.eng.memo[key]; ok {
		return out
	}

	// Links are guarded inside walk; everything else is guarded here for
	// the extent of its dispatch.
	if att.Value.Kind() != value.LinkKind {
		release, ok := t.guard.Enter(att.Value, fp)
		if !ok {
			t.cycleAt(att)
			return value.Null()
		}
		defer release()
	}

	out := t.dispatch(att, sel)
	t.eng.memo[key] = out
	return out
}

func (t *traversal) dispatch(att *storage.Attestation, sel schema.Selector) *value.Node {
	eff, ok := effectiveSchema(sel)
	if !ok {
		return nil
	}
	if eff.IsFalse() {
		return nil
	}
	if eff.IsUnconstrained() {
		return t.resolveFree(att, sel)
	}

	node := att.Value
	if node.Kind() == value.LinkKind {
		target, tsel := t.walk(att, nil, sel)
		if target == nil {
			return nil
		}
		return t.materialize(target, tsel)
	}

	if !admitsNode(eff, node) {
		return nil
	}

	switch node.Kind() {
	case value.ListKind:
		return t.materializeList(att, sel)
	case value.MapKind:
		return t.materializeMap(att, sel, eff)
	default:
		return node
	}
}

// resolveFree handles the unconstrained case: link-free subtrees pass
// through by reference; anything holding links is rebuilt with every link
// resolved. A link whose target cannot be reached becomes Null in the
// rebuilt value rather than failing the whole subtree.
func (t *traversal) resolveFree(att *storage.Attestation, sel schema.Selector) *value.Node {
	node := att.Value
	if !node.ContainsLink() {
		return node
	}

	if node.Kind() == value.LinkKind {
		// A dereference that fails, whether the target is missing or its
		// attached schema filters it away, becomes Null here rather than
		// failing the enclosing rebuild.
		target, tsel := t.walk(att, nil, sel)
		if out := t.materialize(target, tsel); out != nil {
			return out
		}
		return value.Null()
	}

	switch node.Kind() {
	case value.ListKind:
		elems := make([]*value.Node, node.Len())
		for i := range elems {
			seg := strconv.Itoa(i)
			out := t.materialize(att.Child(seg, node.Index(i)), childSelector(sel, seg))
			d.Chk.NotNil(out, "unconstrained rebuild lost element %d of %s", i, att.Entity.Key())
			elems[i] = out
		}
		return value.NewList(elems)
	case value.MapKind:
		keys := node.Keys()
		outKeys := make([]string, 0, len(keys))
		fields := make(map[string]*value.Node, len(keys))
		for _, k := range keys {
			child, _ := node.Get(k)
			out := t.materialize(att.Child(k, child), childSelector(sel, k))
			d.Chk.NotNil(out, "unconstrained rebuild lost key %q of %s", k, att.Entity.Key())
			outKeys = append(outKeys, k)
			fields[k] = out
		}
		return value.NewMap(outKeys, fields)
	}

	d.Chk.Fail("link flag set on non-compound node")
	return nil
}

// materializeList applies element schemas index by index. One element
// failing fails the whole array.
func (t *traversal) materializeList(att *storage.Attestation, sel schema.Selector) *value.Node {
	node := att.Value
	elems := make([]*value.Node, node.Len())
	for i := range elems {
		seg := strconv.Itoa(i)
		out := t.materialize(att.Child(seg, node.Index(i)), childSelector(sel, seg))
		if out == nil {
			return nil
		}
		elems[i] = out
	}
	return value.NewList(elems)
}

// materializeMap filters properties one by one, omits the ones that do not
// match, and then enforces required on what is left. Keys the schema does
// not mention flow through the additionalProperties rule inside the
// context narrowing: absent means unconstrained passthrough.
func (t *traversal) materializeMap(att *storage.Attestation, sel schema.Selector, eff *schema.Schema) *value.Node {
	node := att.Value
	keys := node.Keys()
	outKeys := make([]string, 0, len(keys))
	fields := make(map[string]*value.Node, len(keys))
	for _, k := range keys {
		child, _ := node.Get(k)
		out := t.materialize(att.Child(k, child), childSelector(sel, k))
		if out == nil {
			continue
		}
		outKeys = append(outKeys, k)
		fields[k] = out
	}
	for _, req := range eff.Required {
		if _, ok := fields[req]; !ok {
			return nil
		}
	}
	return value.NewMap(outKeys, fields)
}

// effectiveSchema resolves the context's schema through $ref. ok == false
// reports an unresolvable reference, which admits nothing.
func effectiveSchema(sel schema.Selector) (*schema.Schema, bool) {
	if sel.Context == nil {
		return nil, true
	}
	s := sel.Context.Resolve(sel.Context.Schema)
	if s == nil && sel.Context.Schema != nil {
		return nil, false
	}
	return s, true
}

func admitsNode(s *schema.Schema, node *value.Node) bool {
	name := jsonTypeName(node.Kind())
	integral := node.Kind() == value.NumberKind && node.IsIntegral()
	return s.AdmitsType(name, integral)
}

func jsonTypeName(k value.Kind) string {
	switch k {
	case value.NullKind:
		return "null"
	case value.BoolKind:
		return "boolean"
	case value.NumberKind:
		return "number"
	case value.StringKind:
		return "string"
	case value.ListKind:
		return "array"
	case value.MapKind:
		return "object"
	}
	d.Chk.Fail("no JSON type for kind %s", k)
	return ""
}

func childSelector(sel schema.Selector, seg string) schema.Selector {
	return schema.Selector{
		Path:    sel.Path.Append(seg),
		Context: sel.Context.At(entity.Path{seg}),
	}
}

func pathSuffix(pos, target entity.Path) entity.Path {
	d.Chk.True(target.HasPrefix(pos), "cursor at %s is outside selector path %s", pos, target)
	return target[len(pos):]
}
