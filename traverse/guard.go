package traverse

import "github.com/commontoolsinc/labs-sub005/value"

type guardKey struct {
	node *value.Node
	fp   string
}

// visitGuard is the in-progress set for one traversal, keyed by value
// identity plus schema context fingerprint. Passing an empty fingerprint
// degenerates it to the identity-only variant.
type visitGuard struct {
	seen map[guardKey]bool
}

func newVisitGuard() *visitGuard {
	return &visitGuard{seen: map[guardKey]bool{}}
}

// Enter marks the pair as being traversed. ok == false reports that the
// pair is already in progress, which is how cycles announce themselves.
// release holds the entry for exactly the caller's dynamic extent; call it
// on every exit path.
func (g *visitGuard) Enter(node *value.Node, fp string) (release func(), ok bool) {
	k := guardKey{node, fp}
	if g.seen[k] {
		return nil, false
	}
	g.seen[k] = true
	return func() { delete(g.seen, k) }, true
}

func (g *visitGuard) Len() int {
	return len(g.seen)
}
