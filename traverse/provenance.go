package traverse

import (
	"github.com/commontoolsinc/labs-sub005/entity"
	"github.com/commontoolsinc/labs-sub005/schema"
	"github.com/commontoolsinc/labs-sub005/storage"
	"github.com/commontoolsinc/labs-sub005/util/verbose"
	"github.com/commontoolsinc/labs-sub005/value"
)

// loadProvenance follows att's source chain and fetches the executable
// definition of every document on it, so the ledger names everything the
// document's meaning depends on. Documents load through the adapter only;
// values are never schema-traversed here, and absent documents simply land
// in the adapter's missing set.
func (t *traversal) loadProvenance(att *storage.Attestation) {
	t.expectCycles = true
	defer func() { t.expectCycles = false }()

	local := map[string]bool{}
	cur := att
	for cur != nil {
		key := cur.Entity.Key()
		if local[key] {
			verbose.Warn("source chain revisits %s; truncating", key)
			return
		}
		local[key] = true
		if t.provSeen[key] {
			// Chain already followed from here earlier in this traversal.
			return
		}
		t.provSeen[key] = true

		t.loadDefinition(cur)

		node := cur.Value
		if node == nil || node.Kind() != value.MapKind {
			return
		}
		src, ok := node.Get("source")
		if !ok {
			return
		}
		if src.Kind() != value.StringKind || !entity.ValidID(src.Str()) {
			verbose.Warn("malformed source reference in %s", key)
			return
		}

		next := entity.Address{ID: src.Str(), MediaType: cur.Entity.MediaType}
		t.ledger.Record(next.Key(), schema.Minimal())
		cur = t.eng.ad.Load(next)
	}
}

// loadDefinition fetches the document's executable definition, at most once
// per traversal. The modern form is a "recipe" link; the legacy form is a
// "recipeType" tag whose bytes rehash into the definition's address.
func (t *traversal) loadDefinition(att *storage.Attestation) {
	node := att.Value
	if node == nil || node.Kind() != value.MapKind {
		return
	}

	var defID string
	if rec, ok := node.Get("recipe"); ok {
		if rec.Kind() == value.LinkKind && rec.Link().ID != "" {
			defID = rec.Link().ID
		} else {
			verbose.Warn("malformed recipe reference in %s", att.Entity.Key())
		}
	} else if tag, ok := node.Get("recipeType"); ok {
		if tag.Kind() == value.StringKind && tag.Str() != "" {
			defID = entity.DeriveIDFromString(tag.Str())
		} else {
			verbose.Warn("malformed recipe tag in %s", att.Entity.Key())
		}
	}
	if defID == "" {
		return
	}

	addr := entity.Address{ID: defID, MediaType: entity.MediaTypeRecipe}
	if t.defsSeen[addr.Key()] {
		return
	}
	t.defsSeen[addr.Key()] = true
	t.ledger.Record(addr.Key(), schema.Minimal())
	t.eng.ad.Load(addr)
}
