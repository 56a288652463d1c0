package traverse

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/commontoolsinc/labs-sub005/entity"
	"github.com/commontoolsinc/labs-sub005/schema"
	"github.com/commontoolsinc/labs-sub005/storage"
	"github.com/commontoolsinc/labs-sub005/value"
)

// fixture wires an Engine over a counting store, so tests can assert both
// what materializes and how often the backend was actually hit.
type fixture struct {
	store *storage.TestStore
	eng   *Engine
}

func newFixture() *fixture {
	store := storage.NewTestStore()
	return &fixture{store: store, eng: NewEngine(storage.NewAdapter(store))}
}

func docID(name string) string {
	return entity.DeriveIDFromString(name)
}

// put stores body under the name-derived address without touching the
// fixture's read/write counters.
func (f *fixture) put(name, body string) entity.Address {
	addr := entity.JSONAt(docID(name))
	prev := f.store.MemoryStore.Get(addr)
	f.store.MemoryStore.Put(addr, storage.NextRevision(prev, value.MustDecode([]byte(body))))
	return addr
}

func (f *fixture) load(name string) *storage.Attestation {
	return f.eng.Adapter().Load(entity.JSONAt(docID(name)))
}

func pathJSON(path []string) string {
	b, err := json.Marshal(path)
	if err != nil {
		panic(err)
	}
	return string(b)
}

func wireLink(name string, path ...string) string {
	if len(path) == 0 {
		return fmt.Sprintf(`{"/":{"link@0.1":{"id":%q}}}`, docID(name))
	}
	return fmt.Sprintf(`{"/":{"link@0.1":{"id":%q,"path":%s}}}`, docID(name), pathJSON(path))
}

func wireSelfLink(path ...string) string {
	return fmt.Sprintf(`{"/":{"link@0.1":{"path":%s}}}`, pathJSON(path))
}

func wireRedirect(name string) string {
	return fmt.Sprintf(`{"/":{"link@0.1":{"id":%q,"overwrite":"redirect"}}}`, docID(name))
}

func wireSchemaLink(name, schemaJSON string) string {
	return fmt.Sprintf(`{"/":{"link@0.1":{"id":%q,"schema":%s}}}`, docID(name), schemaJSON)
}

func TestMaterializeUnconstrainedPassthrough(t *testing.T) {
	assert := assert.New(t)
	f := newFixture()
	f.put("doc", `{"a":1,"b":["x",{"c":null}]}`)

	att := f.load("doc")
	out, led := f.eng.Materialize(att, schema.Minimal())
	assert.True(out == att.Value)
	assert.Equal([]string{entity.JSONAt(docID("doc")).Key()}, led.Keys())
	assert.Equal(1, f.store.Reads)

	// Same pass again: still the same node, still one backend read.
	again, _ := f.eng.Materialize(att, schema.Minimal())
	assert.True(again == out)
	assert.Equal(1, f.store.Reads)
}

func TestMaterializeRematerializeShares(t *testing.T) {
	assert := assert.New(t)
	f := newFixture()
	f.put("doc", `{"keep":1,"drop":"s"}`)
	sch := `{"type":"object","properties":{"keep":{"type":"number"},"drop":{"type":"number"}},"additionalProperties":false}`

	att := f.load("doc")
	r1, _ := f.eng.Materialize(att, selectorAt("", sch))
	assert.True(value.MustDecode([]byte(`{"keep":1}`)).Equals(r1))

	// Selector parsed afresh: fingerprints match, so the memo hands back
	// the identical node.
	r2, _ := f.eng.Materialize(att, selectorAt("", sch))
	assert.True(r1 == r2)
}

func TestMaterializeTypeFiltering(t *testing.T) {
	assert := assert.New(t)
	f := newFixture()
	f.put("num", `3`)
	f.put("frac", `3.5`)
	f.put("str", `"three"`)

	out, led := f.eng.Materialize(f.load("num"), selectorAt("", `{"type":"string"}`))
	assert.Nil(out)
	assert.Equal(1, led.Len())

	out, _ = f.eng.Materialize(f.load("num"), selectorAt("", `{"type":"integer"}`))
	assert.True(value.MustDecode([]byte(`3`)).Equals(out))

	out, _ = f.eng.Materialize(f.load("frac"), selectorAt("", `{"type":"integer"}`))
	assert.Nil(out)

	out, _ = f.eng.Materialize(f.load("str"), selectorAt("", `{"type":["string","null"]}`))
	assert.Equal("three", out.Str())
}

func TestMaterializeArrayAllOrNothing(t *testing.T) {
	assert := assert.New(t)
	f := newFixture()
	f.put("two", `["a","b"]`)
	f.put("one", `["a"]`)
	sch := `{"type":"array","items":false,"prefixItems":[{"type":"string"}]}`

	out, _ := f.eng.Materialize(f.load("two"), selectorAt("", sch))
	assert.Nil(out)

	out, _ = f.eng.Materialize(f.load("one"), selectorAt("", sch))
	assert.True(value.MustDecode([]byte(`["a"]`)).Equals(out))
}

func TestMaterializeObjectFiltering(t *testing.T) {
	assert := assert.New(t)
	f := newFixture()
	f.put("doc", `{"a":1,"junk":{"deep":[true]}}`)

	// additionalProperties absent: unmentioned keys pass through whole,
	// sharing the input subtree.
	att := f.load("doc")
	out, _ := f.eng.Materialize(att, selectorAt("", `{"type":"object","properties":{"a":{"type":"number"}}}`))
	assert.Equal([]string{"a", "junk"}, out.Keys())
	inJunk, _ := att.Value.Get("junk")
	outJunk, _ := out.Get("junk")
	assert.True(inJunk == outJunk)
	assert.False(out == att.Value)

	// additionalProperties false: unmentioned keys are dropped.
	out, _ = f.eng.Materialize(att, selectorAt("", `{"type":"object","properties":{"a":{"type":"number"}},"additionalProperties":false}`))
	assert.True(value.MustDecode([]byte(`{"a":1}`)).Equals(out))

	// A typed additionalProperties filters key by key.
	f.put("mixed", `{"a":1,"b":"s","c":3}`)
	out, _ = f.eng.Materialize(f.load("mixed"), selectorAt("", `{"type":"object","properties":{"a":{"type":"number"}},"additionalProperties":{"type":"string"}}`))
	assert.True(value.MustDecode([]byte(`{"a":1,"b":"s"}`)).Equals(out))

	// A mismatched declared property is omitted, not fatal.
	out, _ = f.eng.Materialize(f.load("mixed"), selectorAt("", `{"type":"object","properties":{"a":{"type":"string"}}}`))
	assert.True(value.MustDecode([]byte(`{"b":"s","c":3}`)).Equals(out))
}

func TestMaterializeRequired(t *testing.T) {
	assert := assert.New(t)
	f := newFixture()
	f.put("good", `{"p":3,"q":1}`)
	f.put("bad", `{"p":"nope","q":1}`)
	sch := `{"type":"object","properties":{"p":{"type":"number"}},"required":["p"]}`

	out, _ := f.eng.Materialize(f.load("good"), selectorAt("", sch))
	assert.True(value.MustDecode([]byte(`{"p":3,"q":1}`)).Equals(out))

	// p filters away, required fails, the whole object vanishes.
	out, _ = f.eng.Materialize(f.load("bad"), selectorAt("", sch))
	assert.Nil(out)
}

func TestMaterializeSchemaRefs(t *testing.T) {
	assert := assert.New(t)
	f := newFixture()
	f.put("doc", `{"name":"n"}`)

	sch := `{"type":"object","properties":{"name":{"$ref":"#/$defs/str"}},"$defs":{"str":{"type":"string"}}}`
	out, _ := f.eng.Materialize(f.load("doc"), selectorAt("", sch))
	assert.True(value.MustDecode([]byte(`{"name":"n"}`)).Equals(out))

	// An unresolvable reference admits nothing.
	out, _ = f.eng.Materialize(f.load("doc"), selectorAt("", `{"$ref":"#/$defs/zilch"}`))
	assert.Nil(out)
}

func TestMaterializeSelectorIndexes(t *testing.T) {
	assert := assert.New(t)
	f := newFixture()
	f.put("doc", `{"arr":["x","y"]}`)

	out, _ := f.eng.Materialize(f.load("doc"), selectorAt("/arr/1", ""))
	assert.Equal("y", out.Str())

	// "01" is not a canonical index and never matches.
	out, _ = f.eng.Materialize(f.load("doc"), selectorAt("/arr/01", ""))
	assert.Nil(out)

	out, _ = f.eng.Materialize(f.load("doc"), selectorAt("/arr/2", ""))
	assert.Nil(out)

	out, _ = f.eng.Materialize(f.load("doc"), selectorAt("/arr/1/deeper", ""))
	assert.Nil(out)
}

func TestMaterializeWriteRedirectChain(t *testing.T) {
	assert := assert.New(t)
	f := newFixture()
	f.put("a", wireRedirect("b"))
	f.put("b", wireRedirect("c"))
	f.put("c", `{"v":1}`)

	out, led := f.eng.Materialize(f.load("a"), schema.Minimal())
	cAtt := f.load("c")
	assert.True(out == cAtt.Value)
	assert.ElementsMatch([]string{
		entity.JSONAt(docID("a")).Key(),
		entity.JSONAt(docID("b")).Key(),
		entity.JSONAt(docID("c")).Key(),
	}, led.Keys())
	assert.Equal(3, f.store.Reads)
}

func TestMaterializeSameDocAlias(t *testing.T) {
	assert := assert.New(t)
	f := newFixture()
	f.put("doc", fmt.Sprintf(`{"x":{"deep":7},"alias":%s}`, wireSelfLink("x", "deep")))

	out, _ := f.eng.Materialize(f.load("doc"), schema.Minimal())
	alias, _ := out.Get("alias")
	assert.True(value.MustDecode([]byte(`7`)).Equals(alias))
	assert.Equal(1, f.store.Reads)
}

func TestMaterializeLinkTargetPath(t *testing.T) {
	assert := assert.New(t)
	f := newFixture()
	f.put("a", fmt.Sprintf(`{"deep":%s}`, wireLink("x", "items", "1")))
	f.put("x", `{"items":["a","b"]}`)

	out, _ := f.eng.Materialize(f.load("a"), schema.Minimal())
	deep, _ := out.Get("deep")
	assert.Equal("b", deep.Str())
}

func TestMaterializeSelectorThroughLink(t *testing.T) {
	assert := assert.New(t)
	f := newFixture()
	f.put("a", fmt.Sprintf(`{"ref":%s}`, wireLink("x")))
	f.put("x", `{"items":["a","b"]}`)

	out, led := f.eng.Materialize(f.load("a"), selectorAt("/ref/items/0", ""))
	assert.Equal("a", out.Str())

	// The hop rebases the selector into the target document.
	sels := led.Selectors(entity.JSONAt(docID("x")).Key())
	assert.Len(sels, 1)
	assert.True(sels[0].Path.Equals(entity.ParsePath("/items/0")))
}

func TestMaterializeLinkUnderConstraint(t *testing.T) {
	assert := assert.New(t)
	f := newFixture()
	f.put("a", fmt.Sprintf(`{"p":%s}`, wireLink("str")))
	f.put("b", fmt.Sprintf(`{"p":%s}`, wireLink("num")))
	f.put("str", `"s"`)
	f.put("num", `42`)
	sch := `{"type":"object","properties":{"p":{"type":"string"}},"required":["p"]}`

	out, _ := f.eng.Materialize(f.load("a"), selectorAt("", sch))
	assert.True(value.MustDecode([]byte(`{"p":"s"}`)).Equals(out))

	// The resolved target fails the property schema; required then sinks
	// the object.
	out, _ = f.eng.Materialize(f.load("b"), selectorAt("", sch))
	assert.Nil(out)
}

func TestMaterializeAttachedLinkSchema(t *testing.T) {
	assert := assert.New(t)
	f := newFixture()
	f.put("nums", fmt.Sprintf(`[%s]`, wireSchemaLink("five", `{"type":"number"}`)))
	f.put("strs", fmt.Sprintf(`[%s]`, wireSchemaLink("word", `{"type":"number"}`)))
	f.put("five", `5`)
	f.put("word", `"w"`)

	out, _ := f.eng.Materialize(f.load("nums"), schema.Minimal())
	assert.True(value.MustDecode([]byte(`[5]`)).Equals(out))

	// The attached schema rejects the target; inside an unconstrained
	// rebuild that dereference degrades to null.
	out, _ = f.eng.Materialize(f.load("strs"), schema.Minimal())
	assert.True(value.MustDecode([]byte(`[null]`)).Equals(out))
}

func TestMaterializeBrokenLinkUnconstrained(t *testing.T) {
	assert := assert.New(t)
	f := newFixture()
	f.put("doc", fmt.Sprintf(`[%s]`, wireLink("ghost")))

	out, _ := f.eng.Materialize(f.load("doc"), schema.Minimal())
	assert.Equal(1, out.Len())
	assert.Equal(value.NullKind, out.Index(0).Kind())
	assert.Equal([]entity.Address{entity.JSONAt(docID("ghost"))}, f.eng.Adapter().Missing())
}

func TestMaterializeMissingUnderConstraint(t *testing.T) {
	assert := assert.New(t)
	f := newFixture()
	f.put("doc", fmt.Sprintf(`{"p":%s}`, wireLink("ghost")))

	out, _ := f.eng.Materialize(f.load("doc"), selectorAt("", `{"type":"object","properties":{"p":{"type":"number"}}}`))
	assert.True(value.MustDecode([]byte(`{}`)).Equals(out))
	assert.Equal(1, f.eng.Adapter().MissingCount())
}

func TestMaterializeDiamond(t *testing.T) {
	assert := assert.New(t)
	f := newFixture()
	f.put("d", fmt.Sprintf(`{"a":%s,"b":%s}`, wireLink("x"), wireLink("x")))
	f.put("x", `{"n":1}`)

	att := f.load("d")
	out, led := f.eng.Materialize(att, schema.Minimal())
	a, _ := out.Get("a")
	b, _ := out.Get("b")
	assert.True(a == b)
	assert.True(a == f.load("x").Value)
	assert.Equal(2, f.store.Reads)
	assert.Len(led.Selectors(entity.JSONAt(docID("x")).Key()), 1)
}

func TestMaterializeDiamondRebuilt(t *testing.T) {
	assert := assert.New(t)
	f := newFixture()
	f.put("d", fmt.Sprintf(`{"a":%s,"b":%s}`, wireLink("x"), wireLink("x")))
	f.put("x", `{"n":1,"s":"drop"}`)

	inner := `{"type":"object","properties":{"n":{"type":"number"}},"additionalProperties":false}`
	sch := fmt.Sprintf(`{"type":"object","properties":{"a":%s,"b":%s}}`, inner, inner)
	out, _ := f.eng.Materialize(f.load("d"), selectorAt("", sch))

	// Both arms rebuild x under fingerprint-equal contexts, so the memo
	// makes them the same node.
	a, _ := out.Get("a")
	b, _ := out.Get("b")
	assert.True(value.MustDecode([]byte(`{"n":1}`)).Equals(a))
	assert.True(a == b)
}

func TestMaterializeDistinctSelectorsLedgerSeparately(t *testing.T) {
	assert := assert.New(t)
	f := newFixture()
	f.put("d", fmt.Sprintf(`{"a":%s,"b":%s}`, wireLink("x"), wireLink("x")))
	f.put("x", `5`)

	sch := `{"type":"object","properties":{"a":{"type":"number"},"b":{"type":"string"}}}`
	_, led := f.eng.Materialize(f.load("d"), selectorAt("", sch))
	assert.Len(led.Selectors(entity.JSONAt(docID("x")).Key()), 2)
}

func TestMaterializeSelfCycle(t *testing.T) {
	assert := assert.New(t)
	f := newFixture()
	f.put("a", fmt.Sprintf(`{"self":%s}`, wireLink("a")))

	out, _ := f.eng.Materialize(f.load("a"), schema.Minimal())
	self, _ := out.Get("self")
	assert.Equal(value.NullKind, self.Kind())
	assert.Equal(1, f.store.Reads)
}

func TestMaterializeCrossDocCycle(t *testing.T) {
	assert := assert.New(t)
	f := newFixture()
	f.put("a", fmt.Sprintf(`{"next":%s}`, wireLink("b")))
	f.put("b", fmt.Sprintf(`{"next":%s}`, wireLink("a")))

	out, _ := f.eng.Materialize(f.load("a"), schema.Minimal())
	assert.True(value.MustDecode([]byte(`{"next":{"next":null}}`)).Equals(out))
}

func TestMaterializeCycleDistinctContexts(t *testing.T) {
	assert := assert.New(t)
	f := newFixture()
	f.put("a", fmt.Sprintf(`{"n":1,"loop":%s}`, wireSchemaLink("a", `{"type":"object","properties":{"n":{"type":"number"}},"additionalProperties":false}`)))

	// The second visit runs under a different schema context, so it is a
	// narrowing revisit, not a cycle; the guard only cuts the repeat pair.
	out, _ := f.eng.Materialize(f.load("a"), schema.Minimal())
	loop, _ := out.Get("loop")
	assert.Equal(value.MapKind, loop.Kind())
	inner, ok := loop.Get("n")
	assert.True(ok)
	assert.True(value.MustDecode([]byte(`1`)).Equals(inner))
}

func TestMaterializeNilAttestation(t *testing.T) {
	assert := assert.New(t)
	f := newFixture()

	out, led := f.eng.Materialize(f.load("never-stored"), schema.Minimal())
	assert.Nil(out)
	assert.Equal(0, led.Len())
	assert.Equal(1, f.eng.Adapter().MissingCount())
}

func TestMaterializeRetraction(t *testing.T) {
	assert := assert.New(t)
	f := newFixture()
	addr := f.put("doc", `{"v":1}`)
	prev := f.store.MemoryStore.Get(addr)
	f.store.MemoryStore.Put(addr, storage.NextRevision(prev, nil))

	out, _ := f.eng.Materialize(f.load("doc"), schema.Minimal())
	assert.Nil(out)
	assert.Equal(1, f.eng.Adapter().MissingCount())
}

func TestEngineReset(t *testing.T) {
	assert := assert.New(t)
	f := newFixture()
	f.put("doc", `{"a":[1,2]}`)

	r1, _ := f.eng.Materialize(f.load("doc"), schema.Minimal())
	f.eng.Reset()
	r2, _ := f.eng.Materialize(f.load("doc"), schema.Minimal())
	assert.False(r1 == r2)
	assert.True(r1.Equals(r2))
	assert.Equal(2, f.store.Reads)
}
