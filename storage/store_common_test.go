package storage

import (
	"github.com/stretchr/testify/suite"

	"github.com/commontoolsinc/labs-sub005/entity"
	"github.com/commontoolsinc/labs-sub005/value"
)

// StoreTestSuite runs against every Store backend. Embedders assign Store in
// SetupTest.
type StoreTestSuite struct {
	suite.Suite
	Store Store
}

func testAddr(name string) entity.Address {
	return entity.JSONAt(entity.DeriveIDFromString(name))
}

func (suite *StoreTestSuite) TestStorePutGet() {
	addr := testAddr("counter")
	v := value.MustDecode([]byte(`{"value":41,"label":"meaning"}`))
	rev := NextRevision(Revision{}, v)

	suite.False(suite.Store.Has(addr))
	suite.Store.Put(addr, rev)
	suite.True(suite.Store.Has(addr))

	got := suite.Store.Get(addr)
	suite.Equal(rev.Version, got.Version)
	suite.True(v.Equals(got.Value))
	suite.Equal(string(v.Encode()), string(got.Value.Encode()))
}

func (suite *StoreTestSuite) TestStoreAbsent() {
	addr := testAddr("never written")
	suite.False(suite.Store.Has(addr))
	suite.True(suite.Store.Get(addr).IsZero())
}

func (suite *StoreTestSuite) TestStoreOverwrite() {
	addr := testAddr("doc")
	first := NextRevision(Revision{}, value.MustDecode([]byte(`1`)))
	second := NextRevision(first, value.MustDecode([]byte(`2`)))
	suite.NotEqual(first.Version, second.Version)

	suite.Store.Put(addr, first)
	suite.Store.Put(addr, second)

	got := suite.Store.Get(addr)
	suite.Equal(second.Version, got.Version)
	suite.Equal("2", string(got.Value.Encode()))
}

func (suite *StoreTestSuite) TestStoreRetraction() {
	addr := testAddr("to retract")
	first := NextRevision(Revision{}, value.MustDecode([]byte(`{"gone":false}`)))
	retract := NextRevision(first, nil)
	suite.Store.Put(addr, first)
	suite.Store.Put(addr, retract)

	got := suite.Store.Get(addr)
	suite.True(got.IsRetraction())
	suite.Equal(retract.Version, got.Version)
	suite.True(suite.Store.Has(addr))
}

func (suite *StoreTestSuite) TestStoreMediaTypesDistinct() {
	id := entity.DeriveIDFromString("dual")
	doc := entity.Address{ID: id, MediaType: entity.MediaTypeJSON}
	recipe := entity.Address{ID: id, MediaType: entity.MediaTypeRecipe}

	suite.Store.Put(doc, NextRevision(Revision{}, value.MustDecode([]byte(`"doc"`))))
	suite.False(suite.Store.Has(recipe))

	suite.Store.Put(recipe, NextRevision(Revision{}, value.MustDecode([]byte(`"recipe"`))))
	suite.Equal(`"doc"`, string(suite.Store.Get(doc).Value.Encode()))
	suite.Equal(`"recipe"`, string(suite.Store.Get(recipe).Value.Encode()))
}

func (suite *StoreTestSuite) TestStoreLinksSurvive() {
	addr := testAddr("holder")
	raw := `{"ptr":{"/":{"link@0.1":{"id":"of:0123456789abcdefghijklmnopqrstuv","path":["a","b"]}}}}`
	v := value.MustDecode([]byte(raw))
	suite.True(v.ContainsLink())

	suite.Store.Put(addr, NextRevision(Revision{}, v))
	got := suite.Store.Get(addr)
	suite.True(got.Value.ContainsLink())
	suite.Equal(raw, string(got.Value.Encode()))
}
