package storage

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/commontoolsinc/labs-sub005/constants"
	"github.com/commontoolsinc/labs-sub005/d"
	"github.com/commontoolsinc/labs-sub005/value"
)

func TestRemoteStoreTestSuite(t *testing.T) {
	suite.Run(t, &RemoteStoreTestSuite{})
}

// RemoteStoreTestSuite runs the common Store tests through a real HTTP
// round-trip: RemoteStore -> Server -> MemoryStore.
type RemoteStoreTestSuite struct {
	StoreTestSuite
	backing *MemoryStore
	srv     *httptest.Server
}

func (suite *RemoteStoreTestSuite) SetupTest() {
	suite.backing = NewMemoryStore()
	suite.srv = httptest.NewServer(NewServer(suite.backing, 0).Handler())
	suite.Store = NewRemoteStore(suite.srv.URL)
}

func (suite *RemoteStoreTestSuite) TearDownTest() {
	suite.Store.Close()
	suite.srv.Close()
	suite.backing.Close()
}

func snappyBody(data []byte) *bytes.Buffer {
	buf := &bytes.Buffer{}
	sw := snappy.NewBufferedWriter(buf)
	sw.Write(data)
	sw.Close()
	return buf
}

func serverFixture(t *testing.T) (*MemoryStore, *httptest.Server) {
	backing := NewMemoryStore()
	srv := httptest.NewServer(NewServer(backing, 0).Handler())
	t.Cleanup(func() {
		srv.Close()
		backing.Close()
	})
	return backing, srv
}

func TestServerVersionSkew(t *testing.T) {
	assert := assert.New(t)
	_, srv := serverFixture(t)

	req, err := http.NewRequest("GET", srv.URL+constants.EntityPath+testAddr("x").Key(), nil)
	assert.NoError(err)
	req.Header.Set(constants.VersionHeader, "999")
	res, err := http.DefaultClient.Do(req)
	assert.NoError(err)
	defer res.Body.Close()

	assert.Equal(http.StatusBadRequest, res.StatusCode)
	assert.Equal(constants.Version, res.Header.Get(constants.VersionHeader))
}

func TestServerGetStatuses(t *testing.T) {
	assert := assert.New(t)
	backing, srv := serverFixture(t)

	absent := testAddr("absent")
	res, err := http.Get(srv.URL + constants.EntityPath + absent.Key())
	assert.NoError(err)
	res.Body.Close()
	assert.Equal(http.StatusNotFound, res.StatusCode)

	retracted := testAddr("retracted")
	rev := NextRevision(NextRevision(Revision{}, value.MustDecode([]byte(`1`))), nil)
	backing.Put(retracted, rev)
	res, err = http.Get(srv.URL + constants.EntityPath + retracted.Key())
	assert.NoError(err)
	body, _ := ioutil.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(http.StatusNoContent, res.StatusCode)
	assert.Equal(rev.Version, res.Header.Get(constants.RevisionHeader))
	assert.Len(body, 0)

	present := testAddr("present")
	rev = NextRevision(Revision{}, value.MustDecode([]byte(`{"ok":true}`)))
	backing.Put(present, rev)
	res, err = http.Get(srv.URL + constants.EntityPath + present.Key())
	assert.NoError(err)
	payload, err := ioutil.ReadAll(snappy.NewReader(res.Body))
	res.Body.Close()
	assert.NoError(err)
	assert.Equal(http.StatusOK, res.StatusCode)
	assert.Equal(rev.Version, res.Header.Get(constants.RevisionHeader))
	assert.Equal(`{"ok":true}`, string(payload))
}

func TestServerPutPrecondition(t *testing.T) {
	assert := assert.New(t)
	backing, srv := serverFixture(t)

	addr := testAddr("guarded")
	first := NextRevision(Revision{}, value.MustDecode([]byte(`1`)))
	backing.Put(addr, first)

	// Chaining from the current version succeeds.
	req, err := http.NewRequest("PUT", srv.URL+constants.EntityPath+addr.Key(), snappyBody([]byte(`2`)))
	assert.NoError(err)
	req.Header.Set(constants.RevisionHeader, first.Version)
	res, err := http.DefaultClient.Do(req)
	assert.NoError(err)
	res.Body.Close()
	assert.Equal(http.StatusCreated, res.StatusCode)
	second := backing.Get(addr)
	assert.Equal(res.Header.Get(constants.RevisionHeader), second.Version)
	assert.Equal(`2`, string(second.Value.Encode()))

	// Chaining from a stale version is rejected with the current one.
	req, err = http.NewRequest("PUT", srv.URL+constants.EntityPath+addr.Key(), snappyBody([]byte(`3`)))
	assert.NoError(err)
	req.Header.Set(constants.RevisionHeader, first.Version)
	res, err = http.DefaultClient.Do(req)
	assert.NoError(err)
	res.Body.Close()
	assert.Equal(http.StatusConflict, res.StatusCode)
	assert.Equal(second.Version, res.Header.Get(constants.RevisionHeader))
	assert.Equal(`2`, string(backing.Get(addr).Value.Encode()))
}

func TestServerRejectsBadID(t *testing.T) {
	assert := assert.New(t)
	_, srv := serverFixture(t)

	res, err := http.Get(srv.URL + constants.EntityPath + "bogus/application/json")
	assert.NoError(err)
	body, _ := ioutil.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(http.StatusBadRequest, res.StatusCode)
	assert.Contains(string(body), "invalid entity id")
}

func TestServerStats(t *testing.T) {
	assert := assert.New(t)
	backing, srv := serverFixture(t)
	backing.Put(testAddr("one"), NextRevision(Revision{}, value.MustDecode([]byte(`1`))))

	res, err := http.Get(srv.URL + constants.StatsPath)
	assert.NoError(err)
	defer res.Body.Close()
	assert.Equal(http.StatusOK, res.StatusCode)

	st := Stats{}
	assert.NoError(json.NewDecoder(res.Body).Decode(&st))
	assert.Equal(uint64(1), st.Entries)
	assert.True(st.Bytes > 0)
}

func TestRemoteStorePutDivergence(t *testing.T) {
	assert := assert.New(t)
	backing, srv := serverFixture(t)
	remote := NewRemoteStore(srv.URL)
	defer remote.Close()

	addr := testAddr("diverging")
	backing.Put(addr, NextRevision(Revision{}, value.MustDecode([]byte(`"remote wins"`))))

	// A revision chained from a different history is rejected before
	// anything reaches the backing store.
	stale := NextRevision(Revision{}, value.MustDecode([]byte(`"local"`)))
	err := d.Try(func() { remote.Put(addr, stale) })
	assert.Error(err)
	assert.Contains(err.Error(), "remote is at")
	assert.Equal(`"remote wins"`, string(backing.Get(addr).Value.Encode()))
}

func TestNewRemoteStoreValidation(t *testing.T) {
	assert := assert.New(t)
	assert.Error(d.Try(func() { NewRemoteStore("ldb:/tmp/nope") }))
	assert.Error(d.Try(func() { NewRemoteStore("http://host?x=1") }))
	assert.NoError(d.Try(func() { NewRemoteStore("https://cells.example.com/base/") }))
}
