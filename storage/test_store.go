package storage

import "github.com/commontoolsinc/labs-sub005/entity"

// TestStore is a MemoryStore that counts its traffic, so tests can assert
// how often the layers above actually hit the backend.
type TestStore struct {
	MemoryStore
	Reads  int
	Writes int
}

func NewTestStore() *TestStore {
	return &TestStore{MemoryStore: MemoryStore{data: map[string]Revision{}}}
}

func (ts *TestStore) Get(addr entity.Address) Revision {
	ts.Reads++
	return ts.MemoryStore.Get(addr)
}

func (ts *TestStore) Put(addr entity.Address, rev Revision) {
	ts.Writes++
	ts.MemoryStore.Put(addr, rev)
}
