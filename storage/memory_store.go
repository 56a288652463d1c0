package storage

import (
	"sync"

	"github.com/commontoolsinc/labs-sub005/d"
	"github.com/commontoolsinc/labs-sub005/entity"
)

// MemoryStore keeps revisions in a map. It is the reference Store and the
// default backing for tests and scratch replicas.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Revision
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]Revision{}}
}

func (ms *MemoryStore) Get(addr entity.Address) Revision {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.data[addr.Key()]
}

func (ms *MemoryStore) Put(addr entity.Address, rev Revision) {
	d.Chk.False(addr.IsEmpty())
	d.Chk.False(rev.IsZero())
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.data[addr.Key()] = rev
}

func (ms *MemoryStore) Has(addr entity.Address) bool {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	_, ok := ms.data[addr.Key()]
	return ok
}

func (ms *MemoryStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.data)
}

// Keys returns every stored key; order is unspecified.
func (ms *MemoryStore) Keys() []string {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	keys := make([]string, 0, len(ms.data))
	for k := range ms.data {
		keys = append(keys, k)
	}
	return keys
}

func (ms *MemoryStore) Stats() Stats {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	st := Stats{Entries: uint64(len(ms.data))}
	for _, rev := range ms.data {
		st.Bytes += uint64(len(rev.Version))
		if rev.Value != nil {
			st.Bytes += uint64(len(rev.Value.Encode()))
		}
	}
	return st
}

func (ms *MemoryStore) Close() error {
	return nil
}
