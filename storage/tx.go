package storage

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/commontoolsinc/labs-sub005/d"
	"github.com/commontoolsinc/labs-sub005/entity"
)

// ErrConflict aborts a commit whose reads went stale underneath it.
var ErrConflict = errors.New("transaction conflict: stale read")

type readMark struct {
	addr    entity.Address
	version string
}

// Tx is a write-buffering overlay on a Store. Reads see the overlay first
// and remember the base version they observed; Commit re-checks those
// versions and applies the buffered writes in order. Tx itself satisfies
// Store, so an Adapter can sit directly on top of an open transaction.
type Tx struct {
	id     string
	base   Store
	writes map[string]Revision
	order  []string
	reads  map[string]readMark
	done   bool
}

func Begin(base Store) *Tx {
	return &Tx{
		id:     uuid.New().String(),
		base:   base,
		writes: map[string]Revision{},
		reads:  map[string]readMark{},
	}
}

func (tx *Tx) ID() string {
	return tx.id
}

func (tx *Tx) Get(addr entity.Address) Revision {
	d.Chk.False(tx.done, "transaction %s is finished", tx.id)
	key := addr.Key()
	if rev, ok := tx.writes[key]; ok {
		return rev
	}
	rev := tx.base.Get(addr)
	if _, seen := tx.reads[key]; !seen {
		tx.reads[key] = readMark{addr: addr, version: rev.Version}
	}
	return rev
}

func (tx *Tx) Put(addr entity.Address, rev Revision) {
	d.Chk.False(tx.done, "transaction %s is finished", tx.id)
	d.Chk.False(rev.IsZero())
	key := addr.Key()
	if _, ok := tx.writes[key]; !ok {
		tx.order = append(tx.order, key)
	}
	tx.writes[key] = rev
}

func (tx *Tx) Has(addr entity.Address) bool {
	return !tx.Get(addr).IsZero()
}

// Commit validates recorded reads against the base store and applies the
// buffered writes. A version moved underneath us returns ErrConflict and
// leaves the base untouched.
func (tx *Tx) Commit() error {
	d.Chk.False(tx.done, "transaction %s is finished", tx.id)
	tx.done = true
	for key, mark := range tx.reads {
		if cur := tx.base.Get(mark.addr); cur.Version != mark.version {
			return errors.Wrapf(ErrConflict, "%s changed during transaction %s", key, tx.id)
		}
	}
	for _, key := range tx.order {
		addr, ok := entity.ParseKey(key)
		d.Chk.True(ok)
		tx.base.Put(addr, tx.writes[key])
	}
	return nil
}

// Rollback discards the buffered writes.
func (tx *Tx) Rollback() {
	tx.done = true
	tx.writes = map[string]Revision{}
	tx.order = nil
}

// Close rolls back an uncommitted transaction.
func (tx *Tx) Close() error {
	if !tx.done {
		tx.Rollback()
	}
	return nil
}
