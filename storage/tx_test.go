package storage

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/commontoolsinc/labs-sub005/value"
)

func TestTxCommit(t *testing.T) {
	assert := assert.New(t)
	ms := NewMemoryStore()
	addr := testAddr("doc")
	ms.Put(addr, NextRevision(Revision{}, value.MustDecode([]byte(`{"n":1}`))))

	tx := Begin(ms)
	assert.NotEmpty(tx.ID())

	cur := tx.Get(addr)
	next := NextRevision(cur, value.MustDecode([]byte(`{"n":2}`)))
	tx.Put(addr, next)

	// The overlay sees the write, the base does not yet.
	assert.Equal(next.Version, tx.Get(addr).Version)
	assert.Equal(`{"n":1}`, string(ms.Get(addr).Value.Encode()))

	assert.NoError(tx.Commit())
	assert.Equal(`{"n":2}`, string(ms.Get(addr).Value.Encode()))
	assert.NoError(tx.Close())
}

func TestTxConflict(t *testing.T) {
	assert := assert.New(t)
	ms := NewMemoryStore()
	addr := testAddr("contended")
	first := NextRevision(Revision{}, value.MustDecode([]byte(`1`)))
	ms.Put(addr, first)

	tx := Begin(ms)
	cur := tx.Get(addr)
	tx.Put(addr, NextRevision(cur, value.MustDecode([]byte(`2`))))

	// Another writer moves the document between read and commit.
	ms.Put(addr, NextRevision(first, value.MustDecode([]byte(`99`))))

	err := tx.Commit()
	assert.Error(err)
	assert.Equal(ErrConflict, errors.Cause(err))
	assert.Contains(err.Error(), addr.Key())
	// Nothing from the failed transaction landed.
	assert.Equal(`99`, string(ms.Get(addr).Value.Encode()))
}

func TestTxReadOfAbsentConflicts(t *testing.T) {
	assert := assert.New(t)
	ms := NewMemoryStore()
	addr := testAddr("created elsewhere")

	tx := Begin(ms)
	assert.True(tx.Get(addr).IsZero())
	tx.Put(addr, NextRevision(Revision{}, value.MustDecode([]byte(`"mine"`))))

	ms.Put(addr, NextRevision(Revision{}, value.MustDecode([]byte(`"theirs"`))))

	err := tx.Commit()
	assert.Error(err)
	assert.Equal(ErrConflict, errors.Cause(err))
	assert.Equal(`"theirs"`, string(ms.Get(addr).Value.Encode()))
}

func TestTxBlindWriteLastWins(t *testing.T) {
	assert := assert.New(t)
	ms := NewMemoryStore()
	addr := testAddr("blind")

	tx := Begin(ms)
	tx.Put(addr, NextRevision(Revision{}, value.MustDecode([]byte(`"tx"`))))
	ms.Put(addr, NextRevision(Revision{}, value.MustDecode([]byte(`"other"`))))

	// A write with no prior read carries no precondition.
	assert.NoError(tx.Commit())
	assert.Equal(`"tx"`, string(ms.Get(addr).Value.Encode()))
}

func TestTxRollback(t *testing.T) {
	assert := assert.New(t)
	ms := NewMemoryStore()
	addr := testAddr("abandoned")

	tx := Begin(ms)
	tx.Put(addr, NextRevision(Revision{}, value.MustDecode([]byte(`1`))))
	assert.True(tx.Has(addr))
	tx.Rollback()
	assert.False(ms.Has(addr))

	// Close without commit also discards.
	tx = Begin(ms)
	tx.Put(addr, NextRevision(Revision{}, value.MustDecode([]byte(`2`))))
	assert.NoError(tx.Close())
	assert.False(ms.Has(addr))
}
