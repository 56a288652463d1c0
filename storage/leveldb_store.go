package storage

import (
	"os"

	"github.com/golang/snappy"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	ldbutil "github.com/syndtr/goleveldb/leveldb/util"

	"github.com/commontoolsinc/labs-sub005/d"
	"github.com/commontoolsinc/labs-sub005/entity"
)

var revPrefix = []byte("/rev/")

func toRevKey(addr entity.Address) []byte {
	key := addr.Key()
	out := make([]byte, 0, len(revPrefix)+len(key))
	out = append(out, revPrefix...)
	return append(out, key...)
}

// LevelDBStore persists revisions in a local LevelDB directory. Revision
// frames are snappy-compressed; LevelDB's own compression stays off.
type LevelDBStore struct {
	db *leveldb.DB
}

func NewLevelDBStore(dir string) *LevelDBStore {
	d.Exp.NotEmpty(dir)
	d.Exp.NoError(os.MkdirAll(dir, 0700))
	db, err := leveldb.OpenFile(dir, &opt.Options{
		Compression: opt.NoCompression,
		Filter:      filter.NewBloomFilter(10), // 10 bits/key
		WriteBuffer: 1 << 24,                   // 16MiB
	})
	d.Chk.NoError(err)
	return &LevelDBStore{db}
}

func (l *LevelDBStore) Get(addr entity.Address) Revision {
	data, err := l.db.Get(toRevKey(addr), nil)
	if err == errors.ErrNotFound {
		return Revision{}
	}
	d.Chk.NoError(err)
	frame, err := snappy.Decode(nil, data)
	d.Chk.NoError(err)
	return decodeRevision(frame)
}

func (l *LevelDBStore) Put(addr entity.Address, rev Revision) {
	d.Chk.False(addr.IsEmpty())
	frame := snappy.Encode(nil, encodeRevision(rev))
	d.Chk.NoError(l.db.Put(toRevKey(addr), frame, nil))
}

func (l *LevelDBStore) Has(addr entity.Address) bool {
	ok, err := l.db.Has(toRevKey(addr), &opt.ReadOptions{DontFillCache: true})
	d.Chk.NoError(err)
	return ok
}

func (l *LevelDBStore) Stats() Stats {
	it := l.db.NewIterator(ldbutil.BytesPrefix(revPrefix), nil)
	defer it.Release()
	st := Stats{}
	for it.Next() {
		st.Entries++
		st.Bytes += uint64(len(it.Value()))
	}
	d.Chk.NoError(it.Error())
	return st
}

func (l *LevelDBStore) Close() error {
	return l.db.Close()
}
