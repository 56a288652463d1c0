// Package storage keeps replica documents: pluggable revision stores, the
// transaction overlay, and the read-through adapter the traversal engine
// loads documents from.
package storage

import "github.com/commontoolsinc/labs-sub005/entity"

// Store is the replica's underlying keyed map from document address to its
// current revision. Lookups of absent documents return the zero Revision;
// backend failures are invariant violations and panic.
//
// Implementations may be shared between goroutines, but the adapter and
// engine above them are synchronous and single-threaded.
type Store interface {
	// Get returns the current revision at addr, zero when absent.
	Get(addr entity.Address) Revision
	// Put replaces the revision at addr.
	Put(addr entity.Address, rev Revision)
	// Has reports presence without decoding.
	Has(addr entity.Address) bool
	Close() error
}

// Stats counts a store's contents.
type Stats struct {
	Entries uint64
	Bytes   uint64
}

// StatsReporter is implemented by stores that can count themselves cheaply.
type StatsReporter interface {
	Stats() Stats
}
