// Package store defines the persistence contracts for memory cards and review logs.
//
// The interfaces are implemented by the postgres and sqlite platform packages.
// Writers of the same card are serialized in two ways: a KeyLocker held around the
// read-modify-write cycle, and a version check on every MemoryCardStore.Update so
// that a stale snapshot can never overwrite a newer one.
package store
