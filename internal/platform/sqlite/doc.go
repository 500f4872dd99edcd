// Package sqlite implements the store interfaces on an embedded SQLite database
// through the pure-Go modernc.org/sqlite driver.
//
// It backs local development, single-node deployments and the service tests.
// The schema is created on Open and mirrors the PostgreSQL migrations; instants
// are stored as fixed-width UTC text.
package sqlite
