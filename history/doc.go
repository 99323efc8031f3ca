// Package history provides the cross-session selector learning cache.
//
// The store maps (site origin, normalized target description) to the selector
// that last worked there and its success count. Ranking reads it to boost
// previously proven selectors; the execution engine upserts it when a step
// succeeds. Concurrent upserts from distinct sessions are resolved
// last-writer-wins per key; there are no cross-key invariants.
//
// Supported backends:
//   - Memory: for development and testing (default)
//   - File: JSON document for single-node deployments
//   - Redis: for deployments sharing the cache across hosts
//   - SQL: sqlite/postgres/mysql via GORM
//   - Mongo: document store with atomic per-key upsert
package history
