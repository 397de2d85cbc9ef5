// Package store provides SQLite-backed durable storage for tracked spaces.
//
// The store is a single collection keyed by space id:
//   - spaces: one row per tracked space, with its peer ids and the last
//     synchronized (specified) airflow values
//
// # Store Semantics
//
// The store is a plain keyed collection. It does not know that connections
// are symmetric: Delete removes one row and leaves peers untouched, Update
// replaces whatever peer list it is given. Keeping edges symmetric and free of
// dangling references is the job of the relationship engine (internal/relate).
//
// The backing file is created lazily on the first write. Reads against a
// store whose file was never created report "not tracked" without error.
//
// Peer ids are stored as a sorted JSON array so that the same peer set always
// serializes to the same text.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// A Store holds exactly one connection. Callers serialize access; two Store
// values must not have the same file open at the same time.
package store
