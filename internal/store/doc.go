// Package store provides the SQLite-backed persistence gateway for fixtures.
//
// The store is a small unit of work over a single entities table:
//   - Persist stages an entity (assigning a key on first persist)
//   - Remove stages a deletion
//   - Flush writes every staged change in one transaction
//   - Clear detaches every managed entity and drops unflushed changes
//   - FindOne looks in managed entities first, then in committed rows
//
// # Identity
//
// Each entity is stored once under its key. Within one unit of work FindOne
// returns the same instance for the same key, so an entity staged but not
// yet flushed is still found by its criteria. This is what keeps a bulk
// provision from creating the same identifier twice before its commit.
//
// # Ordering
//
// Every flushed write is stamped with a logical revision from Clock, never a
// timestamp. Queries order by revision ASC, id ASC so results are identical
// across runs with deterministic keys.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
