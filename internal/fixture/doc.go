// Package fixture provisions and checks entities for test scenarios.
//
// A Factory is the per-type policy: how an identifier maps to a stored entity,
// how a fresh entity is built, how all entities of the type are purged and
// which fields can be set. The shared reconciliation logic is a set of package
// functions over that interface:
//
//   - Locate finds an entity, optionally failing with *MissingEntityError
//   - Create builds, applies fields and stages a new entity
//   - Provide is an idempotent upsert by identifier
//   - Matches compares listed fields and reports a Diff
//
// None of these commit. Commit timing belongs to the caller (package steps).
//
// A Manager maps type names to factory constructors and builds a fresh
// factory for every request.
package fixture
