// Package ir provides the value model shared by entities, field sets and the store.
//
// This package imports nothing internal. Every other package may import it.
//
// Key constraints:
//   - NO float types - numbers are int64
//   - Stored attributes use canonical JSON (sorted keys, NFC strings)
//   - Values compare by type and content; coercion lives in package fixture
package ir
