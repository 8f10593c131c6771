// Package entities provides the concrete entity types and their factories:
// the built-in User and Article, and Record-backed factories for types
// declared in CUE.
package entities
