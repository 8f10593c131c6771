// Package harness runs scripted fixture scenarios and checks their outcome.
//
// A scenario is a YAML file listing steps in the same sentence form scenario
// files use, plus count checks on what was committed:
//
//	name: users
//	description: "Provision and assert users"
//	schema:
//	  - entities.cue
//	steps:
//	  - step: a User entity "ann@example.com" with name "Ann"
//	  - step: the following User entities
//	    table:
//	      - [email, name, active]
//	      - [bob@example.com, Bob, "no"]
//	  - entity: {type: User, identifier: cy@example.com, fields: {logins: 3}}
//	  - step: no User entity "ann@example.com"
//	    fails: unexpected_entity
//	counts:
//	  - {type: User, count: 3}
//
// Each run gets a fresh in-memory store with sequential keys, so the trace is
// stable and can be compared against golden files with RunWithGolden.
//
// A step with a fails clause passes only when it fails with that error kind:
// missing_factory, missing_entity, unexpected_entity or expectation.
package harness
