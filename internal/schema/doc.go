// Package schema loads entity declarations written in CUE.
//
// A declaration names the identifier field and the typed fields of an entity:
//
//	entity: Dummy: {
//		identifier: "title"
//		fields: {
//			title:  string
//			active: bool | *true
//			rank:   int
//		}
//	}
//
// Field types are string, int or bool. A CUE default (`*true`) or a concrete
// value becomes the field's initial value on new entities.
package schema
