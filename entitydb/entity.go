/*
 * ReactiveQ
 *
 * Copyright 2026 The ReactiveQ Authors. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package entitydb is a small schema-aware in-memory indexed entity store.

It provides attribute-value-entity (AVE) indexing, composite unique
identities, reference attributes, and a transaction-function primitive
which lets a caller compose several upsert/retract operations so they
commit atomically under one write lock. See Store and Tx.

Readers never block: every DB is an immutable snapshot built on top of
github.com/benbjohnson/immutable persistent maps, so a transaction
builds its result snapshot from copies of the old one and publishes it
with a single atomic swap. Concurrent readers holding an older snapshot
keep seeing it unchanged.
*/
package entitydb

import "fmt"

/*
Attr is the name of an entity attribute.
*/
type Attr string

/*
Entity is a single stored record: an internal id, a kind (the name of
its schema), and a set of attribute values.
*/
type Entity struct {
	id    int64
	kind  string
	attrs map[Attr]interface{}
}

/*
ID returns the internal entity id.
*/
func (e *Entity) ID() int64 {
	return e.id
}

/*
Kind returns the entity's kind name.
*/
func (e *Entity) Kind() string {
	return e.kind
}

/*
Attr returns the value of an attribute or nil if it is not set.
*/
func (e *Entity) Attr(a Attr) interface{} {
	if e.attrs == nil {
		return nil
	}
	return e.attrs[a]
}

/*
Attrs returns a copy of all attribute values of this entity.
*/
func (e *Entity) Attrs() map[Attr]interface{} {
	out := make(map[Attr]interface{}, len(e.attrs))
	for k, v := range e.attrs {
		out[k] = v
	}
	return out
}

/*
String returns a human-readable representation of this entity.
*/
func (e *Entity) String() string {
	return fmt.Sprintf("%v#%v%v", e.kind, e.id, e.attrs)
}

/*
merged returns a copy of this entity with attrs merged in (nil values
remove the attribute, mirroring the teacher's Node.SetAttr convention).
*/
func (e *Entity) merged(attrs map[Attr]interface{}) *Entity {
	newAttrs := make(map[Attr]interface{}, len(e.attrs)+len(attrs))
	for k, v := range e.attrs {
		newAttrs[k] = v
	}
	for k, v := range attrs {
		if v == nil {
			delete(newAttrs, k)
		} else {
			newAttrs[k] = v
		}
	}
	return &Entity{id: e.id, kind: e.kind, attrs: newAttrs}
}

/*
Lookup selects a single entity either by internal id or by the values
of a kind's declared unique key.
*/
type Lookup struct {
	ID       int64
	Kind     string
	KeyVals  []interface{} // values for the kind's UniqueKey, in declared order
	ByID     bool
}

/*
ByID builds a Lookup for an internal entity id.
*/
func ByID(id int64) Lookup {
	return Lookup{ID: id, ByID: true}
}

/*
ByKey builds a Lookup for a kind's declared unique key.
*/
func ByKey(kind string, vals ...interface{}) Lookup {
	return Lookup{Kind: kind, KeyVals: vals}
}
