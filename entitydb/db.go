/*
 * ReactiveQ
 *
 * Copyright 2026 The ReactiveQ Authors. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package entitydb

import (
	"fmt"
	"strings"

	"github.com/benbjohnson/immutable"
)

/*
DB is an immutable snapshot of the entity store. All read operations
are lock-free: a DB value never changes after it is built, so readers
holding one can never observe a transaction scheduled after they took
their snapshot.
*/
type DB struct {
	schema *Schema

	entities *immutable.Map // id int64 -> *Entity
	byKind   *immutable.Map // kind string -> *immutable.Map(id int64 -> struct{})
	ave      *immutable.Map // aveKey string -> *immutable.Map(id int64 -> struct{})
	unique   *immutable.Map // uniqueKey string -> id int64
	refs     *immutable.Map // target id int64 -> *immutable.Map(referrer id int64 -> struct{})

	nextID int64
	clock  int64 // logical clock for created_at-style instrumentation
}

func newEmptyDB(schema *Schema) *DB {
	return &DB{
		schema:   schema,
		entities: immutable.NewMap(nil),
		byKind:   immutable.NewMap(nil),
		ave:      immutable.NewMap(nil),
		unique:   immutable.NewMap(nil),
		refs:     immutable.NewMap(nil),
		nextID:   1,
	}
}

func aveKey(kind string, attr Attr, value interface{}) string {
	return kind + "\x00" + string(attr) + "\x00" + fmt.Sprint(value)
}

func uniqueKey(schema *Schema, kind string, vals []interface{}) string {
	ks := schema.Kinds[kind]
	var b strings.Builder
	b.WriteString(kind)
	for i, a := range ks.UniqueKey {
		b.WriteByte(0)
		b.WriteString(string(a))
		b.WriteByte('=')
		if i < len(vals) {
			b.WriteString(fmt.Sprint(vals[i]))
		}
	}
	return b.String()
}

func idSet(m *immutable.Map) []int64 {
	if m == nil {
		return nil
	}
	out := make([]int64, 0, m.Len())
	itr := m.Iterator()
	for !itr.Done() {
		k, _ := itr.Next()
		out = append(out, k.(int64))
	}
	return out
}

func setAdd(m *immutable.Map, id int64) *immutable.Map {
	if m == nil {
		m = immutable.NewMap(nil)
	}
	return m.Set(id, struct{}{})
}

func setRemove(m *immutable.Map, id int64) *immutable.Map {
	if m == nil {
		return nil
	}
	return m.Delete(id)
}

/*
Entity looks up a single entity either by internal id or by a kind's
declared unique key. It returns (nil, false) if no such entity exists.
*/
func (db *DB) Entity(l Lookup) (*Entity, bool) {
	if l.ByID {
		v, ok := db.entities.Get(l.ID)
		if !ok {
			return nil, false
		}
		return v.(*Entity), true
	}

	idv, ok := db.unique.Get(uniqueKey(db.schema, l.Kind, l.KeyVals))
	if !ok {
		return nil, false
	}
	return db.Entity(ByID(idv.(int64)))
}

/*
Kind returns every live entity of a given kind.
*/
func (db *DB) Kind(kind string) []*Entity {
	setv, ok := db.byKind.Get(kind)
	if !ok {
		return nil
	}
	return db.resolve(idSet(setv.(*immutable.Map)))
}

/*
Datoms returns every entity of a kind whose attribute equals the given
value, looked up in the AVE index. Only attributes declared Indexed
are in that index; for any other attribute it returns nil.
*/
func (db *DB) Datoms(kind string, attr Attr, value interface{}) []*Entity {
	setv, ok := db.ave.Get(aveKey(kind, attr, value))
	if !ok {
		return nil
	}
	return db.resolve(idSet(setv.(*immutable.Map)))
}

/*
Referrers returns every entity with a Ref attribute pointing at id.
Used by orphan sweeps to decide whether an entity is still reachable.
*/
func (db *DB) Referrers(id int64) []*Entity {
	setv, ok := db.refs.Get(id)
	if !ok {
		return nil
	}
	return db.resolve(idSet(setv.(*immutable.Map)))
}

/*
Query runs a small conjunctive attribute-value match over one kind: it
seeds candidates from the first indexed attribute found in match (in
map iteration order, not by selectivity), or from every entity of the
kind if none is indexed, and filters the rest in memory. This is the join primitive used
by the subscription graph and the invalidator.
*/
func (db *DB) Query(kind string, match map[Attr]interface{}) []*Entity {
	var candidates []*Entity
	var seedAttr Attr
	seeded := false

	for a, v := range match {
		if db.schema.Kinds[kind].Attrs[a].Indexed {
			candidates = db.Datoms(kind, a, v)
			seedAttr = a
			seeded = true
			break
		}
	}

	if !seeded {
		candidates = db.Kind(kind)
	}

	out := make([]*Entity, 0, len(candidates))
	for _, e := range candidates {
		ok := true
		for a, v := range match {
			if a == seedAttr {
				continue
			}
			if fmt.Sprint(e.Attr(a)) != fmt.Sprint(v) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, e)
		}
	}
	return out
}

func (db *DB) resolve(ids []int64) []*Entity {
	out := make([]*Entity, 0, len(ids))
	for _, id := range ids {
		if v, ok := db.entities.Get(id); ok {
			out = append(out, v.(*Entity))
		}
	}
	return out
}

// Mutation helpers. These never mutate db itself: each returns a new
// DB value built from copy-on-write edits of the persistent maps, which
// is the only way a DB's fields ever change.

func (db *DB) withPut(e *Entity, old *Entity) *DB {
	next := *db
	next.entities = db.entities.Set(e.id, e)
	next.byKind = setKindIndex(db.byKind, e.kind, e.id)

	for _, a := range db.schema.indexedAttrs(e.kind) {
		if old != nil {
			if ov := old.Attr(a); ov != nil {
				next.ave = mapSetDelete(next.ave, aveKey(e.kind, a, ov), old.id)
			}
		}
		if v := e.Attr(a); v != nil {
			next.ave = mapSetAdd(next.ave, aveKey(e.kind, a, v), e.id)
		}
	}

	if len(db.schema.Kinds[e.kind].UniqueKey) > 0 {
		vals := make([]interface{}, len(db.schema.Kinds[e.kind].UniqueKey))
		for i, a := range db.schema.Kinds[e.kind].UniqueKey {
			vals[i] = e.Attr(a)
		}
		next.unique = next.unique.Set(uniqueKey(db.schema, e.kind, vals), e.id)
	}

	for _, a := range db.schema.refAttrs(e.kind) {
		if old != nil {
			if ov, ok := old.Attr(a).(int64); ok {
				next.refs = mapSetDelete(next.refs, ov, old.id)
			}
		}
		if v, ok := e.Attr(a).(int64); ok {
			next.refs = mapSetAdd(next.refs, v, e.id)
		}
	}

	return &next
}

func (db *DB) withRetract(e *Entity) *DB {
	next := *db
	next.entities = db.entities.Delete(e.id)
	next.byKind = mapSetDelete(next.byKind, e.kind, e.id)

	for _, a := range db.schema.indexedAttrs(e.kind) {
		if v := e.Attr(a); v != nil {
			next.ave = mapSetDelete(next.ave, aveKey(e.kind, a, v), e.id)
		}
	}

	if len(db.schema.Kinds[e.kind].UniqueKey) > 0 {
		vals := make([]interface{}, len(db.schema.Kinds[e.kind].UniqueKey))
		for i, a := range db.schema.Kinds[e.kind].UniqueKey {
			vals[i] = e.Attr(a)
		}
		next.unique = next.unique.Delete(uniqueKey(db.schema, e.kind, vals))
	}

	for _, a := range db.schema.refAttrs(e.kind) {
		if v, ok := e.Attr(a).(int64); ok {
			next.refs = mapSetDelete(next.refs, v, e.id)
		}
	}

	return &next
}

func setKindIndex(m *immutable.Map, kind string, id int64) *immutable.Map {
	return mapSetAdd(m, kind, id)
}

/*
mapSetAdd adds id to the id-set stored under key in a map-of-sets.
*/
func mapSetAdd(m *immutable.Map, key interface{}, id int64) *immutable.Map {
	var set *immutable.Map
	if v, ok := m.Get(key); ok {
		set = v.(*immutable.Map)
	}
	return m.Set(key, setAdd(set, id))
}

/*
mapSetDelete removes id from the id-set stored under key in a
map-of-sets, dropping the key entirely once its set is empty.
*/
func mapSetDelete(m *immutable.Map, key interface{}, id int64) *immutable.Map {
	v, ok := m.Get(key)
	if !ok {
		return m
	}
	set := setRemove(v.(*immutable.Map), id)
	if set.Len() == 0 {
		return m.Delete(key)
	}
	return m.Set(key, set)
}
