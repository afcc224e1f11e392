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

/*
AttrSchema declares the indexing behaviour of a single attribute.
*/
type AttrSchema struct {

	/*
	   Indexed attributes get an AVE (attribute-value-entity) index so
	   Datoms() can look entities up by value without a full scan.
	*/
	Indexed bool

	/*
	   Ref marks a reference attribute: its value is the id of another
	   entity. The store maintains a reverse index so orphan sweeps can
	   find every entity still referencing a given id.
	*/
	Ref bool
}

/*
KindSchema declares one entity kind: its attributes and its unique
identity key. A UniqueKey of more than one attribute is a composite
identity - Upsert finds-or-creates atomically by the tuple of values.
*/
type KindSchema struct {
	Name       string
	Attrs      map[Attr]AttrSchema
	UniqueKey  []Attr
}

/*
Schema is the set of kinds known to a Store.
*/
type Schema struct {
	Kinds map[string]KindSchema
}

/*
NewSchema builds a Schema from a list of kind declarations.
*/
func NewSchema(kinds ...KindSchema) *Schema {
	s := &Schema{Kinds: make(map[string]KindSchema, len(kinds))}
	for _, k := range kinds {
		s.Kinds[k.Name] = k
	}
	return s
}

/*
indexedAttrs returns the attributes of a kind which are declared
Indexed.
*/
func (s *Schema) indexedAttrs(kind string) []Attr {
	var out []Attr
	for a, as := range s.Kinds[kind].Attrs {
		if as.Indexed {
			out = append(out, a)
		}
	}
	return out
}

/*
refAttrs returns the attributes of a kind which are declared Ref.
*/
func (s *Schema) refAttrs(kind string) []Attr {
	var out []Attr
	for a, as := range s.Kinds[kind].Attrs {
		if as.Ref {
			out = append(out, a)
		}
	}
	return out
}
