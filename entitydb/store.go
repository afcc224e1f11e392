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
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/krotik/common/logutil"

	"devt.de/krotik/reactiveq/tracing"
)

var log = logutil.GetLogger("reactiveq.entitydb")

/*
Store is the process-wide indexed entity database. Writes are
serialized through Transact; reads run lock-free against an
atomically-published immutable DB snapshot.
*/
type Store struct {
	schema  *Schema
	mu      sync.Mutex
	current atomic.Value // *DB
	tracer  tracing.Tracer
}

/*
Option configures a Store at construction time.
*/
type Option func(*Store)

/*
WithTracer overrides the default tracer, which is tracing.GlobalTracer
as it stands when NewStore is called (a no-op tracer unless
tracing.SetGlobalTracer was used).
*/
func WithTracer(t tracing.Tracer) Option {
	return func(s *Store) {
		s.tracer = t
	}
}

/*
NewStore creates a new, empty Store for the given schema.
*/
func NewStore(schema *Schema, opts ...Option) *Store {
	s := &Store{schema: schema, tracer: tracing.GlobalTracer}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(newEmptyDB(schema))
	log.Info("entitydb store initialized")
	return s
}

/*
Stop releases the store. The handle must not be used afterwards;
Restart is Stop followed by a fresh NewStore.
*/
func (s *Store) Stop() {
	log.Info("entitydb store stopped")
}

/*
Snapshot returns the current published DB. Calling this never blocks.
*/
func (s *Store) Snapshot() *DB {
	return s.current.Load().(*DB)
}

/*
TxFunc is a transaction function: a closure which inspects the
pre-transaction db (via the Tx methods, which read tx's own working
copy so later calls see earlier calls' effects) and stages upserts,
updates, and retracts. All staged ops commit atomically when TxFunc
returns nil, or are discarded entirely if it returns an error.
*/
type TxFunc func(tx *Tx) error

/*
TxResult carries the db snapshots observed before and after a
transaction. db_before is stable even though db_after has already
superseded it: reference targets resolved against Before never
disappear out from under a reader mid-computation.
*/
type TxResult struct {
	Before *DB
	After  *DB
}

/*
Transact runs fn under the write lock and, if it succeeds, atomically
publishes the resulting snapshot. Each call is totally ordered with
respect to every other Transact call.
*/
func (s *Store) Transact(ctx context.Context, tag string, fn TxFunc) (TxResult, error) {
	span, _ := s.tracer.StartSpanFromContext(ctx, "entitydb.transact."+tag)
	defer span.Finish()

	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.Snapshot()
	tx := &Tx{schema: s.schema, base: before, cur: before}

	if err := fn(tx); err != nil {
		span.LogKV("error", err.Error())
		return TxResult{}, err
	}

	s.current.Store(tx.cur)

	return TxResult{Before: before, After: tx.cur}, nil
}

/*
Tx is the mutable staging handle passed to a TxFunc. Reads against Tx
see the cumulative effect of every op staged so far in the same
transaction; Before() always returns the untouched pre-transaction
snapshot, which is what reference resolution must use once later steps
may have retracted the referenced entity (see the invalidator, §4.6).
*/
type Tx struct {
	schema *Schema
	base   *DB
	cur    *DB
}

/*
Before returns the snapshot as it was before this transaction began.
*/
func (tx *Tx) Before() *DB {
	return tx.base
}

/*
Tick advances the store's logical clock by one and returns the new
value. It is a deterministic stand-in for wall-clock timestamps on
purely instrumentational fields (e.g. created_at), so that replaying
the same sequence of transactions always produces the same values.
*/
func (tx *Tx) Tick() int64 {
	next := *tx.cur
	next.clock++
	tx.cur = &next
	return next.clock
}

/*
Entity looks up a single entity against the transaction's working set.
*/
func (tx *Tx) Entity(l Lookup) (*Entity, bool) {
	return tx.cur.Entity(l)
}

/*
Kind returns every live entity of a kind in the working set.
*/
func (tx *Tx) Kind(kind string) []*Entity {
	return tx.cur.Kind(kind)
}

/*
Datoms returns every entity of a kind matching an indexed attribute
value in the working set.
*/
func (tx *Tx) Datoms(kind string, attr Attr, value interface{}) []*Entity {
	return tx.cur.Datoms(kind, attr, value)
}

/*
Referrers returns every entity in the working set with a Ref
attribute pointing at id.
*/
func (tx *Tx) Referrers(id int64) []*Entity {
	return tx.cur.Referrers(id)
}

/*
Query runs a conjunctive attribute match against the working set.
*/
func (tx *Tx) Query(kind string, match map[Attr]interface{}) []*Entity {
	return tx.cur.Query(kind, match)
}

/*
Upsert finds-or-creates an entity of kind by the values of its
declared unique key within attrs, merging attrs into any existing
entity (nil values remove an attribute). It returns the resulting
entity and whether it was newly created.
*/
func (tx *Tx) Upsert(kind string, attrs map[Attr]interface{}) (*Entity, bool, error) {
	ks, ok := tx.schema.Kinds[kind]
	if !ok {
		return nil, false, &StoreError{Type: ErrNotFound, Detail: "unknown kind " + kind}
	}

	if len(ks.UniqueKey) > 0 {
		vals := make([]interface{}, len(ks.UniqueKey))
		for i, a := range ks.UniqueKey {
			vals[i] = attrs[a]
		}

		if existing, ok := tx.cur.Entity(ByKey(kind, vals...)); ok {
			merged := existing.merged(attrs)
			tx.cur = tx.cur.withPut(merged, existing)
			return merged, false, nil
		}
	}

	id := tx.cur.nextID
	e := (&Entity{id: id, kind: kind, attrs: map[Attr]interface{}{}}).merged(attrs)
	next := tx.cur.withPut(e, nil)
	next.nextID = id + 1
	tx.cur = next

	return e, true, nil
}

/*
Update merges attrs into an existing entity. It returns ErrNotFound if
the entity does not exist.
*/
func (tx *Tx) Update(id int64, attrs map[Attr]interface{}) error {
	e, ok := tx.cur.Entity(ByID(id))
	if !ok {
		return &StoreError{Type: ErrNotFound, Detail: fmt.Sprintf("entity %d", id)}
	}

	tx.cur = tx.cur.withPut(e.merged(attrs), e)
	return nil
}

/*
Retract removes an entity. It is a no-op if the entity does not exist,
matching the idempotent-removal law in spec.md §8.
*/
func (tx *Tx) Retract(id int64) error {
	e, ok := tx.cur.Entity(ByID(id))
	if !ok {
		return nil
	}

	tx.cur = tx.cur.withRetract(e)
	return nil
}
