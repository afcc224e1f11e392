/*
 * ReactiveQ
 *
 * Copyright 2026 The ReactiveQ Authors. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package reactiveq

import (
	"context"

	"devt.de/krotik/reactiveq/entitydb"
)

/*
InstaqlCtx identifies an InstaqlQuery at the version a datalog
evaluation or hash update applies to.
*/
type InstaqlCtx struct {
	SessionID string
	Query     interface{}
	V         int64
}

/*
AddInstaqlQueryResult is the result of AddInstaqlQuery.
*/
type AddInstaqlQueryResult struct {
	ResultChanged bool
}

/*
StaleInstaqlQuery is one row of GetStaleInstaqlQueries's result.
*/
type StaleInstaqlQuery struct {
	SessionID  string
	Query      interface{}
	Version    int64
	ReturnType ReturnType
}

/*
BumpInstaqlVersion implements the InstaqlQuery state machine's
absent->fresh and stale->fresh transitions: on first call for a
(session, query) identity it creates the query at version 1; on every
later call it increments the version and clears stale?.
*/
func (s *Store) BumpInstaqlVersion(ctx context.Context, sessionID string, query interface{}, returnType ReturnType) (int64, error) {
	var version int64

	_, err := s.db.Transact(ctx, "bump_instaql_version", func(tx *entitydb.Tx) error {
		existing, ok := tx.Entity(entitydb.ByKey(KindInstaqlQuery, sessionID, query))
		if ok {
			version, _ = existing.Attr(AttrIQVersion).(int64)
			version++
			return tx.Update(existing.ID(), map[entitydb.Attr]interface{}{
				AttrIQVersion: version,
				AttrIQStale:   false,
			})
		}

		version = 1
		_, _, err := tx.Upsert(KindInstaqlQuery, map[entitydb.Attr]interface{}{
			AttrIQSessionID:  sessionID,
			AttrIQQuery:      query,
			AttrIQVersion:    version,
			AttrIQStale:      false,
			AttrIQReturnType: returnType,
			AttrIQCreatedAt:  tx.Tick(),
		})
		return err
	})

	return version, err
}

/*
AddInstaqlQuery retracts Subscriptions left behind by a superseded
evaluation, sweeps any DatalogQuery that leaves orphaned, and records
the query's latest result hash. ResultChanged is true unless both the
previous and new hash are non-nil and equal, matching the novelty law:
"both nil" counts as changed, since that is the first evaluation.
*/
func (s *Store) AddInstaqlQuery(ctx context.Context, ictx InstaqlCtx, resultHash *string) (AddInstaqlQueryResult, error) {
	var result AddInstaqlQueryResult

	_, err := s.db.Transact(ctx, "add_instaql_query", func(tx *entitydb.Tx) error {
		for _, sub := range tx.Query(KindSubscription, map[entitydb.Attr]interface{}{
			AttrSubSessionID:    ictx.SessionID,
			AttrSubInstaqlQuery: ictx.Query,
		}) {
			v, _ := sub.Attr(AttrSubVersion).(int64)
			if v < ictx.V {
				if err := tx.Retract(sub.ID()); err != nil {
					return err
				}
			}
		}

		sweepOrphanDatalog(tx)

		existing, ok := tx.Entity(entitydb.ByKey(KindInstaqlQuery, ictx.SessionID, ictx.Query))
		if !ok {
			result.ResultChanged = true
			return nil
		}

		prev, _ := existing.Attr(AttrIQHash).(string)
		prevOK := existing.Attr(AttrIQHash) != nil

		result.ResultChanged = true
		if prevOK && resultHash != nil && prev == *resultHash {
			result.ResultChanged = false
		}

		var hashAttr interface{}
		if resultHash != nil {
			hashAttr = *resultHash
		}

		return tx.Update(existing.ID(), map[entitydb.Attr]interface{}{
			AttrIQHash: hashAttr,
		})
	})

	return result, err
}

/*
RemoveQuery retracts an InstaqlQuery identity, every Subscription
recorded through it, and sweeps any DatalogQuery left orphaned.
*/
func (s *Store) RemoveQuery(ctx context.Context, sessionID string, appID string, query interface{}) error {
	_, err := s.db.Transact(ctx, "remove_query", func(tx *entitydb.Tx) error {
		if iq, ok := tx.Entity(entitydb.ByKey(KindInstaqlQuery, sessionID, query)); ok {
			if err := tx.Retract(iq.ID()); err != nil {
				return err
			}
		}

		for _, sub := range tx.Query(KindSubscription, map[entitydb.Attr]interface{}{
			AttrSubSessionID:    sessionID,
			AttrSubInstaqlQuery: query,
		}) {
			if err := tx.Retract(sub.ID()); err != nil {
				return err
			}
		}

		sweepOrphanDatalog(tx)
		return nil
	})
	return err
}

/*
GetStaleInstaqlQueries returns every stale InstaqlQuery belonging to a
session, for the gateway to recompute and push.
*/
func (s *Store) GetStaleInstaqlQueries(sessionID string) []StaleInstaqlQuery {
	snap := s.db.Snapshot()

	var out []StaleInstaqlQuery
	for _, iq := range snap.Datoms(KindInstaqlQuery, AttrIQSessionID, sessionID) {
		if stale, _ := iq.Attr(AttrIQStale).(bool); !stale {
			continue
		}

		version, _ := iq.Attr(AttrIQVersion).(int64)
		returnType, _ := iq.Attr(AttrIQReturnType).(ReturnType)

		out = append(out, StaleInstaqlQuery{
			SessionID:  sessionID,
			Query:      iq.Attr(AttrIQQuery),
			Version:    version,
			ReturnType: returnType,
		})
	}
	return out
}
