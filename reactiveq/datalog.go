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
	"devt.de/krotik/reactiveq/topicmatch"
)

/*
DatalogCtx identifies the evaluation a Subscription edge records:
which InstaqlQuery (at which version) depends on which DatalogQuery.
*/
type DatalogCtx struct {
	AppID        string
	SessionID    string
	InstaqlQuery interface{}
	Query        interface{}
	V            int64
}

/*
SwapDatalogCacheDelay installs new_delay as the DatalogQuery's
delayed_call if none is installed yet, or returns the one already
there. entitydb.Store.Transact totally orders every caller onto one
write lock, so of two concurrent callers for the same (app_id, query)
key, whichever transaction runs first wins and the other observes its
delay instead of its own — the single-flight law in spec.md §8.
*/
func (s *Store) SwapDatalogCacheDelay(ctx context.Context, appID string, query interface{}, newDelay interface{}) (interface{}, error) {
	var effective interface{}

	_, err := s.db.Transact(ctx, "swap_datalog_cache_delay", func(tx *entitydb.Tx) error {
		existing, ok := tx.Entity(entitydb.ByKey(KindDatalogQuery, appID, query))
		if !ok {
			effective = newDelay
			_, _, err := tx.Upsert(KindDatalogQuery, map[entitydb.Attr]interface{}{
				AttrDQAppID: appID,
				AttrDQQuery: query,
				AttrDQDelay: newDelay,
			})
			return err
		}

		if dc := existing.Attr(AttrDQDelay); dc != nil {
			effective = dc
			return nil
		}

		effective = newDelay
		return tx.Update(existing.ID(), map[entitydb.Attr]interface{}{
			AttrDQDelay: newDelay,
		})
	})

	return effective, err
}

/*
RecordDatalogQueryStart attaches coarse_topics to a DatalogQuery
(creating it if absent, leaving existing topics untouched otherwise)
and records the Subscription edge the evaluation depends on.
*/
func (s *Store) RecordDatalogQueryStart(ctx context.Context, dctx DatalogCtx, coarseTopics []topicmatch.Topic) (*entitydb.Entity, error) {
	var dq *entitydb.Entity

	_, err := s.db.Transact(ctx, "record_datalog_query_start", func(tx *entitydb.Tx) error {
		existing, ok := tx.Entity(entitydb.ByKey(KindDatalogQuery, dctx.AppID, dctx.Query))
		if ok {
			if existing.Attr(AttrDQTopics) == nil {
				if err := tx.Update(existing.ID(), map[entitydb.Attr]interface{}{
					AttrDQTopics: coarseTopics,
				}); err != nil {
					return err
				}
			}
			dq, _ = tx.Entity(entitydb.ByID(existing.ID()))
		} else {
			created, _, err := tx.Upsert(KindDatalogQuery, map[entitydb.Attr]interface{}{
				AttrDQAppID:     dctx.AppID,
				AttrDQQuery:     dctx.Query,
				AttrDQTopics:    coarseTopics,
				AttrDQCreatedAt: tx.Tick(),
			})
			if err != nil {
				return err
			}
			dq = created
		}

		_, _, err := tx.Upsert(KindSubscription, map[entitydb.Attr]interface{}{
			AttrSubAppID:        dctx.AppID,
			AttrSubSessionID:    dctx.SessionID,
			AttrSubInstaqlQuery: dctx.InstaqlQuery,
			AttrSubDatalogQuery: dq.ID(),
			AttrSubVersion:      dctx.V,
		})
		return err
	})

	return dq, err
}

/*
RecordDatalogQueryFinish replaces a DatalogQuery's topics with the
narrower set computed from its actual result and bumps eval_count.
It is a no-op if the DatalogQuery no longer exists (evicted by an
invalidation that raced the evaluation).
*/
func (s *Store) RecordDatalogQueryFinish(ctx context.Context, appID string, query interface{}, refinedTopics []topicmatch.Topic) error {
	_, err := s.db.Transact(ctx, "record_datalog_query_finish", func(tx *entitydb.Tx) error {
		existing, ok := tx.Entity(entitydb.ByKey(KindDatalogQuery, appID, query))
		if !ok {
			return nil
		}

		evalCount, _ := existing.Attr(AttrDQEvalCount).(int64)

		return tx.Update(existing.ID(), map[entitydb.Attr]interface{}{
			AttrDQTopics:    refinedTopics,
			AttrDQEvalCount: evalCount + 1,
		})
	})
	return err
}

/*
sweepOrphanDatalog retracts every DatalogQuery with no referencing
Subscription. It must run inside the same transaction as any op that
removes Subscriptions, per spec.md's reference-GC invariant.
*/
func sweepOrphanDatalog(tx *entitydb.Tx) {
	for _, dq := range tx.Kind(KindDatalogQuery) {
		if len(tx.Referrers(dq.ID())) == 0 {
			_ = tx.Retract(dq.ID())
		}
	}
}
