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
InvalidationResult is the result of MarkStaleTopics: the sessions whose
subscriptions were touched, for the gateway to schedule refresh work
against.
*/
type InvalidationResult struct {
	AffectedSessionIDs []string
}

/*
MarkStaleTopics is the mutation pipeline's entry point. It evicts every
DatalogQuery whose topics intersect iv_topics, marks the InstaqlQueries
that depended on them stale, advances processed_tx_id for app_id by
max, and reports the distinct sessions affected.

Steps 3 and 5 resolve Subscription.datalog_query references against
the pre-transaction snapshot: step 4 retracts the very DatalogQuery
entities those references point at, so resolving afterwards would find
nothing.
*/
func (s *Store) MarkStaleTopics(ctx context.Context, appID string, txID int64, ivTopics []topicmatch.Topic) (InvalidationResult, error) {
	var result InvalidationResult

	_, err := s.db.Transact(ctx, "mark_stale_topics", func(tx *entitydb.Tx) error {
		before := tx.Before()

		var matched []*entitydb.Entity
		for _, dq := range tx.Datoms(KindDatalogQuery, AttrDQAppID, appID) {
			topics, _ := dq.Attr(AttrDQTopics).([]topicmatch.Topic)
			if topicmatch.MatchAny(ivTopics, topics) {
				matched = append(matched, dq)
			}
		}

		if err := bumpProcessedTx(tx, appID, txID); err != nil {
			return err
		}

		sessionIDs := make(map[string]struct{})
		var deadSubs []int64
		for _, dq := range matched {
			for _, sub := range before.Referrers(dq.ID()) {
				instaqlQuery := sub.Attr(AttrSubInstaqlQuery)
				sessionID, _ := sub.Attr(AttrSubSessionID).(string)

				if iq, ok := tx.Entity(entitydb.ByKey(KindInstaqlQuery, sessionID, instaqlQuery)); ok {
					if err := tx.Update(iq.ID(), map[entitydb.Attr]interface{}{
						AttrIQStale: true,
					}); err != nil {
						return err
					}
				}

				sessionIDs[sessionID] = struct{}{}
				deadSubs = append(deadSubs, sub.ID())
			}
		}

		// The Subscription edges examined above point at a DatalogQuery
		// that is about to be retracted: they are spent the moment this
		// mutation is processed, the same way add_instaql_query retires
		// a superseded evaluation's Subscriptions.
		for _, id := range deadSubs {
			if err := tx.Retract(id); err != nil {
				return err
			}
		}

		for _, dq := range matched {
			if err := tx.Retract(dq.ID()); err != nil {
				return err
			}
		}

		for id := range sessionIDs {
			result.AffectedSessionIDs = append(result.AffectedSessionIDs, id)
		}

		return nil
	})

	return result, err
}

/*
bumpProcessedTx advances app_id's processed_tx_id to max(current, txID),
creating the TxMeta entity on first use.
*/
func bumpProcessedTx(tx *entitydb.Tx, appID string, txID int64) error {
	existing, ok := tx.Entity(entitydb.ByKey(KindTxMeta, appID))
	if ok {
		current, _ := existing.Attr(AttrTxMetaProcessed).(int64)
		if txID <= current {
			return nil
		}
		return tx.Update(existing.ID(), map[entitydb.Attr]interface{}{
			AttrTxMetaProcessed: txID,
		})
	}

	_, _, err := tx.Upsert(KindTxMeta, map[entitydb.Attr]interface{}{
		AttrTxMetaAppID:     appID,
		AttrTxMetaProcessed: txID,
	})
	return err
}
