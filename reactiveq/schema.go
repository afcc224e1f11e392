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
Package reactiveq is the reactive query store: it tracks what each
connected client session is subscribed to, caches the datalog results
those subscriptions depend on, detects whether a recomputed result is
actually novel, and computes the minimal set of sessions a mutation's
topics should wake up.

All state lives in one entitydb.Store so that an invalidation pass, a
subscription add, and a session removal are each atomic with respect
to readers. See Store.
*/
package reactiveq

import "devt.de/krotik/reactiveq/entitydb"

// Entity kinds
// ============

const (
	KindSession      = "session"
	KindTxMeta       = "txmeta"
	KindInstaqlQuery = "instaql"
	KindDatalogQuery = "datalog"
	KindSubscription = "subscription"
)

// Session attributes
// ==================

const (
	AttrSessionID       entitydb.Attr = "session_id"
	AttrSessionAppID    entitydb.Attr = "app_id"
	AttrSessionSocket   entitydb.Attr = "socket"
	AttrSessionAuth     entitydb.Attr = "auth"
	AttrSessionCreator  entitydb.Attr = "creator"
	AttrSessionVersions entitydb.Attr = "versions"
	AttrSessionLoader   entitydb.Attr = "datalog_loader"
)

// TxMeta attributes
// =================

const (
	AttrTxMetaAppID    entitydb.Attr = "app_id"
	AttrTxMetaProcessed entitydb.Attr = "processed_tx_id"
)

// InstaqlQuery attributes
// =======================

const (
	AttrIQSessionID   entitydb.Attr = "session_id"
	AttrIQQuery       entitydb.Attr = "query"
	AttrIQStale       entitydb.Attr = "stale"
	AttrIQVersion     entitydb.Attr = "version"
	AttrIQHash        entitydb.Attr = "hash"
	AttrIQReturnType  entitydb.Attr = "return_type"
	AttrIQCreatedAt   entitydb.Attr = "created_at"
)

/*
ReturnType enumerates how an InstaqlQuery's result should be shaped.
*/
type ReturnType string

const (
	ReturnJoinRows ReturnType = "join_rows"
	ReturnTree     ReturnType = "tree"
)

// DatalogQuery attributes
// =======================

const (
	AttrDQAppID      entitydb.Attr = "app_id"
	AttrDQQuery      entitydb.Attr = "query"
	AttrDQDelay      entitydb.Attr = "delayed_call"
	AttrDQTopics     entitydb.Attr = "topics"
	AttrDQCreatedAt  entitydb.Attr = "created_at"
	AttrDQEvalCount  entitydb.Attr = "eval_count"
)

// Subscription attributes
// =======================

const (
	AttrSubAppID        entitydb.Attr = "app_id"
	AttrSubSessionID    entitydb.Attr = "session_id"
	AttrSubInstaqlQuery entitydb.Attr = "instaql_query"
	AttrSubDatalogQuery entitydb.Attr = "datalog_query" // reference -> DatalogQuery id
	AttrSubVersion      entitydb.Attr = "v"
)

/*
NewSchema builds the entitydb.Schema the reactive query store runs on.
*/
func NewSchema() *entitydb.Schema {
	return entitydb.NewSchema(
		entitydb.KindSchema{
			Name:      KindSession,
			UniqueKey: []entitydb.Attr{AttrSessionID},
			Attrs: map[entitydb.Attr]entitydb.AttrSchema{
				AttrSessionID:    {Indexed: true},
				AttrSessionAppID: {Indexed: true},
			},
		},
		entitydb.KindSchema{
			Name:      KindTxMeta,
			UniqueKey: []entitydb.Attr{AttrTxMetaAppID},
			Attrs: map[entitydb.Attr]entitydb.AttrSchema{
				AttrTxMetaAppID: {Indexed: true},
			},
		},
		entitydb.KindSchema{
			Name:      KindInstaqlQuery,
			UniqueKey: []entitydb.Attr{AttrIQSessionID, AttrIQQuery},
			Attrs: map[entitydb.Attr]entitydb.AttrSchema{
				AttrIQSessionID: {Indexed: true},
				AttrIQQuery:     {Indexed: true},
			},
		},
		entitydb.KindSchema{
			Name:      KindDatalogQuery,
			UniqueKey: []entitydb.Attr{AttrDQAppID, AttrDQQuery},
			Attrs: map[entitydb.Attr]entitydb.AttrSchema{
				AttrDQAppID: {Indexed: true},
				AttrDQQuery: {Indexed: true},
			},
		},
		entitydb.KindSchema{
			Name: KindSubscription,
			Attrs: map[entitydb.Attr]entitydb.AttrSchema{
				AttrSubAppID:        {Indexed: true},
				AttrSubSessionID:    {Indexed: true},
				AttrSubInstaqlQuery: {Indexed: true},
				AttrSubDatalogQuery: {Indexed: true, Ref: true},
			},
		},
	)
}
