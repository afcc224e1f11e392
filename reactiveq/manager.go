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
	"sync"

	"github.com/krotik/common/logutil"
	"golang.org/x/sync/singleflight"

	"devt.de/krotik/reactiveq/entitydb"
)

var log = logutil.GetLogger("reactiveq.store")

/*
Store is the reactive query store handle. Construct one with NewStore
and release it with Stop; there is no other global state. Restart is
Stop followed by a fresh NewStore.
*/
type Store struct {
	db *entitydb.Store

	// loaders holds the per-session request-coalescing handle
	// (datalog_loader) realized with singleflight, the same
	// golang.org/x/sync module already used by the retrieval pack for
	// errgroup. swap_datalog_cache_delay needs no equivalent map of its
	// own: entitydb.Store.Transact already totally orders every caller
	// onto one write lock, which is what gives it its single-flight
	// guarantee (see datalog.go).
	loaderMu sync.Mutex
	loaders  map[string]*singleflight.Group
}

/*
NewStore creates a new, empty reactive query store.
*/
func NewStore(opts ...entitydb.Option) *Store {
	s := &Store{
		db:      entitydb.NewStore(NewSchema(), opts...),
		loaders: make(map[string]*singleflight.Group),
	}
	log.Info("reactive query store initialized")
	return s
}

/*
Stop releases the store.
*/
func (s *Store) Stop() {
	log.Info("reactive query store stopped")
}

/*
StoreStats is the result of Stats(): operational counts for dashboards.
*/
type StoreStats struct {
	Sessions      int
	InstaqlQueries int
	DatalogQueries int
	Subscriptions  int
	ProcessedTx    map[string]int64
}

/*
Stats returns operational counts over the current snapshot. This is
pure introspection: it cannot mutate state and participates in no
invariant.
*/
func (s *Store) Stats() StoreStats {
	snap := s.db.Snapshot()

	stats := StoreStats{
		Sessions:       len(snap.Kind(KindSession)),
		InstaqlQueries: len(snap.Kind(KindInstaqlQuery)),
		DatalogQueries: len(snap.Kind(KindDatalogQuery)),
		Subscriptions:  len(snap.Kind(KindSubscription)),
		ProcessedTx:    make(map[string]int64),
	}

	for _, tm := range snap.Kind(KindTxMeta) {
		appID, _ := tm.Attr(AttrTxMetaAppID).(string)
		txID, _ := tm.Attr(AttrTxMetaProcessed).(int64)
		stats.ProcessedTx[appID] = txID
	}

	return stats
}

/*
findSession looks up a session entity by its external UUID, within an
in-progress transaction's working set.
*/
func findSession(tx *entitydb.Tx, sessionID string) (*entitydb.Entity, bool) {
	return tx.Entity(entitydb.ByKey(KindSession, sessionID))
}
