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
reactiveqd is a minimal demo binary: for each websocket connection it
accepts on /ws, it subscribes the connection to a toy query, then replays the create /
refresh / invalidate cycle against the live socket so the store's
behavior can be observed end to end.
*/
package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/krotik/common/fileutil"
	"github.com/krotik/common/logutil"

	"devt.de/krotik/reactiveq/config"
	"devt.de/krotik/reactiveq/reactiveq"
	"devt.de/krotik/reactiveq/topicmatch"
)

var log = logutil.GetLogger("reactiveqd")

var upgrader = websocket.Upgrader{
	Subprotocols:    []string{"reactiveq"},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const appID = "demo-app"

func main() {
	if exists, _ := fileutil.PathExists(config.DefaultConfigFile); exists {
		if err := config.LoadConfigFile(config.DefaultConfigFile); err != nil {
			log.Error(err.Error())
			return
		}
	} else {
		config.LoadDefaultConfig()
	}

	store := reactiveq.NewStore()
	defer store.Stop()

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		handleConn(store, w, r)
	})

	log.Info("listening on :8080/ws")
	if err := http.ListenAndServe(":8080", nil); err != nil {
		log.Error(err.Error())
	}
}

func handleConn(store *reactiveq.Store, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warning("upgrade failed: ", err.Error())
		return
	}
	defer conn.Close()

	ctx := context.Background()
	sessionID := uuid.NewString()
	socket := reactiveq.NewWebsocketSocket(conn)

	if err := store.AddSocket(ctx, sessionID, socket); err != nil {
		log.Error(err.Error())
		return
	}
	if err := store.SetSessionProps(ctx, sessionID, reactiveq.SessionProps{
		Auth: &reactiveq.Auth{App: appID, User: "demo-user"},
	}); err != nil {
		log.Error(err.Error())
		return
	}

	query := map[string]interface{}{"todos": map[string]interface{}{}}

	version, err := store.BumpInstaqlVersion(ctx, sessionID, query, reactiveq.ReturnJoinRows)
	if err != nil {
		log.Error(err.Error())
		return
	}
	log.Info(fmt.Sprintf("session %s: instaql query at version %d", sessionID, version))

	datalogQuery := "[[:ea ?e :title ?v]]"
	ictx := reactiveq.InstaqlCtx{SessionID: sessionID, Query: query, V: version}

	coarseTopics := []topicmatch.Topic{{
		topicmatch.KeywordPart(":ea"),
		topicmatch.WildcardPart(),
		topicmatch.KeywordPart(":title"),
	}}

	if _, err := store.RecordDatalogQueryStart(ctx, reactiveq.DatalogCtx{
		AppID:        appID,
		SessionID:    sessionID,
		InstaqlQuery: query,
		Query:        datalogQuery,
		V:            version,
	}, coarseTopics); err != nil {
		log.Error(err.Error())
		return
	}

	refinedTopics := []topicmatch.Topic{{
		topicmatch.KeywordPart(":ea"),
		topicmatch.SetPart("e1"),
		topicmatch.KeywordPart(":title"),
	}}

	if err := store.RecordDatalogQueryFinish(ctx, appID, datalogQuery, refinedTopics); err != nil {
		log.Error(err.Error())
		return
	}

	hash := "h1"
	result, err := store.AddInstaqlQuery(ctx, ictx, &hash)
	if err != nil {
		log.Error(err.Error())
		return
	}
	log.Info(fmt.Sprintf("session %s: result_changed=%v", sessionID, result.ResultChanged))

	ivTopics := []topicmatch.Topic{{
		topicmatch.KeywordPart(":ea"),
		topicmatch.SetPart("e1"),
		topicmatch.KeywordPart(":title"),
	}}

	inval, err := store.MarkStaleTopics(ctx, appID, 10, ivTopics)
	if err != nil {
		log.Error(err.Error())
		return
	}
	log.Info(fmt.Sprintf("mutation invalidated sessions: %v", inval.AffectedSessionIDs))

	store.TrySendEvent(ctx, appID, sessionID, map[string]interface{}{
		"type": "invalidate",
	})

	store.RemoveSession(ctx, sessionID)
}
