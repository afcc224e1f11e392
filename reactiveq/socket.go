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

	"github.com/gorilla/websocket"
)

/*
Socket is the opaque transport handle a Session holds. The store never
interprets its contents beyond WriteJSON: framing, reconnection, and
the actual wire protocol belong to the transport layer.
*/
type Socket interface {

	/*
	   WriteJSON marshals and writes a single JSON frame.
	*/
	WriteJSON(v interface{}) error
}

/*
WebsocketSocket adapts a *websocket.Conn to Socket. gorilla/websocket
connections support one concurrent reader and one concurrent writer
(see https://godoc.org/github.com/gorilla/websocket#hdr-Concurrency),
so every write is serialized behind its own mutex the same way
api/v1/graphql-subscriptions.go guards conn.WriteMessage calls.
*/
type WebsocketSocket struct {
	conn  *websocket.Conn
	wmu   sync.Mutex
}

/*
NewWebsocketSocket wraps an upgraded websocket connection.
*/
func NewWebsocketSocket(conn *websocket.Conn) *WebsocketSocket {
	return &WebsocketSocket{conn: conn}
}

/*
WriteJSON writes v as a single JSON text frame.
*/
func (s *WebsocketSocket) WriteJSON(v interface{}) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	return s.conn.WriteJSON(v)
}

/*
Close closes the underlying connection.
*/
func (s *WebsocketSocket) Close() error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	return s.conn.Close()
}
