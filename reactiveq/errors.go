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

import "fmt"

/*
SessionMissing is returned whenever a lookup keyed by a session id
finds no such session. It is not fatal: the gateway is expected to
simply drop the request.
*/
type SessionMissing struct {
	SessionID string
}

func (e *SessionMissing) Error() string {
	return fmt.Sprintf("reactiveq: session missing: %s", e.SessionID)
}

/*
SocketMissing is returned by SendEvent when the target session exists
but has no socket attached yet.
*/
type SocketMissing struct {
	SessionID string
}

func (e *SocketMissing) Error() string {
	return fmt.Sprintf("reactiveq: no socket bound to session %s", e.SessionID)
}

/*
SocketError wraps a transport write failure. SendEvent propagates it;
TrySendEvent swallows it after recording it.
*/
type SocketError struct {
	SessionID string
	Cause     error
}

func (e *SocketError) Error() string {
	return fmt.Sprintf("reactiveq: socket error for session %s: %v", e.SessionID, e.Cause)
}

func (e *SocketError) Unwrap() error {
	return e.Cause
}
