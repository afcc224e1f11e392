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

	"golang.org/x/sync/singleflight"

	"devt.de/krotik/reactiveq/entitydb"
	"devt.de/krotik/reactiveq/tracing"
)

/*
Auth is the authentication record attached to a session.
*/
type Auth struct {
	App   string
	User  string
	Admin bool
}

/*
User is the minimal user record needed to identify a session's
creator (the owner of the app the session belongs to).
*/
type User struct {
	ID    string
	Email string
}

/*
SessionProps is the field-level patch accepted by SetSessionProps.
Fields left nil are left unchanged.
*/
type SessionProps struct {
	Auth     *Auth
	Creator  *User
	Versions map[string]string
}

/*
AddSocket upserts a session and binds a socket to it. A socket already
bound is overwritten.
*/
func (s *Store) AddSocket(ctx context.Context, sessionID string, socket Socket) error {
	_, err := s.db.Transact(ctx, "add_socket", func(tx *entitydb.Tx) error {
		_, _, err := tx.Upsert(KindSession, map[entitydb.Attr]interface{}{
			AttrSessionID:     sessionID,
			AttrSessionSocket: socket,
		})
		return err
	})
	return err
}

/*
SetAuth sets a session's auth record, creating the session if absent.
*/
func (s *Store) SetAuth(ctx context.Context, sessionID string, auth Auth) error {
	_, err := s.db.Transact(ctx, "set_auth", func(tx *entitydb.Tx) error {
		_, _, err := tx.Upsert(KindSession, map[entitydb.Attr]interface{}{
			AttrSessionID:   sessionID,
			AttrSessionAuth: auth,
			AttrSessionAppID: auth.App,
		})
		return err
	})
	return err
}

/*
SetCreator sets a session's creator record, creating the session if
absent.
*/
func (s *Store) SetCreator(ctx context.Context, sessionID string, creator User) error {
	_, err := s.db.Transact(ctx, "set_creator", func(tx *entitydb.Tx) error {
		_, _, err := tx.Upsert(KindSession, map[entitydb.Attr]interface{}{
			AttrSessionID:      sessionID,
			AttrSessionCreator: creator,
		})
		return err
	})
	return err
}

/*
SetSessionProps sets any combination of auth, creator and versions in
one transaction, creating the session if absent.
*/
func (s *Store) SetSessionProps(ctx context.Context, sessionID string, props SessionProps) error {
	_, err := s.db.Transact(ctx, "set_session_props", func(tx *entitydb.Tx) error {
		attrs := map[entitydb.Attr]interface{}{
			AttrSessionID: sessionID,
		}
		if props.Auth != nil {
			attrs[AttrSessionAuth] = *props.Auth
			attrs[AttrSessionAppID] = props.Auth.App
		}
		if props.Creator != nil {
			attrs[AttrSessionCreator] = *props.Creator
		}
		if props.Versions != nil {
			attrs[AttrSessionVersions] = props.Versions
		}

		_, _, err := tx.Upsert(KindSession, attrs)
		return err
	})
	return err
}

/*
UpsertDatalogLoader installs or returns a session's request-coalescing
loader handle, creating it on first use. The handle is a
*singleflight.Group: concurrent datalog loads issued on behalf of the
same session share in-flight work instead of each re-evaluating.
*/
func (s *Store) UpsertDatalogLoader(sessionID string) *singleflight.Group {
	s.loaderMu.Lock()
	defer s.loaderMu.Unlock()

	g, ok := s.loaders[sessionID]
	if !ok {
		g = &singleflight.Group{}
		s.loaders[sessionID] = g
	}
	return g
}

/*
RemoveSession atomically retracts a session, every InstaqlQuery and
Subscription it owns, and then sweeps any DatalogQuery left without a
referencing Subscription. It is a no-op if the session does not exist,
so two successive calls leave the store exactly as one does.
*/
func (s *Store) RemoveSession(ctx context.Context, sessionID string) error {
	_, err := s.db.Transact(ctx, "remove_session", func(tx *entitydb.Tx) error {
		session, ok := findSession(tx, sessionID)
		if !ok {
			return nil
		}

		for _, iq := range tx.Datoms(KindInstaqlQuery, AttrIQSessionID, sessionID) {
			if err := tx.Retract(iq.ID()); err != nil {
				return err
			}
		}

		for _, sub := range tx.Datoms(KindSubscription, AttrSubSessionID, sessionID) {
			if err := tx.Retract(sub.ID()); err != nil {
				return err
			}
		}

		if err := tx.Retract(session.ID()); err != nil {
			return err
		}

		sweepOrphanDatalog(tx)

		s.loaderMu.Lock()
		delete(s.loaders, sessionID)
		s.loaderMu.Unlock()

		return nil
	})
	return err
}

/*
SendEvent resolves the session's socket and writes a JSON frame to it.
It returns SessionMissing if the session does not exist, SocketMissing
if it has no socket bound, and SocketError if the transport write
fails.
*/
func (s *Store) SendEvent(ctx context.Context, appID string, sessionID string, event interface{}) error {
	span, _ := tracing.StartSpanFromContext(ctx, "reactiveq.send_event")
	defer span.Finish()

	snap := s.db.Snapshot()

	session, ok := snap.Entity(entitydb.ByKey(KindSession, sessionID))
	if !ok {
		return &SessionMissing{SessionID: sessionID}
	}

	socket, _ := session.Attr(AttrSessionSocket).(Socket)
	if socket == nil {
		return &SocketMissing{SessionID: sessionID}
	}

	if err := socket.WriteJSON(event); err != nil {
		return &SocketError{SessionID: sessionID, Cause: err}
	}

	return nil
}

/*
TrySendEvent is SendEvent but swallows SocketMissing/SocketError,
logging the incident instead of propagating it. Use this from callers
that cannot block on a failed or absent socket.
*/
func (s *Store) TrySendEvent(ctx context.Context, appID string, sessionID string, event interface{}) {
	if err := s.SendEvent(ctx, appID, sessionID, event); err != nil {
		log.Warning("try_send_event: ", err.Error())
	}
}
