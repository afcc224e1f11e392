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
	"errors"
	"fmt"
)

/*
StoreError is a store-related error, following the teacher's
GraphError{Type, Detail} shape: Type is a sentinel usable in equality
checks, Detail carries the human-readable context.
*/
type StoreError struct {
	Type   error
	Detail string
}

/*
Error returns a human-readable string representation of this error.
*/
func (se *StoreError) Error() string {
	if se.Detail != "" {
		return fmt.Sprintf("entitydb: %v (%v)", se.Type, se.Detail)
	}
	return fmt.Sprintf("entitydb: %v", se.Type)
}

/*
Unwrap lets errors.Is(err, ErrNotFound) etc. see through StoreError.
*/
func (se *StoreError) Unwrap() error {
	return se.Type
}

/*
Store-related error types.
*/
var (
	ErrNotFound      = errors.New("entity not found")
	ErrUniqueConflict = errors.New("unique identity conflict")
	ErrDanglingRef    = errors.New("reference target does not exist")
)
