// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package store defines the persistent keyed byte-blob store every engine
// is built on: named sub-tables, single-key atomic writes, best-effort
// consistency on ranged reads. Two implementations exist: memory (tests,
// single-process bootstrap nodes) and postgres (durable multi-process
// deployments).
package store

import (
	"context"
	"errors"
)

// Table names a logical sub-table within the store.
type Table string

const (
	// IDENTITY holds the single local secret key entry.
	IDENTITY Table = "IDENTITY"
	// POSTS maps post fingerprint to a serialized IncomingPost record.
	POSTS Table = "POSTS"
	// SEEN holds (peer, post_id) membership as a set.
	SEEN Table = "SEEN"
	// TRUST holds trusted peer identities with insertion timestamps.
	TRUST Table = "TRUST"
	// SCORES maps peer identity to its integer rating.
	SCORES Table = "SCORES"
)

// ErrStoreError names the persistence-failure error kind. The memory and
// postgres stores do not wrap their errors with it; their failures reach
// callers as the underlying error wrapped with context, and callers
// propagate them rather than retry.
var ErrStoreError = errors.New("store: operation failed")

// Store is a keyed byte-blob store with named sub-tables. Implementations
// must make single-key Put/Remove atomic; Iterate may be weakly
// consistent with concurrent writers.
type Store interface {
	// Get returns the value for key in table, and whether it was found.
	Get(ctx context.Context, table Table, key []byte) (value []byte, ok bool, err error)

	// Put writes value for key in table, replacing any existing value.
	Put(ctx context.Context, table Table, key, value []byte) error

	// Contains reports whether key exists in table.
	Contains(ctx context.Context, table Table, key []byte) (bool, error)

	// Remove deletes key from table. Removing an absent key is a no-op.
	Remove(ctx context.Context, table Table, key []byte) error

	// Iterate calls fn once per entry in table. Iteration stops early if
	// fn returns an error, which Iterate then returns.
	Iterate(ctx context.Context, table Table, fn func(key, value []byte) error) error

	// Len returns the number of entries in table.
	Len(ctx context.Context, table Table) (int, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
