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

// Package seen tracks which (peer, post) pairs have already been handled.
// It is write-only and monotonically growing; no expiry is specified.
// Shared by the propagation and blessing engines.
package seen

import (
	"context"
	"fmt"

	"github.com/sage-x-project/gossipwire/peer"
	"github.com/sage-x-project/gossipwire/post"
	"github.com/sage-x-project/gossipwire/store"
)

// Index is the persistent (peer, post_id) membership set.
type Index struct {
	store store.Store
}

// NewIndex wraps a persistent store.Store as a seen index.
func NewIndex(s store.Store) *Index {
	return &Index{store: s}
}

func key(p peer.ID, id post.PostId) []byte {
	out := make([]byte, 0, peer.Size+len(id))
	out = append(out, p.Bytes()...)
	out = append(out, id[:]...)
	return out
}

// Contains reports whether p has already been recorded as having handled
// post id.
func (idx *Index) Contains(ctx context.Context, p peer.ID, id post.PostId) (bool, error) {
	ok, err := idx.store.Contains(ctx, store.SEEN, key(p, id))
	if err != nil {
		return false, fmt.Errorf("seen: contains: %w", err)
	}
	return ok, nil
}

// Add records that p has handled post id.
func (idx *Index) Add(ctx context.Context, p peer.ID, id post.PostId) error {
	if err := idx.store.Put(ctx, store.SEEN, key(p, id), []byte{1}); err != nil {
		return fmt.Errorf("seen: add: %w", err)
	}
	return nil
}
