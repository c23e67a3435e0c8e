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

// Package poststore is the content-addressed persistent map from post
// fingerprint to stored post record.
package poststore

import (
	"context"
	"fmt"

	"github.com/sage-x-project/gossipwire/post"
	"github.com/sage-x-project/gossipwire/store"
)

// ErrUnknownPost is returned when a lookup references a post id the store
// does not hold.
var ErrUnknownPost = fmt.Errorf("poststore: unknown post")

// Store is the persistent post-fingerprint → IncomingPost map.
type Store struct {
	store store.Store
}

// New wraps a persistent store.Store as a post store.
func New(s store.Store) *Store {
	return &Store{store: s}
}

// Put inserts ip into the store, keyed by its fingerprint.
func (s *Store) Put(ctx context.Context, ip *post.IncomingPost) error {
	data, err := ip.MarshalBinary()
	if err != nil {
		return fmt.Errorf("poststore: encode: %w", err)
	}
	id := ip.Post.ID()
	if err := s.store.Put(ctx, store.POSTS, id[:], data); err != nil {
		return fmt.Errorf("poststore: put: %w", err)
	}
	return nil
}

// Get loads the post stored under id, or ErrUnknownPost if none exists.
func (s *Store) Get(ctx context.Context, id post.PostId) (*post.IncomingPost, error) {
	data, ok, err := s.store.Get(ctx, store.POSTS, id[:])
	if err != nil {
		return nil, fmt.Errorf("poststore: get: %w", err)
	}
	if !ok {
		return nil, ErrUnknownPost
	}
	return post.UnmarshalIncomingPost(data)
}

// Contains reports whether id is present in the store.
func (s *Store) Contains(ctx context.Context, id post.PostId) (bool, error) {
	ok, err := s.store.Contains(ctx, store.POSTS, id[:])
	if err != nil {
		return false, fmt.Errorf("poststore: contains: %w", err)
	}
	return ok, nil
}

// Iterate calls fn once per stored post.
func (s *Store) Iterate(ctx context.Context, fn func(*post.IncomingPost) error) error {
	return s.store.Iterate(ctx, store.POSTS, func(_ []byte, value []byte) error {
		ip, err := post.UnmarshalIncomingPost(value)
		if err != nil {
			return err
		}
		return fn(ip)
	})
}
