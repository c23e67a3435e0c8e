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

// Package memory implements store.Store with in-process maps. Used for
// tests and for bootstrap nodes that do not need durability across
// restarts.
package memory

import (
	"context"
	"sync"

	"github.com/sage-x-project/gossipwire/store"
)

// Store is an in-memory store.Store. Zero value is not usable; use New.
type Store struct {
	mu     sync.RWMutex
	tables map[store.Table]map[string][]byte
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		tables: make(map[store.Table]map[string][]byte),
	}
}

func (s *Store) table(t store.Table) map[string][]byte {
	tbl, ok := s.tables[t]
	if !ok {
		tbl = make(map[string][]byte)
		s.tables[t] = tbl
	}
	return tbl
}

// Get returns the value for key in table, and whether it was found.
func (s *Store) Get(_ context.Context, t store.Table, key []byte) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.tables[t][string(key)]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Put writes value for key in table, replacing any existing value.
func (s *Store) Put(_ context.Context, t store.Table, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	s.table(t)[string(key)] = v
	return nil
}

// Contains reports whether key exists in table.
func (s *Store) Contains(_ context.Context, t store.Table, key []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.tables[t][string(key)]
	return ok, nil
}

// Remove deletes key from table. Removing an absent key is a no-op.
func (s *Store) Remove(_ context.Context, t store.Table, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tables[t], string(key))
	return nil
}

// Iterate calls fn once per entry in table, under the store's read lock.
func (s *Store) Iterate(_ context.Context, t store.Table, fn func(key, value []byte) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for k, v := range s.tables[t] {
		if err := fn([]byte(k), v); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of entries in table.
func (s *Store) Len(_ context.Context, t store.Table) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.tables[t]), nil
}

// Ping always succeeds for the in-memory store.
func (s *Store) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
