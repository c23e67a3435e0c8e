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

// Package identity manages the node's long-lived secret key: generated
// once on first start, persisted, and immutable thereafter. Loss of the
// persisted secret is loss of identity.
package identity

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/sage-x-project/gossipwire/peer"
	"github.com/sage-x-project/gossipwire/store"
)

const secretKey = "local"

// Identity is the local node's key material: the secret key it alone
// holds, and its derived public peer identity.
type Identity struct {
	Peer    peer.ID
	Private ed25519.PrivateKey
}

// Store persists and serves the local identity. Safe for concurrent use;
// Get is idempotent after the first successful call.
type Store struct {
	store store.Store

	mu       sync.Mutex
	cached   *Identity
	hasCache bool
}

// NewStore wraps a persistent store.Store as an identity store.
func NewStore(s store.Store) *Store {
	return &Store{store: s}
}

// Get returns the local identity, generating and persisting one on first
// call if none exists. Subsequent calls return the same identity.
func (s *Store) Get(ctx context.Context) (*Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hasCache {
		return s.cached, nil
	}

	raw, ok, err := s.store.Get(ctx, store.IDENTITY, []byte(secretKey))
	if err != nil {
		return nil, fmt.Errorf("identity: load: %w", err)
	}

	if ok {
		id, err := fromSecretBytes(raw)
		if err != nil {
			return nil, fmt.Errorf("identity: corrupt secret: %w", err)
		}
		s.cached = id
		s.hasCache = true
		return s.cached, nil
	}

	id, err := Generate()
	if err != nil {
		return nil, fmt.Errorf("identity: generate: %w", err)
	}

	if err := s.store.Put(ctx, store.IDENTITY, []byte(secretKey), id.Private.Seed()); err != nil {
		return nil, fmt.Errorf("identity: persist: %w", err)
	}

	s.cached = id
	s.hasCache = true
	return s.cached, nil
}

// Generate returns a fresh identity without touching persistence. Used in
// tests and to derive throwaway keys (e.g. other simulated nodes).
func Generate() (*Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	id, err := peer.FromBytes(pub)
	if err != nil {
		return nil, err
	}

	return &Identity{Peer: id, Private: priv}, nil
}

// Export returns the local identity's raw secret seed, for the CLI's
// backup command. Generates and persists an identity first if none
// exists yet, same as Get.
func (s *Store) Export(ctx context.Context) ([]byte, error) {
	id, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return id.Private.Seed(), nil
}

// Import overwrites the persisted identity with seed, bypassing Get's
// generate-on-absent behavior. Used by the CLI's backup-restore command;
// a node with an existing identity that still has peers expecting its
// old public key should not call this casually.
func (s *Store) Import(ctx context.Context, seed []byte) error {
	id, err := fromSecretBytes(seed)
	if err != nil {
		return fmt.Errorf("identity: import: %w", err)
	}

	if err := s.store.Put(ctx, store.IDENTITY, []byte(secretKey), seed); err != nil {
		return fmt.Errorf("identity: import: %w", err)
	}

	s.mu.Lock()
	s.cached = id
	s.hasCache = true
	s.mu.Unlock()
	return nil
}

func fromSecretBytes(seed []byte) (*Identity, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("identity: secret must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)

	id, err := peer.FromBytes(pub)
	if err != nil {
		return nil, err
	}

	return &Identity{Peer: id, Private: priv}, nil
}
