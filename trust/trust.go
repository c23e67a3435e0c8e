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

// Package trust manages the bounded set of peers whose posts we accept
// and to whom we forward. Membership is persistent; entries carry an
// insertion timestamp used only for observability.
package trust

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/sage-x-project/gossipwire/peer"
	"github.com/sage-x-project/gossipwire/score"
	"github.com/sage-x-project/gossipwire/store"
)

// MaxPeers bounds the trust set's cardinality. Blessing admission enforces
// this bound by eviction; a direct Trust call does not (the CLI's
// bootstrap list and the no-bootstrap "trust any first sender" rule both
// call Trust directly and are expected to stay well under it).
const MaxPeers = 32

// MinPeers is the floor Untrust refuses to go below: ourselves and the
// bootstrap peer.
const MinPeers = 2

// ErrMinimumPeers is returned when Untrust would drop the trust set below
// MinPeers.
var ErrMinimumPeers = errors.New("trust: would drop below minimum peers")

// Set is the persistent trust set.
type Set struct {
	store    store.Store
	score    *score.Table
	maxPeers int
}

// NewSet wraps a persistent store.Store as a trust set, bounded by the
// package default MaxPeers.
func NewSet(s store.Store, scores *score.Table) *Set {
	return &Set{store: s, score: scores, maxPeers: MaxPeers}
}

// SetMaxPeers overrides the trust set's capacity bound. Used by tests and
// by deployments that want a non-default quota.
func (s *Set) SetMaxPeers(n int) {
	s.maxPeers = n
}

// MaxPeers returns the trust set's configured capacity bound.
func (s *Set) MaxPeers() int {
	return s.maxPeers
}

// Trust unconditionally adds peer p to the trust set, recording
// insertedAt as its insertion timestamp. Re-trusting an already-trusted
// peer refreshes its timestamp.
func (s *Set) Trust(ctx context.Context, p peer.ID, insertedAt int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(insertedAt))
	if err := s.store.Put(ctx, store.TRUST, p.Bytes(), buf[:]); err != nil {
		return fmt.Errorf("trust: trust: %w", err)
	}
	return nil
}

// Untrust removes p from the trust set. Refuses to drop below MinPeers.
// Removing an unknown peer is a no-op.
func (s *Set) Untrust(ctx context.Context, p peer.ID) error {
	trusted, err := s.IsTrusted(ctx, p)
	if err != nil {
		return err
	}
	if !trusted {
		return nil
	}

	n, err := s.NumTrusted(ctx)
	if err != nil {
		return err
	}
	if n <= MinPeers {
		return ErrMinimumPeers
	}

	if err := s.store.Remove(ctx, store.TRUST, p.Bytes()); err != nil {
		return fmt.Errorf("trust: untrust: %w", err)
	}
	return nil
}

// IsTrusted reports whether p is a current trust set member.
func (s *Set) IsTrusted(ctx context.Context, p peer.ID) (bool, error) {
	ok, err := s.store.Contains(ctx, store.TRUST, p.Bytes())
	if err != nil {
		return false, fmt.Errorf("trust: is_trusted: %w", err)
	}
	return ok, nil
}

// NumTrusted returns the current trust set cardinality.
func (s *Set) NumTrusted(ctx context.Context) (int, error) {
	n, err := s.store.Len(ctx, store.TRUST)
	if err != nil {
		return 0, fmt.Errorf("trust: num_trusted: %w", err)
	}
	return n, nil
}

// Member pairs a trusted peer with its current score.
type Member struct {
	Peer  peer.ID
	Score int
}

// GetTrusted returns every trust set member paired with its current
// score.
func (s *Set) GetTrusted(ctx context.Context) ([]Member, error) {
	var members []Member
	err := s.store.Iterate(ctx, store.TRUST, func(key, _ []byte) error {
		p, err := peer.FromBytes(key)
		if err != nil {
			return err
		}
		sc, err := s.score.Get(ctx, p)
		if err != nil {
			return err
		}
		members = append(members, Member{Peer: p, Score: sc})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("trust: get_trusted: %w", err)
	}
	return members, nil
}

// Peers returns a snapshot of the current trust set membership, without
// scores. A convenience over GetTrusted for callers (propagation's
// fan-out) that only need identities.
func (s *Set) Peers(ctx context.Context) ([]peer.ID, error) {
	var peers []peer.ID
	err := s.store.Iterate(ctx, store.TRUST, func(key, _ []byte) error {
		p, err := peer.FromBytes(key)
		if err != nil {
			return err
		}
		peers = append(peers, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("trust: peers: %w", err)
	}
	return peers, nil
}
