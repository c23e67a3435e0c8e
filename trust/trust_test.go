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

package trust

import (
	"context"
	"testing"

	"github.com/sage-x-project/gossipwire/peer"
	"github.com/sage-x-project/gossipwire/score"
	"github.com/sage-x-project/gossipwire/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSet(t *testing.T) *Set {
	t.Helper()
	backing := memory.New()
	return NewSet(backing, score.NewTable(backing))
}

func idAt(b byte) peer.ID {
	var p peer.ID
	p[0] = b
	return p
}

func TestTrustUntrustIsTrusted(t *testing.T) {
	ctx := context.Background()
	s := newSet(t)

	a, b := idAt(1), idAt(2)
	require.NoError(t, s.Trust(ctx, a, 100))
	require.NoError(t, s.Trust(ctx, b, 101))

	ok, err := s.IsTrusted(ctx, a)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := s.NumTrusted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUntrustRefusesBelowFloor(t *testing.T) {
	ctx := context.Background()
	s := newSet(t)

	a, b, c := idAt(1), idAt(2), idAt(3)
	require.NoError(t, s.Trust(ctx, a, 1))
	require.NoError(t, s.Trust(ctx, b, 2))
	require.NoError(t, s.Trust(ctx, c, 3))

	require.NoError(t, s.Untrust(ctx, a))
	// now at the floor of MinPeers (2 remaining); dropping to 1 should fail
	err := s.Untrust(ctx, b)
	assert.ErrorIs(t, err, ErrMinimumPeers)
}

func TestUntrustUnknownPeerIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newSet(t)

	require.NoError(t, s.Trust(ctx, idAt(1), 1))
	require.NoError(t, s.Trust(ctx, idAt(2), 2))
	require.NoError(t, s.Trust(ctx, idAt(3), 3))

	err := s.Untrust(ctx, idAt(99))
	assert.NoError(t, err)

	n, err := s.NumTrusted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestGetTrustedReturnsScores(t *testing.T) {
	ctx := context.Background()
	backing := memory.New()
	scores := score.NewTable(backing)
	s := NewSet(backing, scores)

	a := idAt(1)
	require.NoError(t, s.Trust(ctx, a, 100))
	require.NoError(t, scores.Set(ctx, a, 1350))

	members, err := s.GetTrusted(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, a, members[0].Peer)
	assert.Equal(t, 1350, members[0].Score)
}

func TestPeersSnapshot(t *testing.T) {
	ctx := context.Background()
	s := newSet(t)

	require.NoError(t, s.Trust(ctx, idAt(1), 1))
	require.NoError(t, s.Trust(ctx, idAt(2), 2))

	peers, err := s.Peers(ctx)
	require.NoError(t, err)
	assert.Len(t, peers, 2)
}
