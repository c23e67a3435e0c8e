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

package identity

import (
	"context"
	"testing"

	"github.com/sage-x-project/gossipwire/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetGeneratesOnFirstCall(t *testing.T) {
	ctx := context.Background()
	s := NewStore(memory.New())

	id, err := s.Get(ctx)
	require.NoError(t, err)
	assert.False(t, id.Peer.IsZero())
}

func TestGetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewStore(memory.New())

	first, err := s.Get(ctx)
	require.NoError(t, err)

	second, err := s.Get(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.Peer, second.Peer)
}

func TestGetSurvivesRestartAgainstSameStore(t *testing.T) {
	ctx := context.Background()
	backing := memory.New()

	first, err := NewStore(backing).Get(ctx)
	require.NoError(t, err)

	// a fresh Store wrapping the same backing store must recover the
	// same identity rather than generating a new one
	second, err := NewStore(backing).Get(ctx)
	require.NoError(t, err)

	assert.Equal(t, first.Peer, second.Peer)
	assert.Equal(t, first.Private, second.Private)
}

func TestGenerateProducesDistinctIdentities(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)

	assert.NotEqual(t, a.Peer, b.Peer)
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	source := NewStore(memory.New())
	original, err := source.Get(ctx)
	require.NoError(t, err)

	seed, err := source.Export(ctx)
	require.NoError(t, err)
	assert.Len(t, seed, 32)

	restored := NewStore(memory.New())
	require.NoError(t, restored.Import(ctx, seed))

	got, err := restored.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, original.Peer, got.Peer)
	assert.Equal(t, original.Private, got.Private)
}

func TestImportRejectsWrongLengthSeed(t *testing.T) {
	ctx := context.Background()
	s := NewStore(memory.New())

	err := s.Import(ctx, []byte("too short"))
	assert.Error(t, err)
}
