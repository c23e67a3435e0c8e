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

package scoring

import (
	"context"
	"testing"

	"github.com/sage-x-project/gossipwire/blessing"
	"github.com/sage-x-project/gossipwire/codec"
	"github.com/sage-x-project/gossipwire/identity"
	"github.com/sage-x-project/gossipwire/post"
	"github.com/sage-x-project/gossipwire/post/poststore"
	"github.com/sage-x-project/gossipwire/score"
	"github.com/sage-x-project/gossipwire/seen"
	"github.com/sage-x-project/gossipwire/store/memory"
	"github.com/sage-x-project/gossipwire/trust"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	self  *identity.Identity
	seen  *seen.Index
	posts *poststore.Store
	score *score.Table
	trust *trust.Set
	bless *blessing.Engine
	eng   *Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backing := memory.New()
	id, err := identity.Generate()
	require.NoError(t, err)

	h := &harness{self: id}
	h.seen = seen.NewIndex(backing)
	h.posts = poststore.New(backing)
	h.score = score.NewTable(backing)
	h.trust = trust.NewSet(backing, h.score)
	h.bless = blessing.New(id.Peer, h.seen, h.trust, h.score)
	h.eng = New(id.Peer, h.score, h.trust, h.posts, h.bless)
	return h
}

// authorsPost builds and persists an IncomingPost authored by a distinct
// identity, as if it had just been received.
func authorsPost(t *testing.T, h *harness, author *identity.Identity, content string) *post.IncomingPost {
	t.Helper()
	ctx := context.Background()
	raw := post.RawPost{Author: author.Peer, Content: content, MessageID: [16]byte{9}}
	id := raw.ID()
	sig := codec.Sign(author.Private, id[:])

	incoming, err := post.NewIncomingPost(raw, nil, sig, 1, author.Peer)
	require.NoError(t, err)

	require.NoError(t, h.posts.Put(ctx, incoming))
	require.NoError(t, h.seen.Add(ctx, h.self.Peer, incoming.Post.ID()))
	return incoming
}

// TestS3EloUpdate walks spec scenario S3: promoting another author's post
// lowers our own score and raises theirs, conserving their sum.
func TestS3EloUpdate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	author, err := identity.Generate()
	require.NoError(t, err)

	incoming := authorsPost(t, h, author, "worth spreading")

	_, err = h.eng.Promote(ctx, incoming.Post.ID())
	require.NoError(t, err)

	uScore, err := h.score.Get(ctx, h.self.Peer)
	require.NoError(t, err)
	aScore, err := h.score.Get(ctx, author.Peer)
	require.NoError(t, err)

	assert.Less(t, uScore, score.DefaultRating)
	assert.Greater(t, aScore, score.DefaultRating)
	assert.InDelta(t, 2*score.DefaultRating, uScore+aScore, 1)
}

// TestS4SelfPromotionRejected walks spec scenario S4: promoting our own
// post is rejected and leaves scores untouched.
func TestS4SelfPromotionRejected(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	incoming := authorsPost(t, h, h.self, "mine")

	_, err := h.eng.Promote(ctx, incoming.Post.ID())
	assert.ErrorIs(t, err, ErrCannotRateSelf)

	selfScore, err := h.score.Get(ctx, h.self.Peer)
	require.NoError(t, err)
	assert.Equal(t, score.DefaultRating, selfScore)
}

func TestDemoteUntrustsOnStrongDistrustSignal(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	author, err := identity.Generate()
	require.NoError(t, err)
	bootstrap, err := identity.Generate()
	require.NoError(t, err)
	third, err := identity.Generate()
	require.NoError(t, err)

	require.NoError(t, h.trust.Trust(ctx, author.Peer, 1))
	require.NoError(t, h.trust.Trust(ctx, bootstrap.Peer, 1))
	require.NoError(t, h.trust.Trust(ctx, third.Peer, 1))

	incoming := authorsPost(t, h, author, "bad content")

	require.NoError(t, h.eng.Demote(ctx, incoming.Post.ID()))

	trusted, err := h.trust.IsTrusted(ctx, author.Peer)
	require.NoError(t, err)
	assert.False(t, trusted)
}

func TestPromoteReturnsNilWhenNoActionRecommended(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	author, err := identity.Generate()
	require.NoError(t, err)

	incoming := authorsPost(t, h, author, "mild")

	b, err := h.eng.Promote(ctx, incoming.Post.ID())
	require.NoError(t, err)
	assert.Nil(t, b)
}
