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

package blessing

import (
	"context"
	"testing"

	"github.com/sage-x-project/gossipwire/codec"
	"github.com/sage-x-project/gossipwire/identity"
	"github.com/sage-x-project/gossipwire/post"
	"github.com/sage-x-project/gossipwire/post/poststore"
	"github.com/sage-x-project/gossipwire/propagation"
	"github.com/sage-x-project/gossipwire/score"
	"github.com/sage-x-project/gossipwire/seen"
	"github.com/sage-x-project/gossipwire/store/memory"
	"github.com/sage-x-project/gossipwire/trust"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type simNode struct {
	id    *identity.Identity
	seen  *seen.Index
	posts *poststore.Store
	trust *trust.Set
	score *score.Table
	prop  *propagation.Engine
	bless *Engine
}

func newSimNode(t *testing.T) *simNode {
	t.Helper()
	backing := memory.New()
	id, err := identity.Generate()
	require.NoError(t, err)

	n := &simNode{id: id}
	n.seen = seen.NewIndex(backing)
	n.posts = poststore.New(backing)
	n.score = score.NewTable(backing)
	n.trust = trust.NewSet(backing, n.score)
	n.prop = propagation.New(id.Peer, id.Private, n.seen, n.posts, n.trust)
	n.bless = New(id.Peer, n.seen, n.trust, n.score)
	return n
}

// TestS2ThreeHopBlessing walks spec scenario S2: N1 trusts N2, N2 trusts
// N3; N1 authors a post that propagates N1→N2→N3; N3 constructs a
// blessing that N1 then checks, admitting N3 into N1's trust set.
func TestS2ThreeHopBlessing(t *testing.T) {
	ctx := context.Background()
	n1 := newSimNode(t)
	n2 := newSimNode(t)
	n3 := newSimNode(t)

	require.NoError(t, n1.trust.Trust(ctx, n2.id.Peer, 1))
	require.NoError(t, n2.trust.Trust(ctx, n3.id.Peer, 1))

	out1, err := n1.prop.SendPost(ctx, "hello network")
	require.NoError(t, err)
	require.Len(t, out1, 1)

	in2, err := out1[0].ToIncoming(10, n2.id.Peer)
	require.NoError(t, err)
	out2, err := n2.prop.Receive(ctx, in2)
	require.NoError(t, err)
	require.Len(t, out2, 1)

	in3, err := out2[0].ToIncoming(20, n3.id.Peer)
	require.NoError(t, err)
	out3, err := n3.prop.Receive(ctx, in3)
	require.NoError(t, err)
	assert.Empty(t, out3)

	b, err := n3.bless.Construct(ctx, in3)
	require.NoError(t, err)
	assert.Equal(t, n1.id.Peer, b.Recipient)
	assert.Equal(t, n2.id.Peer, b.Intermediate)

	trustedBefore, err := n1.trust.IsTrusted(ctx, n3.id.Peer)
	require.NoError(t, err)
	assert.False(t, trustedBefore)

	err = n1.bless.Check(ctx, b, n3.id.Peer)
	require.NoError(t, err)

	trustedAfter, err := n1.trust.IsTrusted(ctx, n3.id.Peer)
	require.NoError(t, err)
	assert.True(t, trustedAfter)
}

func TestConstructRejectsShortHistory(t *testing.T) {
	ctx := context.Background()
	n := newSimNode(t)

	out, err := n.prop.SendPost(ctx, "short")
	require.NoError(t, err)
	assert.Empty(t, out)

	id, err := identity.Generate()
	require.NoError(t, err)
	require.NoError(t, n.trust.Trust(ctx, id.Peer, 1))

	out, err = n.prop.SendPost(ctx, "one hop")
	require.NoError(t, err)
	require.Len(t, out, 1)

	incoming, err := out[0].ToIncoming(5, id.Peer)
	require.NoError(t, err)

	recvNode := newSimNode(t)
	recvNode.id = id
	recvNode.bless = New(id.Peer, recvNode.seen, recvNode.trust, recvNode.score)

	_, err = recvNode.bless.Construct(ctx, incoming)
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestCheckRejectsSelfBlessing(t *testing.T) {
	ctx := context.Background()
	n := newSimNode(t)

	b := &post.Blessing{
		Recipient:    n.id.Peer,
		Intermediate: n.id.Peer,
		Post:         post.PostId{},
		Signature:    nil,
	}

	err := n.bless.Check(ctx, b, n.id.Peer)
	assert.ErrorIs(t, err, ErrSelfBlessing)
}

func TestCheckRejectsSelfAsIntermediate(t *testing.T) {
	ctx := context.Background()
	n := newSimNode(t)
	other, err := identity.Generate()
	require.NoError(t, err)

	b := &post.Blessing{
		Recipient:    other.Peer,
		Intermediate: n.id.Peer,
		Post:         post.PostId{},
		Signature:    nil,
	}

	err = n.bless.Check(ctx, b, other.Peer)
	assert.ErrorIs(t, err, ErrSelfBlessing)
}

func TestCheckRejectsUntrustedIntermediate(t *testing.T) {
	ctx := context.Background()
	n := newSimNode(t)
	other, err := identity.Generate()
	require.NoError(t, err)
	from, err := identity.Generate()
	require.NoError(t, err)

	b := &post.Blessing{
		Recipient:    other.Peer,
		Intermediate: other.Peer,
		Post:         post.PostId{},
		Signature:    nil,
	}

	err = n.bless.Check(ctx, b, from.Peer)
	assert.ErrorIs(t, err, ErrNotTrusted)
}

// TestS5Quota walks spec scenario S5 with MAX_PEERS=2: a filled trust set
// of peers scored 1000 and 1100 is presented a valid blessing from a peer
// scored 1050 — the 1000-score member is evicted but the candidate is not
// admitted (QuotaFull). A second blessing from a peer scored 1500 is then
// admitted since a slot is now free.
func TestS5Quota(t *testing.T) {
	ctx := context.Background()
	n := newSimNode(t)
	n.trust.SetMaxPeers(2)

	low, err := identity.Generate()
	require.NoError(t, err)
	high, err := identity.Generate()
	require.NoError(t, err)
	intermediary, err := identity.Generate()
	require.NoError(t, err)
	candidate, err := identity.Generate()
	require.NoError(t, err)

	require.NoError(t, n.trust.Trust(ctx, low.Peer, 1))
	require.NoError(t, n.trust.Trust(ctx, high.Peer, 2))
	require.NoError(t, n.trust.Trust(ctx, intermediary.Peer, 3))
	require.NoError(t, n.score.Set(ctx, low.Peer, 1000))
	require.NoError(t, n.score.Set(ctx, high.Peer, 1100))
	require.NoError(t, n.score.Set(ctx, candidate.Peer, 1050))

	var postID post.PostId
	postID[0] = 77
	require.NoError(t, n.seen.Add(ctx, n.id.Peer, postID))
	require.NoError(t, n.seen.Add(ctx, intermediary.Peer, postID))

	msg := blessingMessage(postID, intermediary.Peer, candidate.Peer)
	b := &post.Blessing{
		Recipient:    intermediary.Peer,
		Intermediate: intermediary.Peer,
		Post:         postID,
		Signature:    codec.Sign(intermediary.Private, msg[:]),
	}

	err = n.bless.Check(ctx, b, candidate.Peer)
	assert.ErrorIs(t, err, ErrQuotaFull)

	lowStillTrusted, err := n.trust.IsTrusted(ctx, low.Peer)
	require.NoError(t, err)
	assert.False(t, lowStillTrusted)

	candidateTrusted, err := n.trust.IsTrusted(ctx, candidate.Peer)
	require.NoError(t, err)
	assert.False(t, candidateTrusted)

	// a second blessing from a higher-scoring candidate now succeeds:
	// the trust set is back under quota after the eviction above.
	candidate2, err := identity.Generate()
	require.NoError(t, err)
	require.NoError(t, n.score.Set(ctx, candidate2.Peer, 1500))

	var postID2 post.PostId
	postID2[0] = 88
	require.NoError(t, n.seen.Add(ctx, n.id.Peer, postID2))
	require.NoError(t, n.seen.Add(ctx, intermediary.Peer, postID2))

	msg2 := blessingMessage(postID2, intermediary.Peer, candidate2.Peer)
	b2 := &post.Blessing{
		Recipient:    intermediary.Peer,
		Intermediate: intermediary.Peer,
		Post:         postID2,
		Signature:    codec.Sign(intermediary.Private, msg2[:]),
	}

	err = n.bless.Check(ctx, b2, candidate2.Peer)
	require.NoError(t, err)

	candidate2Trusted, err := n.trust.IsTrusted(ctx, candidate2.Peer)
	require.NoError(t, err)
	assert.True(t, candidate2Trusted)
}
