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

// Package propagation implements the post propagation engine: dedup via
// the seen index, insertion into the post store, and per-trusted-peer
// fan-out. It is a pure function over the persistent stores plus
// randomness for a new post's message id; all suspension happens in
// store I/O, never inside the engine's own logic.
package propagation

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/sage-x-project/gossipwire/internal/metrics"
	"github.com/sage-x-project/gossipwire/peer"
	"github.com/sage-x-project/gossipwire/post"
	"github.com/sage-x-project/gossipwire/post/poststore"
	"github.com/sage-x-project/gossipwire/seen"
	"github.com/sage-x-project/gossipwire/trust"
	"golang.org/x/sync/errgroup"
)

// ErrAlreadySeen is returned when the post has already been recorded as
// seen by us. It is an idempotent no-op, not a failure: the caller may
// ignore it.
var ErrAlreadySeen = errors.New("propagation: already seen")

// Engine is the post propagation engine for one local identity.
type Engine struct {
	self  peer.ID
	priv  ed25519.PrivateKey
	seen  *seen.Index
	posts *poststore.Store
	trust *trust.Set
}

// New constructs a propagation engine bound to the local identity and its
// backing stores.
func New(self peer.ID, priv ed25519.PrivateKey, seenIdx *seen.Index, posts *poststore.Store, trustSet *trust.Set) *Engine {
	return &Engine{self: self, priv: priv, seen: seenIdx, posts: posts, trust: trustSet}
}

// Receive processes an already-validated IncomingPost: dedups against the
// seen index, records the post, and fans it out to every currently
// trusted peer, returning one OutgoingPost per recipient for the caller
// (transport) to deliver.
func (e *Engine) Receive(ctx context.Context, incoming *post.IncomingPost) ([]post.OutgoingPost, error) {
	id := incoming.Post.ID()

	alreadySeen, err := e.seen.Contains(ctx, e.self, id)
	if err != nil {
		return nil, fmt.Errorf("propagation: receive: %w", err)
	}
	if alreadySeen {
		metrics.PostsReceived.WithLabelValues("duplicate").Inc()
		return nil, ErrAlreadySeen
	}
	metrics.PostsReceived.WithLabelValues("new").Inc()

	if err := e.seen.Add(ctx, e.self, id); err != nil {
		return nil, fmt.Errorf("propagation: receive: %w", err)
	}

	for _, hop := range incoming.History {
		if err := e.seen.Add(ctx, hop.From, id); err != nil {
			return nil, fmt.Errorf("propagation: receive: %w", err)
		}
	}

	if err := e.posts.Put(ctx, incoming); err != nil {
		return nil, fmt.Errorf("propagation: receive: %w", err)
	}

	peers, err := e.trust.Peers(ctx)
	if err != nil {
		return nil, fmt.Errorf("propagation: receive: %w", err)
	}

	var outgoing []post.OutgoingPost
	for _, p := range peers {
		skip, err := e.seen.Contains(ctx, p, id)
		if err != nil {
			return nil, fmt.Errorf("propagation: receive: %w", err)
		}
		if skip {
			continue
		}

		// Registered as seen before transmission is attempted: a failed
		// send leaves a stale seen entry, which is acceptable since the
		// seen index is what makes future blessings verifiable.
		if err := e.seen.Add(ctx, p, id); err != nil {
			return nil, fmt.Errorf("propagation: receive: %w", err)
		}

		outgoing = append(outgoing, post.NewOutgoingPost(incoming, p, e.self, e.priv))
	}

	return outgoing, nil
}

// SendPost authors a new post, signs it, and feeds it to Receive as if it
// had arrived with empty history. Self-authored posts are handled
// identically to received ones from that point.
func (e *Engine) SendPost(ctx context.Context, content string) ([]post.OutgoingPost, error) {
	var messageID [post.MessageIDSize]byte
	if _, err := rand.Read(messageID[:]); err != nil {
		return nil, fmt.Errorf("propagation: send_post: %w", err)
	}

	raw := post.RawPost{Author: e.self, Content: content, MessageID: messageID}
	id := raw.ID()

	incoming, err := post.NewIncomingPost(raw, nil, signRaw(e.priv, id), time.Now().Unix(), e.self)
	if err != nil {
		return nil, fmt.Errorf("propagation: send_post: %w", err)
	}

	return e.Receive(ctx, incoming)
}

func signRaw(priv ed25519.PrivateKey, id post.PostId) []byte {
	return ed25519.Sign(priv, id[:])
}

// DeliverAll is a convenience helper: it calls deliver for each outgoing
// copy concurrently, via an errgroup, and returns the first error (if
// any). Transport layers may use this, or drive deliveries themselves.
func DeliverAll(ctx context.Context, outgoing []post.OutgoingPost, deliver func(context.Context, post.OutgoingPost) error) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, op := range outgoing {
		op := op
		g.Go(func() error {
			if err := deliver(ctx, op); err != nil {
				metrics.PostsForwarded.WithLabelValues("failure").Inc()
				return err
			}
			metrics.PostsForwarded.WithLabelValues("success").Inc()
			return nil
		})
	}
	return g.Wait()
}
