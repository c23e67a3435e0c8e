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

// Package blessing implements the trust-admission protocol: a two-hop
// cryptographic proof that a candidate peer is reachable through an
// intermediary we already trust.
package blessing

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/sage-x-project/gossipwire/codec"
	"github.com/sage-x-project/gossipwire/internal/metrics"
	"github.com/sage-x-project/gossipwire/peer"
	"github.com/sage-x-project/gossipwire/post"
	"github.com/sage-x-project/gossipwire/score"
	"github.com/sage-x-project/gossipwire/seen"
	"github.com/sage-x-project/gossipwire/trust"
)

// ErrAlreadyTrusted is returned by Construct when the direct sender is
// already a trust set member — constructing a blessing for them is
// pointless since we already trust them.
var ErrAlreadyTrusted = errors.New("blessing: already trusted")

// ErrNotTrusted is returned by Check when the blessing's vouching hop is
// not a current trust set member.
var ErrNotTrusted = errors.New("blessing: intermediate not trusted")

// ErrUnknownPost is returned by Check when we hold no record of the
// referenced post.
var ErrUnknownPost = errors.New("blessing: unknown post")

// ErrQuotaFull is returned by Check whenever the trust set is over
// capacity: the candidate is not admitted, whether or not a worse-scoring
// member was evicted.
var ErrQuotaFull = errors.New("blessing: quota full")

// ErrSelfBlessing is returned by Check when from is us, or when the
// blessing names us as its own intermediate.
var ErrSelfBlessing = errors.New("blessing: self-referential")

// ErrTooShort is returned by Construct when the incoming post's history
// has fewer than two hops: we either authored it or received it directly,
// neither of which needs a blessing.
var ErrTooShort = errors.New("blessing: history too short")

// ErrInvalidSignature is returned by Check when the blessing's signature
// does not verify under the intermediate's public key — forged, or
// computed over the wrong message.
var ErrInvalidSignature = errors.New("blessing: invalid signature")

// Engine is the blessing construction/verification engine for one local
// identity.
type Engine struct {
	self  peer.ID
	seen  *seen.Index
	trust *trust.Set
	score *score.Table
}

// New constructs a blessing engine bound to the local identity and its
// backing stores. Unlike propagation.New, no poststore handle is needed:
// Construct takes the post directly from its caller and Check only needs
// to know the post was seen, not re-fetch its content.
func New(self peer.ID, seenIdx *seen.Index, trustSet *trust.Set, scores *score.Table) *Engine {
	return &Engine{self: self, seen: seenIdx, trust: trustSet, score: scores}
}

// Construct builds a blessing from an incoming post whose history is at
// least two hops long: the last hop A→B (B is us) and the second-to-last
// X→A. The blessing is addressed to X, proving that we (B) can see A,
// whom X already trusts.
func (e *Engine) Construct(ctx context.Context, incoming *post.IncomingPost) (*post.Blessing, error) {
	if len(incoming.History) < 2 {
		return nil, ErrTooShort
	}

	last := incoming.History[len(incoming.History)-1]
	secondToLast := incoming.History[len(incoming.History)-2]
	a := last.From
	x := secondToLast.From

	trusted, err := e.trust.IsTrusted(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("blessing: construct: %w", err)
	}
	if trusted {
		return nil, ErrAlreadyTrusted
	}

	return &post.Blessing{
		Recipient:    x,
		Intermediate: a,
		Post:         incoming.Post.ID(),
		Signature:    last.Signature,
	}, nil
}

// Check verifies a blessing received from peer from and, on success,
// admits from into the trust set if there is room. When there is not, it
// evicts the lowest-scoring current member if from's score exceeds
// theirs, and returns ErrQuotaFull without admitting from.
//
// The asymmetry in the full-quota case — evict the worst member but do
// not admit the new candidate — is preserved as specified; it may be an
// intentional cool-down or a bug in the source behavior, but either way
// it is not this implementation's call to silently "fix".
func (e *Engine) Check(ctx context.Context, b *post.Blessing, from peer.ID) error {
	if from == e.self {
		metrics.BlessingsRejected.WithLabelValues("self_referential").Inc()
		return ErrSelfBlessing
	}
	if b.Intermediate == e.self {
		metrics.BlessingsRejected.WithLabelValues("self_referential").Inc()
		return ErrSelfBlessing
	}

	intermediateTrusted, err := e.trust.IsTrusted(ctx, b.Intermediate)
	if err != nil {
		return fmt.Errorf("blessing: check: %w", err)
	}
	if !intermediateTrusted {
		metrics.BlessingsRejected.WithLabelValues("not_trusted").Inc()
		return ErrNotTrusted
	}

	weSawIt, err := e.seen.Contains(ctx, e.self, b.Post)
	if err != nil {
		return fmt.Errorf("blessing: check: %w", err)
	}
	if !weSawIt {
		metrics.BlessingsRejected.WithLabelValues("unknown_post").Inc()
		return ErrUnknownPost
	}

	intermediateSawIt, err := e.seen.Contains(ctx, b.Intermediate, b.Post)
	if err != nil {
		return fmt.Errorf("blessing: check: %w", err)
	}
	if !intermediateSawIt {
		metrics.BlessingsRejected.WithLabelValues("unknown_post").Inc()
		return ErrUnknownPost
	}

	msg := blessingMessage(b.Post, b.Intermediate, from)
	if err := verifyBlessingSignature(b.Intermediate, msg[:], b.Signature); err != nil {
		metrics.BlessingsRejected.WithLabelValues("invalid_proof").Inc()
		return ErrInvalidSignature
	}

	err = e.admit(ctx, from, b.Intermediate)
	if err != nil {
		if errors.Is(err, ErrQuotaFull) {
			metrics.BlessingsRejected.WithLabelValues("quota_full").Inc()
		}
		return err
	}
	metrics.BlessingsGranted.Inc()
	return nil
}

func (e *Engine) admit(ctx context.Context, from, intermediate peer.ID) error {
	n, err := e.trust.NumTrusted(ctx)
	if err != nil {
		return fmt.Errorf("blessing: admit: %w", err)
	}

	if n <= e.trust.MaxPeers() {
		if err := e.trust.Trust(ctx, from, nowUnix()); err != nil {
			return fmt.Errorf("blessing: admit: %w", err)
		}
		metrics.TrustSetSize.Set(float64(n + 1))
		return nil
	}

	members, err := e.trust.GetTrusted(ctx)
	if err != nil {
		return fmt.Errorf("blessing: admit: %w", err)
	}
	if len(members) == 0 {
		return ErrQuotaFull
	}

	worst := members[0]
	for _, m := range members[1:] {
		if m.Score < worst.Score {
			worst = m
		}
	}

	fromScore, err := e.scoreOrIntermediate(ctx, from, intermediate)
	if err != nil {
		return fmt.Errorf("blessing: admit: %w", err)
	}

	if fromScore > worst.Score {
		if err := e.trust.Untrust(ctx, worst.Peer); err != nil && err != trust.ErrMinimumPeers {
			return fmt.Errorf("blessing: admit: %w", err)
		} else if err == nil {
			metrics.TrustSetSize.Set(float64(len(members) - 1))
		}
		return ErrQuotaFull
	}

	return ErrQuotaFull
}

// scoreOrIntermediate looks up from's score, falling back to the vouching
// intermediate's score when from has never been rated, per spec.
func (e *Engine) scoreOrIntermediate(ctx context.Context, from, intermediate peer.ID) (int, error) {
	rating, found, err := e.score.Lookup(ctx, from)
	if err != nil {
		return 0, err
	}
	if found {
		return rating, nil
	}
	return e.score.Get(ctx, intermediate)
}

// blessingMessage reconstructs the bytes a blessing's signature is
// computed over: SHA-256(post_id ‖ intermediate ‖ from).
func blessingMessage(id post.PostId, intermediate, from peer.ID) [codec.HashSize]byte {
	enc := codec.NewEncoder()
	enc.Fixed(id[:])
	enc.Fixed(intermediate.Bytes())
	enc.Fixed(from.Bytes())
	return codec.Hash(enc.Finish())
}

func verifyBlessingSignature(intermediate peer.ID, msg, sig []byte) error {
	return codec.Verify(ed25519.PublicKey(intermediate.Bytes()), msg, sig)
}

func nowUnix() int64 {
	return time.Now().Unix()
}
