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

// Package scoring drives the Elo rating table from post outcomes and turns
// the result into trust-set recommendations: promoting a post that
// deserves wider reach may earn its author a blessing request, demoting
// one that does not may get its author untrusted.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sage-x-project/gossipwire/blessing"
	"github.com/sage-x-project/gossipwire/internal/metrics"
	"github.com/sage-x-project/gossipwire/peer"
	"github.com/sage-x-project/gossipwire/post"
	"github.com/sage-x-project/gossipwire/post/poststore"
	"github.com/sage-x-project/gossipwire/score"
	"github.com/sage-x-project/gossipwire/trust"
)

// ErrCannotRateSelf is returned when a post's author is the local identity:
// we cannot play both sides of an Elo match.
var ErrCannotRateSelf = errors.New("scoring: cannot rate own post")

// action is the internal recommendation produced by updateScores.
type action int

const (
	actionNone action = iota
	actionTrust
	actionDistrust
)

// Engine updates peer ratings from post outcomes and translates the
// result into trust-set actions.
type Engine struct {
	self  peer.ID
	score *score.Table
	trust *trust.Set
	posts *poststore.Store
	bless *blessing.Engine
}

// New constructs a scoring engine bound to the local identity and its
// collaborating engines.
func New(self peer.ID, scores *score.Table, trustSet *trust.Set, posts *poststore.Store, blessEngine *blessing.Engine) *Engine {
	return &Engine{self: self, score: scores, trust: trustSet, posts: posts, bless: blessEngine}
}

// updateScores applies one Elo update between us and a post's author and
// returns the recommended follow-up action. promoteUs true means we are
// the winner of the match (used by Demote, which rewards us for catching a
// bad post); promoteUs false means the author wins (used by Promote,
// which rewards the author for a post worth spreading).
func (e *Engine) updateScores(ctx context.Context, promoteUs bool, p *post.IncomingPost) (action, error) {
	start := time.Now()
	defer func() { metrics.EloUpdateDuration.Observe(time.Since(start).Seconds()) }()

	if p.Post.Author == e.self {
		return actionNone, ErrCannotRateSelf
	}

	ru, err := e.score.Get(ctx, e.self)
	if err != nil {
		return actionNone, fmt.Errorf("scoring: update_scores: %w", err)
	}
	ra, err := e.score.Get(ctx, p.Post.Author)
	if err != nil {
		return actionNone, fmt.Errorf("scoring: update_scores: %w", err)
	}

	var newRu, newRa int
	if promoteUs {
		newRu, newRa = score.Update(ru, ra)
	} else {
		newRa, newRu = score.Update(ra, ru)
	}

	if err := e.score.Set(ctx, e.self, newRu); err != nil {
		return actionNone, fmt.Errorf("scoring: update_scores: %w", err)
	}
	if err := e.score.Set(ctx, p.Post.Author, newRa); err != nil {
		return actionNone, fmt.Errorf("scoring: update_scores: %w", err)
	}

	prob := score.Expectation(newRu, newRa)
	switch {
	case prob > 0.6:
		return actionTrust, nil
	case prob > 0.4:
		return actionDistrust, nil
	default:
		return actionNone, nil
	}
}

// Promote rewards a post's author for content worth spreading: the author
// is treated as the Elo winner. If the resulting rating gap recommends
// trust, a blessing over the post is constructed and returned for the
// caller to transmit. Any other recommendation is ignored here — Promote
// never untrusts.
func (e *Engine) Promote(ctx context.Context, id post.PostId) (*post.Blessing, error) {
	p, err := e.posts.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("scoring: promote: %w", err)
	}

	act, err := e.updateScores(ctx, false, p)
	if err != nil {
		return nil, fmt.Errorf("scoring: promote: %w", err)
	}
	if act != actionTrust {
		return nil, nil
	}

	b, err := e.bless.Construct(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("scoring: promote: %w", err)
	}
	return b, nil
}

// Demote penalizes a post's author for content we judge unworthy: we are
// treated as the Elo winner. If the resulting rating gap recommends
// distrust, the author is removed from the trust set.
func (e *Engine) Demote(ctx context.Context, id post.PostId) error {
	p, err := e.posts.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("scoring: demote: %w", err)
	}

	act, err := e.updateScores(ctx, true, p)
	if err != nil {
		return fmt.Errorf("scoring: demote: %w", err)
	}
	if act != actionDistrust {
		return nil
	}

	if err := e.Untrust(ctx, p.Post.Author); err != nil && !errors.Is(err, trust.ErrMinimumPeers) {
		return fmt.Errorf("scoring: demote: %w", err)
	}
	return nil
}

// Untrust removes peer p from the trust set, subject to the trust
// package's minimum-peers floor.
func (e *Engine) Untrust(ctx context.Context, p peer.ID) error {
	return e.trust.Untrust(ctx, p)
}
