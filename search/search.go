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

// Package search lists stored posts ordered by a freshness score that
// favors content from well-regarded authors that arrived recently. Results
// are paginated by an opaque cursor encoding the last-seen (timestamp,
// post_id) pair, so callers can resume a listing across ties without
// re-scanning what they already saw.
package search

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sage-x-project/gossipwire/post"
	"github.com/sage-x-project/gossipwire/post/poststore"
	"github.com/sage-x-project/gossipwire/score"
)

// ErrMalformedCursor is returned when a cursor token fails to decode.
var ErrMalformedCursor = errors.New("search: malformed cursor")

// Cursor identifies a position in the post listing: the timestamp and
// post id of the last result a caller has already consumed.
type Cursor struct {
	Timestamp int64
	PostID    post.PostId
}

// cursorSize is the encoded length of a Cursor: an 8-byte timestamp
// followed by a fixed-size post id.
const cursorSize = 8 + len(post.PostId{})

// Encode renders the cursor as an opaque base64 token.
func (c Cursor) Encode() string {
	var buf [cursorSize]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(c.Timestamp))
	copy(buf[8:], c.PostID[:])
	return base64.RawURLEncoding.EncodeToString(buf[:])
}

// DecodeCursor parses a token produced by Cursor.Encode.
func DecodeCursor(token string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ErrMalformedCursor
	}
	if len(raw) != cursorSize {
		return Cursor{}, ErrMalformedCursor
	}

	var c Cursor
	c.Timestamp = int64(binary.BigEndian.Uint64(raw[:8]))
	copy(c.PostID[:], raw[8:])
	return c, nil
}

// Result pairs a stored post with its computed freshness score.
type Result struct {
	Post  *post.IncomingPost
	Score float64
}

// Engine lists posts from a post store, ranked by freshness.
type Engine struct {
	posts *poststore.Store
	score *score.Table
}

// New constructs a search engine over a post store and score table.
func New(posts *poststore.Store, scores *score.Table) *Engine {
	return &Engine{posts: posts, score: scores}
}

// Posts returns up to max posts that sort strictly after the cursor's
// position (nil means "the beginning") in the listing order, ordered by
// received timestamp descending and then by post id byte order for
// stability across ties, each paired with a freshness score of
// log10(author_score) / seconds_since_received for the caller to use in
// its own presentation ranking. The cursor for resuming past the last
// returned result is also returned whenever at least one result was
// returned, and is nil only for an empty page.
func (e *Engine) Posts(ctx context.Context, after *Cursor, max int) ([]Result, *Cursor, error) {
	var all []*post.IncomingPost
	err := e.posts.Iterate(ctx, func(ip *post.IncomingPost) error {
		if after != nil && !isAfterCursor(ip, *after) {
			return nil
		}
		all = append(all, ip)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("search: posts: %w", err)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Received != all[j].Received {
			return all[i].Received > all[j].Received
		}
		idI, idJ := all[i].Post.ID(), all[j].Post.ID()
		return bytes.Compare(idI[:], idJ[:]) < 0
	})

	if max > 0 && len(all) > max {
		all = all[:max]
	}

	results := make([]Result, 0, len(all))
	now := time.Now().Unix()
	for _, ip := range all {
		authorScore, err := e.score.Get(ctx, ip.Post.Author)
		if err != nil {
			return nil, nil, fmt.Errorf("search: posts: %w", err)
		}
		results = append(results, Result{Post: ip, Score: freshness(authorScore, ip.Received, now)})
	}

	var next *Cursor
	if len(results) > 0 {
		last := results[len(results)-1].Post
		next = &Cursor{Timestamp: last.Received, PostID: last.Post.ID()}
	}
	return results, next, nil
}

// isAfterCursor reports whether ip sorts strictly after cursor c in
// (received desc, post_id asc) order — i.e. whether it belongs on the
// page that continues past c, not before it.
func isAfterCursor(ip *post.IncomingPost, c Cursor) bool {
	if ip.Received != c.Timestamp {
		return ip.Received < c.Timestamp
	}
	id := ip.Post.ID()
	return bytes.Compare(id[:], c.PostID[:]) > 0
}

// freshness computes log10(author_score) / seconds_since_received. A post
// received this instant is clamped to one second of age to avoid a
// division by zero.
func freshness(authorScore int, received, now int64) float64 {
	age := now - received
	if age < 1 {
		age = 1
	}
	base := float64(authorScore)
	if base < 1 {
		base = 1
	}
	return math.Log10(base) / float64(age)
}
