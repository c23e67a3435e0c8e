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

// Package score implements the per-peer Elo-style rating table: an
// integer rating per peer, defaulting to 1200 when unseen, persisted
// through Set and computed by Update.
package score

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/sage-x-project/gossipwire/peer"
	"github.com/sage-x-project/gossipwire/store"
)

// DefaultRating is the rating assigned to a peer never before scored.
const DefaultRating = 1200

// K is the Elo K-factor: the maximum rating swing per update.
const K = 32

// Table is the persistent peer → rating mapping.
type Table struct {
	store store.Store
}

// NewTable wraps a persistent store.Store as a score table.
func NewTable(s store.Store) *Table {
	return &Table{store: s}
}

// Get returns p's current rating, or DefaultRating if p has never been
// scored.
func (t *Table) Get(ctx context.Context, p peer.ID) (int, error) {
	raw, ok, err := t.store.Get(ctx, store.SCORES, p.Bytes())
	if err != nil {
		return 0, fmt.Errorf("score: get: %w", err)
	}
	if !ok {
		return DefaultRating, nil
	}
	return int(int64(binary.BigEndian.Uint64(raw))), nil
}

// Lookup returns p's current rating and whether p has ever been scored.
// Unlike Get, it does not substitute DefaultRating for an absent entry,
// letting callers apply their own fallback (blessing admission falls back
// to the vouching intermediate's score instead of the global default).
func (t *Table) Lookup(ctx context.Context, p peer.ID) (int, bool, error) {
	raw, ok, err := t.store.Get(ctx, store.SCORES, p.Bytes())
	if err != nil {
		return 0, false, fmt.Errorf("score: lookup: %w", err)
	}
	if !ok {
		return 0, false, nil
	}
	return int(int64(binary.BigEndian.Uint64(raw))), true, nil
}

// Set persists p's rating.
func (t *Table) Set(ctx context.Context, p peer.ID, rating int) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(int64(rating)))
	if err := t.store.Put(ctx, store.SCORES, p.Bytes(), buf[:]); err != nil {
		return fmt.Errorf("score: set: %w", err)
	}
	return nil
}

// Expectation returns the Elo expected score of a player rated x against
// one rated y: E(x,y) = 1 / (1 + 10^((y-x)/400)).
func Expectation(x, y int) float64 {
	return 1 / (1 + math.Pow(10, float64(y-x)/400))
}

// Update applies one Elo update with K-factor K: winner's rating moves up
// by K*(1-E(loser,winner)), loser's moves down by K*(0-E(winner,loser)).
// Both deltas are truncated toward zero before being added, per Go's
// float-to-int conversion.
func Update(winner, loser int) (newWinner, newLoser int) {
	ew := Expectation(winner, loser)
	el := Expectation(loser, winner)

	newWinner = winner + int(K*(1-el))
	newLoser = loser + int(K*(0-ew))
	return
}
