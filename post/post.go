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

// Package post defines the wire and fingerprint data model: RawPost,
// PostId, path hops, the incoming/outgoing post records, and blessings.
// Construction of an IncomingPost from untrusted bytes performs all the
// cryptographic and chain-shape validation the propagation engine relies
// on; by the time a *post.IncomingPost exists, it is trusted.
package post

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"

	"github.com/sage-x-project/gossipwire/codec"
	"github.com/sage-x-project/gossipwire/peer"
)

// MessageIDSize is the length in bytes of a RawPost's disambiguator.
const MessageIDSize = 16

// ErrMalformed covers every construction-time validation failure: a bad
// author signature, a bad hop signature, a non-contiguous chain, or a
// terminal hop not addressed to us.
var ErrMalformed = errors.New("post: malformed")

// RawPost is the immutable authored content: author, text, and a random
// disambiguator so two posts with identical author+content still hash to
// distinct fingerprints.
type RawPost struct {
	Author    peer.ID
	Content   string
	MessageID [MessageIDSize]byte
}

// Encode returns the canonical, deterministic serialization of p used for
// fingerprinting: author (32 bytes fixed), content (length-prefixed),
// message_id (16 bytes fixed), in that order.
func (p RawPost) Encode() []byte {
	enc := codec.NewEncoder()
	enc.Fixed(p.Author.Bytes())
	enc.String(p.Content)
	enc.Fixed(p.MessageID[:])
	return enc.Finish()
}

// ID computes the post's fingerprint: SHA-256 over its canonical encoding.
func (p RawPost) ID() PostId {
	return PostId(codec.Hash(p.Encode()))
}

// PostId is a post's content-addressed fingerprint.
type PostId [codec.HashSize]byte

// Hex renders the fingerprint in hex, the canonical wire/string form.
func (id PostId) Hex() string {
	return hex.EncodeToString(id[:])
}

// String implements fmt.Stringer.
func (id PostId) String() string {
	return id.Hex()
}

// PostIdFromHex decodes a hex-encoded fingerprint.
func PostIdFromHex(s string) (PostId, error) {
	var id PostId
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(b) != codec.HashSize {
		return id, errors.New("post: post id must be 32 bytes")
	}
	copy(id[:], b)
	return id, nil
}

// Hop is a non-repudiable receipt that From transmitted a post to To: a
// signature by From over SHA-256(post_id ‖ from ‖ to).
type Hop struct {
	From      peer.ID
	To        peer.ID
	Signature []byte
}

// hopMessage reconstructs the bytes a hop's signature is computed over.
func hopMessage(id PostId, from, to peer.ID) [codec.HashSize]byte {
	enc := codec.NewEncoder()
	enc.Fixed(id[:])
	enc.Fixed(from.Bytes())
	enc.Fixed(to.Bytes())
	return codec.Hash(enc.Finish())
}

// SignHop produces a Hop from from to to over post id, signed by priv
// (which must correspond to from).
func SignHop(id PostId, from, to peer.ID, priv ed25519.PrivateKey) Hop {
	msg := hopMessage(id, from, to)
	return Hop{
		From:      from,
		To:        to,
		Signature: codec.Sign(priv, msg[:]),
	}
}

// Verify checks the hop's signature under its own From key.
func (h Hop) Verify(id PostId) error {
	msg := hopMessage(id, h.From, h.To)
	return codec.Verify(ed25519.PublicKey(h.From.Bytes()), msg[:], h.Signature)
}

// IncomingPost is a post as accepted by this node: the content, the
// truncated history it arrived with, when it was received, and the
// author's signature over the post id. By construction every invariant in
// the package doc has already been checked.
type IncomingPost struct {
	Post      RawPost
	History   []Hop
	Received  int64
	Signature []byte
}

// OutgoingPost is the truncated transmission record produced by the
// propagation engine: at most the last two hops, never the full chain.
type OutgoingPost struct {
	Post      RawPost
	History   []Hop
	Signature []byte
}

// Blessing is a trust-admission ticket addressed to Recipient. Signature
// is Intermediate's signed hop receipt for handing the post to the peer
// that presents the blessing, offered as evidence that the presenter can
// see Intermediate, a peer Recipient already trusts.
type Blessing struct {
	Recipient    peer.ID
	Intermediate peer.ID
	Post         PostId
	Signature    []byte
}

// NewIncomingPost validates and constructs an IncomingPost from untrusted
// components, enforcing every invariant the propagation engine depends on:
// the author's signature verifies, every hop verifies, the chain is
// contiguous, and — if history is non-empty — the terminal hop addresses
// self. All failures return ErrMalformed.
func NewIncomingPost(raw RawPost, history []Hop, authorSig []byte, received int64, self peer.ID) (*IncomingPost, error) {
	id := raw.ID()

	if err := codec.Verify(ed25519.PublicKey(raw.Author.Bytes()), id[:], authorSig); err != nil {
		return nil, ErrMalformed
	}

	for i, h := range history {
		if err := h.Verify(id); err != nil {
			return nil, ErrMalformed
		}
		if i > 0 && history[i-1].To != h.From {
			return nil, ErrMalformed
		}
	}

	if len(history) > 0 && history[len(history)-1].To != self {
		return nil, ErrMalformed
	}

	return &IncomingPost{
		Post:      raw,
		History:   history,
		Received:  received,
		Signature: authorSig,
	}, nil
}

// NewOutgoingPost builds the truncated transmission record sent to peer
// to: the author's original signature, unchanged, plus history trimmed to
// the tail hop (if any) followed by a freshly signed self→to hop.
func NewOutgoingPost(incoming *IncomingPost, to peer.ID, self peer.ID, selfPriv ed25519.PrivateKey) OutgoingPost {
	id := incoming.Post.ID()

	var tail []Hop
	if len(incoming.History) > 0 {
		tail = []Hop{incoming.History[len(incoming.History)-1]}
	}

	newHop := SignHop(id, self, to, selfPriv)

	return OutgoingPost{
		Post:      incoming.Post,
		History:   append(tail, newHop),
		Signature: incoming.Signature,
	}
}

// ToIncoming reconstructs the IncomingPost a recipient sees on receipt of
// an OutgoingPost: the same validation NewIncomingPost performs, since the
// bytes crossed an untrusted transport.
func (o OutgoingPost) ToIncoming(received int64, self peer.ID) (*IncomingPost, error) {
	return NewIncomingPost(o.Post, o.History, o.Signature, received, self)
}

// MarshalBinary implements the on-wire record layout used by the post
// store: author, content, message_id, history (from/to/signature per
// hop), received, then the author's signature. This is the persisted
// record layout, distinct from RawPost.Encode's fingerprint input.
func (ip *IncomingPost) MarshalBinary() ([]byte, error) {
	enc := codec.NewEncoder()
	enc.Fixed(ip.Post.Author.Bytes())
	enc.String(ip.Post.Content)
	enc.Fixed(ip.Post.MessageID[:])

	histEnc := codec.NewEncoder()
	for _, h := range ip.History {
		histEnc.Fixed(h.From.Bytes())
		histEnc.Fixed(h.To.Bytes())
		histEnc.Bytes(h.Signature)
	}
	enc.Bytes(histEnc.Finish())

	enc.Uint64(uint64(ip.Received))
	enc.Bytes(ip.Signature)
	return enc.Finish(), nil
}

// UnmarshalIncomingPost reconstructs an IncomingPost previously produced
// by MarshalBinary. It does not re-run construction-time validation:
// store round-trips are a trusted path, unlike bytes arriving over
// transport.
func UnmarshalIncomingPost(data []byte) (*IncomingPost, error) {
	dec := codec.NewDecoder(data)

	authorBytes := dec.Fixed(peer.Size)
	content := dec.String()
	midBytes := dec.Fixed(MessageIDSize)
	historyBytes := dec.Bytes()
	received := dec.Uint64()
	signature := dec.Bytes()

	if err := dec.Err(); err != nil {
		return nil, err
	}

	author, err := peer.FromBytes(authorBytes)
	if err != nil {
		return nil, err
	}

	var messageID [MessageIDSize]byte
	copy(messageID[:], midBytes)

	history, err := decodeHistory(historyBytes)
	if err != nil {
		return nil, err
	}

	return &IncomingPost{
		Post: RawPost{
			Author:    author,
			Content:   content,
			MessageID: messageID,
		},
		History:   history,
		Received:  int64(received),
		Signature: signature,
	}, nil
}

func decodeHistory(data []byte) ([]Hop, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dec := codec.NewDecoder(data)
	var hops []Hop
	for !dec.Done() {
		fromBytes := dec.Fixed(peer.Size)
		toBytes := dec.Fixed(peer.Size)
		sig := dec.Bytes()
		if err := dec.Err(); err != nil {
			return nil, err
		}

		from, err := peer.FromBytes(fromBytes)
		if err != nil {
			return nil, err
		}
		to, err := peer.FromBytes(toBytes)
		if err != nil {
			return nil, err
		}
		hops = append(hops, Hop{From: from, To: to, Signature: sig})
	}
	return hops, nil
}
