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

// Package transport provides the transport layer abstraction for
// gossipwire: peer-addressed connections framing one JSON envelope per
// line. Concrete protocols (WebSocket) and connection management
// (dispatcher) live in subpackages so the propagation and blessing
// engines stay independent of any specific wire protocol.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sage-x-project/gossipwire/peer"
	"github.com/sage-x-project/gossipwire/post"
)

// ErrConnClosed reports a connection closed locally or by the peer. The
// websocket Conn does not return it: its Send and Recv wrap the
// underlying WebSocket error instead.
var ErrConnClosed = errors.New("transport: connection closed")

// ErrUnknownEnvelopeKind is returned when decoding a JSON envelope whose
// kind tag does not match any known variant.
var ErrUnknownEnvelopeKind = errors.New("transport: unknown envelope kind")

// Kind tags the variant carried by an Envelope.
type Kind string

const (
	KindPing          Kind = "ping"
	KindPong          Kind = "pong"
	KindPost          Kind = "post"
	KindBlessing      Kind = "blessing"
	KindHeartbeat     Kind = "heartbeat"
	KindCloseRequest  Kind = "close_request"
	KindCloseResponse Kind = "close_response"
)

// Envelope is the tagged union carried over the wire, one JSON object per
// line. Only the field matching Kind is populated.
type Envelope struct {
	Kind Kind               `json:"kind"`
	Post *post.OutgoingPost `json:"data,omitempty"`

	// Blessing and From are populated together: blessing.Engine.Check
	// needs to know who presented the blessing, which (unlike a post's
	// history) the blessing payload itself does not carry.
	Blessing *post.Blessing `json:"blessing,omitempty"`
	From     *peer.ID       `json:"from,omitempty"`
}

// Ping returns a Ping envelope.
func Ping() Envelope { return Envelope{Kind: KindPing} }

// Pong returns a Pong envelope.
func Pong() Envelope { return Envelope{Kind: KindPong} }

// Heartbeat returns a Heartbeat envelope.
func Heartbeat() Envelope { return Envelope{Kind: KindHeartbeat} }

// CloseRequest returns a CloseRequest envelope.
func CloseRequest() Envelope { return Envelope{Kind: KindCloseRequest} }

// CloseResponse returns a CloseResponse envelope.
func CloseResponse() Envelope { return Envelope{Kind: KindCloseResponse} }

// PostEnvelope wraps an OutgoingPost as a Post envelope.
func PostEnvelope(p post.OutgoingPost) Envelope {
	return Envelope{Kind: KindPost, Post: &p}
}

// BlessingEnvelope wraps a Blessing as a Blessing envelope presented by
// from, addressed (by the caller, out of band — the envelope itself
// carries no destination) to the blessing's Recipient.
func BlessingEnvelope(b post.Blessing, from peer.ID) Envelope {
	return Envelope{Kind: KindBlessing, Blessing: &b, From: &from}
}

// Validate rejects an envelope whose Kind tag is unrecognized, or whose
// Kind requires data the envelope does not carry.
func (e Envelope) Validate() error {
	switch e.Kind {
	case KindPing, KindPong, KindHeartbeat, KindCloseRequest, KindCloseResponse:
		return nil
	case KindPost:
		if e.Post == nil {
			return fmt.Errorf("transport: post envelope missing data: %w", ErrUnknownEnvelopeKind)
		}
		return nil
	case KindBlessing:
		if e.Blessing == nil || e.From == nil {
			return fmt.Errorf("transport: blessing envelope missing data: %w", ErrUnknownEnvelopeKind)
		}
		return nil
	default:
		return ErrUnknownEnvelopeKind
	}
}

// MarshalLine encodes the envelope as one newline-terminated JSON line.
func (e Envelope) MarshalLine() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("transport: marshal envelope: %w", err)
	}
	return append(data, '\n'), nil
}

// Conn is one peer connection: a bidirectional stream of envelopes.
type Conn interface {
	Send(Envelope) error
	Recv() (Envelope, error)
	Close() error
	// RemoteAddr identifies the peer this connection reaches, for logging.
	RemoteAddr() string
}

// Transport dials outbound connections to peer addresses. Concrete
// protocols (transport/websocket) implement this.
type Transport interface {
	Dial(ctx context.Context, addr string) (Conn, error)
}
