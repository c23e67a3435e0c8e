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

// Package peer defines the network-wide identity type: a 32-byte Ed25519
// public key. Identity equality is byte equality on the key.
package peer

import (
	"encoding/hex"
	"errors"

	"github.com/mr-tron/base58"
)

// Size is the length in bytes of an Ed25519 public key.
const Size = 32

// ErrInvalidLength is returned when decoding a key of the wrong size.
var ErrInvalidLength = errors.New("peer: public key must be 32 bytes")

// ID is a peer identity: the raw Ed25519 public key bytes.
type ID [Size]byte

// Zero is the zero-value identity, used as a sentinel for "no peer".
var Zero ID

// FromBytes copies b into an ID, failing if b is not exactly Size bytes.
func FromBytes(b []byte) (ID, error) {
	var id ID
	if len(b) != Size {
		return id, ErrInvalidLength
	}
	copy(id[:], b)
	return id, nil
}

// FromHex decodes a hex-encoded public key, as used by the CLI's bootstrap
// peer list.
func FromHex(s string) (ID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Zero, err
	}
	return FromBytes(b)
}

// Bytes returns the raw 32-byte public key.
func (id ID) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, id[:])
	return out
}

// Hex renders the canonical wire form of the identity.
func (id ID) Hex() string {
	return hex.EncodeToString(id[:])
}

// ShortString renders the identity as base58 for logs and CLI output, the
// same human-facing encoding used for Solana-style addresses. The wire and
// hash encodings always use the raw bytes or hex form; this is display only.
func (id ID) ShortString() string {
	full := base58.Encode(id[:])
	if len(full) <= 12 {
		return full
	}
	return full[:6] + ".." + full[len(full)-6:]
}

// IsZero reports whether id is the zero identity.
func (id ID) IsZero() bool {
	return id == Zero
}

// String implements fmt.Stringer with the canonical hex form.
func (id ID) String() string {
	return id.Hex()
}
