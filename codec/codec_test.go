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

package codec

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerify(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	hash := Hash([]byte("hello world"))
	sig := Sign(priv, hash[:])

	assert.NoError(t, Verify(pub, hash[:], sig))

	tampered := hash
	tampered[0] ^= 0xFF
	assert.ErrorIs(t, Verify(pub, tampered[:], sig), ErrInvalidSignature)
}

func TestEncoderDecoderRoundTrip(t *testing.T) {
	fixed := make([]byte, 32)
	for i := range fixed {
		fixed[i] = byte(i)
	}

	enc := NewEncoder()
	enc.Fixed(fixed).String("payload").Uint64(424242)
	buf := enc.Finish()

	dec := NewDecoder(buf)
	gotFixed := dec.Fixed(32)
	gotString := dec.String()
	gotUint := dec.Uint64()

	require.NoError(t, dec.Err())
	assert.True(t, dec.Done())
	assert.Equal(t, fixed, gotFixed)
	assert.Equal(t, "payload", gotString)
	assert.Equal(t, uint64(424242), gotUint)
}

func TestDecoderShortBuffer(t *testing.T) {
	dec := NewDecoder([]byte{0, 0, 0, 5, 'a', 'b'})
	_ = dec.String()
	assert.ErrorIs(t, dec.Err(), errShortBuffer)
	assert.False(t, dec.Done())
}

func TestHashDeterministic(t *testing.T) {
	a := Hash([]byte("same input"))
	b := Hash([]byte("same input"))
	assert.Equal(t, a, b)
}
