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

package sealedbackup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPassphraseRoundTrip(t *testing.T) {
	secret := []byte("a node's ed25519 seed, 32 bytes long, not real")
	sealed, err := SealWithPassphrase("correct horse battery staple", secret)
	require.NoError(t, err)

	got, err := OpenWithPassphrase("correct horse battery staple", sealed)
	require.NoError(t, err)
	assert.Equal(t, secret, got)
}

func TestPassphraseWrongPassphraseFails(t *testing.T) {
	secret := []byte("top secret identity material")
	sealed, err := SealWithPassphrase("right passphrase", secret)
	require.NoError(t, err)

	_, err = OpenWithPassphrase("wrong passphrase", sealed)
	assert.ErrorIs(t, err, ErrMalformedPassphraseBackup)
}

func TestPassphraseTamperedCiphertextFails(t *testing.T) {
	secret := []byte("top secret identity material")
	sealed, err := SealWithPassphrase("a passphrase", secret)
	require.NoError(t, err)

	sealed.Ciphertext[0] ^= 0xFF

	_, err = OpenWithPassphrase("a passphrase", sealed)
	assert.ErrorIs(t, err, ErrMalformedPassphraseBackup)
}

func TestPassphraseDistinctSaltsYieldDistinctCiphertexts(t *testing.T) {
	secret := []byte("identical secret")
	a, err := SealWithPassphrase("same passphrase", secret)
	require.NoError(t, err)
	b, err := SealWithPassphrase("same passphrase", secret)
	require.NoError(t, err)

	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.Ciphertext, b.Ciphertext)
}

func TestHPKERoundTrip(t *testing.T) {
	pub, priv, err := GenerateHPKEKeyPair()
	require.NoError(t, err)

	secret := []byte("a node's ed25519 seed, sealed for a specific recipient")
	sealed, err := SealWithPublicKey(pub, secret)
	require.NoError(t, err)

	got, err := OpenWithPrivateKey(priv, sealed)
	require.NoError(t, err)
	assert.Equal(t, secret, got)
}

func TestHPKEWrongRecipientFails(t *testing.T) {
	_, priv, err := GenerateHPKEKeyPair()
	require.NoError(t, err)
	otherPub, _, err := GenerateHPKEKeyPair()
	require.NoError(t, err)

	sealed, err := SealWithPublicKey(otherPub, []byte("not for you"))
	require.NoError(t, err)

	_, err = OpenWithPrivateKey(priv, sealed)
	assert.Error(t, err)
}
