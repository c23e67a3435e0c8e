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

// Package sealedbackup lets an operator export a node's local secret key
// for cold storage or migration, sealed either under a passphrase or
// under another identity's HPKE public key. Loss of the local secret is
// loss of the node's identity, so this is the only supported way to move
// it off the machine it was generated on.
package sealedbackup

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/hpke"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// saltSize is the random salt length mixed into the passphrase-derived
// key, so the same passphrase never derives the same key twice.
const saltSize = 16

// hpkeInfo binds sealed backups to this application, so a ciphertext
// produced here cannot be replayed against an unrelated HPKE context.
var hpkeInfo = []byte("gossipwire-identity-backup")

// suite is the HPKE ciphersuite used for public-key sealing: X25519 KEM,
// HKDF-SHA256, AES-256-GCM AEAD.
var suite = hpke.NewSuite(hpke.KEM_X25519_HKDF_SHA256, hpke.KDF_HKDF_SHA256, hpke.AEAD_AES256GCM)

// ErrMalformedPassphraseBackup is returned when a PassphraseSealed value
// cannot be decrypted, either because the passphrase is wrong or the
// ciphertext was truncated/corrupted.
var ErrMalformedPassphraseBackup = errors.New("sealedbackup: malformed or wrong-passphrase backup")

// PassphraseSealed is a secret encrypted under a passphrase-derived key.
type PassphraseSealed struct {
	Salt       []byte
	Nonce      []byte
	Ciphertext []byte
}

// SealWithPassphrase encrypts secret under a key derived from passphrase
// via HKDF-SHA256 with a fresh random salt, then ChaCha20-Poly1305.
func SealWithPassphrase(passphrase string, secret []byte) (*PassphraseSealed, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("sealedbackup: generate salt: %w", err)
	}

	key, err := derivePassphraseKey(passphrase, salt)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("sealedbackup: new aead: %w", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("sealedbackup: generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, secret, nil)
	return &PassphraseSealed{Salt: salt, Nonce: nonce, Ciphertext: ciphertext}, nil
}

// OpenWithPassphrase reverses SealWithPassphrase.
func OpenWithPassphrase(passphrase string, sealed *PassphraseSealed) ([]byte, error) {
	key, err := derivePassphraseKey(passphrase, sealed.Salt)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("sealedbackup: new aead: %w", err)
	}

	plaintext, err := aead.Open(nil, sealed.Nonce, sealed.Ciphertext, nil)
	if err != nil {
		return nil, ErrMalformedPassphraseBackup
	}
	return plaintext, nil
}

func derivePassphraseKey(passphrase string, salt []byte) ([]byte, error) {
	kdf := hkdf.New(sha256.New, []byte(passphrase), salt, hpkeInfo)
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("sealedbackup: derive key: %w", err)
	}
	return key, nil
}

// HPKESealed is a secret encrypted under a recipient's HPKE public key.
type HPKESealed struct {
	Encapsulated []byte
	Ciphertext   []byte
}

// GenerateHPKEKeyPair generates a fresh X25519 HPKE key pair for
// receiving sealed backups, returning the marshaled public and private
// keys.
func GenerateHPKEKeyPair() (public, private []byte, err error) {
	pk, sk, err := suite.KEM.Scheme().GenerateKeyPair()
	if err != nil {
		return nil, nil, fmt.Errorf("sealedbackup: generate hpke key pair: %w", err)
	}
	pubBytes, err := pk.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("sealedbackup: marshal hpke public key: %w", err)
	}
	privBytes, err := sk.MarshalBinary()
	if err != nil {
		return nil, nil, fmt.Errorf("sealedbackup: marshal hpke private key: %w", err)
	}
	return pubBytes, privBytes, nil
}

// SealWithPublicKey encrypts secret under a recipient's marshaled HPKE
// public key.
func SealWithPublicKey(recipientPublic []byte, secret []byte) (*HPKESealed, error) {
	pub, err := suite.KEM.Scheme().UnmarshalBinaryPublicKey(recipientPublic)
	if err != nil {
		return nil, fmt.Errorf("sealedbackup: unmarshal recipient public key: %w", err)
	}

	sender, err := suite.NewSender(pub, hpkeInfo)
	if err != nil {
		return nil, fmt.Errorf("sealedbackup: new sender: %w", err)
	}

	enc, sealer, err := sender.Setup(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("sealedbackup: sender setup: %w", err)
	}

	ciphertext, err := sealer.Seal(secret, nil)
	if err != nil {
		return nil, fmt.Errorf("sealedbackup: seal: %w", err)
	}

	return &HPKESealed{Encapsulated: enc, Ciphertext: ciphertext}, nil
}

// OpenWithPrivateKey decrypts an HPKESealed value using the recipient's
// marshaled HPKE private key.
func OpenWithPrivateKey(recipientPrivate []byte, sealed *HPKESealed) ([]byte, error) {
	priv, err := suite.KEM.Scheme().UnmarshalBinaryPrivateKey(recipientPrivate)
	if err != nil {
		return nil, fmt.Errorf("sealedbackup: unmarshal recipient private key: %w", err)
	}

	receiver, err := suite.NewReceiver(priv, hpkeInfo)
	if err != nil {
		return nil, fmt.Errorf("sealedbackup: new receiver: %w", err)
	}

	opener, err := receiver.Setup(sealed.Encapsulated)
	if err != nil {
		return nil, fmt.Errorf("sealedbackup: receiver setup: %w", err)
	}

	plaintext, err := opener.Open(sealed.Ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("sealedbackup: open: %w", err)
	}
	return plaintext, nil
}
