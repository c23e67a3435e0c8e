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

// Package codec implements the one canonical encoding every peer must agree
// on bit-exactly: a deterministic, length-prefixed, field-ordered binary
// layout, SHA-256 fingerprinting over it, and Ed25519 signing of the raw
// hash. No other serialization is used for hashing or signing.
package codec

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"errors"
)

// HashSize is the length in bytes of a SHA-256 digest.
const HashSize = 32

// ErrInvalidSignature is returned when a signature fails verification.
var ErrInvalidSignature = errors.New("codec: invalid signature")

// Hash returns the SHA-256 digest of data.
func Hash(data []byte) [HashSize]byte {
	return sha256.Sum256(data)
}

// Sign signs a 32-byte hash with priv. The hash, not the original message,
// is always what gets signed: callers never sign raw post or hop content
// directly.
func Sign(priv ed25519.PrivateKey, hash []byte) []byte {
	return ed25519.Sign(priv, hash)
}

// Verify checks that sig is a valid Ed25519 signature over hash by pub.
func Verify(pub ed25519.PublicKey, hash, sig []byte) error {
	if !ed25519.Verify(pub, hash, sig) {
		return ErrInvalidSignature
	}
	return nil
}

// Encoder builds the deterministic, length-prefixed binary encoding used
// for fingerprinting. Every field is written in a fixed order; variable
// length fields carry a 4-byte big-endian length prefix.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 128)}
}

// Fixed appends b verbatim, with no length prefix. Use only for
// fixed-size fields (public keys, hashes) whose length is implied by the
// schema, never for attacker-controlled-length data.
func (e *Encoder) Fixed(b []byte) *Encoder {
	e.buf = append(e.buf, b...)
	return e
}

// Bytes appends a 4-byte big-endian length prefix followed by b.
func (e *Encoder) Bytes(b []byte) *Encoder {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	e.buf = append(e.buf, lenBuf[:]...)
	e.buf = append(e.buf, b...)
	return e
}

// String appends s as a length-prefixed UTF-8 byte sequence.
func (e *Encoder) String(s string) *Encoder {
	return e.Bytes([]byte(s))
}

// Uint64 appends v as 8 bytes, big-endian.
func (e *Encoder) Uint64(v uint64) *Encoder {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	e.buf = append(e.buf, buf[:]...)
	return e
}

// Finish returns the accumulated encoding.
func (e *Encoder) Finish() []byte {
	return e.buf
}

// Decoder reads fields back out of an Encoder-produced byte slice in the
// same fixed order they were written.
type Decoder struct {
	buf []byte
	off int
	err error
}

// NewDecoder wraps buf for sequential field reads.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

var errShortBuffer = errors.New("codec: buffer too short")

// Fixed reads exactly n bytes verbatim.
func (d *Decoder) Fixed(n int) []byte {
	if d.err != nil {
		return nil
	}
	if len(d.buf)-d.off < n {
		d.err = errShortBuffer
		return nil
	}
	out := d.buf[d.off : d.off+n]
	d.off += n
	return out
}

// Bytes reads a 4-byte length prefix followed by that many bytes.
func (d *Decoder) Bytes() []byte {
	if d.err != nil {
		return nil
	}
	if len(d.buf)-d.off < 4 {
		d.err = errShortBuffer
		return nil
	}
	n := binary.BigEndian.Uint32(d.buf[d.off : d.off+4])
	d.off += 4
	return d.Fixed(int(n))
}

// String reads a length-prefixed UTF-8 byte sequence as a string.
func (d *Decoder) String() string {
	return string(d.Bytes())
}

// Uint64 reads 8 big-endian bytes.
func (d *Decoder) Uint64() uint64 {
	b := d.Fixed(8)
	if d.err != nil || b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

// Err returns the first error encountered during decoding, if any.
func (d *Decoder) Err() error {
	return d.err
}

// Done reports whether the full buffer has been consumed.
func (d *Decoder) Done() bool {
	return d.err == nil && d.off == len(d.buf)
}
