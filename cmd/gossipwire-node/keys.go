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

package main

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	sagecrypto "github.com/sage-x-project/gossipwire/crypto"
	"github.com/sage-x-project/gossipwire/crypto/keys"
	"github.com/sage-x-project/gossipwire/crypto/storage"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "manage auxiliary keys held alongside the node's gossip identity",
}

var keysDirectoryGenerateCmd = &cobra.Command{
	Use:   "directory-entry",
	Short: "generate a secp256k1 key and sign this node's peer ID for an external directory",
	Long: `directory-entry generates a fresh secp256k1 key pair, holds it in an
auxiliary key store alongside this node's gossip identity for the
duration of the command, and signs the node's peer ID with it — the
signature an external chain-style directory expects when registering a
gossipwire peer under a secondary key. The generated private key is
printed once; the operator is responsible for persisting it, the same
way a freshly generated SSH key is handled.`,
	RunE: runKeysDirectoryGenerate,
}

func init() {
	keysCmd.AddCommand(keysDirectoryGenerateCmd)
	rootCmd.AddCommand(keysCmd)
}

func runKeysDirectoryGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	n, err := openNode(ctx)
	if err != nil {
		return err
	}
	defer n.store.Close()

	self, err := n.identity.Get(ctx)
	if err != nil {
		return fmt.Errorf("gossipwire-node: load identity: %w", err)
	}

	kp, err := keys.GenerateSecp256k1KeyPair()
	if err != nil {
		return fmt.Errorf("gossipwire-node: generate directory key: %w", err)
	}

	// Held in an in-memory KeyStorage for the command's lifetime: it
	// round-trips through Store/Load the same way a long-running node
	// would hold several auxiliary keys side by side, keyed by ID.
	ring := storage.NewMemoryKeyStorage()
	if err := ring.Store(kp.ID(), kp); err != nil {
		return fmt.Errorf("gossipwire-node: hold directory key: %w", err)
	}
	signer, err := ring.Load(kp.ID())
	if err != nil {
		return fmt.Errorf("gossipwire-node: load directory key: %w", err)
	}

	sig, err := signer.Sign([]byte(self.Peer.Hex()))
	if err != nil {
		return fmt.Errorf("gossipwire-node: sign directory entry: %w", err)
	}

	var privHex string
	if ecdsaKey, ok := signer.PrivateKey().(*ecdsa.PrivateKey); ok {
		privHex = hex.EncodeToString(ecdsaKey.D.Bytes())
	}

	fmt.Printf("key id:     %s\n", signer.ID())
	fmt.Printf("key type:   %s\n", sagecrypto.KeyTypeSecp256k1)
	fmt.Printf("peer:       %s\n", self.Peer.Hex())
	fmt.Printf("signature:  %s\n", hex.EncodeToString(sig))
	if privHex != "" {
		fmt.Printf("private key (save this now, it is not stored): %s\n", privHex)
	}
	return nil
}
