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
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sage-x-project/gossipwire/crypto/sealedbackup"
)

var exportPassphrase string
var importPassphrase string

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "print or back up this node's identity",
	RunE:  runIdentityShow,
}

var identityExportCmd = &cobra.Command{
	Use:   "export <output-file>",
	Short: "export the local secret key, sealed under a passphrase, for cold storage",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdentityExport,
}

var identityImportCmd = &cobra.Command{
	Use:   "import <input-file>",
	Short: "restore a previously exported secret key, overwriting any existing identity",
	Args:  cobra.ExactArgs(1),
	RunE:  runIdentityImport,
}

func init() {
	identityExportCmd.Flags().StringVar(&exportPassphrase, "passphrase", "", "passphrase to seal the backup with (required)")
	identityImportCmd.Flags().StringVar(&importPassphrase, "passphrase", "", "passphrase the backup was sealed with (required)")

	identityCmd.AddCommand(identityExportCmd)
	identityCmd.AddCommand(identityImportCmd)
	rootCmd.AddCommand(identityCmd)
}

func runIdentityShow(cmd *cobra.Command, args []string) error {
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

	fmt.Printf("peer:  %s\n", self.Peer.ShortString())
	fmt.Printf("hex:   %s\n", self.Peer.Hex())
	return nil
}

func runIdentityExport(cmd *cobra.Command, args []string) error {
	if exportPassphrase == "" {
		return fmt.Errorf("gossipwire-node: --passphrase is required")
	}

	ctx := cmd.Context()
	n, err := openNode(ctx)
	if err != nil {
		return err
	}
	defer n.store.Close()

	seed, err := n.identity.Export(ctx)
	if err != nil {
		return fmt.Errorf("gossipwire-node: export identity: %w", err)
	}

	sealed, err := sealedbackup.SealWithPassphrase(exportPassphrase, seed)
	if err != nil {
		return fmt.Errorf("gossipwire-node: seal backup: %w", err)
	}

	data, err := json.MarshalIndent(sealed, "", "  ")
	if err != nil {
		return err
	}

	if err := os.WriteFile(args[0], data, 0o600); err != nil {
		return fmt.Errorf("gossipwire-node: write %s: %w", args[0], err)
	}
	fmt.Printf("identity backup written to %s\n", args[0])
	return nil
}

func runIdentityImport(cmd *cobra.Command, args []string) error {
	if importPassphrase == "" {
		return fmt.Errorf("gossipwire-node: --passphrase is required")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("gossipwire-node: read %s: %w", args[0], err)
	}

	var sealed sealedbackup.PassphraseSealed
	if err := json.Unmarshal(data, &sealed); err != nil {
		return fmt.Errorf("gossipwire-node: parse %s: %w", args[0], err)
	}

	seed, err := sealedbackup.OpenWithPassphrase(importPassphrase, &sealed)
	if err != nil {
		return fmt.Errorf("gossipwire-node: open backup: %w", err)
	}

	ctx := cmd.Context()
	n, err := openNode(ctx)
	if err != nil {
		return err
	}
	defer n.store.Close()

	if err := n.identity.Import(ctx, seed); err != nil {
		return fmt.Errorf("gossipwire-node: import identity: %w", err)
	}

	self, err := n.identity.Get(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("identity restored: %s\n", self.Peer.ShortString())
	return nil
}
