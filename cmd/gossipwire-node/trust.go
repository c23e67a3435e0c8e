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
	"fmt"

	"github.com/spf13/cobra"
)

var trustCmd = &cobra.Command{
	Use:   "trust",
	Short: "inspect the local trust set",
}

var trustListCmd = &cobra.Command{
	Use:   "list",
	Short: "list current trust set members and their scores",
	RunE:  runTrustList,
}

func init() {
	trustCmd.AddCommand(trustListCmd)
	rootCmd.AddCommand(trustCmd)
}

func runTrustList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	n, err := openNode(ctx)
	if err != nil {
		return err
	}
	defer n.store.Close()

	members, err := n.trust.GetTrusted(ctx)
	if err != nil {
		return fmt.Errorf("gossipwire-node: list trust set: %w", err)
	}

	fmt.Printf("%d/%d trusted peers\n", len(members), n.trust.MaxPeers())
	for _, m := range members {
		fmt.Printf("  %-14s score=%d\n", m.Peer.ShortString(), m.Score)
	}
	return nil
}
