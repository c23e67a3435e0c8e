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

	"github.com/sage-x-project/gossipwire/peer"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "inspect peer ratings",
}

var scoreShowCmd = &cobra.Command{
	Use:   "show [peer-hex]",
	Short: "show a peer's current rating (defaults to the local identity)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScoreShow,
}

func init() {
	scoreCmd.AddCommand(scoreShowCmd)
	rootCmd.AddCommand(scoreCmd)
}

func runScoreShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	n, err := openNode(ctx)
	if err != nil {
		return err
	}
	defer n.store.Close()

	var target peer.ID
	if len(args) == 1 {
		target, err = peer.FromHex(args[0])
		if err != nil {
			return fmt.Errorf("gossipwire-node: %w", err)
		}
	} else {
		self, err := n.identity.Get(ctx)
		if err != nil {
			return fmt.Errorf("gossipwire-node: load identity: %w", err)
		}
		target = self.Peer
	}

	rating, found, err := n.scores.Lookup(ctx, target)
	if err != nil {
		return fmt.Errorf("gossipwire-node: lookup score: %w", err)
	}
	if !found {
		fmt.Printf("%s has never been rated (default would be %d)\n", target.ShortString(), n.cfg.Scoring.DefaultRating)
		return nil
	}

	fmt.Printf("%s rating=%d\n", target.ShortString(), rating)
	return nil
}
