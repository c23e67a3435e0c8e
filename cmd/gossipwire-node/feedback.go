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
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sage-x-project/gossipwire/blessing"
	"github.com/sage-x-project/gossipwire/post"
	"github.com/sage-x-project/gossipwire/post/poststore"
	"github.com/sage-x-project/gossipwire/scoring"
	"github.com/sage-x-project/gossipwire/seen"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "record promote/demote feedback against a stored post",
}

var promoteCmd = &cobra.Command{
	Use:   "promote <post-id-hex>",
	Short: "reward a post's author, printing any resulting blessing to transmit",
	Args:  cobra.ExactArgs(1),
	RunE:  runPromote,
}

var demoteCmd = &cobra.Command{
	Use:   "demote <post-id-hex>",
	Short: "penalize a post's author, untrusting them if the rating gap recommends it",
	Args:  cobra.ExactArgs(1),
	RunE:  runDemote,
}

func init() {
	feedbackCmd.AddCommand(promoteCmd)
	feedbackCmd.AddCommand(demoteCmd)
	rootCmd.AddCommand(feedbackCmd)
}

func buildScoringEngine(ctx context.Context, n *node) (*scoring.Engine, error) {
	self, err := n.identity.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("gossipwire-node: load identity: %w", err)
	}

	posts := poststore.New(n.store)
	seenIdx := seen.NewIndex(n.store)
	blessEngine := blessing.New(self.Peer, seenIdx, n.trust, n.scores)
	return scoring.New(self.Peer, n.scores, n.trust, posts, blessEngine), nil
}

func runPromote(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := post.PostIdFromHex(args[0])
	if err != nil {
		return fmt.Errorf("gossipwire-node: %w", err)
	}

	n, err := openNode(ctx)
	if err != nil {
		return err
	}
	defer n.store.Close()

	engine, err := buildScoringEngine(ctx, n)
	if err != nil {
		return err
	}
	b, err := engine.Promote(ctx, id)
	if err != nil {
		return fmt.Errorf("gossipwire-node: promote: %w", err)
	}
	if b == nil {
		fmt.Println("rating updated; no blessing recommended")
		return nil
	}

	out, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println("rating updated; blessing ready to transmit to its recipient:")
	fmt.Println(string(out))
	return nil
}

func runDemote(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	id, err := post.PostIdFromHex(args[0])
	if err != nil {
		return fmt.Errorf("gossipwire-node: %w", err)
	}

	n, err := openNode(ctx)
	if err != nil {
		return err
	}
	defer n.store.Close()

	engine, err := buildScoringEngine(ctx, n)
	if err != nil {
		return err
	}
	if err := engine.Demote(ctx, id); err != nil {
		return fmt.Errorf("gossipwire-node: demote: %w", err)
	}
	fmt.Println("rating updated")
	return nil
}
