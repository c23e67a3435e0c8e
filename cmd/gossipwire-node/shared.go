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
	"fmt"

	"github.com/sage-x-project/gossipwire/config"
	"github.com/sage-x-project/gossipwire/identity"
	"github.com/sage-x-project/gossipwire/score"
	"github.com/sage-x-project/gossipwire/store"
	"github.com/sage-x-project/gossipwire/store/memory"
	"github.com/sage-x-project/gossipwire/store/postgres"
	"github.com/sage-x-project/gossipwire/trust"
)

var configPath string

// loadConfig loads configuration from the --config flag if given,
// otherwise via config.Load's environment-detection path.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

// openStore opens the persistent store cfg selects: memory (no arguments,
// contents lost on process exit — fine for the run subcommand's lifetime,
// but a caveat for one-shot inspection subcommands run against it) or
// postgres (durable, shared across CLI invocations against the same
// database).
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Type {
	case "", "memory":
		return memory.New(), nil
	case "postgres":
		return postgres.New(ctx, &postgres.Config{
			Host:     cfg.Store.Postgres.Host,
			Port:     cfg.Store.Postgres.Port,
			User:     cfg.Store.Postgres.User,
			Password: cfg.Store.Postgres.Password,
			Database: cfg.Store.Postgres.Database,
			SSLMode:  cfg.Store.Postgres.SSLMode,
		})
	default:
		return nil, fmt.Errorf("gossipwire-node: unknown store type %q", cfg.Store.Type)
	}
}

// node bundles the stores and tables every subcommand needs, opened
// against one config.
type node struct {
	cfg      *config.Config
	store    store.Store
	identity *identity.Store
	scores   *score.Table
	trust    *trust.Set
}

// openNode loads config and opens every store-backed component a
// subcommand might need. Callers should defer n.store.Close().
func openNode(ctx context.Context) (*node, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("gossipwire-node: load config: %w", err)
	}

	s, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gossipwire-node: open store: %w", err)
	}

	scores := score.NewTable(s)
	trustSet := trust.NewSet(s, scores)
	if cfg.Trust.MaxPeers > 0 {
		trustSet.SetMaxPeers(cfg.Trust.MaxPeers)
	}

	return &node{
		cfg:      cfg,
		store:    s,
		identity: identity.NewStore(s),
		scores:   scores,
		trust:    trustSet,
	}, nil
}
