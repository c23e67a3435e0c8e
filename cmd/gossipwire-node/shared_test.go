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
	"testing"

	"github.com/sage-x-project/gossipwire/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStoreMemory(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Type: "memory"}}
	s, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestOpenStoreDefaultsToMemory(t *testing.T) {
	cfg := &config.Config{}
	s, err := openStore(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestOpenStoreRejectsUnknownType(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Type: "dynamodb"}}
	_, err := openStore(context.Background(), cfg)
	assert.Error(t, err)
}

func TestOpenNodeAppliesTrustMaxPeers(t *testing.T) {
	configPath = ""
	t.Setenv("GOSSIPWIRE_ENV", "test")

	n, err := openNode(context.Background())
	require.NoError(t, err)
	defer n.store.Close()

	require.NotNil(t, n.trust)
	require.NotNil(t, n.scores)
	require.NotNil(t, n.identity)
	assert.Equal(t, n.cfg.Trust.MaxPeers, n.trust.MaxPeers())
}
