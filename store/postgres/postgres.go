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

// Package postgres implements store.Store on top of a single
// table_name/key/value table, giving every named sub-table single-key
// atomic writes for free via Postgres's row-level guarantees.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sage-x-project/gossipwire/store"
)

// Config holds the connection parameters for the backing database.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// Store implements store.Store against a PostgreSQL connection pool.
type Store struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS gossipwire_entries (
	table_name TEXT NOT NULL,
	key        BYTEA NOT NULL,
	value      BYTEA NOT NULL,
	PRIMARY KEY (table_name, key)
)`

// New connects to Postgres and ensures the backing table exists.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("store/postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store/postgres: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store/postgres: migrate: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Get returns the value for key in table, and whether it was found.
func (s *Store) Get(ctx context.Context, t store.Table, key []byte) ([]byte, bool, error) {
	const q = `SELECT value FROM gossipwire_entries WHERE table_name = $1 AND key = $2`

	var value []byte
	err := s.pool.QueryRow(ctx, q, string(t), key).Scan(&value)
	if err == pgx.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store/postgres: get: %w", err)
	}
	return value, true, nil
}

// Put writes value for key in table, replacing any existing value.
func (s *Store) Put(ctx context.Context, t store.Table, key, value []byte) error {
	const q = `
		INSERT INTO gossipwire_entries (table_name, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (table_name, key) DO UPDATE SET value = EXCLUDED.value
	`
	if _, err := s.pool.Exec(ctx, q, string(t), key, value); err != nil {
		return fmt.Errorf("store/postgres: put: %w", err)
	}
	return nil
}

// Contains reports whether key exists in table.
func (s *Store) Contains(ctx context.Context, t store.Table, key []byte) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM gossipwire_entries WHERE table_name = $1 AND key = $2)`

	var exists bool
	if err := s.pool.QueryRow(ctx, q, string(t), key).Scan(&exists); err != nil {
		return false, fmt.Errorf("store/postgres: contains: %w", err)
	}
	return exists, nil
}

// Remove deletes key from table. Removing an absent key is a no-op.
func (s *Store) Remove(ctx context.Context, t store.Table, key []byte) error {
	const q = `DELETE FROM gossipwire_entries WHERE table_name = $1 AND key = $2`

	if _, err := s.pool.Exec(ctx, q, string(t), key); err != nil {
		return fmt.Errorf("store/postgres: remove: %w", err)
	}
	return nil
}

// Iterate calls fn once per entry in table. Reads are weakly consistent
// with concurrent writers, as permitted by the store contract.
func (s *Store) Iterate(ctx context.Context, t store.Table, fn func(key, value []byte) error) error {
	const q = `SELECT key, value FROM gossipwire_entries WHERE table_name = $1`

	rows, err := s.pool.Query(ctx, q, string(t))
	if err != nil {
		return fmt.Errorf("store/postgres: iterate: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("store/postgres: iterate scan: %w", err)
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Len returns the number of entries in table.
func (s *Store) Len(ctx context.Context, t store.Table) (int, error) {
	const q = `SELECT COUNT(*) FROM gossipwire_entries WHERE table_name = $1`

	var n int
	if err := s.pool.QueryRow(ctx, q, string(t)).Scan(&n); err != nil {
		return 0, fmt.Errorf("store/postgres: len: %w", err)
	}
	return n, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
