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

package dispatcher

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sage-x-project/gossipwire/identity"
	"github.com/sage-x-project/gossipwire/peer"
	"github.com/sage-x-project/gossipwire/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu  sync.Mutex
	out []transport.Envelope
}

func (c *fakeConn) Send(e transport.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.out = append(c.out, e)
	return nil
}
func (c *fakeConn) Recv() (transport.Envelope, error) { return transport.Envelope{}, nil }
func (c *fakeConn) Close() error                      { return nil }
func (c *fakeConn) RemoteAddr() string                { return "fake" }

type fakeTransport struct {
	dials int32
	delay time.Duration
}

func (t *fakeTransport) Dial(ctx context.Context, addr string) (transport.Conn, error) {
	atomic.AddInt32(&t.dials, 1)
	if t.delay > 0 {
		time.Sleep(t.delay)
	}
	return &fakeConn{}, nil
}

type staticBook map[peer.ID]string

func (b staticBook) Address(p peer.ID) (string, bool) {
	a, ok := b[p]
	return a, ok
}

func TestDispatcherDialsAndSends(t *testing.T) {
	id, err := identity.Generate()
	require.NoError(t, err)

	ft := &fakeTransport{}
	book := staticBook{id.Peer: "addr-1"}
	d := New(ft, book, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	require.NoError(t, d.Submit(ctx, Event{Destination: id.Peer, Envelope: transport.Ping()}))

	require.Eventually(t, func() bool {
		return d.ConnectionCount() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestDispatcherDedupesConcurrentDials(t *testing.T) {
	id, err := identity.Generate()
	require.NoError(t, err)

	ft := &fakeTransport{delay: 30 * time.Millisecond}
	book := staticBook{id.Peer: "addr-1"}
	d := New(ft, book, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Submit(ctx, Event{Destination: id.Peer, Envelope: transport.Ping()})
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		return d.ConnectionCount() == 1
	}, time.Second, 5*time.Millisecond)
	assert.LessOrEqual(t, int(atomic.LoadInt32(&ft.dials)), 2)
}

func TestDispatcherNoAddressDropsEvent(t *testing.T) {
	id, err := identity.Generate()
	require.NoError(t, err)

	ft := &fakeTransport{}
	book := staticBook{}
	d := New(ft, book, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	require.NoError(t, d.Submit(ctx, Event{Destination: id.Peer, Envelope: transport.Ping()}))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, d.ConnectionCount())
}
