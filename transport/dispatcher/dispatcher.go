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

// Package dispatcher is the single task a connection handler hands
// outbound work to: when a connection task needs to originate a new
// outbound connection (forwarding an outgoing post to a peer it does not
// currently hold open), it enqueues a (destination, event) pair here
// rather than dialing itself. The dispatcher owns the map of live
// outbound connections and deduplicates concurrent dials to the same
// peer.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/sage-x-project/gossipwire/peer"
	"github.com/sage-x-project/gossipwire/transport"
)

// AddressBook resolves a peer identity to a dialable network address.
// Discovery (the DHT lookup spec.md §6 marks out of scope) implements
// this in a full deployment; tests can supply a static map.
type AddressBook interface {
	Address(p peer.ID) (string, bool)
}

// Event is a unit of outbound work: send envelope to the peer identified
// by Destination, dialing a connection first if none is already open.
type Event struct {
	Destination peer.ID
	Envelope    transport.Envelope
}

// ErrNoAddress is returned when the address book holds no entry for a
// requested destination.
var ErrNoAddress = fmt.Errorf("dispatcher: no known address for peer")

// Dispatcher owns outbound connections and the single channel connection
// tasks submit origination requests to.
type Dispatcher struct {
	dial      transport.Transport
	addresses AddressBook

	events chan Event

	mu    sync.Mutex
	conns map[peer.ID]transport.Conn

	group singleflight.Group
}

// New constructs a Dispatcher that dials via t and resolves addresses via
// addresses. queueDepth bounds how many pending events may be buffered
// before a submitting connection task blocks.
func New(t transport.Transport, addresses AddressBook, queueDepth int) *Dispatcher {
	return &Dispatcher{
		dial:      t,
		addresses: addresses,
		events:    make(chan Event, queueDepth),
		conns:     make(map[peer.ID]transport.Conn),
	}
}

// Submit enqueues an event for the dispatcher's run loop. It blocks if
// the queue is full and ctx is not done first.
func (d *Dispatcher) Submit(ctx context.Context, e Event) error {
	select {
	case d.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// workerCount is how many goroutines concurrently drain the event
// channel. Several connection tasks may submit events addressed to the
// same not-yet-connected peer at once, so connFor's singleflight grouping
// is what collapses the resulting concurrent dials into one.
const workerCount = 4

// Run drains the event channel across workerCount worker goroutines until
// ctx is cancelled, dialing connections on demand and sending each
// event's envelope.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case e := <-d.events:
					d.handle(ctx, e)
				}
			}
		}()
	}
	wg.Wait()
}

func (d *Dispatcher) handle(ctx context.Context, e Event) {
	conn, err := d.connFor(ctx, e.Destination)
	if err != nil {
		return
	}
	if err := conn.Send(e.Envelope); err != nil {
		d.drop(e.Destination)
	}
}

// connFor returns an existing connection to p, or dials a fresh one.
// Concurrent requests for the same peer share a single dial via
// singleflight, so a burst of outgoing posts addressed to a peer we are
// not yet connected to does not open redundant connections.
func (d *Dispatcher) connFor(ctx context.Context, p peer.ID) (transport.Conn, error) {
	d.mu.Lock()
	if conn, ok := d.conns[p]; ok {
		d.mu.Unlock()
		return conn, nil
	}
	d.mu.Unlock()

	key := p.Hex()
	v, err, _ := d.group.Do(key, func() (interface{}, error) {
		d.mu.Lock()
		if conn, ok := d.conns[p]; ok {
			d.mu.Unlock()
			return conn, nil
		}
		d.mu.Unlock()

		addr, ok := d.addresses.Address(p)
		if !ok {
			return nil, ErrNoAddress
		}
		conn, err := d.dial.Dial(ctx, addr)
		if err != nil {
			return nil, fmt.Errorf("dispatcher: dial %s: %w", p.ShortString(), err)
		}

		d.mu.Lock()
		d.conns[p] = conn
		d.mu.Unlock()
		return conn, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(transport.Conn), nil
}

// drop closes and forgets the connection to p, if any, so the next event
// addressed to p triggers a fresh dial.
func (d *Dispatcher) drop(p peer.ID) {
	d.mu.Lock()
	conn, ok := d.conns[p]
	delete(d.conns, p)
	d.mu.Unlock()
	if ok {
		_ = conn.Close()
	}
}

// ConnectionCount returns the number of currently open outbound
// connections, for observability.
func (d *Dispatcher) ConnectionCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}
