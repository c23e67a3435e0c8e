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

// Package websocket implements transport.Transport and transport.Conn
// over WebSocket connections, framing one JSON envelope per text message.
package websocket

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/sage-x-project/gossipwire/transport"
)

// ReadInactivityTimeout is how long a connection may go without a frame
// before a read is abandoned.
const ReadInactivityTimeout = 5 * time.Second

const writeTimeout = 5 * time.Second

var upgrader = gorilla.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Peer identity is authenticated by post/hop signatures, not by
		// the WebSocket handshake, so origin is not a trust boundary here.
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Conn wraps a gorilla *websocket.Conn as a transport.Conn.
type Conn struct {
	ws   *gorilla.Conn
	addr string
	mu   sync.Mutex
}

// newConn wraps an established WebSocket connection.
func newConn(ws *gorilla.Conn, addr string) *Conn {
	return &Conn{ws: ws, addr: addr}
}

// Send writes one envelope as a JSON text frame.
func (c *Conn) Send(e transport.Envelope) error {
	if err := e.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("websocket: set write deadline: %w", err)
	}
	if err := c.ws.WriteJSON(e); err != nil {
		return fmt.Errorf("websocket: write: %w", err)
	}
	return nil
}

// Recv blocks for the next envelope, abandoning the read if none arrives
// within ReadInactivityTimeout.
func (c *Conn) Recv() (transport.Envelope, error) {
	if err := c.ws.SetReadDeadline(time.Now().Add(ReadInactivityTimeout)); err != nil {
		return transport.Envelope{}, fmt.Errorf("websocket: set read deadline: %w", err)
	}

	var e transport.Envelope
	if err := c.ws.ReadJSON(&e); err != nil {
		return transport.Envelope{}, fmt.Errorf("websocket: read: %w", err)
	}
	if err := e.Validate(); err != nil {
		return transport.Envelope{}, err
	}
	return e, nil
}

// Close closes the underlying WebSocket connection, sending a normal
// close frame first.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.ws.WriteMessage(gorilla.CloseMessage, gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, ""))
	if err := c.ws.Close(); err != nil {
		return fmt.Errorf("websocket: close: %w", err)
	}
	return nil
}

// RemoteAddr returns the dialed or accepted peer address.
func (c *Conn) RemoteAddr() string {
	return c.addr
}

// Dialer implements transport.Transport by dialing outbound WebSocket
// connections.
type Dialer struct {
	handshakeTimeout time.Duration
}

// NewDialer constructs a Dialer with the default handshake timeout.
func NewDialer() *Dialer {
	return &Dialer{handshakeTimeout: 10 * time.Second}
}

// Dial opens a WebSocket connection to addr.
func (d *Dialer) Dial(ctx context.Context, addr string) (transport.Conn, error) {
	dialer := &gorilla.Dialer{HandshakeTimeout: d.handshakeTimeout}
	ws, resp, err := dialer.DialContext(ctx, addr, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket: dial %s (HTTP %d): %w", addr, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket: dial %s: %w", addr, err)
	}
	return newConn(ws, addr), nil
}

// Handler is invoked once per accepted inbound connection. It owns the
// connection for its lifetime and should loop on Recv until it errors.
type Handler func(conn transport.Conn)

// Server upgrades incoming HTTP connections to WebSocket and hands each
// one to a Handler.
type Server struct {
	handler Handler
}

// NewServer constructs a Server that dispatches every accepted
// connection to handler.
func NewServer(handler Handler) *Server {
	return &Server{handler: handler}
}

// ServeHTTP implements http.Handler, upgrading the request to a WebSocket
// connection and handing it to the configured Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, fmt.Sprintf("websocket upgrade failed: %v", err), http.StatusBadRequest)
		return
	}
	conn := newConn(ws, r.RemoteAddr)
	defer func() { _ = conn.Close() }()
	s.handler(conn)
}
