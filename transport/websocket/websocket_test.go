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

package websocket

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sage-x-project/gossipwire/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialSendRecvRoundTrip(t *testing.T) {
	received := make(chan transport.Envelope, 1)
	srv := NewServer(func(conn transport.Conn) {
		e, err := conn.Recv()
		if err != nil {
			return
		}
		received <- e
		_ = conn.Send(transport.Pong())
	})

	ts := httptest.NewServer(srv)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dialer := NewDialer()
	conn, err := dialer.Dial(ctx, wsURL)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.Send(transport.Ping()))

	select {
	case e := <-received:
		assert.Equal(t, transport.KindPing, e.Kind)
	case <-time.After(2 * time.Second):
		t.Fatal("server never received ping")
	}

	pong, err := conn.Recv()
	require.NoError(t, err)
	assert.Equal(t, transport.KindPong, pong.Kind)
}

func TestRemoteAddrReflectsDialTarget(t *testing.T) {
	srv := NewServer(func(conn transport.Conn) {
		_, _ = conn.Recv()
	})
	ts := httptest.NewServer(srv)
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dialer := NewDialer()
	conn, err := dialer.Dial(ctx, wsURL)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, wsURL, conn.RemoteAddr())
}
