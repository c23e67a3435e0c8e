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
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sage-x-project/gossipwire/blessing"
	"github.com/sage-x-project/gossipwire/health"
	"github.com/sage-x-project/gossipwire/internal/logger"
	"github.com/sage-x-project/gossipwire/internal/metrics"
	"github.com/sage-x-project/gossipwire/peer"
	"github.com/sage-x-project/gossipwire/post/poststore"
	"github.com/sage-x-project/gossipwire/propagation"
	"github.com/sage-x-project/gossipwire/seen"
	"github.com/sage-x-project/gossipwire/transport"
	"github.com/sage-x-project/gossipwire/transport/dispatcher"
	"github.com/sage-x-project/gossipwire/transport/websocket"
)

var (
	listenAddress string
	metricsPort   int
	healthPort    int
)

var runCmd = &cobra.Command{
	Use:   "run [bootstrap-peer...]",
	Short: "start a gossipwire node",
	Long: `run starts a gossipwire node: it listens for WebSocket connections from
peers, accepts and forwards signed posts to its trust set, and answers
blessing requests from candidate peers.

Each bootstrap-peer argument has the form "<hex-public-key>@<host:port>"
and is trusted unconditionally at startup — this is how a node's initial
trust set is seeded before any blessing has had a chance to run.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&listenAddress, "listen", "", "override the configured listen address")
	runCmd.Flags().IntVar(&metricsPort, "metrics-port", 0, "override the configured metrics port")
	runCmd.Flags().IntVar(&healthPort, "health-port", 0, "override the configured health port")
}

// bootstrapPeer is one parsed "<hex-key>@<host:port>" argument.
type bootstrapPeer struct {
	id   peer.ID
	addr string
}

func parseBootstrapPeers(args []string) ([]bootstrapPeer, error) {
	peers := make([]bootstrapPeer, 0, len(args))
	for _, arg := range args {
		parts := strings.SplitN(arg, "@", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("gossipwire-node: bootstrap peer %q must be <hex-key>@<host:port>", arg)
		}
		id, err := peer.FromHex(parts[0])
		if err != nil {
			return nil, fmt.Errorf("gossipwire-node: bootstrap peer %q: %w", arg, err)
		}
		peers = append(peers, bootstrapPeer{id: id, addr: parts[1]})
	}
	return peers, nil
}

// staticAddressBook resolves the fixed set of peer addresses known at
// startup (bootstrap peers). A deployment that wants discovery beyond its
// bootstrap set implements dispatcher.AddressBook itself; none is
// provided here, per spec.md's out-of-scope DHT discovery.
type staticAddressBook struct {
	addrs map[peer.ID]string
}

func (b *staticAddressBook) Address(p peer.ID) (string, bool) {
	a, ok := b.addrs[p]
	return a, ok
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bootstraps, err := parseBootstrapPeers(args)
	if err != nil {
		return err
	}

	n, err := openNode(ctx)
	if err != nil {
		return err
	}
	defer n.store.Close()

	if listenAddress != "" {
		n.cfg.Network.ListenAddress = listenAddress
	}
	if metricsPort != 0 {
		n.cfg.Metrics.Port = metricsPort
	}
	if healthPort != 0 {
		n.cfg.Health.Port = healthPort
	}

	log := logger.GetDefaultLogger()

	self, err := n.identity.Get(ctx)
	if err != nil {
		return fmt.Errorf("gossipwire-node: load identity: %w", err)
	}
	log.Info("identity loaded", logger.String("peer", self.Peer.ShortString()))

	addresses := &staticAddressBook{addrs: make(map[peer.ID]string)}
	for _, bp := range bootstraps {
		addresses.addrs[bp.id] = bp.addr
		if err := n.trust.Trust(ctx, bp.id, time.Now().Unix()); err != nil {
			return fmt.Errorf("gossipwire-node: trust bootstrap peer: %w", err)
		}
		log.Info("trusted bootstrap peer", logger.String("peer", bp.id.ShortString()), logger.String("addr", bp.addr))
	}

	seenIdx := seen.NewIndex(n.store)
	posts := poststore.New(n.store)
	propEngine := propagation.New(self.Peer, self.Private, seenIdx, posts, n.trust)
	blessEngine := blessing.New(self.Peer, seenIdx, n.trust, n.scores)

	disp := dispatcher.New(websocket.NewDialer(), addresses, 256)
	go disp.Run(ctx)

	handler := func(conn transport.Conn) {
		handleConn(ctx, conn, self.Peer, propEngine, blessEngine, disp, log)
	}
	wsServer := websocket.NewServer(handler)

	mux := http.NewServeMux()
	mux.Handle("/gossip", wsServer)
	httpServer := &http.Server{Addr: n.cfg.Network.ListenAddress, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", logger.String("addr", n.cfg.Network.ListenAddress))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("gossipwire-node: listen: %w", err)
		}
	}()

	if n.cfg.Metrics.Enabled {
		go func() {
			addr := fmt.Sprintf(":%d", n.cfg.Metrics.Port)
			log.Info("serving metrics", logger.String("addr", addr))
			if err := metrics.StartServer(addr); err != nil {
				log.Warn("metrics server stopped", logger.Error(err))
			}
		}()
	}

	if n.cfg.Health.Enabled {
		checker := health.NewHealthChecker(5 * time.Second)
		checker.RegisterCheck("store", health.DatabaseHealthCheck(n.store.Ping))
		go serveHealth(ctx, checker, n.cfg.Health.Port, log)
	}

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func serveHealth(ctx context.Context, checker *health.HealthChecker, port int, log logger.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := checker.GetOverallStatus(r.Context())
		if status != health.StatusHealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		fmt.Fprintf(w, `{"status":%q}`, status)
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Warn("health server stopped", logger.Error(err))
	}
}

// handleConn owns one accepted connection for its lifetime: every
// incoming post is fed to the propagation engine and any resulting
// fan-out is handed to the dispatcher; every incoming blessing is checked
// against the trust set.
func handleConn(ctx context.Context, conn transport.Conn, self peer.ID, prop *propagation.Engine, bless *blessing.Engine, disp *dispatcher.Dispatcher, log logger.Logger) {
	defer conn.Close()

	for {
		env, err := conn.Recv()
		if err != nil {
			return
		}

		switch env.Kind {
		case transport.KindPing:
			_ = conn.Send(transport.Pong())

		case transport.KindPost:
			incoming, err := env.Post.ToIncoming(time.Now().Unix(), self)
			if err != nil {
				log.Warn("rejected malformed post", logger.Error(err))
				continue
			}

			outgoing, err := prop.Receive(ctx, incoming)
			if err != nil {
				if !errors.Is(err, propagation.ErrAlreadySeen) {
					log.Warn("propagation receive failed", logger.Error(err))
				}
				continue
			}

			for _, op := range outgoing {
				dest := op.History[len(op.History)-1].To
				e := dispatcher.Event{Destination: dest, Envelope: transport.PostEnvelope(op)}
				if err := disp.Submit(ctx, e); err != nil {
					log.Warn("dispatch failed", logger.String("to", dest.ShortString()), logger.Error(err))
				}
			}

		case transport.KindBlessing:
			from := *env.From
			if err := bless.Check(ctx, env.Blessing, from); err != nil {
				log.Warn("blessing rejected", logger.String("from", from.ShortString()), logger.Error(err))
				continue
			}
			log.Info("blessing accepted, peer admitted", logger.String("peer", from.ShortString()))

		case transport.KindCloseRequest:
			_ = conn.Send(transport.CloseResponse())
			return
		}
	}
}
