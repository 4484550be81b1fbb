// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Command allocd runs the allocation core as a standalone daemon: it
// listens for a scheduler's websocket connection and drives
// internal/core's reactor loop against it.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/jontk/allocd/internal/core"
	"github.com/jontk/allocd/internal/eventlog"
	"github.com/jontk/allocd/internal/reactor"
	"github.com/jontk/allocd/internal/transport"
	"github.com/jontk/allocd/pkg/config"
	"github.com/jontk/allocd/pkg/logging"
)

func main() {
	cfg := config.NewDefault()
	cfg.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "allocd: invalid configuration:", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(&logging.Config{
		Level:   parseLevel(cfg.LogLevel),
		Format:  logging.Format(cfg.LogFormat),
		Output:  os.Stdout,
		Version: "dev",
	})

	if err := run(cfg, logger); err != nil {
		logger.Error("allocd exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events, err := eventlog.Open(ctx, cfg.EventLogDSN, logger)
	if err != nil {
		return fmt.Errorf("allocd: open event log: %w", err)
	}
	defer events.Close()

	addr, path, err := splitListenAddr(cfg.TransportAddr)
	if err != nil {
		return fmt.Errorf("allocd: %w", err)
	}

	jobs := core.NewActiveJobs()
	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		serveScheduler(r.Context(), w, r, cfg, jobs, events, logger)
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("allocd listening", "addr", addr, "path", path)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("allocd shutting down")
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		return err
	}
}

// serveScheduler upgrades one scheduler connection and runs the reactor
// loop against it until the connection drops (spec.md §4.3/§4.7: one
// scheduler holds the ready handshake at a time).
func serveScheduler(ctx context.Context, w http.ResponseWriter, r *http.Request, cfg *config.Config, jobs *core.ActiveJobs, events core.EventLog, logger logging.Logger) {
	t, err := transport.Accept(ctx, w, r, cfg.HandshakeTimeout, logger)
	if err != nil {
		logger.Warn("scheduler connection upgrade failed", "error", err)
		return
	}
	defer t.Close()

	c := core.New(logger, events, jobs, t, nil)

	// Treat the connection as an implicit scheduler in the configured
	// default mode until it sends its own sched-ready; a real sched-ready
	// later overwrites this safely since HandleReady is idempotent.
	if err := c.HandleReady(ctx, string(cfg.DefaultReadyMode), cfg.DefaultAllocLimit, "default", discardResponder{}); err != nil {
		logger.Warn("default ready seed rejected", "error", err)
	}

	rx := reactor.New(c, t, reactor.AllowAllOwner{}, logger)

	if err := rx.Run(ctx); err != nil {
		logger.Warn("reactor stopped", "error", err)
	}
}

// discardResponder satisfies core.Responder for the synthetic default-ready
// call above, which has no real peer to answer.
type discardResponder struct{}

func (discardResponder) Respond(any) error     { return nil }
func (discardResponder) Stream(any) error      { return nil }
func (discardResponder) End(int, string) error { return nil }
func (discardResponder) Err(int, string) error { return nil }

func splitListenAddr(raw string) (addr, path string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("parse transport address %q: %w", raw, err)
	}
	if u.Path == "" {
		u.Path = "/sched"
	}
	return u.Host, u.Path, nil
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
