// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package transport implements the message transport collaborator
// (spec.md §2/§6): a websocket connection carrying scheduler and
// administrative requests/responses as JSON frames.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jontk/allocd/internal/core"
	corectx "github.com/jontk/allocd/pkg/context"
	"github.com/jontk/allocd/pkg/logging"
	"github.com/jontk/allocd/pkg/retry"
)

// Frame is the wire envelope for every message exchanged with the
// scheduler or an administrative client (spec.md §6, SPEC_FULL.md §6).
type Frame struct {
	ID      string          `json:"id"`
	Op      string          `json:"op"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Sender  string          `json:"sender,omitempty"`
	ErrCode int             `json:"err_code,omitempty"`
	ErrMsg  string          `json:"err_msg,omitempty"`
}

// Operation names carried in Frame.Op.
const (
	OpSchedHello    = "sched-hello"
	OpSchedHelloEnd = "sched-hello.end"
	OpSchedReady    = "sched-ready"
	OpAlloc         = "sched.alloc"
	OpAllocResponse = "sched.alloc.response"
	OpFree          = "sched.free"
	OpFreeResponse  = "sched.free.response"
	OpCancel        = "sched.cancel"
	OpAdmin         = "alloc-admin"
	OpDisconnect    = "disconnect"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Transport wraps a single websocket connection to a scheduler process. It
// implements core.Transport directly, and exposes the inbound frame
// channel the reactor drains.
type Transport struct {
	conn   *websocket.Conn
	logger logging.Logger

	writeMu sync.Mutex
	recv    chan Frame
}

// Accept upgrades an inbound HTTP connection to a websocket and starts
// reading frames into the returned Transport's receive channel. The
// caller is the reactor's entrypoint; reading stops when the connection
// closes or ctx is canceled. handshakeTimeout bounds how long the
// connection is given to deliver its first frame (sched-hello, in
// practice) before the read is abandoned; zero disables the deadline.
func Accept(ctx context.Context, w http.ResponseWriter, r *http.Request, handshakeTimeout time.Duration, logger logging.Logger) (*Transport, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("transport: upgrade: %w", err)
	}
	if handshakeTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(handshakeTimeout)); err != nil {
			conn.Close()
			return nil, fmt.Errorf("transport: set handshake deadline: %w", err)
		}
	}
	return newTransport(ctx, conn, logger), nil
}

// Dial connects outbound to a scheduler listening at url, mirroring
// Accept for test harnesses and non-HTTP-embedded deployments.
// handshakeTimeout bounds the dial attempt itself; a dial that fails for a
// transient reason (the scheduler process not yet listening) is retried
// with backoff rather than failed immediately.
func Dial(ctx context.Context, url string, handshakeTimeout time.Duration, logger logging.Logger) (*Transport, error) {
	dialCtx, cancel := corectx.EnsureTimeout(ctx, handshakeTimeout)
	defer cancel()

	var conn *websocket.Conn
	dialErr := retry.Retry(dialCtx, retry.NewExponentialBackoff(), func() error {
		var err error
		conn, _, err = websocket.DefaultDialer.DialContext(dialCtx, url, nil)
		return err
	})
	if dialErr != nil {
		return nil, fmt.Errorf("transport: dial: %w", dialErr)
	}
	return newTransport(ctx, conn, logger), nil
}

func newTransport(ctx context.Context, conn *websocket.Conn, logger logging.Logger) *Transport {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	t := &Transport{
		conn:   conn,
		logger: logger.With("component", "transport"),
		recv:   make(chan Frame, 64),
	}
	go t.readLoop(ctx)
	go t.keepAlive(ctx)
	return t
}

// Recv returns the channel of inbound frames. The reactor is the sole
// consumer (spec.md §5: the one concurrency boundary in the system).
func (t *Transport) Recv() <-chan Frame {
	return t.recv
}

func (t *Transport) readLoop(ctx context.Context) {
	defer close(t.recv)
	first := true
	for {
		var f Frame
		if err := t.conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				t.logger.Warn("transport read error", "error", err)
			}
			return
		}
		if first {
			// The handshake deadline (if any) only bounds the first
			// frame; once a peer has spoken, keepAlive pings are the
			// liveness signal instead.
			t.conn.SetReadDeadline(time.Time{})
			first = false
		}
		select {
		case t.recv <- f:
		case <-ctx.Done():
			return
		}
	}
}

func (t *Transport) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.writeMu.Lock()
			err := t.conn.WriteMessage(websocket.PingMessage, nil)
			t.writeMu.Unlock()
			if err != nil {
				t.logger.Warn("transport ping failed", "error", err)
				return
			}
		}
	}
}

func (t *Transport) send(f Frame) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	return t.conn.WriteJSON(f)
}

// SendAlloc implements core.Transport.
func (t *Transport) SendAlloc(ctx context.Context, req core.AllocRequest) error {
	return t.sendOp(OpAlloc, req)
}

// SendFree implements core.Transport.
func (t *Transport) SendFree(ctx context.Context, req core.FreeRequest) error {
	return t.sendOp(OpFree, req)
}

// SendCancel implements core.Transport.
func (t *Transport) SendCancel(ctx context.Context, req core.CancelRequest) error {
	return t.sendOp(OpCancel, req)
}

func (t *Transport) sendOp(op string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("transport: marshal %s: %w", op, err)
	}
	return t.send(Frame{Op: op, Payload: body})
}

// Close closes the underlying connection.
func (t *Transport) Close() error {
	return t.conn.Close()
}

var _ core.Transport = (*Transport)(nil)
