// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package reactor drives the allocation core's single-threaded event
// loop (spec.md §4.2/§5): one prep/check pass per iteration, blocking
// between iterations on the transport's inbound frame channel so the
// core never runs two handlers concurrently.
package reactor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jontk/allocd/internal/core"
	"github.com/jontk/allocd/internal/transport"
	corectx "github.com/jontk/allocd/pkg/context"
	"github.com/jontk/allocd/pkg/logging"
)

// IdleInterval bounds how long a loop iteration blocks with no inbound
// frame before re-running prep/check, so a dispatchable job doesn't wait
// indefinitely for the next message to arrive (spec.md §4.2's idle
// watcher).
const IdleInterval = 50 * time.Millisecond

// Owner decides whether an alloc-admin request's sender holds owner
// credentials. The transport layer authenticates the connection; the
// reactor only asks it who the caller is.
type Owner interface {
	IsOwner(sender string) bool
}

// AllowAllOwner treats every sender as an administrative owner. Useful
// for single-tenant deployments and tests.
type AllowAllOwner struct{}

func (AllowAllOwner) IsOwner(string) bool { return true }

// Reactor pumps frames from a transport.Transport into an *core.Core and
// answers each with a transport.FrameResponder (spec.md §5, §6).
type Reactor struct {
	core      *core.Core
	transport *transport.Transport
	owner     Owner
	logger    logging.Logger
	timeouts  *corectx.TimeoutConfig
}

// New builds a Reactor over the given core and transport.
func New(c *core.Core, t *transport.Transport, owner Owner, logger logging.Logger) *Reactor {
	if owner == nil {
		owner = AllowAllOwner{}
	}
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Reactor{
		core:      c,
		transport: t,
		owner:     owner,
		logger:    logger.With("component", "reactor"),
		timeouts:  corectx.DefaultTimeoutConfig(),
	}
}

// Run is the reactor's main loop. It returns when ctx is canceled, the
// transport's receive channel closes, or a handler reports a fatal
// error (spec.md §7: a transport send failure during Check stops the
// reactor).
func (r *Reactor) Run(ctx context.Context) error {
	recv := r.transport.Recv()
	idle := time.NewTicker(IdleInterval)
	defer idle.Stop()

	for {
		if r.core.Prep() {
			if err := r.core.Check(ctx); err != nil {
				return fmt.Errorf("reactor: check: %w", err)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-recv:
			if !ok {
				return nil
			}
			r.dispatch(ctx, f)
		case <-idle.C:
			// Nothing arrived; loop back to prep/check.
		}
	}
}

func (r *Reactor) dispatch(ctx context.Context, f transport.Frame) {
	opCtx, cancel := corectx.WithTimeout(ctx, operationTypeForOp(f.Op), r.timeouts)
	defer cancel()

	resp := transport.NewFrameResponder(r.transport, f)

	var err error
	switch f.Op {
	case transport.OpSchedHello:
		err = r.core.HandleHello(opCtx, resp)
	case transport.OpSchedReady:
		err = r.handleReady(opCtx, f, resp)
	case transport.OpAllocResponse:
		err = r.handleAllocResponse(opCtx, f)
	case transport.OpFreeResponse:
		err = r.handleFreeResponse(opCtx, f)
	case transport.OpAdmin:
		err = r.handleAdmin(opCtx, f, resp)
	case transport.OpDisconnect:
		r.core.Disconnect(opCtx, f.Sender)
	default:
		err = resp.Err(0, "unknown operation "+f.Op)
	}
	if err != nil {
		r.logger.Warn("frame handling failed", "op", f.Op, "id", f.ID, "error", err)
	}
}

// operationTypeForOp maps a wire operation to the timeout bucket it
// should run under (pkg/context.TimeoutConfig).
func operationTypeForOp(op string) corectx.OperationType {
	switch op {
	case transport.OpAdmin:
		return corectx.OpAdmin
	case transport.OpAlloc, transport.OpAllocResponse, transport.OpFree, transport.OpFreeResponse, transport.OpCancel:
		return corectx.OpAlloc
	case transport.OpSchedHello, transport.OpSchedHelloEnd:
		return corectx.OpHello
	default:
		return corectx.OpDefault
	}
}

type readyFrame struct {
	Mode  string `json:"mode"`
	Limit int    `json:"limit"`
}

func (r *Reactor) handleReady(ctx context.Context, f transport.Frame, resp core.Responder) error {
	var body readyFrame
	if err := json.Unmarshal(f.Payload, &body); err != nil {
		return resp.Err(0, "ready: malformed request")
	}
	return r.core.HandleReady(ctx, body.Mode, body.Limit, f.Sender, resp)
}

type allocResponseFrame struct {
	ID          uint64                 `json:"id"`
	Type        core.AllocResponseType `json:"type"`
	Note        string                 `json:"note"`
	Annotations json.RawMessage        `json:"annotations,omitempty"`
}

func (r *Reactor) handleAllocResponse(ctx context.Context, f transport.Frame) error {
	var body allocResponseFrame
	if err := json.Unmarshal(f.Payload, &body); err != nil {
		return fmt.Errorf("reactor: malformed alloc response: %w", err)
	}
	return r.core.HandleAllocResponse(ctx, core.AllocResponse{
		ID:          body.ID,
		Type:        body.Type,
		Note:        body.Note,
		Annotations: body.Annotations,
	})
}

type freeResponseFrame struct {
	ID uint64 `json:"id"`
}

func (r *Reactor) handleFreeResponse(ctx context.Context, f transport.Frame) error {
	var body freeResponseFrame
	if err := json.Unmarshal(f.Payload, &body); err != nil {
		return fmt.Errorf("reactor: malformed free response: %w", err)
	}
	return r.core.HandleFreeResponse(ctx, core.FreeResponse{ID: body.ID})
}

type adminFrame struct {
	QueryOnly bool   `json:"query_only"`
	Enable    bool   `json:"enable"`
	Reason    string `json:"reason"`
}

func (r *Reactor) handleAdmin(ctx context.Context, f transport.Frame, resp core.Responder) error {
	var body adminFrame
	if err := json.Unmarshal(f.Payload, &body); err != nil {
		return resp.Err(0, "admin: malformed request")
	}
	req := core.AdminRequest{QueryOnly: body.QueryOnly, Enable: body.Enable, Reason: body.Reason}
	return r.core.HandleAdmin(ctx, req, r.owner.IsOwner(f.Sender), resp)
}
