// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"encoding/json"
)

// EventLog is the append-only journal collaborator (spec.md §2/§6). The
// core posts through it and never reads back; durability, compaction, and
// storage format are the collaborator's concern.
type EventLog interface {
	// Post appends a committed, job-scoped event.
	Post(ctx context.Context, jobID uint64, name string, payload any) error

	// PostNoCommit appends an event visible to in-memory observers but not
	// journaled — used only for the annotations-clear event (spec.md §6).
	PostNoCommit(ctx context.Context, jobID uint64, name string, payload any) error
}

// AllocRequest is the payload of a core -> scheduler sched.alloc request.
type AllocRequest struct {
	ID       uint64          `json:"id"`
	Priority uint32          `json:"priority"`
	UserID   uint32          `json:"userid"`
	TSubmit  float64         `json:"t_submit"`
	Jobspec  json.RawMessage `json:"jobspec"`
}

// FreeRequest is the payload of a core -> scheduler sched.free request.
type FreeRequest struct {
	ID uint64 `json:"id"`
}

// CancelRequest is the payload of a core -> scheduler sched.cancel request.
// It is fire-and-forget: the scheduler replies (if at all) with an alloc
// response of type CANCEL, not a direct response to this message.
type CancelRequest struct {
	ID uint64 `json:"id"`
}

// Transport is the message transport collaborator, restricted to the
// outbound surface the allocation core needs (spec.md §2/§6). The
// concrete websocket implementation lives in internal/transport.
type Transport interface {
	SendAlloc(ctx context.Context, req AllocRequest) error
	SendFree(ctx context.Context, req FreeRequest) error
	SendCancel(ctx context.Context, req CancelRequest) error
}

// Responder lets a handler reply to one inbound scheduler or administrator
// request without the core depending on the wire format directly.
// sched-hello uses Stream/End to model RFC27's streaming response; every
// other handler uses Respond or Err exactly once.
type Responder interface {
	Respond(payload any) error
	Stream(payload any) error
	End(errCode int, errMsg string) error
	Err(errCode int, errMsg string) error
}

// DrainSupervisor is notified whenever alloc_pending_count may have
// reached zero (spec.md §2/§4.7), so it can decide whether an
// administrative drain has completed.
type DrainSupervisor interface {
	NotifyPendingChanged(count int)
}

// NoOpDrainSupervisor discards all notifications. Useful for tests and for
// embedding this core where no drain feature exists.
type NoOpDrainSupervisor struct{}

func (NoOpDrainSupervisor) NotifyPendingChanged(int) {}
