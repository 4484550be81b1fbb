// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"encoding/json"

	"github.com/jontk/allocd/internal/core"
)

// FrameResponder answers one inbound Frame, correlating every reply by the
// request's ID (spec.md §6's streaming sched-hello is modeled as a
// sequence of Frames sharing that ID, per SPEC_FULL.md §6).
type FrameResponder struct {
	t   *Transport
	req Frame
}

// NewFrameResponder builds the Responder for an inbound request frame.
func NewFrameResponder(t *Transport, req Frame) *FrameResponder {
	return &FrameResponder{t: t, req: req}
}

func (r *FrameResponder) encode(payload any) (json.RawMessage, error) {
	if payload == nil {
		return nil, nil
	}
	return json.Marshal(payload)
}

// Respond implements core.Responder: a single reply frame.
func (r *FrameResponder) Respond(payload any) error {
	body, err := r.encode(payload)
	if err != nil {
		return err
	}
	return r.t.send(Frame{ID: r.req.ID, Op: r.req.Op, Payload: body})
}

// Stream implements core.Responder: one frame of a multi-frame reply,
// used by sched-hello.
func (r *FrameResponder) Stream(payload any) error {
	body, err := r.encode(payload)
	if err != nil {
		return err
	}
	return r.t.send(Frame{ID: r.req.ID, Op: r.req.Op, Payload: body})
}

// End implements core.Responder: terminates a streaming reply with the
// given end marker, per spec.md §6's ENODATA convention.
func (r *FrameResponder) End(errCode int, errMsg string) error {
	return r.t.send(Frame{ID: r.req.ID, Op: r.req.Op + ".end", ErrCode: errCode, ErrMsg: errMsg})
}

// Err implements core.Responder: a single transport-level error reply,
// used whenever spec.md §7's table calls for "reply with transport error".
func (r *FrameResponder) Err(errCode int, errMsg string) error {
	return r.t.send(Frame{ID: r.req.ID, Op: r.req.Op, ErrCode: errCode, ErrMsg: errMsg})
}

var _ core.Responder = (*FrameResponder)(nil)
