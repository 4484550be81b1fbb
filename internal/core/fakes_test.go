// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"errors"
)

// fakeEventLog records every posted event for assertion, and can be made
// to fail on demand.
type fakeEventLog struct {
	events    []recordedEvent
	failNext  bool
	failError error
}

type recordedEvent struct {
	jobID     uint64
	name      string
	payload   any
	noCommit  bool
}

func (f *fakeEventLog) Post(ctx context.Context, jobID uint64, name string, payload any) error {
	if f.failNext {
		f.failNext = false
		return f.failError
	}
	f.events = append(f.events, recordedEvent{jobID: jobID, name: name, payload: payload})
	return nil
}

func (f *fakeEventLog) PostNoCommit(ctx context.Context, jobID uint64, name string, payload any) error {
	f.events = append(f.events, recordedEvent{jobID: jobID, name: name, payload: payload, noCommit: true})
	return nil
}

func (f *fakeEventLog) names(jobID uint64) []string {
	var out []string
	for _, e := range f.events {
		if e.jobID == jobID {
			out = append(out, e.name)
		}
	}
	return out
}

// fakeTransport records every outbound scheduler request and can be made
// to fail sends on demand.
type fakeTransport struct {
	allocs      []AllocRequest
	frees       []FreeRequest
	cancels     []CancelRequest
	failAlloc   bool
	failAllocErr error
}

func (f *fakeTransport) SendAlloc(ctx context.Context, req AllocRequest) error {
	if f.failAlloc {
		return f.failAllocErr
	}
	f.allocs = append(f.allocs, req)
	return nil
}

func (f *fakeTransport) SendFree(ctx context.Context, req FreeRequest) error {
	f.frees = append(f.frees, req)
	return nil
}

func (f *fakeTransport) SendCancel(ctx context.Context, req CancelRequest) error {
	f.cancels = append(f.cancels, req)
	return nil
}

// fakeDrain records every notified pending count.
type fakeDrain struct {
	counts []int
}

func (f *fakeDrain) NotifyPendingChanged(count int) {
	f.counts = append(f.counts, count)
}

// fakeResponder records a single-response or streaming exchange.
type fakeResponder struct {
	responses []any
	streamed  []any
	ended     bool
	endCode   int
	erred     bool
	errCode   int
	errMsg    string
}

func (f *fakeResponder) Respond(payload any) error {
	f.responses = append(f.responses, payload)
	return nil
}

func (f *fakeResponder) Stream(payload any) error {
	f.streamed = append(f.streamed, payload)
	return nil
}

func (f *fakeResponder) End(errCode int, errMsg string) error {
	f.ended = true
	f.endCode = errCode
	return nil
}

func (f *fakeResponder) Err(errCode int, errMsg string) error {
	f.erred = true
	f.errCode = errCode
	f.errMsg = errMsg
	return errors.New(errMsg)
}

func newTestCore(transport *fakeTransport, events *fakeEventLog, drain *fakeDrain, jobs *ActiveJobs) *Core {
	if jobs == nil {
		jobs = NewActiveJobs()
	}
	return New(nil, events, jobs, transport, drain)
}
