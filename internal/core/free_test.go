// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendFreeRequest_NoOpWhenNotReady(t *testing.T) {
	transport := &fakeTransport{}
	c := newTestCore(transport, &fakeEventLog{}, &fakeDrain{}, nil)
	job := &Job{ID: 1, HasResources: true}

	require.NoError(t, c.SendFreeRequest(context.Background(), job))
	assert.Empty(t, transport.frees)
	assert.False(t, job.FreePending)
}

func TestSendFreeRequest_NoOpWhenAlreadyPending(t *testing.T) {
	transport := &fakeTransport{}
	c := newTestCore(transport, &fakeEventLog{}, &fakeDrain{}, nil)
	c.ready = true
	job := &Job{ID: 1, HasResources: true, FreePending: true}

	require.NoError(t, c.SendFreeRequest(context.Background(), job))
	assert.Empty(t, transport.frees)
}

func TestSendFreeRequest_SendsAndMarksPending(t *testing.T) {
	transport := &fakeTransport{}
	events := &fakeEventLog{}
	c := newTestCore(transport, events, &fakeDrain{}, nil)
	c.ready = true
	job := &Job{ID: 1, HasResources: true, Flags: FlagDebug}

	require.NoError(t, c.SendFreeRequest(context.Background(), job))

	require.Len(t, transport.frees, 1)
	assert.True(t, job.FreePending)
	assert.Equal(t, 1, c.FreePendingCount())
	assert.Contains(t, events.names(1), "debug.free-request")
}

func TestHandleFreeResponse_UnknownIDTearsDown(t *testing.T) {
	c := newTestCore(&fakeTransport{}, &fakeEventLog{}, &fakeDrain{}, nil)
	c.ready = true

	err := c.HandleFreeResponse(context.Background(), FreeResponse{ID: 1})

	assert.Error(t, err)
}

func TestHandleFreeResponse_NotAllocatedTearsDown(t *testing.T) {
	jobs := NewActiveJobs()
	jobs.Put(&Job{ID: 1, HasResources: false})
	c := newTestCore(&fakeTransport{}, &fakeEventLog{}, &fakeDrain{}, jobs)
	c.ready = true

	err := c.HandleFreeResponse(context.Background(), FreeResponse{ID: 1})

	assert.Error(t, err)
}

func TestHandleFreeResponse_ClearsFreePendingAndPostsEvent(t *testing.T) {
	jobs := NewActiveJobs()
	job := &Job{ID: 1, HasResources: true, FreePending: true}
	jobs.Put(job)
	events := &fakeEventLog{}
	c := newTestCore(&fakeTransport{}, events, &fakeDrain{}, jobs)
	c.ready = true
	c.freePendingCount = 1

	require.NoError(t, c.HandleFreeResponse(context.Background(), FreeResponse{ID: 1}))

	assert.False(t, job.FreePending)
	assert.Equal(t, 0, c.FreePendingCount())
	assert.Contains(t, events.names(1), "free")
}
