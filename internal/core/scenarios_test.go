// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestScenario_HappyPath walks a single job from enqueue through alloc
// success, free request, and free response.
func TestScenario_HappyPath(t *testing.T) {
	ctx := context.Background()
	transport := &fakeTransport{}
	events := &fakeEventLog{}
	jobs := NewActiveJobs()
	job := &Job{ID: 1, Priority: 16}
	jobs.Put(job)
	c := newTestCore(transport, events, &fakeDrain{}, jobs)

	require.NoError(t, c.HandleReady(ctx, "unlimited", 0, "sched-1", &fakeResponder{}))

	c.Enqueue(job)
	require.NoError(t, c.Check(ctx))
	require.True(t, job.AllocPending)

	require.NoError(t, c.HandleAllocResponse(ctx, AllocResponse{ID: 1, Type: AllocSuccess}))
	assert.True(t, job.HasResources)

	job.State = JobStateCleanup
	require.NoError(t, c.SendFreeRequest(ctx, job))
	require.NoError(t, c.HandleFreeResponse(ctx, FreeResponse{ID: 1}))

	assert.False(t, job.FreePending)
	assert.Equal(t, 0, c.AllocPendingCount())
	assert.Equal(t, 0, c.FreePendingCount())
}

// TestScenario_LimitedModePreemption confirms a higher-priority arrival
// preempts a lower-priority allocation in flight under a concurrency limit.
func TestScenario_LimitedModePreemption(t *testing.T) {
	ctx := context.Background()
	transport := &fakeTransport{}
	jobs := NewActiveJobs()
	low := &Job{ID: 1, Priority: 5, State: JobStateSched}
	jobs.Put(low)
	c := newTestCore(transport, &fakeEventLog{}, &fakeDrain{}, jobs)

	require.NoError(t, c.HandleReady(ctx, "limited", 1, "sched-1", &fakeResponder{}))

	c.Enqueue(low)
	require.NoError(t, c.Check(ctx))
	require.True(t, low.AllocPending)

	high := &Job{ID: 2, Priority: 31}
	jobs.Put(high)
	c.Enqueue(high)

	require.NoError(t, c.ReprioritizeAll(ctx))
	require.Len(t, transport.cancels, 1)
	assert.Equal(t, uint64(1), transport.cancels[0].ID)

	// Scheduler honors the cancel with a CANCEL-type alloc response.
	require.NoError(t, c.HandleAllocResponse(ctx, AllocResponse{ID: 1, Type: AllocCancel}))
	assert.True(t, low.AllocQueued)

	require.NoError(t, c.Check(ctx))
	require.Len(t, transport.allocs, 2)
	assert.Equal(t, uint64(2), transport.allocs[1].ID)
}

// TestScenario_Deny confirms a DENY response frees the slot and records an
// exception event without granting resources.
func TestScenario_Deny(t *testing.T) {
	ctx := context.Background()
	transport := &fakeTransport{}
	events := &fakeEventLog{}
	jobs := NewActiveJobs()
	job := &Job{ID: 1, Priority: 10}
	jobs.Put(job)
	c := newTestCore(transport, events, &fakeDrain{}, jobs)

	require.NoError(t, c.HandleReady(ctx, "unlimited", 0, "sched-1", &fakeResponder{}))
	c.Enqueue(job)
	require.NoError(t, c.Check(ctx))

	require.NoError(t, c.HandleAllocResponse(ctx, AllocResponse{ID: 1, Type: AllocDeny, Note: "no match"}))

	assert.False(t, job.HasResources)
	assert.False(t, job.AllocQueued, "a denied job is not automatically requeued")
	assert.Contains(t, events.names(1), "exception")
}

// TestScenario_DisconnectMidFlight confirms a disconnect from the ready
// scheduler requeues every in-flight allocation and resets handshake state.
func TestScenario_DisconnectMidFlight(t *testing.T) {
	ctx := context.Background()
	transport := &fakeTransport{}
	jobs := NewActiveJobs()
	a := &Job{ID: 1, Priority: 20}
	b := &Job{ID: 2, Priority: 10}
	jobs.Put(a)
	jobs.Put(b)
	c := newTestCore(transport, &fakeEventLog{}, &fakeDrain{}, jobs)

	require.NoError(t, c.HandleReady(ctx, "unlimited", 0, "sched-1", &fakeResponder{}))
	c.Enqueue(a)
	c.Enqueue(b)
	require.NoError(t, c.Check(ctx))
	require.NoError(t, c.Check(ctx))
	require.Equal(t, 2, c.AllocPendingCount())

	c.Disconnect(ctx, "sched-1")

	assert.False(t, c.Ready())
	assert.Equal(t, 0, c.AllocPendingCount())
	assert.True(t, a.AllocQueued)
	assert.True(t, b.AllocQueued)
	assert.Equal(t, 2, c.QueueLength())
}

// TestScenario_AdminDisable confirms disabling allocation cancels
// outstanding requests and WorkAvailable reports false until re-enabled.
func TestScenario_AdminDisable(t *testing.T) {
	ctx := context.Background()
	transport := &fakeTransport{}
	jobs := NewActiveJobs()
	job := &Job{ID: 1, Priority: 16}
	jobs.Put(job)
	c := newTestCore(transport, &fakeEventLog{}, &fakeDrain{}, jobs)

	require.NoError(t, c.HandleReady(ctx, "unlimited", 0, "sched-1", &fakeResponder{}))
	c.Enqueue(job)
	require.NoError(t, c.Check(ctx))

	resp := &fakeResponder{}
	require.NoError(t, c.HandleAdmin(ctx, AdminRequest{Enable: false, Reason: "drain for maintenance"}, true, resp))

	assert.True(t, c.Disabled())
	require.Len(t, transport.cancels, 1)
	assert.False(t, c.WorkAvailable())

	resp2 := &fakeResponder{}
	require.NoError(t, c.HandleAdmin(ctx, AdminRequest{Enable: true}, true, resp2))
	assert.False(t, c.Disabled())
}

// TestScenario_HelloReplay confirms a reconnecting scheduler is told about
// every job that already holds resources, and nothing else.
func TestScenario_HelloReplay(t *testing.T) {
	ctx := context.Background()
	jobs := NewActiveJobs()
	allocated := &Job{ID: 1, Priority: 10, HasResources: true}
	queued := &Job{ID: 2, Priority: 20}
	jobs.Put(allocated)
	jobs.Put(queued)
	c := newTestCore(&fakeTransport{}, &fakeEventLog{}, &fakeDrain{}, jobs)

	resp := &fakeResponder{}
	require.NoError(t, c.HandleHello(ctx, resp))

	require.Len(t, resp.streamed, 1)
	assert.Equal(t, uint64(1), resp.streamed[0].(HelloRecord).ID)
	assert.True(t, resp.ended)
}
