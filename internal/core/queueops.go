// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package core

import "context"

// Enqueue places job on the waiting queue (spec.md §4.1). It is a no-op
// — not an error — when the job is bypassing allocation, already queued
// or pending, or held at PriorityMin; the error-handling table (spec.md
// §7) classifies this as an internal duplicate-request, deliberately
// ignored rather than surfaced.
func (c *Core) Enqueue(job *Job) {
	if job.AllocBypass || job.AllocQueued || job.AllocPending || job.Priority == PriorityMin {
		return
	}
	job.handle = c.queue.insert(job, fwdHint(job.Priority))
	job.AllocQueued = true
}

// Dequeue removes job from the waiting queue, clearing alloc_queued and
// its handle. Idempotent if the job is not currently queued.
func (c *Core) Dequeue(job *Job) {
	if !job.AllocQueued {
		return
	}
	c.queue.delete(job.handle)
	job.handle = nil
	job.AllocQueued = false
}

// Reorder moves job to its new ordered position in whichever queue it
// inhabits, following an in-place priority change (spec.md §4.8).
func (c *Core) Reorder(job *Job) {
	if job.AllocQueued {
		job.handle = c.queue.reorder(job.handle, fwdHint(job.Priority))
		return
	}
	if job.AllocPending && c.allocLimit > 0 {
		job.handle = c.pendingJobs.reorder(job.handle, fwdHint(job.Priority))
	}
}

// ReprioritizeAll fully re-sorts both queues and recalculates which
// pending allocations should be preempted (spec.md §4.1/§4.8/§9).
func (c *Core) ReprioritizeAll(ctx context.Context) error {
	c.queue.sort()
	c.pendingJobs.sort()

	if c.allocLimit > 0 {
		return c.recalcPending(ctx)
	}
	return nil
}

// recalcPending walks the waiting-queue head and the pending-list tail
// inward, canceling any pending allocation that a higher-priority queued
// job now outranks (spec.md §4.1, the sole preemption path).
func (c *Core) recalcPending(ctx context.Context) error {
	head := c.queue.first()
	tail := c.pendingJobs.last()

	for c.allocLimit > 0 && head != nil && tail != nil {
		headJob, tailJob := head.job(), tail.job()
		if !less(headJob, tailJob) {
			break
		}
		if err := c.cancelAllocRequest(ctx, tailJob); err != nil {
			return err
		}
		head = c.queue.next(head)
		tail = c.pendingJobs.prev(tail)
	}
	return nil
}

// cancelAllocRequest sends a fire-and-forget sched.cancel for job, if it
// has an allocation request in flight.
func (c *Core) cancelAllocRequest(ctx context.Context, job *Job) error {
	if !job.AllocPending {
		return nil
	}
	return c.transport.SendCancel(ctx, CancelRequest{ID: job.ID})
}

// Cursor is an opaque position within the waiting queue, used for
// administrative listing (spec.md §4.8).
type Cursor struct {
	h *qnode
}

// QueueFirst returns the highest-priority queued job and a cursor to it,
// or (nil, Cursor{}) if the waiting queue is empty.
func (c *Core) QueueFirst() (*Job, Cursor) {
	h := c.queue.first()
	return h.job(), Cursor{h: h}
}

// QueueNext returns the job following cur in queue order.
func (c *Core) QueueNext(cur Cursor) (*Job, Cursor) {
	h := c.queue.next(cur.h)
	return h.job(), Cursor{h: h}
}
