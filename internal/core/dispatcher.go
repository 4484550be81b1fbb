// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package core

import "context"

// WorkAvailable reports whether the dispatcher has a job it could send an
// alloc request for right now (spec.md §4.2). It is the predicate shared
// by the reactor's prep and check hooks.
func (c *Core) WorkAvailable() bool {
	if c.disable {
		return false
	}
	if !c.ready {
		return false
	}
	head := c.queue.first()
	if head == nil {
		return false
	}
	if c.allocLimit > 0 && c.allocPendingCount >= c.allocLimit {
		return false
	}
	// The waiting queue is sorted highest-priority first, so if the head
	// is held at PriorityMin every other job is too.
	return head.job().Priority != PriorityMin
}

// Prep is the reactor's prep-watcher hook: it runs right before the
// reactor polls for messages. It returns true when the idle watcher
// should be started to keep the reactor from blocking, because dispatch
// work exists (spec.md §4.2).
func (c *Core) Prep() bool {
	return c.WorkAvailable()
}

// Check is the reactor's check-watcher hook: it runs right after the
// reactor's poll returns. It dispatches at most one alloc request per
// reactor iteration (spec.md §4.2's "yields the messaging layer"
// rationale). A transport send failure is treated as fatal and returned
// to the caller, which per spec.md §7 must stop the reactor.
func (c *Core) Check(ctx context.Context) error {
	if !c.WorkAvailable() {
		return nil
	}

	head := c.queue.first()
	job := head.job()

	req := AllocRequest{
		ID:       job.ID,
		Priority: job.Priority,
		UserID:   job.UserID,
		TSubmit:  job.TSubmit,
		Jobspec:  job.JobspecRedacted,
	}
	if err := c.transport.SendAlloc(ctx, req); err != nil {
		c.logger.Error("alloc request send failed, stopping reactor", "job_id", job.ID, "error", err)
		return err
	}

	c.queue.delete(job.handle)
	job.handle = nil
	job.AllocPending = true
	job.AllocQueued = false
	c.allocPendingCount++

	// Track the job in the pending list so a future reprioritization can
	// preempt it, but only while a concurrency limit makes preemption
	// meaningful.
	if c.allocLimit > 0 {
		job.handle = c.pendingJobs.insert(job, fwdHint(job.Priority))
	}

	if job.Debug() {
		if err := c.events.Post(ctx, job.ID, "debug.alloc-request", nil); err != nil {
			c.logger.Warn("debug.alloc-request event post failed", "job_id", job.ID, "error", err)
		}
	}
	return nil
}
