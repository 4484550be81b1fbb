// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package core

import "context"

// requeuePending returns a job with an in-flight allocation request back
// to the waiting queue (spec.md §4.7), clearing any scheduler annotations
// it had accumulated and announcing that clear over the event log.
func (c *Core) requeuePending(ctx context.Context, job *Job) {
	if job.AllocPending && c.allocLimit > 0 && job.handle != nil {
		c.pendingJobs.delete(job.handle)
		job.handle = nil
	}
	job.AllocPending = false

	job.handle = c.queue.insert(job, fwdHint(job.Priority))
	job.AllocQueued = true

	if err := c.clearAnnotations(ctx, job); err != nil {
		c.logger.Warn("annotations-clear event post failed", "job_id", job.ID, "error", err)
	}
}

// Disconnect handles a transport disconnect notification (spec.md §4.7):
// if the disconnecting route identity matches the scheduler currently
// holding the ready handshake, the interface is torn down.
func (c *Core) Disconnect(ctx context.Context, sender string) {
	if c.schedSender != "" && sender == c.schedSender {
		c.interfaceTeardown(ctx, "disconnect", nil)
	}
}

// interfaceTeardown is the sole recovery path from a broken scheduler
// protocol (spec.md §4.7). It is a no-op if the scheduler was never ready.
// Every job with an in-flight alloc request is requeued; every job with an
// in-flight free request has that marker cleared so the next ready can
// redrive it. The drain supervisor is notified last, since the pending
// count can only have dropped.
func (c *Core) interfaceTeardown(ctx context.Context, reason string, cause error) {
	if !c.ready {
		return
	}
	c.logger.Error("alloc: stop due to "+reason, "cause", cause)

	c.jobs.Each(func(job *Job) {
		if job.AllocPending {
			c.requeuePending(ctx, job)
		}
		job.FreePending = false
	})

	c.ready = false
	c.allocPendingCount = 0
	c.freePendingCount = 0
	c.schedSender = ""
	c.notifyPendingChanged()
}
