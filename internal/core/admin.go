// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package core

import "context"

// AdminRequest is the alloc-admin request payload (spec.md §4.6/§6).
type AdminRequest struct {
	QueryOnly bool
	Enable    bool
	Reason    string
}

// AdminResponse is the alloc-admin response payload.
type AdminResponse struct {
	Enable       bool   `json:"enable"`
	Reason       string `json:"reason"`
	QueueLength  int    `json:"queue_length"`
	AllocPending int    `json:"alloc_pending"`
	FreePending  int    `json:"free_pending"`
	Running      int    `json:"running"`
}

const schedulerOfflineReason = "Scheduler is offline"

// HandleAdmin answers alloc-admin: query, enable, or disable allocation
// (spec.md §4.6). callerIsOwner reflects an authorization decision made by
// the transport layer — out of this core's scope beyond honoring it.
func (c *Core) HandleAdmin(ctx context.Context, req AdminRequest, callerIsOwner bool, resp Responder) error {
	if !req.QueryOnly {
		if !callerIsOwner {
			return resp.Err(0, "Request requires owner credentials")
		}
		if !req.Enable {
			c.disableReason = req.Reason
			c.cancelAllPending(ctx)
		}
		c.disable = !req.Enable
	}

	out := AdminResponse{
		QueueLength:  c.queue.size(),
		AllocPending: c.allocPendingCount,
		FreePending:  c.freePendingCount,
		Running:      c.runningJobs(),
	}
	switch {
	case c.disable:
		out.Enable = false
		out.Reason = c.disableReason
	case !c.ready:
		out.Enable = false
		out.Reason = schedulerOfflineReason
	default:
		out.Enable = true
		out.Reason = ""
	}
	return resp.Respond(out)
}

// cancelAllPending issues a sched.cancel for every job with an allocation
// request in flight, in preparation for disabling allocation (spec.md
// §4.6). The core does not wait for the scheduler's CANCEL responses.
func (c *Core) cancelAllPending(ctx context.Context) {
	if c.allocPendingCount == 0 {
		return
	}
	c.jobs.Each(func(job *Job) {
		if job.AllocPending {
			if err := c.cancelAllocRequest(ctx, job); err != nil {
				c.logger.Warn("sched.cancel send failed", "job_id", job.ID, "error", err)
			}
		}
	})
}
