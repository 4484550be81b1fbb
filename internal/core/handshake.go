// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
)

// errNoData is the end-of-stream marker for sched-hello, named after the
// original protocol's ENODATA so its meaning survives the port.
const errNoData = 61

// HelloRecord is one entry of the sched-hello stream response.
type HelloRecord struct {
	ID       uint64  `json:"id"`
	Priority uint32  `json:"priority"`
	UserID   uint32  `json:"userid"`
	TSubmit  float64 `json:"t_submit"`
}

// HandleHello answers sched-hello: a freshly started scheduler rebuilding
// its in-use table asks for every job that currently has resources
// (spec.md §4.3). The response streams one record per matching job, in
// active-jobs order, and ends with the ENODATA marker.
func (c *Core) HandleHello(ctx context.Context, resp Responder) error {
	c.logger.Debug("scheduler: hello")

	var streamErr error
	c.jobs.Each(func(job *Job) {
		if streamErr != nil || !job.HasResources {
			return
		}
		streamErr = resp.Stream(HelloRecord{
			ID:       job.ID,
			Priority: job.Priority,
			UserID:   job.UserID,
			TSubmit:  job.TSubmit,
		})
	})
	if streamErr != nil {
		return streamErr
	}
	return resp.End(errNoData, "")
}

// ReadyResponse is returned from sched-ready with the waiting queue size.
type ReadyResponse struct {
	Count int `json:"count"`
}

// HandleReady answers sched-ready: the scheduler declares its concurrency
// mode and the core starts sending alloc requests (spec.md §4.3).
//
// A missing sender identity is treated as an error (spec.md §9's
// resolution of the open question around the original's ambiguous
// double sender check), since without it a later disconnect could never
// be attributed to this scheduler.
func (c *Core) HandleReady(ctx context.Context, mode string, limit int, sender string, resp Responder) error {
	switch mode {
	case "limited":
		if limit <= 0 {
			return resp.Err(0, "ready: limited mode requires limit >= 1")
		}
		c.allocLimit = limit
	case "unlimited":
		c.allocLimit = 0
	default:
		return resp.Err(0, "ready: unknown mode "+mode)
	}

	if sender == "" {
		return resp.Err(0, "ready: missing sender route identity")
	}
	c.schedSender = sender
	c.ready = true
	c.logger.Debug("scheduler: ready", "mode", mode, "alloc_limit", c.allocLimit)

	if err := resp.Respond(ReadyResponse{Count: c.queue.size()}); err != nil {
		return err
	}

	// Restart any free requests that might have been interrupted when the
	// scheduler was last unloaded.
	c.jobs.Each(func(job *Job) {
		if job.State == JobStateCleanup && job.HasResources {
			if err := c.SendFreeRequest(ctx, job); err != nil {
				c.logger.Warn("free request re-drive failed", "job_id", job.ID, "error", err)
			}
		}
	})
	return nil
}
