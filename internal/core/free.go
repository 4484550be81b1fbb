// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"

	coreerrors "github.com/jontk/allocd/pkg/errors"
)

// FreeResponse is a decoded sched.free response payload.
type FreeResponse struct {
	ID uint64
}

// SendFreeRequest issues a sched.free request for job once the surrounding
// state machine has moved it to CLEANUP (spec.md §4.5). It is a no-op if
// a free is already in flight or the scheduler is not ready — ready's
// sweep and later calls will pick it back up.
func (c *Core) SendFreeRequest(ctx context.Context, job *Job) error {
	if job.FreePending || !c.ready {
		return nil
	}
	if err := c.transport.SendFree(ctx, FreeRequest{ID: job.ID}); err != nil {
		return err
	}
	job.FreePending = true
	c.freePendingCount++

	if job.Debug() {
		if err := c.events.Post(ctx, job.ID, "debug.free-request", nil); err != nil {
			c.logger.Warn("debug.free-request event post failed", "job_id", job.ID, "error", err)
		}
	}
	return nil
}

// HandleFreeResponse clears free_pending for the job a sched.free response
// names and posts the "free" event (spec.md §4.5). An unknown or
// not-currently-allocated id triggers interface teardown.
func (c *Core) HandleFreeResponse(ctx context.Context, resp FreeResponse) error {
	job, ok := c.jobs.Get(resp.ID)
	if !ok {
		err := coreerrors.NewJobError(coreerrors.ErrorCodeUnknownJobID, "sched.free response: id not active", resp.ID)
		c.interfaceTeardown(ctx, "free response error", err)
		return err
	}
	if !job.HasResources {
		err := coreerrors.NewJobError(coreerrors.ErrorCodeProtocolViolation, "sched.free response: id not allocated", resp.ID)
		c.interfaceTeardown(ctx, "free response error", err)
		return err
	}

	job.FreePending = false
	c.freePendingCount--
	return c.events.Post(ctx, job.ID, "free", nil)
}
