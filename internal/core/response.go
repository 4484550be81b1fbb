// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package core

import (
	"context"
	"encoding/json"
	"fmt"

	coreerrors "github.com/jontk/allocd/pkg/errors"
)

// AllocResponseType enumerates the scheduler's sched.alloc outcome tags
// (spec.md §6).
type AllocResponseType int

const (
	AllocSuccess AllocResponseType = iota
	AllocAnnotate
	AllocDeny
	AllocCancel
)

// AllocResponse is a decoded sched.alloc response payload.
type AllocResponse struct {
	ID          uint64
	Type        AllocResponseType
	Note        string
	Annotations json.RawMessage
}

// exceptionEvent is the payload of the "exception" event posted on DENY.
type exceptionEvent struct {
	Type     string `json:"type"`
	Severity int    `json:"severity"`
	UserID   string `json:"userid"`
	Note     string `json:"note"`
}

const unknownUserID = "UNKNOWN"

// HandleAllocResponse demultiplexes a sched.alloc response by outcome tag
// and updates job state and events accordingly (spec.md §4.4). Any
// protocol-level problem — unknown id, a response for a job that isn't
// alloc_pending, an ANNOTATE without annotations, an already-allocated
// SUCCESS, or an unrecognized type — triggers interface teardown.
func (c *Core) HandleAllocResponse(ctx context.Context, resp AllocResponse) error {
	job, ok := c.jobs.Get(resp.ID)
	if !ok {
		err := coreerrors.NewJobError(coreerrors.ErrorCodeUnknownJobID, "sched.alloc response: id not active", resp.ID)
		c.interfaceTeardown(ctx, "alloc response error", err)
		return err
	}
	if !job.AllocPending {
		err := coreerrors.NewJobError(coreerrors.ErrorCodeProtocolViolation, "sched.alloc response: id not requested", resp.ID)
		c.interfaceTeardown(ctx, "alloc response error", err)
		return err
	}

	switch resp.Type {
	case AllocSuccess:
		return c.handleAllocSuccess(ctx, job, resp)
	case AllocAnnotate:
		return c.handleAllocAnnotate(ctx, job, resp)
	case AllocDeny:
		return c.handleAllocDeny(ctx, job, resp)
	case AllocCancel:
		return c.handleAllocCancel(ctx, job)
	default:
		err := coreerrors.NewJobError(coreerrors.ErrorCodeProtocolViolation, fmt.Sprintf("sched.alloc response: unknown type %d", resp.Type), resp.ID)
		c.interfaceTeardown(ctx, "alloc response error", err)
		return err
	}
}

func (c *Core) handleAllocSuccess(ctx context.Context, job *Job, resp AllocResponse) error {
	if c.allocLimit > 0 {
		c.pendingJobs.delete(job.handle)
		job.handle = nil
	}
	if job.HasResources {
		err := coreerrors.NewJobError(coreerrors.ErrorCodeAlreadyAllocated, "sched.alloc response: already allocated", resp.ID)
		c.interfaceTeardown(ctx, "alloc response error", err)
		return err
	}

	if resp.Annotations != nil {
		job.Annotations = resp.Annotations
		if err := c.events.Post(ctx, job.ID, "annotations", job.Annotations); err != nil {
			c.logger.Warn("annotations event post failed", "job_id", job.ID, "error", err)
		}
	}

	// State only changes after the annotations event has been published.
	c.allocPendingCount--
	job.AllocPending = false
	job.HasResources = true

	if job.Annotations != nil {
		return c.events.Post(ctx, job.ID, "alloc", map[string]any{"annotations": job.Annotations})
	}
	return c.events.Post(ctx, job.ID, "alloc", nil)
}

func (c *Core) handleAllocAnnotate(ctx context.Context, job *Job, resp AllocResponse) error {
	if resp.Annotations == nil {
		err := coreerrors.NewJobError(coreerrors.ErrorCodeProtocolViolation, "sched.alloc response: ANNOTATE without annotations", resp.ID)
		c.interfaceTeardown(ctx, "alloc response error", err)
		return err
	}
	job.Annotations = resp.Annotations
	return c.events.Post(ctx, job.ID, "annotations", job.Annotations)
}

func (c *Core) handleAllocDeny(ctx context.Context, job *Job, resp AllocResponse) error {
	c.allocPendingCount--
	job.AllocPending = false
	if c.allocLimit > 0 {
		c.pendingJobs.delete(job.handle)
		job.handle = nil
	}
	if err := c.clearAnnotations(ctx, job); err != nil {
		c.logger.Warn("annotations-clear event post failed", "job_id", job.ID, "error", err)
	}
	return c.events.Post(ctx, job.ID, "exception", exceptionEvent{
		Type:     "alloc",
		Severity: 0,
		UserID:   unknownUserID,
		Note:     resp.Note,
	})
}

func (c *Core) handleAllocCancel(ctx context.Context, job *Job) error {
	c.allocPendingCount--
	if job.State == JobStateSched {
		c.requeuePending(ctx, job)
	} else {
		if c.allocLimit > 0 {
			c.pendingJobs.delete(job.handle)
			job.handle = nil
		}
		if err := c.clearAnnotations(ctx, job); err != nil {
			c.logger.Warn("annotations-clear event post failed", "job_id", job.ID, "error", err)
		}
	}
	job.AllocPending = false
	c.jobAction(ctx, job)
	c.notifyPendingChanged()
	return nil
}

// clearAnnotations nulls a job's annotations and, if there was anything to
// clear, posts the uncommitted clear event (spec.md §6/§9).
func (c *Core) clearAnnotations(ctx context.Context, job *Job) error {
	if job.Annotations == nil {
		return nil
	}
	job.Annotations = nil
	return c.events.PostNoCommit(ctx, job.ID, "annotations", nil)
}
