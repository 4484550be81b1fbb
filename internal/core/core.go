// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

// Package core implements the allocation core: the subsystem that mediates
// between a priority-ordered queue of jobs awaiting resources and an
// external scheduler process (spec.md §1-§2).
package core

import (
	"context"

	"github.com/jontk/allocd/pkg/logging"
)

// Core is the allocation core's process-wide state (spec.md §3 "Allocation
// state"). It is constructed once, driven by a single reactor goroutine,
// and torn down at process shutdown.
type Core struct {
	logger    logging.Logger
	events    EventLog
	jobs      *ActiveJobs
	transport Transport
	drain     DrainSupervisor

	// runningJobs reports the surrounding job-manager's running-job count,
	// included in alloc-admin responses (spec.md §4.6). Out of this
	// core's scope to compute; supplied by whoever constructs Core.
	runningJobs func() int

	queue       *priorityQueue
	pendingJobs *priorityQueue

	ready             bool
	disable           bool
	disableReason     string
	allocLimit        int
	allocPendingCount int
	freePendingCount  int
	schedSender       string

	// jobAction drives the surrounding job-state machine (e.g. into
	// CLEANUP) when the core observes a state-changing event such as an
	// alloc CANCEL. That machine is out of this core's scope (spec.md
	// §1); this hook is how the core still fulfills spec.md §4.4's
	// "invoke the job-state action" step without owning it.
	jobAction func(ctx context.Context, job *Job)
}

// New constructs an allocation core around its required collaborators.
// Optional behavior (running-jobs count, job-state-action hook) is
// supplied via Option.
func New(logger logging.Logger, events EventLog, jobs *ActiveJobs, transport Transport, drain DrainSupervisor, opts ...Option) *Core {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	if drain == nil {
		drain = NoOpDrainSupervisor{}
	}
	c := &Core{
		logger:      logger.With("component", "alloc-core"),
		events:      events,
		jobs:        jobs,
		transport:   transport,
		drain:       drain,
		runningJobs: func() int { return 0 },
		jobAction:   func(context.Context, *Job) {},
		queue:       newPriorityQueue(),
		pendingJobs: newPriorityQueue(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ready reports whether the scheduler has completed the ready handshake
// since the last teardown.
func (c *Core) Ready() bool { return c.ready }

// Disabled reports whether an administrator has stopped allocation.
func (c *Core) Disabled() bool { return c.disable }

// DisableReason returns the human string recorded with the last disable,
// or the empty string.
func (c *Core) DisableReason() string { return c.disableReason }

// AllocLimit returns the current concurrency limit, 0 meaning unlimited.
func (c *Core) AllocLimit() int { return c.allocLimit }

// AllocPendingCount returns the number of jobs with alloc_pending set.
func (c *Core) AllocPendingCount() int { return c.allocPendingCount }

// FreePendingCount returns the number of jobs with free_pending set.
func (c *Core) FreePendingCount() int { return c.freePendingCount }

// QueueLength returns the size of the waiting queue.
func (c *Core) QueueLength() int { return c.queue.size() }

// SchedSender returns the routing identity captured at the last ready,
// or the empty string if no scheduler is currently ready.
func (c *Core) SchedSender() string { return c.schedSender }

// ActiveJobs returns the job-handle table the core was constructed
// with, so callers (e.g. the reactor wiring jobs in at startup, an
// admin surface listing active jobs) can reach it without threading a
// second reference through their own constructors.
func (c *Core) ActiveJobs() *ActiveJobs { return c.jobs }

// notifyPendingChanged tells the drain supervisor that alloc_pending_count
// may have reached zero; it is always safe to call even when it hasn't.
func (c *Core) notifyPendingChanged() {
	c.drain.NotifyPendingChanged(c.allocPendingCount)
}
