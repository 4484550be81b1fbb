// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package core

import "encoding/json"

// Priority bounds, mirroring FLUX_JOB_PRIORITY_MIN/MAX in the original
// scheduler protocol. A job at PriorityMin is held and is never dispatched.
const (
	PriorityMin uint32 = 0
	PriorityMax uint32 = 31
)

// JobFlag is a bitset carried on a job's submission.
type JobFlag uint32

const (
	// FlagDebug requests debug.* events for this job's alloc/free requests.
	FlagDebug JobFlag = 1 << iota
)

// JobState is the subset of the surrounding job-state machine this core
// cares about. The full state machine lives outside this core's scope;
// these are the only states the allocation core reads or reacts to.
type JobState int

const (
	JobStateUnknown JobState = iota
	JobStateSched
	JobStateCleanup
)

// Job is a reference to a job owned by the active-jobs collaborator. The
// core never allocates or frees a Job; it only reads priority/state fields
// and mutates the marker fields documented in spec.md §3.
type Job struct {
	ID       uint64
	Priority uint32
	UserID   uint32
	TSubmit  float64
	State    JobState
	Flags    JobFlag

	// JobspecRedacted is the opaque, core-never-parses jobspec blob
	// forwarded verbatim in sched.alloc requests.
	JobspecRedacted json.RawMessage

	// Annotations is opaque scheduler metadata, nil when absent.
	Annotations json.RawMessage

	// Marker fields owned by the allocation core.
	AllocQueued  bool
	AllocPending bool
	FreePending  bool
	AllocBypass  bool
	HasResources bool

	// handle identifies this job's position in exactly one of the two
	// queues when non-nil. It is unexported; the core's queue operations
	// (enqueue, dispatch, requeue, response handling and queue sort) set
	// and clear it.
	handle *qnode
}

// Debug reports whether the job was submitted with the debug flag.
func (j *Job) Debug() bool {
	return j.Flags&FlagDebug != 0
}

// fwdHint is the zlistx-style scan-direction hint: true means "start the
// scan for the insertion point from the front", chosen whenever a job's
// priority is in the upper half of the priority range.
func fwdHint(priority uint32) bool {
	return priority > PriorityMax/2
}
