// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package core

// ActiveJobs is the active-jobs index collaborator (spec.md §2): a keyed
// lookup of every in-flight job by id. The core only reads it — for hello
// replay, ready's cleanup sweep, and cancel-all — and never deletes from
// it; that lifecycle belongs to the surrounding job-manager.
//
// Iteration order is insertion order, matching the original's
// zhashx_first/zhashx_next traversal. A single goroutine touches this type
// for the lifetime of the process (spec.md §5), so no locking is done here.
type ActiveJobs struct {
	order []uint64
	byID  map[uint64]*Job
}

// NewActiveJobs returns an empty active-jobs index.
func NewActiveJobs() *ActiveJobs {
	return &ActiveJobs{byID: make(map[uint64]*Job)}
}

// Put registers or replaces a job by id, recording insertion order for new
// entries.
func (a *ActiveJobs) Put(job *Job) {
	if _, exists := a.byID[job.ID]; !exists {
		a.order = append(a.order, job.ID)
	}
	a.byID[job.ID] = job
}

// Get looks up a job by id.
func (a *ActiveJobs) Get(id uint64) (*Job, bool) {
	j, ok := a.byID[id]
	return j, ok
}

// Delete removes a job from the index. The allocation core itself never
// calls this; it exists for the surrounding job-manager's own lifecycle.
func (a *ActiveJobs) Delete(id uint64) {
	if _, ok := a.byID[id]; !ok {
		return
	}
	delete(a.byID, id)
	for i, existing := range a.order {
		if existing == id {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

// Len reports the number of active jobs.
func (a *ActiveJobs) Len() int {
	return len(a.order)
}

// Each calls fn for every active job in insertion order. fn must not
// delete entries from the index mid-iteration (spec.md §9).
func (a *ActiveJobs) Each(fn func(*Job)) {
	for _, id := range a.order {
		if job, ok := a.byID[id]; ok {
			fn(job)
		}
	}
}
