// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package core

import "container/list"

// qnode is the opaque handle type referenced by Job.handle. It wraps the
// underlying list element so callers never see container/list directly.
type qnode struct {
	el *list.Element
}

// priorityQueue is a priority-ordered multiset of job references, used for
// both the waiting queue and the pending list (spec.md §3/§4.1). Order is
// priority descending, ties broken by submit time ascending. It is not
// safe for concurrent use; the core's single-threaded model is what makes
// that acceptable (spec.md §5).
type priorityQueue struct {
	l *list.List
}

func newPriorityQueue() *priorityQueue {
	return &priorityQueue{l: list.New()}
}

// less reports whether a sorts strictly before b in queue order: higher
// priority first, then earlier submit time.
func less(a, b *Job) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.TSubmit < b.TSubmit
}

// insert places job into the queue in sorted order and returns its handle.
// fwd chooses which end of the list to scan from first; it never changes
// the resulting order, only how quickly the insertion point is found —
// mirroring zlistx_insert's low_value hint.
func (q *priorityQueue) insert(job *Job, fwd bool) *qnode {
	if q.l.Len() == 0 {
		return &qnode{el: q.l.PushBack(job)}
	}

	if fwd {
		for e := q.l.Front(); e != nil; e = e.Next() {
			if less(job, e.Value.(*Job)) {
				return &qnode{el: q.l.InsertBefore(job, e)}
			}
		}
		return &qnode{el: q.l.PushBack(job)}
	}

	for e := q.l.Back(); e != nil; e = e.Prev() {
		if !less(job, e.Value.(*Job)) {
			return &qnode{el: q.l.InsertAfter(job, e)}
		}
	}
	return &qnode{el: q.l.PushFront(job)}
}

// delete removes the job identified by handle. No-op if handle is nil.
func (q *priorityQueue) delete(h *qnode) {
	if h == nil {
		return
	}
	q.l.Remove(h.el)
}

// reorder moves the job at handle to its correct position given its
// current priority, returning the (possibly new) handle.
func (q *priorityQueue) reorder(h *qnode, fwd bool) *qnode {
	if h == nil {
		return nil
	}
	job := h.el.Value.(*Job)
	q.l.Remove(h.el)
	return q.insert(job, fwd)
}

// first returns the head job's handle, or nil if the queue is empty.
func (q *priorityQueue) first() *qnode {
	if e := q.l.Front(); e != nil {
		return &qnode{el: e}
	}
	return nil
}

// last returns the tail job's handle, or nil if the queue is empty.
func (q *priorityQueue) last() *qnode {
	if e := q.l.Back(); e != nil {
		return &qnode{el: e}
	}
	return nil
}

// next returns the handle following h in queue order, or nil at the end.
func (q *priorityQueue) next(h *qnode) *qnode {
	if h == nil || h.el.Next() == nil {
		return nil
	}
	return &qnode{el: h.el.Next()}
}

// prev returns the handle preceding h in queue order, or nil at the start.
func (q *priorityQueue) prev(h *qnode) *qnode {
	if h == nil || h.el.Prev() == nil {
		return nil
	}
	return &qnode{el: h.el.Prev()}
}

func (h *qnode) job() *Job {
	if h == nil {
		return nil
	}
	return h.el.Value.(*Job)
}

func (q *priorityQueue) size() int {
	return q.l.Len()
}

// sort fully re-sorts the queue by the current priority ordering. Per
// spec.md §9, a full sort invalidates every handle, so sort rebuilds the
// list and rewrites each job's stored handle as it goes (see
// Core.ReprioritizeAll for the caller).
func (q *priorityQueue) sort() {
	jobs := make([]*Job, 0, q.l.Len())
	for e := q.l.Front(); e != nil; e = e.Next() {
		jobs = append(jobs, e.Value.(*Job))
	}
	sortJobs(jobs)

	q.l.Init()
	for _, j := range jobs {
		j.handle = &qnode{el: q.l.PushBack(j)}
	}
}

// sortJobs performs a stable sort of jobs into queue order.
func sortJobs(jobs []*Job) {
	// Insertion sort: queues in practice are short-to-moderate, and a
	// stable, dependency-free sort keeps this package off sort.Slice's
	// less-deterministic swap pattern for handle bookkeeping elsewhere.
	for i := 1; i < len(jobs); i++ {
		j := jobs[i]
		k := i - 1
		for k >= 0 && less(j, jobs[k]) {
			jobs[k+1] = jobs[k]
			k--
		}
		jobs[k+1] = j
	}
}
