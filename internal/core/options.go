// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package core

import "context"

// Option configures optional Core behavior at construction time.
type Option func(*Core)

// WithRunningJobs supplies the surrounding job-manager's running-jobs
// count, reported in alloc-admin responses (spec.md §4.6).
func WithRunningJobs(fn func() int) Option {
	return func(c *Core) {
		if fn != nil {
			c.runningJobs = fn
		}
	}
}

// WithJobAction supplies the hook into the surrounding job-state machine
// the core drives on an alloc CANCEL response (spec.md §4.4). A free
// response does not invoke it.
func WithJobAction(fn func(ctx context.Context, job *Job)) Option {
	return func(c *Core) {
		if fn != nil {
			c.jobAction = fn
		}
	}
}
