// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package deferred queues kernels discovered during lowering for
// later compilation.
//
// A kernel launching another kernel from the device references its
// callee by an id resolved at run time. Lowering reports such callees,
// the pipeline enqueues them here and embeds the assigned ids in the
// compilation artifact. Compiling the queued kernels is the execution
// layer's affair.
package deferred

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/ptx-org/ptxc/base/ordered"
	"github.com/ptx-org/ptxc/compiler/target"
)

// Job is a kernel waiting to be compiled.
type Job struct {
	// Method is the identity of the kernel to compile.
	Method string

	// Config is the target the launching kernel was compiled for.
	Config *target.Config

	// Seq is the id assigned by the queue.
	Seq int
}

// Queue assigns ids to deferred kernels in enqueue order.
//
// Ids start at 1 and are never reused: compiled kernels embed them, so
// an id stays resolvable for the lifetime of the queue. Safe for
// concurrent use.
type Queue struct {
	mu   sync.Mutex
	jobs *ordered.Map[int, *Job]
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{jobs: ordered.NewMap[int, *Job]()}
}

// Enqueue adds a deferred kernel and returns its id.
func (q *Queue) Enqueue(method string, cfg *target.Config) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	id := q.jobs.Size() + 1
	q.jobs.Store(id, &Job{Method: method, Config: cfg, Seq: id})
	return id
}

// Resolve returns the job an id was assigned to.
func (q *Queue) Resolve(id int) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	job, ok := q.jobs.Load(id)
	if !ok {
		return nil, errors.Errorf("no deferred kernel with id %d", id)
	}
	return job, nil
}

// Jobs returns an iterator over the jobs in enqueue order. The
// iterator ranges over a snapshot: jobs enqueued while iterating are
// not seen.
func (q *Queue) Jobs() func(func(*Job) bool) {
	q.mu.Lock()
	jobs := make([]*Job, 0, q.jobs.Size())
	for job := range q.jobs.Values() {
		jobs = append(jobs, job)
	}
	q.mu.Unlock()
	return func(yield func(*Job) bool) {
		for _, job := range jobs {
			if !yield(job) {
				break
			}
		}
	}
}

// Size returns the number of queued jobs.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.jobs.Size()
}
