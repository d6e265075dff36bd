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

package api

import (
	"github.com/ptx-org/ptxc/base/sync"
	"github.com/ptx-org/ptxc/driver"
)

// kernelCache caches loaded kernels per context, then per job
// fingerprint.
//
// Partitions are never shared: two contexts requesting the same job
// get two kernels, each loaded in its own context. Within a partition
// the memo lock holds across the compilation, so concurrent requests
// for one fingerprint compile once.
type kernelCache struct {
	partitions sync.Map[driver.Context, *sync.Memo[string, *Kernel]]
}

func (c *kernelCache) partition(ctx driver.Context) *sync.Memo[string, *Kernel] {
	if p := c.partitions.Load(ctx); p != nil {
		return p
	}
	p, _ := c.partitions.LoadOrStore(ctx, &sync.Memo[string, *Kernel]{})
	return p
}

func (c *kernelCache) getOrCompile(ctx driver.Context, fingerprint string, compile func() (*Kernel, error)) (*Kernel, error) {
	return c.partition(ctx).Do(fingerprint, compile)
}

func (c *kernelCache) evict(ctx driver.Context) {
	c.partitions.Delete(ctx)
}
