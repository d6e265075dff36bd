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

package target

import (
	"github.com/ptx-org/ptxc/api/options"
	"github.com/ptx-org/ptxc/base/sync"
	"github.com/ptx-org/ptxc/driver"
)

// Resolver builds the configuration for a device and an option set.
type Resolver func(driver.Device, *options.Set) (*Config, error)

// Cache memoizes resolved configurations for the life of the process.
// Device capabilities and option sets are static, so entries are never
// invalidated.
type Cache struct {
	resolver Resolver
	memo     sync.Memo[cacheKey, *Config]
}

type cacheKey struct {
	ordinal int
	options string
}

// NewCache returns a cache delegating misses to a resolver.
func NewCache(resolver Resolver) *Cache {
	return &Cache{resolver: resolver}
}

// GetOrBuild returns the configuration for a device and an option set,
// resolving it on first request. Concurrent requests for the same key
// resolve once.
func (c *Cache) GetOrBuild(dev driver.Device, set *options.Set) (*Config, error) {
	key := cacheKey{ordinal: dev.Ordinal(), options: set.Canonical()}
	return c.memo.Do(key, func() (*Config, error) {
		return c.resolver(dev, set)
	})
}

// Size returns the number of cached configurations.
func (c *Cache) Size() int {
	return c.memo.Size()
}
