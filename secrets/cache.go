// Copyright 2023 StreamNative, Inc.
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


package secrets

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/pkg/errors"
)

// CachingProvider keeps the bundles returned by another provider for a
// fixed time. Failed lookups are not cached.
type CachingProvider struct {
	provider Provider
	ttl      time.Duration
	cache    *ristretto.Cache
}

func NewCachingProvider(provider Provider, ttl time.Duration) (*CachingProvider, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1_000,
		MaxCost:     100,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create secret cache")
	}

	return &CachingProvider{
		provider: provider,
		ttl:      ttl,
		cache:    cache,
	}, nil
}

func (c *CachingProvider) GetSecret(ctx context.Context, name string) (Bundle, error) {
	if cached, found := c.cache.Get(name); found {
		if b, ok := cached.(Bundle); ok {
			return b, nil
		}
	}

	b, err := c.provider.GetSecret(ctx, name)
	if err != nil {
		return nil, err
	}

	c.cache.SetWithTTL(name, b, 1, c.ttl)
	return b, nil
}

// Health delegates to the wrapped provider when it supports health checks.
func (c *CachingProvider) Health(ctx context.Context) (HealthStatus, error) {
	hc, ok := c.provider.(HealthChecker)
	if !ok {
		return HealthStatus{}, errors.New("secret store does not report health")
	}
	return hc.Health(ctx)
}

func (c *CachingProvider) Invalidate(name string) {
	c.cache.Del(name)
}

// Wait blocks until pending cache writes are applied.
func (c *CachingProvider) Wait() {
	c.cache.Wait()
}

func (c *CachingProvider) Close() error {
	c.cache.Close()
	return nil
}
