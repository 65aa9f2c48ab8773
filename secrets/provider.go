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
	"io"

	"github.com/devstack-core/devprobe/config"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// FromConfig returns the provider selected by the configuration: a cached
// vault provider when vault is enabled, the static bundles otherwise.
func FromConfig(ctx context.Context, conf *config.Config) (Provider, io.Closer, error) {
	if !conf.Vault.Enabled {
		return NewStaticProvider(conf.StaticSecrets()), nopCloser{}, nil
	}

	v, err := NewVaultProvider(ctx, conf.Vault)
	if err != nil {
		return nil, nil, err
	}

	if conf.Vault.CacheTTL <= 0 {
		return v, nopCloser{}, nil
	}

	c, err := NewCachingProvider(v, conf.Vault.CacheTTL)
	if err != nil {
		return nil, nil, err
	}
	return c, c, nil
}
