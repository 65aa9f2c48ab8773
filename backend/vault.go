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


package backend

import (
	"context"

	"github.com/pkg/errors"

	"github.com/devstack-core/devprobe/secrets"
)

const Vault = "vault"

// NewVaultProbe reports the health of the secret store. It needs no
// credentials of its own.
func NewVaultProbe(checker secrets.HealthChecker) *Probe[secrets.HealthChecker] {
	return &Probe[secrets.HealthChecker]{
		Name: Vault,
		Connect: func(context.Context, secrets.Bundle) (secrets.HealthChecker, error) {
			if checker == nil {
				return nil, errors.New("secret store does not report health")
			}
			return checker, nil
		},
		Run: func(ctx context.Context, checker secrets.HealthChecker) (any, error) {
			status, err := checker.Health(ctx)
			if err != nil {
				return nil, errors.Wrap(err, "failed to get vault health")
			}
			if !status.Healthy() {
				return nil, errors.Errorf("vault is not healthy: %s", status)
			}
			return status, nil
		},
	}
}
