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
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrNotFound    = errors.New("secret not found")
	ErrKeyNotFound = errors.New("key not found in secret")
)

// Bundle is the set of key/value pairs stored under one secret name.
type Bundle map[string]any

// String returns the value of key when it is a string, or "" otherwise.
func (b Bundle) String(key string) string {
	if s, ok := b[key].(string); ok {
		return s
	}
	return ""
}

func (b Bundle) Lookup(key string) (any, error) {
	value, ok := b[key]
	if !ok {
		return nil, errors.Wrapf(ErrKeyNotFound, "key %s", key)
	}
	return value, nil
}

// Provider resolves the credential bundle of a logical backend name.
type Provider interface {
	GetSecret(ctx context.Context, name string) (Bundle, error)
}

type HealthStatus struct {
	Initialized bool   `json:"initialized" yaml:"initialized"`
	Sealed      bool   `json:"sealed" yaml:"sealed"`
	Standby     bool   `json:"standby" yaml:"standby"`
	Version     string `json:"version" yaml:"version"`
}

func (h HealthStatus) Healthy() bool {
	return h.Initialized && !h.Sealed
}

func (h HealthStatus) String() string {
	return fmt.Sprintf("initialized=%t sealed=%t standby=%t version=%s",
		h.Initialized, h.Sealed, h.Standby, h.Version)
}

// HealthChecker is implemented by providers backed by a remote store.
type HealthChecker interface {
	Health(ctx context.Context) (HealthStatus, error)
}
