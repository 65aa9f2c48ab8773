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

	"github.com/pkg/errors"
)

// StaticProvider serves bundles from memory.
type StaticProvider struct {
	bundles map[string]Bundle
}

func NewStaticProvider(secrets map[string]map[string]string) *StaticProvider {
	bundles := make(map[string]Bundle, len(secrets))
	for name, values := range secrets {
		b := make(Bundle, len(values))
		for k, v := range values {
			b[k] = v
		}
		bundles[name] = b
	}
	return &StaticProvider{bundles: bundles}
}

func (s *StaticProvider) GetSecret(_ context.Context, name string) (Bundle, error) {
	b, ok := s.bundles[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "no static secret %s", name)
	}

	res := make(Bundle, len(b))
	for k, v := range b {
		res[k] = v
	}
	return res, nil
}
