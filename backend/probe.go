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
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/devstack-core/devprobe/secrets"
)

// ErrEmpty is returned by an operation that succeeded without finding
// anything to report.
var ErrEmpty = errors.New("no data")

// Kind classifies the outcome of a probe execution.
type Kind string

const (
	KindOK                     Kind = "ok"
	KindEmpty                  Kind = "empty"
	KindCredentialsUnavailable Kind = "credentials_unavailable"
	KindConnectFailed          Kind = "connect_failed"
	KindOperationFailed        Kind = "operation_failed"
)

// StatusCode is the HTTP-style status associated with the outcome.
func (k Kind) StatusCode() int {
	switch k {
	case KindOK, KindEmpty:
		return http.StatusOK
	case KindCredentialsUnavailable, KindConnectFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) Healthy() bool {
	return k == KindOK || k == KindEmpty
}

// Probe connects to one backend with the credentials stored under Secret,
// runs a single operation and closes the session.
type Probe[S any] struct {
	Name string
	// Secret is the logical secret name, empty when no credentials are needed.
	Secret string

	Connect func(ctx context.Context, secret secrets.Bundle) (S, error)
	Run     func(ctx context.Context, session S) (any, error)
	Close   func(session S) error
}

func (p *Probe[S]) BackendName() string {
	return p.Name
}

func (p *Probe[S]) Execute(ctx context.Context, provider secrets.Provider) Result {
	start := time.Now()
	result := func(kind Kind, data any, err error) Result {
		return Result{
			Backend:  p.Name,
			Kind:     kind,
			Data:     data,
			Err:      err,
			Duration: time.Since(start),
		}
	}

	var bundle secrets.Bundle
	if p.Secret != "" {
		if provider == nil {
			return result(KindCredentialsUnavailable, nil, errors.New("no secret provider configured"))
		}
		b, err := provider.GetSecret(ctx, p.Secret)
		if err != nil {
			return result(KindCredentialsUnavailable, nil, errors.Wrap(err, "failed to get credentials"))
		}
		bundle = b
	}

	session, err := p.Connect(ctx, bundle)
	if err != nil {
		return result(KindConnectFailed, nil, err)
	}
	if p.Close != nil {
		defer func() {
			if err := p.Close(session); err != nil {
				slog.Warn(
					"Failed to close backend session",
					slog.String("backend", p.Name),
					slog.Any("error", err),
				)
			}
		}()
	}

	data, err := p.Run(ctx, session)
	switch {
	case errors.Is(err, ErrEmpty):
		return result(KindEmpty, data, nil)
	case err != nil:
		return result(KindOperationFailed, nil, err)
	default:
		return result(KindOK, data, nil)
	}
}

// Result is the outcome of one probe execution.
type Result struct {
	Backend  string
	Kind     Kind
	Data     any
	Err      error
	Duration time.Duration
}

func (r Result) StatusCode() int {
	return r.Kind.StatusCode()
}

type envelope struct {
	Backend    string  `json:"backend" yaml:"backend"`
	Status     Kind    `json:"status" yaml:"status"`
	Data       any     `json:"data,omitempty" yaml:"data,omitempty"`
	Error      string  `json:"error,omitempty" yaml:"error,omitempty"`
	DurationMs float64 `json:"duration_ms" yaml:"duration_ms"`
}

func (r Result) envelope() envelope {
	e := envelope{
		Backend:    r.Backend,
		Status:     r.Kind,
		Data:       r.Data,
		DurationMs: float64(r.Duration.Microseconds()) / 1000.0,
	}
	if r.Err != nil {
		e.Error = r.Err.Error()
	}
	return e
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.envelope())
}

func (r Result) MarshalYAML() (any, error) {
	return r.envelope(), nil
}
