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
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/devstack-core/devprobe/config"
)

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) GetSecret(_ context.Context, name string) (Bundle, error) {
	args := m.MethodCalled("GetSecret", name)
	b, _ := args.Get(0).(Bundle)
	return b, args.Error(1)
}

func TestBundle(t *testing.T) {
	b := Bundle{"user": "u", "port": 5432}
	assert.Equal(t, "u", b.String("user"))
	assert.Equal(t, "", b.String("port"))
	assert.Equal(t, "", b.String("missing"))

	v, err := b.Lookup("port")
	assert.NoError(t, err)
	assert.Equal(t, 5432, v)

	_, err = b.Lookup("missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider(map[string]map[string]string{
		"redis-1": {"password": "secret"},
	})

	b, err := p.GetSecret(context.Background(), "redis-1")
	require.NoError(t, err)
	assert.Equal(t, "secret", b.String("password"))

	// returned bundles are copies
	b["password"] = "changed"
	b, err = p.GetSecret(context.Background(), "redis-1")
	require.NoError(t, err)
	assert.Equal(t, "secret", b.String("password"))

	_, err = p.GetSecret(context.Background(), "redis-9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachingProvider(t *testing.T) {
	inner := &mockProvider{}
	inner.On("GetSecret", "postgres").Return(Bundle{"user": "pg"}, nil).Once()
	inner.On("GetSecret", "mysql").Return(nil, errors.New("unavailable")).Twice()

	c, err := NewCachingProvider(inner, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	b, err := c.GetSecret(context.Background(), "postgres")
	require.NoError(t, err)
	assert.Equal(t, "pg", b.String("user"))
	c.Wait()

	b, err = c.GetSecret(context.Background(), "postgres")
	require.NoError(t, err)
	assert.Equal(t, "pg", b.String("user"))

	// errors are not cached
	_, err = c.GetSecret(context.Background(), "mysql")
	assert.Error(t, err)
	c.Wait()
	_, err = c.GetSecret(context.Background(), "mysql")
	assert.Error(t, err)

	inner.AssertExpectations(t)
}

func TestCachingProvider_Invalidate(t *testing.T) {
	inner := &mockProvider{}
	inner.On("GetSecret", "rabbitmq").Return(Bundle{"user": "guest"}, nil).Twice()

	c, err := NewCachingProvider(inner, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.GetSecret(context.Background(), "rabbitmq")
	require.NoError(t, err)
	c.Wait()

	c.Invalidate("rabbitmq")
	_, err = c.GetSecret(context.Background(), "rabbitmq")
	require.NoError(t, err)

	inner.AssertExpectations(t)
}

func TestCachingProvider_Health(t *testing.T) {
	c, err := NewCachingProvider(NewStaticProvider(nil), time.Minute)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Health(context.Background())
	assert.Error(t, err)

	f := newFakeVault(t)
	v, err := NewVaultProvider(context.Background(), vaultConfig(f.URL))
	require.NoError(t, err)

	c2, err := NewCachingProvider(v, time.Minute)
	require.NoError(t, err)
	defer c2.Close()

	h, err := c2.Health(context.Background())
	require.NoError(t, err)
	assert.True(t, h.Healthy())
}

func TestFromConfig(t *testing.T) {
	conf := config.NewConfig()
	conf.Vault.Enabled = false
	conf.Postgres.Password = "pw"

	p, closer, err := FromConfig(context.Background(), &conf)
	require.NoError(t, err)
	assert.IsType(t, &StaticProvider{}, p)
	assert.NoError(t, closer.Close())

	b, err := p.GetSecret(context.Background(), "postgres")
	require.NoError(t, err)
	assert.Equal(t, "pw", b.String("password"))

	f := newFakeVault(t)
	conf = config.NewConfig()
	conf.Vault.Address = f.URL
	conf.Vault.Token = testToken

	p, closer, err = FromConfig(context.Background(), &conf)
	require.NoError(t, err)
	defer closer.Close()
	assert.IsType(t, &CachingProvider{}, p)

	for i := 0; i < 3; i++ {
		b, err = p.GetSecret(context.Background(), "postgres")
		require.NoError(t, err)
		assert.Equal(t, "pguser", b.String("user"))
		p.(*CachingProvider).Wait()
	}
	assert.EqualValues(t, 1, f.reads.Load())

	conf.Vault.CacheTTL = 0
	p, _, err = FromConfig(context.Background(), &conf)
	require.NoError(t, err)
	assert.IsType(t, &VaultProvider{}, p)
}
