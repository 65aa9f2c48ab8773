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
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	vault "github.com/hashicorp/vault/api"
	"github.com/pkg/errors"

	"github.com/devstack-core/devprobe/config"
)

const (
	roleIDFile   = "role-id"
	secretIDFile = "secret-id"

	appRoleLoginPath = "auth/approle/login"
)

// VaultProvider reads bundles from a KV version 2 mount, under
// "<prefix>/<name>".
type VaultProvider struct {
	client *vault.Client
	mount  string
	prefix string
	log    *slog.Logger
}

// NewVaultProvider creates the client and authenticates. AppRole credentials
// found in conf.AppRoleDir are tried first, the static token is used when
// they are missing or the login fails.
func NewVaultProvider(ctx context.Context, conf config.VaultConfig) (*VaultProvider, error) {
	vc := vault.DefaultConfig()
	vc.Address = conf.Address

	client, err := vault.NewClient(vc)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create vault client")
	}

	v := &VaultProvider{
		client: client,
		mount:  conf.Mount,
		prefix: conf.Prefix,
		log: slog.With(
			slog.String("component", "vault"),
			slog.String("address", conf.Address),
		),
	}
	if v.mount == "" {
		v.mount = config.DefaultVaultMount
	}

	if conf.AppRoleDir != "" {
		token, err := v.loginWithAppRole(ctx, conf.AppRoleDir)
		if err == nil {
			client.SetToken(token)
			v.log.Info("Authenticated with AppRole")
			return v, nil
		}
		v.log.Warn(
			"AppRole authentication failed, falling back to token auth",
			slog.Any("error", err),
		)
	}

	client.SetToken(conf.Token)
	return v, nil
}

func (v *VaultProvider) loginWithAppRole(ctx context.Context, dir string) (string, error) {
	roleID, err := readCredential(filepath.Join(dir, roleIDFile))
	if err != nil {
		return "", err
	}
	secretID, err := readCredential(filepath.Join(dir, secretIDFile))
	if err != nil {
		return "", err
	}

	secret, err := v.client.Logical().WriteWithContext(ctx, appRoleLoginPath, map[string]any{
		"role_id":   roleID,
		"secret_id": secretID,
	})
	if err != nil {
		return "", errors.Wrap(err, "approle login failed")
	}
	if secret == nil || secret.Auth == nil || secret.Auth.ClientToken == "" {
		return "", errors.New("approle login returned no token")
	}
	return secret.Auth.ClientToken, nil
}

func readCredential(file string) (string, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", filepath.Base(file))
	}
	return strings.TrimSpace(string(b)), nil
}

func (v *VaultProvider) secretPath(name string) string {
	if v.prefix == "" {
		return name
	}
	return path.Join(v.prefix, name)
}

func (v *VaultProvider) GetSecret(ctx context.Context, name string) (Bundle, error) {
	p := v.secretPath(name)
	secret, err := v.client.KVv2(v.mount).Get(ctx, p)
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			return nil, errors.Wrapf(ErrNotFound, "no secret at %s", p)
		}
		return nil, errors.Wrapf(err, "failed to read secret at %s", p)
	}
	if secret == nil || secret.Data == nil {
		return nil, errors.Wrapf(ErrNotFound, "no data at %s", p)
	}
	return secret.Data, nil
}

func (v *VaultProvider) Health(ctx context.Context) (HealthStatus, error) {
	h, err := v.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return HealthStatus{}, errors.Wrap(err, "failed to check vault health")
	}
	return HealthStatus{
		Initialized: h.Initialized,
		Sealed:      h.Sealed,
		Standby:     h.Standby,
		Version:     h.Version,
	}, nil
}
