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
	"database/sql"
	"net/url"

	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq" // postgres driver
	"github.com/pkg/errors"

	"github.com/devstack-core/devprobe/config"
	"github.com/devstack-core/devprobe/secrets"
)

const (
	Postgres = "postgres"
	MySQL    = "mysql"
)

// SQLVersion is the reply of the relational database probes.
type SQLVersion struct {
	Database string `json:"database" yaml:"database"`
	Host     string `json:"host" yaml:"host"`
	Version  string `json:"version" yaml:"version"`
}

func PostgresDSN(conf config.ServiceConfig, secret secrets.Bundle) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(secret.String("user"), secret.String("password")),
		Host:     conf.Address(),
		Path:     "/" + secret.String("database"),
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func MySQLDSN(conf config.ServiceConfig, secret secrets.Bundle) string {
	c := mysql.NewConfig()
	c.User = secret.String("user")
	c.Passwd = secret.String("password")
	c.Net = "tcp"
	c.Addr = conf.Address()
	c.DBName = secret.String("database")
	return c.FormatDSN()
}

func NewPostgresProbe(conf config.ServiceConfig) *Probe[*sql.DB] {
	return newSQLProbe(Postgres, "postgres", conf, PostgresDSN, "SELECT version()")
}

func NewMySQLProbe(conf config.ServiceConfig) *Probe[*sql.DB] {
	return newSQLProbe(MySQL, "mysql", conf, MySQLDSN, "SELECT VERSION()")
}

func newSQLProbe(name, driver string, conf config.ServiceConfig,
	dsn func(config.ServiceConfig, secrets.Bundle) string, query string) *Probe[*sql.DB] {
	return &Probe[*sql.DB]{
		Name:   name,
		Secret: name,
		Connect: func(ctx context.Context, secret secrets.Bundle) (*sql.DB, error) {
			db, err := sql.Open(driver, dsn(conf, secret))
			if err != nil {
				return nil, errors.Wrapf(err, "failed to open %s connection", name)
			}
			if err := db.PingContext(ctx); err != nil {
				_ = db.Close()
				return nil, errors.Wrapf(err, "failed to connect to %s at %s", name, conf.Address())
			}
			return db, nil
		},
		Run: func(ctx context.Context, db *sql.DB) (any, error) {
			return QueryVersion(ctx, db, name, conf.Host, query)
		},
		Close: func(db *sql.DB) error {
			return db.Close()
		},
	}
}

// QueryVersion runs a single-row, single-column version query.
func QueryVersion(ctx context.Context, db *sql.DB, name, host, query string) (SQLVersion, error) {
	var version string
	err := db.QueryRowContext(ctx, query).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return SQLVersion{Database: name, Host: host}, ErrEmpty
	case err != nil:
		return SQLVersion{}, errors.Wrapf(err, "%s version query failed", name)
	}
	return SQLVersion{Database: name, Host: host, Version: version}, nil
}
