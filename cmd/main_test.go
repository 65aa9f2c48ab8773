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


package main

import (
	"log/slog"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"

	"github.com/devstack-core/devprobe/common/logging"
)

func TestCall_LogLevel(t *testing.T) {
	for _, test := range []struct {
		name          string
		level         string
		expectedErr   error
		expectedLevel slog.Level
	}{
		{"debug", "debug", nil, slog.LevelDebug},
		{"info", "info", nil, slog.LevelInfo},
		{"warn", "warn", nil, slog.LevelWarn},
		{"warning", "WARNING", nil, slog.LevelWarn},
		{"error", "error", nil, slog.LevelError},
		{"junk", "junk", LogLevelError("junk"), slog.LevelInfo},
	} {
		t.Run(test.name, func(t *testing.T) {
			logging.LogLevel = logging.DefaultLogLevel
			logLevelStr = ""
			called := false
			rootCmd.SetArgs([]string{"-l", test.level})
			rootCmd.RunE = func(*cobra.Command, []string) error {
				called = true
				assert.Equal(t, test.expectedLevel, logging.LogLevel)
				return nil
			}

			err := rootCmd.Execute()
			if test.expectedErr != nil {
				assert.ErrorIs(t, err, test.expectedErr)
				assert.False(t, called)
			} else {
				assert.NoError(t, err)
				assert.True(t, called)
			}
		})
	}
}

func TestSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"cluster", "parse", "probe", "monitor", "health"} {
		assert.True(t, names[name], name)
	}
}
