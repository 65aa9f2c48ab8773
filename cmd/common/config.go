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


package common

import (
	"github.com/spf13/viper"

	"github.com/devstack-core/devprobe/config"
)

// ConfigFile is set by the root --conf flag.
var ConfigFile string

// LoadConfig reads ConfigFile, when set, and the environment. The returned
// viper instance can be used to watch the file.
func LoadConfig() (config.Config, *viper.Viper, error) {
	v := viper.New()
	conf, err := config.Load(v, ConfigFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	return conf, v, nil
}
