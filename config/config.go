/*
 * ReactiveQ
 *
 * Copyright 2026 The ReactiveQ Authors. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package config holds the reactive query store's few runtime tunables.
Nothing here is required: a store built without ever loading a config
file runs on DefaultConfig.
*/
package config

import (
	"fmt"
	"strconv"

	"github.com/krotik/common/errorutil"
	"github.com/krotik/common/fileutil"
)

/*
DefaultConfigFile is the default config file name.
*/
var DefaultConfigFile = "reactiveq.config.json"

/*
Known configuration options.
*/
const (
	DatalogLoaderWorkers = "DatalogLoaderWorkers"
	SocketWriteTimeoutMS = "SocketWriteTimeoutMS"
	TracingEnabled       = "TracingEnabled"
	OrphanSweepLogging   = "OrphanSweepLogging"
)

/*
DefaultConfig is the default configuration.
*/
var DefaultConfig = map[string]interface{}{
	DatalogLoaderWorkers: 4,
	SocketWriteTimeoutMS: 5000,
	TracingEnabled:       false,
	OrphanSweepLogging:   false,
}

/*
Config is the actual configuration in use.
*/
var Config map[string]interface{}

/*
LoadConfigFile loads a given config file, creating it with the default
options if it does not exist.
*/
func LoadConfigFile(configfile string) error {
	var err error

	Config, err = fileutil.LoadConfig(configfile, DefaultConfig)

	return err
}

/*
LoadDefaultConfig loads the default configuration.
*/
func LoadDefaultConfig() {
	data := make(map[string]interface{})
	for k, v := range DefaultConfig {
		data[k] = v
	}

	Config = data
}

// Helper functions
// ================

/*
Str reads a config value as a string.
*/
func Str(key string) string {
	return fmt.Sprint(Config[key])
}

/*
Int reads a config value as an int.
*/
func Int(key string) int64 {
	ret, err := strconv.ParseInt(fmt.Sprint(Config[key]), 10, 64)

	errorutil.AssertTrue(err == nil,
		fmt.Sprintf("could not parse config key %v: %v", key, err))

	return ret
}

/*
Bool reads a config value as a bool.
*/
func Bool(key string) bool {
	ret, err := strconv.ParseBool(fmt.Sprint(Config[key]))

	errorutil.AssertTrue(err == nil,
		fmt.Sprintf("could not parse config key %v: %v", key, err))

	return ret
}
