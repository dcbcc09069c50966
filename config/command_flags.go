// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import "flag"

const defaultConfigFilePath = "./config.yaml"

// parseCommandLineArgs defines and parses flags, returning the value of the "config" flag.
func parseCommandLineArgs() string {
	if flag.Lookup("config") == nil {
		flag.String("config", defaultConfigFilePath, "Path to a presetfe configuration file in YAML format.")
	}

	if !flag.Parsed() {
		flag.Parse()
	}

	return flag.Lookup("config").Value.String()
}
