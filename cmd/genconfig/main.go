// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Command genconfig writes example configuration files for presetfe.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"

	"codeberg.org/presetfe/presetfe/config"
	"codeberg.org/presetfe/presetfe/core/audit"
)

const (
	envFileName  = ".env.example"
	yamlFileName = "config.yaml.example"
	filePerm     = 0o644
	dirPerm      = 0o755

	envFileHeader = `# presetfe configuration (via environment variables)
#
# Copy this file to .env and customize the values below.
#
# This file was auto-generated using go run ./cmd/genconfig.

`
	yamlFileHeader = `# presetfe configuration (via configuration file)
#
# Copy this file to config.yaml and customize the values below.
#
# This file was auto-generated using go run ./cmd/genconfig.
`
	proxySettingsComment = `
## Network proxy settings for backend requests
## ref: https://pkg.go.dev/net/http#ProxyFromEnvironment
# HTTPS_PROXY=
# HTTP_PROXY=`
)

// essentialEnvVars are written uncommented to the .env example.
var essentialEnvVars = map[string]bool{
	"PRESETFE_HOST":        true,
	"PRESETFE_PORT":        true,
	"PRESETFE_BACKEND_URL": true,
}

// essentialYAMLKeys are left uncommented in the YAML example.
var essentialYAMLKeys = []string{"host:", "port:", "url:"}

func main() {
	outDir := flag.String("out", "deploy", "directory to write the example files to")
	flag.Parse()

	audit.SetDefaultLogger()

	if err := os.MkdirAll(*outDir, dirPerm); err != nil {
		log.Fatal().Err(err).Str("path", *outDir).Msg("Failed to create output directory")
	}

	writeFile(filepath.Join(*outDir, envFileName), renderEnv())
	writeFile(filepath.Join(*outDir, yamlFileName), renderYAML())
}

func writeFile(path, content string) {
	if err := os.WriteFile(path, []byte(content), filePerm); err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to write example file")
	}

	log.Info().Str("path", path).Msg("Generated example file")
}

// exampleConfig returns the defaults with the listener address filled in.
func exampleConfig() *config.ServerConfig {
	cfg := &config.ServerConfig{}
	cfg.SetDefaults()

	cfg.Basic.Host = config.DefaultHost
	cfg.Basic.Port = config.DefaultPort

	return cfg
}

// envVarName returns the primary variable name of an env struct tag.
func envVarName(tag string) string {
	names, _, _ := strings.Cut(tag, ",")
	primary, _, _ := strings.Cut(names, "|")

	return primary
}

func renderEnv() string {
	cfg := exampleConfig()

	var sb strings.Builder
	sb.WriteString(envFileHeader)

	val := reflect.ValueOf(*cfg)
	typ := val.Type()

	for i := range typ.NumField() {
		section := typ.Field(i)
		sectionValue := val.Field(i)

		if sectionValue.Kind() != reflect.Struct || section.Tag.Get("yaml") == "-" {
			continue
		}

		fmt.Fprintf(&sb, "## %s\n", section.Name)

		innerTyp := sectionValue.Type()
		for j := range innerTyp.NumField() {
			tag, ok := innerTyp.Field(j).Tag.Lookup("env")
			if !ok {
				continue
			}

			name := envVarName(tag)
			value := sectionValue.Field(j)

			switch {
			case essentialEnvVars[name]:
				fmt.Fprintf(&sb, "%s=\"%v\"\n", name, value.Interface())
			case value.Kind() == reflect.Slice || (value.Kind() == reflect.String && value.Len() == 0):
				fmt.Fprintf(&sb, "# %s=\n", name)
			default:
				fmt.Fprintf(&sb, "# %s=%v\n", name, value.Interface())
			}
		}

		sb.WriteString("\n")
	}

	sb.WriteString(strings.TrimSpace(proxySettingsComment) + "\n")

	return sb.String()
}

func renderYAML() string {
	cfg := exampleConfig()

	var raw strings.Builder

	err := yaml.NewEncoder(&raw, config.GetDurationEncoderOption(), yaml.Indent(2)).Encode(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to marshal config to YAML")
	}

	var sb strings.Builder
	sb.WriteString(yamlFileHeader)

	for line := range strings.SplitSeq(raw.String(), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		// section header
		if !strings.HasPrefix(line, " ") {
			fmt.Fprintf(&sb, "\n%s\n", line)

			continue
		}

		if isEssentialYAMLLine(trimmed) {
			sb.WriteString(line + "\n")

			continue
		}

		indent := len(line) - len(strings.TrimLeft(line, " "))
		fmt.Fprintf(&sb, "%s# %s\n", strings.Repeat(" ", indent), trimmed)
	}

	return sb.String()
}

func isEssentialYAMLLine(trimmed string) bool {
	for _, key := range essentialYAMLKeys {
		if strings.HasPrefix(trimmed, key) {
			return true
		}
	}

	return false
}
