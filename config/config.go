// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/rs/zerolog/log"

	"codeberg.org/presetfe/presetfe/core/authenticated"
	"codeberg.org/presetfe/presetfe/core/idgen"
)

// Global exposes the server configuration.
var Global ServerConfig

// CSRFSigner signs and verifies CSRF tokens.
//
// Populated by LoadConfig from Csrf.Secret, or with an ephemeral key when no
// secret is configured.
var CSRFSigner authenticated.Signer

// DefaultBackendURL is used when no backend address is configured.
const DefaultBackendURL = "http://localhost:8000"

// ServerConfig holds the application configuration.
type ServerConfig struct {
	Build buildInfo `yaml:"-"`

	Basic struct {
		Host                     string      `env:"PRESETFE_HOST,overwrite" yaml:"host"`
		Port                     string      `env:"PRESETFE_PORT,overwrite" yaml:"port"`
		UnixSocket               string      `env:"PRESETFE_UNIXSOCKET" yaml:"unixSocket"`
		RawUnixSocketPermissions string      `env:"PRESETFE_UNIXSOCKET_PERMISSIONS" yaml:"unixSocketPermissions"`
		UnixSocketUser           string      `env:"PRESETFE_UNIXSOCKET_USER" yaml:"unixSocketUser"`
		UnixSocketGroup          string      `env:"PRESETFE_UNIXSOCKET_GROUP" yaml:"unixSocketGroup"`
		UnixSocketPermissions    os.FileMode `yaml:"-"`
	} `yaml:"basic"`

	Backend struct {
		// BACKEND_URL is honoured for compatibility with existing deployments.
		RawURL string  `env:"PRESETFE_BACKEND_URL|BACKEND_URL,overwrite" yaml:"url"`
		URL    url.URL `yaml:"-"`
	} `yaml:"backend"`

	Cache struct {
		Enabled  bool          `env:"PRESETFE_CACHE,overwrite" yaml:"enabled"`
		Size     int           `env:"PRESETFE_CACHE_SIZE,overwrite" yaml:"cacheSize"`
		TTL      time.Duration `env:"PRESETFE_CACHE_TTL,overwrite" yaml:"cacheTTL"`
		Compress bool          `env:"PRESETFE_CACHE_COMPRESS,overwrite" yaml:"compress"`
	} `yaml:"cache"`

	Csrf struct {
		Enabled bool `env:"PRESETFE_CSRF,overwrite" yaml:"enabled"`
		// raw bytes of v4.public secret key
		Secret string        `env:"PRESETFE_SECRET" yaml:"secret"`
		TTL    time.Duration `env:"PRESETFE_CSRF_TTL,overwrite" yaml:"ttl"`
	} `yaml:"csrf"`

	Limiter struct {
		Enabled bool     `env:"PRESETFE_LIMITER,overwrite" yaml:"enabled"`
		Rate    float64  `env:"PRESETFE_LIMITER_RATE,overwrite" yaml:"rate"`
		Burst   int      `env:"PRESETFE_LIMITER_BURST,overwrite" yaml:"burst"`
		PassIPs []string `env:"PRESETFE_LIMITER_PASS_IPS,overwrite" yaml:"passList"`
	} `yaml:"limiter"`

	Metrics struct {
		Enabled bool `env:"PRESETFE_METRICS,overwrite" yaml:"enabled"`
	} `yaml:"metrics"`

	Instance struct {
		StartingTime string `yaml:"-"`
		InstanceID   string `yaml:"-"`
	} `yaml:"-"`

	Development struct {
		InDevelopment        bool   `env:"PRESETFE_DEV" yaml:"inDevelopment"`
		SaveResponses        bool   `env:"PRESETFE_SAVE_RESPONSES,overwrite" yaml:"saveResponses"`
		ResponseSaveLocation string `env:"PRESETFE_RESPONSE_SAVE_LOCATION,overwrite" yaml:"responseSaveLocation"`
	} `yaml:"development"`

	Log struct {
		Level   string   `env:"PRESETFE_LOG_LEVEL,overwrite" yaml:"logLevel"`
		Outputs []string `env:"PRESETFE_LOG_OUTPUTS,overwrite" yaml:"logOutputs"`
		Format  string   `env:"PRESETFE_LOG_FORMAT,overwrite" yaml:"logFormat"`
	} `yaml:"log"`
}

// LoadConfig loads the configuration from various sources.
func (cfg *ServerConfig) LoadConfig() error {
	configFilePath := resolveConfigFilePath()

	cfg.SetDefaults()

	cfg.Build.load()

	cfg.Instance.InstanceID = idgen.Make()
	cfg.Instance.StartingTime = time.Now().UTC().Format("2006-01-02 15:04")

	if err := cfg.readYAML(configFilePath); err != nil {
		return fmt.Errorf("error loading YAML config: %w", err)
	}

	if err := useDotEnv(); err != nil {
		return fmt.Errorf("error using .env file: %w", err)
	}

	if err := readEnv(cfg); err != nil {
		return fmt.Errorf("error loading environment variables: %w", err)
	}

	if err := cfg.validateAndSet(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}

	cfg.setupAudit()

	cfg.print()

	// Heuristically check for containerized environment and warn if host is not a wildcard address.
	if isContainerized() && cfg.Basic.UnixSocket == "" && cfg.Basic.Host != "0.0.0.0" && cfg.Basic.Host != "::" {
		log.Warn().
			Str("host", cfg.Basic.Host).
			Msg("Running in a containerized environment but host is not a wildcard address (e.g., '0.0.0.0' or '::'). This may prevent the service from being accessible outside the container.")
	}

	return nil
}

// resolveConfigFilePath determines the config file path with the following precedence:
//  1. Command-line flag (-config)
//  2. Environment variable (PRESETFE_CONFIGFILE)
//  3. ./config.yaml, falling back to ./config.yml when only the latter exists
func resolveConfigFilePath() string {
	parsedConfigFlagValue := parseCommandLineArgs()

	configFlagUserSet := false

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			configFlagUserSet = true
		}
	})

	if configFlagUserSet {
		return parsedConfigFlagValue
	}

	if envVar := os.Getenv("PRESETFE_CONFIGFILE"); envVar != "" {
		return envVar
	}

	if _, err := os.Stat(parsedConfigFlagValue); os.IsNotExist(err) {
		ymlPath := "./config.yml"
		if _, statErr := os.Stat(ymlPath); statErr == nil {
			return ymlPath
		}
	}

	return parsedConfigFlagValue
}

// BackendBaseURL returns the backend base address without a trailing slash.
func (cfg *ServerConfig) BackendBaseURL() string {
	if cfg.Backend.URL.Host == "" {
		return DefaultBackendURL
	}

	return strings.TrimSuffix(cfg.Backend.URL.String(), "/")
}

var staticSkippedPaths = []string{"/healthz", "/metrics"}

// ShouldSkipServerLogging determines if a request should bypass the logging middleware.
func (cfg *ServerConfig) ShouldSkipServerLogging(path string) bool {
	for _, skipped := range staticSkippedPaths {
		if path == skipped {
			return true
		}
	}

	return false
}

// isContainerized checks for common indicators of a containerized environment.
//
// This is a heuristic and may not be 100% accurate.
func isContainerized() bool {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true
	}

	for _, marker := range []string{"/.dockerenv", "/.containerenv"} {
		if _, err := os.Stat(marker); err == nil {
			return true
		}
	}

	// #nosec G304 -- well-known system file, read for heuristics only.
	cgroup, err := os.ReadFile("/proc/self/cgroup")
	if err != nil {
		return false
	}

	content := string(cgroup)

	for _, keyword := range []string{"docker", "kubepods", "containerd", "lxc", "crio", ".machine"} {
		if strings.Contains(content, keyword) {
			return true
		}
	}

	return false
}

// GetDurationEncoderOption returns a YAML encoder option that marshals
// time.Duration into a human-readable string format (e.g., "30m", "1h").
func GetDurationEncoderOption() yaml.EncodeOption {
	return yaml.CustomMarshaler[time.Duration](
		func(d time.Duration) ([]byte, error) {
			return yaml.Marshal(d.String())
		},
	)
}
