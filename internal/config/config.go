// Package config loads the application configuration file. The file is HCL:
//
//	manifests_path   = "manifests"
//	healthcheck_port = 8089
//
//	log {
//	  level  = "debug"
//	  format = "text"
//	}
//
//	sync {
//	  url       = "wss://sync.example.dev/socket.io"
//	  namespace = "/models"
//	}
//
//	session {
//	  endpoint = "https://session.example.dev/rpc"
//	}
package config

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/modelbind/internal/ctxlog"
)

// Config is the decoded application configuration.
type Config struct {
	ManifestsPath   string         `hcl:"manifests_path,optional"`
	HealthcheckPort int            `hcl:"healthcheck_port,optional"`
	Log             *LogConfig     `hcl:"log,block"`
	Sync            *SyncConfig    `hcl:"sync,block"`
	Session         *SessionConfig `hcl:"session,block"`
}

// LogConfig controls the application logger.
type LogConfig struct {
	Level  string `hcl:"level,optional"`
	Format string `hcl:"format,optional"`
}

// SyncConfig describes the sync service connection.
type SyncConfig struct {
	URL                string `hcl:"url"`
	Namespace          string `hcl:"namespace,optional"`
	InsecureSkipVerify bool   `hcl:"insecure_skip_verify,optional"`
}

// SessionConfig describes the account/session RPC endpoint.
type SessionConfig struct {
	Endpoint string `hcl:"endpoint"`
}

// Load parses and decodes the configuration file, applying defaults for
// omitted blocks.
func Load(ctx context.Context, path string) (*Config, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading configuration file.", "path", path)

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, diags)
	}

	cfg := &Config{}
	if diags := gohcl.DecodeBody(hclFile.Body, nil, cfg); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode config %s: %w", path, diags)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	logger.Debug("Configuration loaded.", "manifests_path", cfg.ManifestsPath, "sync_configured", cfg.Sync != nil)
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log == nil {
		c.Log = &LogConfig{}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.ManifestsPath == "" {
		c.ManifestsPath = "manifests"
	}
}

func (c *Config) validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be 'debug', 'info', 'warn' or 'error', got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be 'text' or 'json', got %q", c.Log.Format)
	}
	if c.Sync != nil && c.Sync.URL == "" {
		return fmt.Errorf("sync.url must not be empty")
	}
	if c.Session != nil && c.Session.Endpoint == "" {
		return fmt.Errorf("session.endpoint must not be empty")
	}
	return nil
}
