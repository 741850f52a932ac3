package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/modelbind/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "modelbind.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
manifests_path   = "custom/manifests"
healthcheck_port = 8089

log {
  level  = "debug"
  format = "text"
}

sync {
  url       = "wss://sync.example.dev/socket.io"
  namespace = "/models"
}

session {
  endpoint = "https://session.example.dev/rpc"
}
`)

	cfg, err := config.Load(context.Background(), path)
	require.NoError(t, err)

	require.Equal(t, "custom/manifests", cfg.ManifestsPath)
	require.Equal(t, 8089, cfg.HealthcheckPort)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "text", cfg.Log.Format)
	require.NotNil(t, cfg.Sync)
	require.Equal(t, "wss://sync.example.dev/socket.io", cfg.Sync.URL)
	require.Equal(t, "/models", cfg.Sync.Namespace)
	require.NotNil(t, cfg.Session)
	require.Equal(t, "https://session.example.dev/rpc", cfg.Session.Endpoint)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, ``)

	cfg, err := config.Load(context.Background(), path)
	require.NoError(t, err)

	require.Equal(t, "manifests", cfg.ManifestsPath)
	require.Zero(t, cfg.HealthcheckPort)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.Nil(t, cfg.Sync)
	require.Nil(t, cfg.Session)
}

func TestLoad_BadLogLevel(t *testing.T) {
	path := writeConfig(t, `
log {
  level = "loud"
}
`)
	_, err := config.Load(context.Background(), path)
	require.ErrorContains(t, err, "log.level")
}

func TestLoad_EmptySyncURL(t *testing.T) {
	path := writeConfig(t, `
sync {
  url = ""
}
`)
	_, err := config.Load(context.Background(), path)
	require.ErrorContains(t, err, "sync.url")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(context.Background(), filepath.Join(t.TempDir(), "absent.hcl"))
	require.Error(t, err)
}

func TestLoad_BadSyntax(t *testing.T) {
	path := writeConfig(t, `log {`)
	_, err := config.Load(context.Background(), path)
	require.ErrorContains(t, err, "failed to parse")
}
