/*-------------------------------------------------------------------------
 *
 * config_test.go
 *    Tests for configuration loading
 *
 * Copyright (c) 2024-2026, fernlabs, Inc. <support@fernlabs.ai>
 *
 * IDENTIFICATION
 *    fernlabs-api/internal/config/config_test.go
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	require.Equal(t, "openai", cfg.Model.Provider)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, 25, cfg.Database.MaxOpenConns)
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
  read_timeout: 10s
model:
  provider: ollama
  name: llama3
  base_url: http://localhost:11434
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	require.Equal(t, "ollama", cfg.Model.Provider)
	require.Equal(t, "llama3", cfg.Model.Name)
	require.Equal(t, "debug", cfg.Logging.Level)

	/* Unset fields keep their defaults */
	require.Equal(t, 25, cfg.Database.MaxOpenConns)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("FERNLABS_SERVER_PORT", "7070")
	t.Setenv("FERNLABS_MODEL_NAME", "gpt-4o")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "gpt-4o", cfg.Model.Name)
}

func TestProviderNativeKeyFallback(t *testing.T) {
	t.Setenv("FERNLABS_MODEL_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "sk-test", cfg.Model.APIKey)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Database.URL = ""
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Model.Name = ""
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Model.Temperature = 3.5
	require.Error(t, cfg.Validate())
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
