// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "extractval.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load("", environ(nil))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.Empty(t, cfg.Schema.Path)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
[log]
level = "debug"
json = true

[http]
addr = "127.0.0.1:9090"

[batch]
workers = 8

[schema]
path = "/etc/extractval/schema.cue"
`)
	cfg, err := load(path, environ(nil))
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "127.0.0.1:9090", cfg.HTTP.Addr)
	assert.Equal(t, 8, cfg.Batch.Workers)
	assert.Equal(t, "/etc/extractval/schema.cue", cfg.Schema.Path)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	cfg, err := load(writeConfig(t, "[log]\nlevel = \"warn\"\n"), environ(nil))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 4, cfg.Batch.Workers)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name        string
		path        func(t *testing.T) string
		errContains string
	}{
		{
			name:        "missing file",
			path:        func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent.toml") },
			errContains: "failed to read config file",
		},
		{
			name:        "malformed toml",
			path:        func(t *testing.T) string { return writeConfig(t, "[log\nlevel=") },
			errContains: "failed to parse TOML in",
		},
		{
			name:        "toml error carries its position",
			path:        func(t *testing.T) string { return writeConfig(t, "[log\nlevel=") },
			errContains: "at line",
		},
		{
			name:        "zero workers",
			path:        func(t *testing.T) string { return writeConfig(t, "[batch]\nworkers = 0\n") },
			errContains: "batch.workers",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(tt.path(t), environ(nil))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func environ(vars map[string]string) func() []string {
	return func() []string {
		out := make([]string, 0, len(vars))
		for k, v := range vars {
			out = append(out, k+"="+v)
		}
		return out
	}
}

func TestLoad_Environment(t *testing.T) {
	tests := []struct {
		name           string
		vars           map[string]string
		wantErr        bool
		errContains    string
		validateOutput func(t *testing.T, cfg *Config)
	}{
		{
			name: "every key",
			vars: map[string]string{
				"EXTRACTVAL_LOG_LEVEL":     "error",
				"EXTRACTVAL_LOG_JSON":      "true",
				"EXTRACTVAL_HTTP_ADDR":     ":9999",
				"EXTRACTVAL_BATCH_WORKERS": "2",
				"EXTRACTVAL_SCHEMA_PATH":   "custom.cue",
			},
			validateOutput: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "error", cfg.Log.Level)
				assert.True(t, cfg.Log.JSON)
				assert.Equal(t, ":9999", cfg.HTTP.Addr)
				assert.Equal(t, 2, cfg.Batch.Workers)
				assert.Equal(t, "custom.cue", cfg.Schema.Path)
			},
		},
		{
			name: "empty and foreign variables are ignored",
			vars: map[string]string{
				"EXTRACTVAL_HTTP_ADDR": "",
				"EXTRACTVAL_VERBOSE":   "1",
				"LOG_LEVEL":            "debug",
			},
			validateOutput: func(t *testing.T, cfg *Config) {
				assert.Equal(t, Default(), cfg)
			},
		},
		{
			name:        "non-boolean json flag",
			vars:        map[string]string{"EXTRACTVAL_LOG_JSON": "not-a-value"},
			wantErr:     true,
			errContains: "json",
		},
		{
			name:        "non-numeric workers",
			vars:        map[string]string{"EXTRACTVAL_BATCH_WORKERS": "not-a-value"},
			wantErr:     true,
			errContains: "workers",
		},
		{
			name:        "zero workers fails validation",
			vars:        map[string]string{"EXTRACTVAL_BATCH_WORKERS": "0"},
			wantErr:     true,
			errContains: "batch.workers must be at least 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := load("", environ(tt.vars))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			tt.validateOutput(t, cfg)
		})
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "[batch]\nworkers = 3\n\n[log]\nlevel = \"warn\"\n")
	cfg, err := load(path, environ(map[string]string{"EXTRACTVAL_BATCH_WORKERS": "16"}))
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Batch.Workers)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_ProcessEnvironment(t *testing.T) {
	t.Setenv("EXTRACTVAL_HTTP_ADDR", "127.0.0.1:7000")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:7000", cfg.HTTP.Addr)
}

func TestTransformEnvKey(t *testing.T) {
	tests := []struct {
		key, value string
		wantKey    string
	}{
		{key: "EXTRACTVAL_LOG_LEVEL", value: "debug", wantKey: "log.level"},
		{key: "EXTRACTVAL_SCHEMA_PATH", value: "a.cue", wantKey: "schema.path"},
		{key: "EXTRACTVAL_LOG_LEVEL", value: "", wantKey: ""},
		{key: "EXTRACTVAL_VERBOSE", value: "1", wantKey: ""},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			got, _ := transformEnvKey(tt.key, tt.value)
			assert.Equal(t, tt.wantKey, got)
		})
	}
}
