package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
service:
  name: test-gw
secrets:
  backend: static
  static:
    acme-main:
      github: topsecret
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test-gw", cfg.Service.Name)
	assert.Equal(t, "INFO", cfg.Service.LogLevel)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Listen)
	assert.Equal(t, "static", cfg.Secrets.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Secrets.Cache.TTL)
	assert.Equal(t, "topsecret", cfg.Secrets.Static["acme-main"]["github"])
	assert.False(t, cfg.Auth.DevMode.Enabled)
	assert.Equal(t, 60, cfg.Auth.DevMode.TokenExpiryMinutes)
}

func TestLoadEnvExpansion(t *testing.T) {
	t.Setenv("TEST_GW_SECRET", "from-env")

	dir := t.TempDir()
	path := writeConfig(t, dir, `
secrets:
  backend: static
  static:
    acme-main:
      github: ${TEST_GW_SECRET}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Secrets.Static["acme-main"]["github"])
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "bad secrets backend",
			content: `
secrets:
  backend: vault
`,
			wantErr: "secrets.backend",
		},
		{
			name: "remote backend without base url",
			content: `
secrets:
  backend: remote
`,
			wantErr: "secrets.remote.base_url",
		},
		{
			name: "redis cache without addr",
			content: `
secrets:
  backend: static
  cache:
    backend: redis
`,
			wantErr: "redis_addr",
		},
		{
			name: "dev mode without fixed secret",
			content: `
auth:
  dev_mode:
    enabled: true
secrets:
  backend: static
`,
			wantErr: "fixed_secret",
		},
		{
			name: "token without subject",
			content: `
auth:
  tokens:
    - token: abc123
secrets:
  backend: static
`,
			wantErr: "subject",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeConfig(t, dir, tt.content)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestParseMaxBodySize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"", DefaultMaxBodySize, false},
		{"1MB", 1048576, false},
		{"512KB", 524288, false},
		{"1GB", 1073741824, false},
		{"2048", 2048, false},
		{"0", 0, true},
		{"-1MB", 0, true},
		{"huge", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMaxBodySize(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
