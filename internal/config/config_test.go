package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.Server.URL)
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	assert.NotEmpty(t, cfg.Session.CredentialsFile)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Output.Colors)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("DOJOCTL_SERVER_URL", "https://dojo.example.com")
	t.Setenv("DOJOCTL_LOGGING_LEVEL", "debug")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "https://dojo.example.com", cfg.Server.URL)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dojoctl.yaml")
	content := `
server:
  url: https://dojo.example.com
  timeout: 10s
session:
  credentials_file: /tmp/creds.json
logging:
  level: warn
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "https://dojo.example.com", cfg.Server.URL)
	assert.Equal(t, 10*time.Second, cfg.Server.Timeout)
	assert.Equal(t, "/tmp/creds.json", cfg.Session.CredentialsFile)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_InvalidServerURL(t *testing.T) {
	t.Setenv("DOJOCTL_SERVER_URL", "ftp://dojo.example.com")

	_, err := Load("")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheme must be http or https")
}

func TestValidateServerURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "valid http", url: "http://localhost:8080"},
		{name: "valid https", url: "https://dojo.example.com"},
		{name: "empty", url: "", wantErr: true},
		{name: "missing scheme", url: "dojo.example.com", wantErr: true},
		{name: "bad scheme", url: "ftp://dojo.example.com", wantErr: true},
		{name: "missing host", url: "http://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateServerURL(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPlaintextWarning(t *testing.T) {
	insecure := &Config{Server: ServerConfig{URL: "http://localhost:8080"}}
	assert.NotEmpty(t, insecure.PlaintextWarning())

	secure := &Config{Server: ServerConfig{URL: "https://dojo.example.com"}}
	assert.Empty(t, secure.PlaintextWarning())
}
