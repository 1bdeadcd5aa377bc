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
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, c.GitHub.BaseURL)
	assert.Equal(t, DefaultRepo, c.Repo)
	assert.Equal(t, DefaultInterval, c.Retry.PollInterval)
	assert.Equal(t, DefaultRerunDelay, c.Retry.RerunDelay)
	assert.Empty(t, c.Cache.Path)
}

func TestLoad_FromYAMLAndEnvOverride(t *testing.T) {
	tmp := t.TempDir()
	cfgFile := filepath.Join(tmp, "config.yaml")

	yaml := `
github:
  base_url: https://github.example.com/api/v3
  token: token-yaml
  timeout: 5s

repo: acme/widgets

retry:
  poll_interval: 10s
  rerun_delay: 2s
`
	require.NoError(t, os.WriteFile(cfgFile, []byte(yaml), 0644))

	t.Setenv("GITHUB_TOKEN", "token-env")

	c, err := Load(cfgFile)
	require.NoError(t, err)

	assert.Equal(t, "token-env", c.GitHub.Token, "env must override yaml")
	assert.Equal(t, "https://github.example.com/api/v3", c.GitHub.BaseURL)
	assert.Equal(t, "acme/widgets", c.Repo)
	assert.Equal(t, 10*time.Second, c.Retry.PollInterval)
	assert.Equal(t, 2*time.Second, c.Retry.RerunDelay)
	assert.Equal(t, 5*time.Second, c.GitHub.Timeout)
}

func TestLoad_EnvIntervalOverride(t *testing.T) {
	t.Setenv("CHECKRETRY_INTERVAL", "90s")
	t.Setenv("CHECKRETRY_REPO", "acme/other")

	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, c.Retry.PollInterval)
	assert.Equal(t, "acme/other", c.Repo)
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultRepo, c.Repo)
}
