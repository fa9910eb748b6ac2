package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()

	assert.Equal(t, ":8080", c.HTTP.Addr)
	assert.Equal(t, 30*time.Minute, c.Auth.AccessTTL)
	assert.Equal(t, 24*time.Hour, c.Auth.RefreshTTL)
	assert.True(t, c.Auth.AllowRegistration)
	assert.Equal(t, "INV-", c.Registry.StockPrefix)
	assert.False(t, c.Inventory.ProtectNonZeroDelete)
	require.NoError(t, c.Validate())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "popis.yaml")
	content := `
http:
  addr: ":9090"
  cors_origins: ["https://inventory.example.com"]
inventory:
  protect_nonzero_delete: true
registry:
  stock_prefix: "ACME-"
auth:
  access_ttl: 15m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", c.HTTP.Addr)
	assert.Equal(t, []string{"https://inventory.example.com"}, c.HTTP.CORSOrigins)
	assert.True(t, c.Inventory.ProtectNonZeroDelete)
	assert.Equal(t, "ACME-", c.Registry.StockPrefix)
	assert.Equal(t, 15*time.Minute, c.Auth.AccessTTL)
	// Untouched keys keep their defaults.
	assert.Equal(t, 24*time.Hour, c.Auth.RefreshTTL)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("POPIS_DATABASE_PATH", "/tmp/override.sqlite3")
	t.Setenv("POPIS_AUTH_ALLOW_REGISTRATION", "false")

	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/override.sqlite3", c.Database.Path)
	assert.False(t, c.Auth.AllowRegistration)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	c := Default()
	c.Log.Level = "verbose"
	c.Auth.RefreshTTL = time.Minute
	c.Registry.StockPrefix = ""

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log.level")
	assert.Contains(t, err.Error(), "refresh_ttl")
	assert.Contains(t, err.Error(), "stock_prefix")
}
