package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 10*time.Second, cfg.Store.Timeout)
	assert.Equal(t, 8, cfg.License.KeyGenMaxAttempts)
	assert.Equal(t, "licenses", cfg.Redis.KeyPrefix)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 5, cfg.RateLimit.Burst)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
store:
  driver: redis
  timeout: 3s
admin:
  apiKey: from-file
license:
  keyGenMaxAttempts: 3
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("ADMIN_APIKEY", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, DriverRedis, cfg.Store.Driver)
	assert.Equal(t, 3*time.Second, cfg.Store.Timeout)
	assert.Equal(t, 3, cfg.License.KeyGenMaxAttempts)
	assert.Equal(t, "from-env", cfg.Admin.APIKey)
}
