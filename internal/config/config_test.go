package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "minishop", cfg.Service.Name)
	assert.Equal(t, BackendMemory, cfg.Repository.Backend)
	assert.Equal(t, "https://api.chapa.co", cfg.Chapa.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Chapa.Timeout)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, time.Minute, cfg.Reconciler.Interval)
	assert.Equal(t, "ETB", cfg.Store.Currency)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "minishop.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  addr: ":9000"
repository:
  backend: postgres
db:
  dsn: postgres://file
chapa:
  timeout: 5s
store:
  currency: usd
`), 0o600))

	t.Setenv("MINISHOP_DB_DSN", "postgres://env")
	t.Setenv("MINISHOP_CHAPA_SECRET_KEY", "CHASECK_TEST-abc")
	t.Setenv("MINISHOP_RECONCILER_GRACE", "90s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, BackendPostgres, cfg.Repository.Backend)
	assert.Equal(t, "postgres://env", cfg.DB.DSN)
	assert.Equal(t, "CHASECK_TEST-abc", cfg.Chapa.SecretKey)
	assert.Equal(t, 5*time.Second, cfg.Chapa.Timeout)
	assert.Equal(t, 90*time.Second, cfg.Reconciler.Grace)
	assert.Equal(t, "USD", cfg.Store.Currency)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	t.Setenv("MINISHOP_REPOSITORY_BACKEND", "postgres")
	_, err := Load("")
	require.ErrorIs(t, err, ErrInvalid)

	t.Setenv("MINISHOP_REPOSITORY_BACKEND", "sqlite")
	_, err = Load("")
	require.ErrorIs(t, err, ErrInvalid)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
