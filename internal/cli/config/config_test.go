package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "layouts", cfg.Metamodel.LayoutDir)
	assert.Equal(t, language.English, cfg.Metamodel.Tag())
	assert.True(t, cfg.Metamodel.ValidateOnStartup)
	assert.Equal(t, StoreMemory, cfg.Memento.Store)
	assert.Equal(t, 30*time.Minute, cfg.Memento.TTL)
	assert.Equal(t, DriverMemory, cfg.Persistence.Driver)
	assert.Equal(t, 1, cfg.Persistence.RetryAttempts)
	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile("causeway.yaml", []byte(`
metamodel:
  ignored_packages: [github.com/acme/internal]
  layout_dir: ui/layouts
  locale: de
memento:
  store: redis
  ttl: 45m
  redis:
    addr: cache:6379
persistence:
  driver: sqlite3
  dsn: file:clinic.db
  retry_attempts: 3
server:
  port: 9000
  api_prefix: /api
logging:
  format: json
`), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{"github.com/acme/internal"}, cfg.Metamodel.IgnoredPackages)
	assert.Equal(t, "ui/layouts", cfg.Metamodel.LayoutDir)
	assert.Equal(t, language.German, cfg.Metamodel.Tag())
	assert.Equal(t, StoreRedis, cfg.Memento.Store)
	assert.Equal(t, 45*time.Minute, cfg.Memento.TTL)
	assert.Equal(t, "cache:6379", cfg.Memento.Redis.Addr)
	assert.Equal(t, "sqlite3", cfg.Persistence.Driver)
	assert.Equal(t, 3, cfg.Persistence.RetryAttempts)
	assert.Equal(t, "/api", cfg.Server.APIPrefix)
	assert.Equal(t, "json", cfg.Logging.Format)

	root, err := FindProjectRoot()
	require.NoError(t, err)
	want, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(root)
	assert.Equal(t, want, got)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server:\n  port: 9000\n"), 0o644))
	t.Setenv("CAUSEWAY_SERVER_PORT", "9100")
	t.Setenv("CAUSEWAY_SERVER_JWT_SECRET", "s3cret")
	t.Setenv("CAUSEWAY_MEMENTO_TTL", "5m")

	cfg, err := Load(file)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "s3cret", cfg.Server.JWTSecret)
	assert.Equal(t, 5*time.Minute, cfg.Memento.TTL)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		chdir(t, t.TempDir())
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"bad locale", func(c *Config) { c.Metamodel.Locale = "not a locale" }, "metamodel.locale"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad store", func(c *Config) { c.Memento.Store = "disk" }, "memento.store"},
		{"redis without addr", func(c *Config) { c.Memento.Store = StoreRedis; c.Memento.Redis.Addr = "" }, "memento.redis.addr"},
		{"zero ttl", func(c *Config) { c.Memento.TTL = 0 }, "memento.ttl"},
		{"bad driver", func(c *Config) { c.Persistence.Driver = "mysql" }, "persistence.driver"},
		{"sql without dsn", func(c *Config) { c.Persistence.Driver = "pgx" }, "persistence.dsn"},
		{"no attempts", func(c *Config) { c.Persistence.RetryAttempts = 0 }, "retry_attempts"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"prefix without slash", func(c *Config) { c.Server.APIPrefix = "api" }, "must start with '/'"},
		{"prefix with trailing slash", func(c *Config) { c.Server.APIPrefix = "/api/" }, "must not end with '/'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}
