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
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "campus-events", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, 12*time.Hour, cfg.JWT.TokenTTL)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=campus_events sslmode=disable", cfg.Database.DSN())
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORAGE_DRIVER", "MEMORY")
	t.Setenv("APP_TIMEZONE", "Asia/Kuala_Lumpur")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	loc, err := cfg.App.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kuala_Lumpur", loc.String())
}

func TestLoadWithPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_ISSUER=campus-test\nLOG_LEVEL=debug\n"), 0o600))

	cfg, err := LoadWithPath(path)
	require.NoError(t, err)
	assert.Equal(t, "campus-test", cfg.JWT.Issuer)
	assert.Equal(t, "debug", cfg.Log.Level)

	_, err = LoadWithPath(filepath.Join(dir, "missing.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:      AppConfig{Name: "campus-events", Environment: "development"},
			Server:   ServerConfig{Port: 8080},
			Database: DatabaseConfig{Host: "localhost", DBName: "campus_events"},
			Storage:  StorageConfig{Driver: DriverPostgres},
			JWT:      JWTConfig{Secret: "s3cret", TokenTTL: time.Hour},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "missing db host", mutate: func(c *Config) { c.Database.Host = "" }, wantErr: true},
		{name: "memory driver ignores db", mutate: func(c *Config) { c.Storage.Driver = DriverMemory; c.Database.Host = "" }},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "sqlite" }, wantErr: true},
		{name: "bad timezone", mutate: func(c *Config) { c.App.Timezone = "Mars/Olympus" }, wantErr: true},
		{name: "default secret in production", mutate: func(c *Config) {
			c.App.Environment = "production"
			c.JWT.Secret = defaultJWTSecret
		}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			if tt.wantErr {
				assert.Error(t, c.Validate())
			} else {
				assert.NoError(t, c.Validate())
			}
		})
	}
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for the Go 1.21 toolchain.
func chdir(t *testing.T, dir string) {
	t.Helper()
	oldwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(oldwd); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
