package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	pg := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss", Name: "app"}
	assert.Equal(t, "postgres://u:p%40ss@db:5432/app?sslmode=disable", pg.DSN())

	pg.SSLMode = "require"
	assert.Equal(t, "postgres://u:p%40ss@db:5432/app?sslmode=require", pg.DSN())

	pg.URL = "postgres://explicit"
	assert.Equal(t, "postgres://explicit", pg.DSN())

	lite := DatabaseConfig{Driver: "sqlite", Path: "./data", Name: "admin"}
	assert.Equal(t, "./data/admin.db", lite.DSN())
	lite.Name = ":memory:"
	assert.Equal(t, ":memory:", lite.DSN())
}

func TestWarnings(t *testing.T) {
	assert.Empty(t, DatabaseConfig{Driver: "sqlite"}.Warnings())
	assert.Len(t, DatabaseConfig{Driver: "postgres"}.Warnings(), 1)

	direct := DatabaseConfig{Driver: "postgres", URL: "postgresql://postgres:pw@db.abcd.supabase.co:5432/postgres"}
	require.Len(t, direct.Warnings(), 1)
	assert.Contains(t, direct.Warnings()[0], "pooler")

	pooled := DatabaseConfig{Driver: "postgres", URL: "postgresql://postgres.abcd:pw@aws-0.pooler.supabase.com:6543/postgres"}
	assert.Empty(t, pooled.Warnings())
}

func TestIsDevelopment(t *testing.T) {
	assert.True(t, (&Config{}).IsDevelopment())
	assert.True(t, (&Config{Environment: "development"}).IsDevelopment())
	assert.False(t, (&Config{Environment: "production"}).IsDevelopment())
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 100, cfg.Query.DefaultLimit)
	assert.Equal(t, 1000, cfg.Query.MaxLimit)
	assert.Equal(t, 4, cfg.Notifications.Concurrency)
	assert.True(t, cfg.Auth.PublicAccountDeletion)
	assert.Empty(t, cfg.Auth.RequiredRole)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	yaml := `
environment: production
server:
  port: 8080
database:
  driver: sqlite
  name: admin
query:
  max_limit: 50
auth:
  required_role: admin
  public_account_deletion: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.yaml"), []byte(yaml), 0o644))
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://from-env")
	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "postgres://from-env", cfg.Database.URL)
	assert.Equal(t, "env-secret", cfg.JWTSecret)
	assert.Equal(t, 50, cfg.Query.MaxLimit)
	assert.Equal(t, "admin", cfg.Auth.RequiredRole)
	assert.False(t, cfg.Auth.PublicAccountDeletion)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.yaml"), []byte("server: [unclosed"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}
