package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	body := "JWT_SECRET=from-file\nRULES_PROFILE=hard\nRULES_RELOAD_INTERVAL=5s\nALLOWED_ORIGINS=http://a.test,http://b.test\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.env"), []byte(body), 0o644))
	t.Setenv("HTTP_ADDR", ":7000")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.HTTPAddr)
	assert.Equal(t, ":9090", cfg.GRPCAddr)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, "hard", cfg.RulesProfile)
	assert.Equal(t, 5*time.Second, cfg.RulesReload)
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
}

func TestLoadWithoutFileUsesEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "env")
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "env", cfg.JWTSecret)
	assert.Equal(t, "default", cfg.RulesProfile)
}

func TestValidateCollects(t *testing.T) {
	err := Config{Store: "postgres", RulesReload: -time.Second}.Validate()
	require.Error(t, err)
	for _, want := range []string{"DATABASE_DSN", "JWT_SECRET", "RULES_RELOAD_INTERVAL"} {
		assert.Contains(t, err.Error(), want)
	}
}
