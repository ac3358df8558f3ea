package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultNamespace, cfg.Namespace)
	assert.Equal(t, ProviderMemory, cfg.Provider)
	assert.NotEmpty(t, cfg.SQLite.Path)
	assert.NotEmpty(t, cfg.Blob.Root)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "graft init")
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteDefault(dir))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.Namespace)
	assert.Equal(t, ProviderSQLite, cfg.Provider)
	assert.Equal(t, ".graft/graft.db", cfg.SQLite.Path)
	assert.True(t, cfg.Durability.WALEnabled)
	assert.False(t, cfg.Durability.SnapshotTimestamped)
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteDefault(dir))

	t.Setenv("GRAFT_NAMESPACE", "staging")
	t.Setenv("GRAFT_PROVIDER", "http")
	t.Setenv("GRAFT_HTTP_BASE_URL", "http://localhost:8080")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Namespace)
	assert.Equal(t, ProviderHTTP, cfg.Provider)
	assert.Equal(t, "http://localhost:8080", cfg.HTTP.BaseURL)
}

func TestLoad_InvalidProvider(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, DefaultConfigDir), 0755))
	file := filepath.Join(dir, DefaultConfigDir, DefaultConfigFile)
	require.NoError(t, os.WriteFile(file, []byte("provider: postgres\n"), 0644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestValidate_HTTPNeedsBaseURL(t *testing.T) {
	cfg := Default()
	cfg.Provider = ProviderHTTP
	assert.Error(t, cfg.Validate())

	cfg.HTTP.BaseURL = "http://localhost:8080"
	assert.NoError(t, cfg.Validate())
}

func TestWriteDefault_RefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteDefault(dir))
	assert.True(t, Exists(dir))

	err := WriteDefault(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestWrite_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Namespace = "prod"
	cfg.Provider = ProviderSQLite
	cfg.Durability.WALEnabled = true
	require.NoError(t, Write(dir, cfg))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "prod", loaded.Namespace)
	assert.Equal(t, ProviderSQLite, loaded.Provider)
	assert.True(t, loaded.Durability.WALEnabled)
}
