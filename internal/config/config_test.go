package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackfish212/assetfs/types"
)

func missingEnv(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(missingEnv(t))
	require.NoError(t, err)

	assert.Equal(t, types.FilesystemVirtual, cfg.FilesystemKind())
	assert.True(t, cfg.AllowPersistence)
	assert.True(t, cfg.LocalEnabled)
	assert.Equal(t, "/blob", cfg.BlobPrefix)
	assert.Equal(t, []string{".git/**", "node_modules/**"}, cfg.AssetIgnore)
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, filepath.Join(".assetfs", "virtual.db"), cfg.VirtualStorePath())
	assert.Equal(t, filepath.Join(".assetfs", "handles.db"), cfg.HandleStorePath())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ASSETFS_FILESYSTEM", "local")
	t.Setenv("ASSETFS_ALLOW_PERSISTENCE", "false")
	t.Setenv("ASSETFS_SERVER_PORT", "9999")
	t.Setenv("ASSETFS_LOG_LEVEL", "debug")
	t.Setenv("ASSETFS_ASSET_IGNORE", "dist/**")

	cfg, err := Load(missingEnv(t))
	require.NoError(t, err)
	assert.Equal(t, types.FilesystemLocal, cfg.FilesystemKind())
	assert.Equal(t, "", cfg.VirtualStorePath())
	assert.Equal(t, "", cfg.HandleStorePath())
	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"dist/**"}, cfg.AssetIgnore)
}

func TestLoadDotEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("ASSETFS_MULTIPLE_DROP=true\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("ASSETFS_MULTIPLE_DROP") })

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.True(t, cfg.MultipleDrop)
}

func TestLoadRejectsUnknownFilesystem(t *testing.T) {
	t.Setenv("ASSETFS_FILESYSTEM", "cloud")
	_, err := Load(missingEnv(t))
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestLoadRejectsBadBool(t *testing.T) {
	t.Setenv("ASSETFS_SNIFF", "sometimes")
	_, err := Load(missingEnv(t))
	assert.Error(t, err)
}
