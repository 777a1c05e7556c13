package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jackfish212/assetfs/assets"
	"github.com/jackfish212/assetfs/handles"
	"github.com/jackfish212/assetfs/internal/config"
	"github.com/jackfish212/assetfs/internal/testutil"
	"github.com/jackfish212/assetfs/types"
)

func writeSite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "img"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "img", "a.png"), []byte("png"), 0o644))
	return dir
}

func runMap(t *testing.T, args ...string) string {
	t.Helper()
	mapJSON, mapIgnore, mapSniff = false, nil, false
	c := mapCmd()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetArgs(args)
	require.NoError(t, c.ExecuteContext(context.Background()))
	return out.String()
}

func TestMapDirectory(t *testing.T) {
	out := runMap(t, writeSite(t))
	assert.Contains(t, out, "PATH")
	assert.Contains(t, out, "index.html")
	assert.Contains(t, out, "img/a.png")
	assert.Contains(t, out, "image/png")
}

func TestMapArchiveJSON(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "site.zip")
	data := testutil.BuildZip(t, map[string]string{"index.html": "<p>", "b.jpg": "jpg", ".git/HEAD": "ref"})
	require.NoError(t, os.WriteFile(zipPath, data, 0o644))

	out := runMap(t, "--json", "--ignore", ".git/**", zipPath)
	var entries []assets.Entry
	require.NoError(t, sonic.Unmarshal([]byte(out), &entries), out)
	require.Len(t, entries, 2)
	assert.Equal(t, "b.jpg", entries[0].Path)
	assert.Equal(t, "image/jpeg", entries[0].MimeType)
	assert.Equal(t, "index.html", entries[1].Path)
}

func TestMapMissingPath(t *testing.T) {
	mapJSON, mapIgnore, mapSniff = false, nil, false
	c := mapCmd()
	c.SetOut(&bytes.Buffer{})
	c.SetErr(&bytes.Buffer{})
	c.SetArgs([]string{filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, c.ExecuteContext(context.Background()))
}

func TestLoggerConfig(t *testing.T) {
	lc := loggerConfig(&config.Config{})
	assert.Equal(t, "info", lc.Level)
	assert.False(t, lc.Development)
	assert.Equal(t, []string{"stderr"}, lc.OutputPaths)

	lc = loggerConfig(&config.Config{Log: config.LogConfig{Level: "debug", Development: true}})
	assert.Equal(t, "debug", lc.Level)
	assert.True(t, lc.Development)
	assert.Equal(t, []string{"stderr"}, lc.OutputPaths)
}

func TestVersionCmd(t *testing.T) {
	versionJSON = false
	c := versionCmd()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetArgs(nil)
	require.NoError(t, c.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "assetfs "))
}

func TestAppPersistsAcrossRestarts(t *testing.T) {
	site := writeSite(t)
	cfg := &config.Config{
		Filesystem:       "local",
		AllowPersistence: true,
		DataDir:          filepath.Join(t.TempDir(), "data"),
		LocalEnabled:     true,
		BlobPrefix:       "/blob",
	}
	ctx := context.Background()

	a, err := newApp(cfg, zap.NewNop())
	require.NoError(t, err)
	dir, err := handles.OpenDirectory(site)
	require.NoError(t, err)
	require.NoError(t, a.manager.MountDirectory(ctx, dir))
	require.NoError(t, a.Close())

	a, err = newApp(cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.restore(ctx))

	st := a.manager.State()
	assert.Equal(t, types.FilesystemLocal, st.FilesystemType)
	assert.Equal(t, filepath.Base(site), st.DirectoryName)
	assert.Equal(t, 2, st.Count)
	assert.True(t, strings.HasPrefix(st.Map["index.html"], "/blob/"))
}

func TestAppVirtualStoreSurvivesRestart(t *testing.T) {
	cfg := &config.Config{
		Filesystem:       "virtual",
		AllowPersistence: true,
		DataDir:          filepath.Join(t.TempDir(), "data"),
		BlobPrefix:       "/blob",
	}
	ctx := context.Background()

	a, err := newApp(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, a.restore(ctx))
	require.NoError(t, a.manager.WriteFile(ctx, "index.html", []byte("<p>saved</p>")))
	require.NoError(t, a.Close())

	a, err = newApp(cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()
	require.NoError(t, a.restore(ctx))

	data, err := a.manager.ReadFile(ctx, "index.html")
	require.NoError(t, err)
	assert.Equal(t, "<p>saved</p>", string(data))
	assert.Equal(t, 1, a.manager.State().Count)
}
