package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/descartecerto/internal/config"
)

// writeProjectConfig creates root/.descarte/config.yaml with content.
func writeProjectConfig(t *testing.T, root, content string) string {
	t.Helper()
	dir := filepath.Join(root, ".descarte")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	return dir
}

func TestResolveProjectDir(t *testing.T) {
	ctx := context.Background()

	t.Run("flag wins over env", func(t *testing.T) {
		flagDir := t.TempDir()
		t.Setenv("DESCARTE_PROJECT_DIR", t.TempDir())

		got := config.ResolveProjectDir(ctx, flagDir, "/does/not/matter")
		assert.Equal(t, filepath.Join(flagDir, ".descarte"), got)
	})

	t.Run("env override", func(t *testing.T) {
		envDir := t.TempDir()
		t.Setenv("DESCARTE_PROJECT_DIR", envDir)

		got := config.ResolveProjectDir(ctx, "", "/does/not/matter")
		assert.Equal(t, filepath.Join(envDir, ".descarte"), got)
	})

	t.Run("suffix not doubled", func(t *testing.T) {
		t.Setenv("DESCARTE_PROJECT_DIR", "")
		got := config.ResolveProjectDir(ctx, "/srv/escola/.descarte", "")
		assert.Equal(t, "/srv/escola/.descarte", got)
	})

	t.Run("relative flag made absolute", func(t *testing.T) {
		t.Setenv("DESCARTE_PROJECT_DIR", "")
		got := config.ResolveProjectDir(ctx, "relative/path", "")
		assert.True(t, filepath.IsAbs(got))
	})

	t.Run("walks up to nearest project", func(t *testing.T) {
		t.Setenv("DESCARTE_PROJECT_DIR", "")
		root := t.TempDir()
		writeProjectConfig(t, root, "logging:\n  level: debug\n")
		inner := filepath.Join(root, "a")
		want := writeProjectConfig(t, inner, "logging:\n  level: warn\n")
		start := filepath.Join(inner, "b", "c")
		require.NoError(t, os.MkdirAll(start, 0o755))

		assert.Equal(t, want, config.ResolveProjectDir(ctx, "", start))
	})

	t.Run("no project found", func(t *testing.T) {
		t.Setenv("DESCARTE_PROJECT_DIR", "")
		assert.Empty(t, config.ResolveProjectDir(ctx, "", t.TempDir()))
		assert.Empty(t, config.ResolveProjectDir(ctx, "", ""))
	})
}

func TestResolvedProjectDir_RoundTrip(t *testing.T) {
	orig := config.GetResolvedProjectDir()
	t.Cleanup(func() { config.SetResolvedProjectDir(orig) })

	config.SetResolvedProjectDir("/srv/escola/.descarte")
	assert.Equal(t, "/srv/escola/.descarte", config.GetResolvedProjectDir())
}

func TestNewWithProjectDir(t *testing.T) {
	ctx := context.Background()

	t.Run("empty dir behaves like New", func(t *testing.T) {
		isolateEnv(t)
		assert.Equal(t, config.New(), config.NewWithProjectDir(ctx, ""))
	})

	t.Run("missing config keeps global", func(t *testing.T) {
		isolateEnv(t)
		assert.Equal(t, config.New(), config.NewWithProjectDir(ctx, t.TempDir()))
	})

	t.Run("corrupted overlay keeps global", func(t *testing.T) {
		isolateEnv(t)
		dir := writeProjectConfig(t, t.TempDir(), "impact: [broken")
		assert.Equal(t, config.New(), config.NewWithProjectDir(ctx, dir))
	})

	t.Run("env beats project overlay", func(t *testing.T) {
		isolateEnv(t)
		dir := writeProjectConfig(t, t.TempDir(), "logging:\n  level: warn\n  format: console\n")
		t.Setenv("DESCARTE_LOG_LEVEL", "error")

		cfg := config.NewWithProjectDir(ctx, dir)
		assert.Equal(t, "error", cfg.Logging.Level)
		assert.Equal(t, "console", cfg.Logging.Format)
	})
}
