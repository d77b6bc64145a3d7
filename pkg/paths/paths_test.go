package paths_test

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunaryorn/homebins/pkg/paths"
)

func TestInstallDirsPath(t *testing.T) {
	t.Parallel()

	dirs := paths.NewInstallDirs("/home/user/.local")

	assert.Equal(t, "/home/user/.local/bin", dirs.Path(paths.Bin()))
	assert.Equal(t, "/home/user/.local/share/man/man1", dirs.Path(paths.Man(1)))
	assert.Equal(t, "/home/user/.local/share/man/man5", dirs.Path(paths.Man(5)))
	assert.Equal(t, "/home/user/.local/share/man", dirs.Man())
}

func TestDirectoryString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "bin", paths.Bin().String())
	assert.Equal(t, "man1", paths.Man(1).String())
	assert.Equal(t, "man8", paths.Man(8).String())
}

func TestNewProjectDirsHonorsXDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG base directories are only honored on Linux")
	}

	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg-config")
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")

	dirs, err := paths.NewProjectDirs()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/tmp/xdg-cache", "homebins"), dirs.Cache)
	assert.Equal(t, filepath.Join("/tmp/xdg-config", "homebins"), dirs.Config)
	assert.Equal(t, filepath.Join("/tmp/xdg-data", "homebins"), dirs.Data)
	assert.Equal(t, filepath.Join(dirs.Data, "state.db"), dirs.StateFile())
	assert.Equal(t, filepath.Join(dirs.Data, "repos", "manifests"), dirs.RepoDir("manifests"))
	assert.Equal(t, filepath.Join(dirs.Config, "config.toml"), dirs.ConfigFile())
	assert.Equal(t, []string{
		filepath.Join(dirs.Config, "config.toml"),
		filepath.Join(dirs.Config, "config.yaml"),
	}, dirs.ConfigFiles())
}

func TestOperationDirs(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG base directories are only honored on Linux")
	}

	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg-cache")

	dirs, err := paths.NewProjectDirs()
	require.NoError(t, err)

	ops := dirs.OperationDirs("ripgrep")
	assert.Equal(t, filepath.Join(dirs.Cache, "downloads", "ripgrep"), ops.Download)
	assert.Equal(t, filepath.Join(dirs.Cache, "work", "ripgrep"), ops.Work)
}

func TestOperationDirsEnsure(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	ops := paths.OperationDirs{
		Download: filepath.Join(tmp, "downloads", "rg"),
		Work:     filepath.Join(tmp, "work", "rg"),
	}
	require.NoError(t, ops.Ensure())

	assert.DirExists(t, ops.Download)
	assert.DirExists(t, ops.Work)
}
