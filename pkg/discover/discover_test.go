package discover_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunaryorn/homebins/pkg/discover"
	"github.com/lunaryorn/homebins/pkg/manifest"
	"github.com/lunaryorn/homebins/pkg/paths"
)

// testInstallDirs creates install dirs with a bin directory to drop fake
// binaries into.
func testInstallDirs(t *testing.T) paths.InstallDirs {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("Fake binaries are shell scripts")
	}

	dirs := paths.NewInstallDirs(t.TempDir())
	require.NoError(t, os.MkdirAll(dirs.Bin(), 0755))
	return dirs
}

func writeBinary(t *testing.T, dirs paths.InstallDirs, name, script string) {
	t.Helper()

	path := filepath.Join(dirs.Bin(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0755))
}

func testManifest(name, binary, version, pattern string) *manifest.Manifest {
	return &manifest.Manifest{
		Info: manifest.Info{Name: name, Version: version},
		Discover: manifest.Discover{
			Binary: binary,
			VersionCheck: manifest.VersionCheck{
				Args:    []string{"--version"},
				Pattern: pattern,
			},
		},
	}
}

func TestInstalledVersion(t *testing.T) {
	t.Parallel()

	dirs := testInstallDirs(t)
	writeBinary(t, dirs, "rg", `echo "ripgrep 13.0.0 (rev abcdef)"`)

	m := testManifest("ripgrep", "rg", "13.0.0", `ripgrep ([0-9][^ ]*)`)
	version, err := discover.InstalledVersion(context.Background(), dirs, m)
	require.NoError(t, err)
	require.NotNil(t, version)
	assert.Equal(t, "13.0.0", version.String())
}

func TestInstalledVersionMissingBinary(t *testing.T) {
	t.Parallel()

	dirs := testInstallDirs(t)

	m := testManifest("ripgrep", "rg", "13.0.0", `ripgrep ([0-9][^ ]*)`)
	version, err := discover.InstalledVersion(context.Background(), dirs, m)
	require.NoError(t, err)
	assert.Nil(t, version)
}

func TestInstalledVersionNoMatch(t *testing.T) {
	t.Parallel()

	dirs := testInstallDirs(t)
	writeBinary(t, dirs, "rg", `echo "something else entirely"`)

	m := testManifest("ripgrep", "rg", "13.0.0", `ripgrep ([0-9][^ ]*)`)
	version, err := discover.InstalledVersion(context.Background(), dirs, m)
	require.NoError(t, err)
	assert.Nil(t, version)
}

func TestInstalledVersionAtEndOfLine(t *testing.T) {
	t.Parallel()

	dirs := testInstallDirs(t)
	writeBinary(t, dirs, "rg", `echo "ripgrep 13.0.0"`)

	// [^ ] matches the trailing line break, so the capture runs up to
	// the end of the output
	m := testManifest("ripgrep", "rg", "13.0.0", `ripgrep ([0-9][^ ]*)`)
	version, err := discover.InstalledVersion(context.Background(), dirs, m)
	require.NoError(t, err)
	require.NotNil(t, version)
	assert.Equal(t, "13.0.0", version.String())
}

func TestInstalledVersionWhitespaceCapture(t *testing.T) {
	t.Parallel()

	dirs := testInstallDirs(t)
	writeBinary(t, dirs, "rg", `echo "ripgrep 13.0.0"`)

	m := testManifest("ripgrep", "rg", "13.0.0", `ripgrep( ?)`)
	version, err := discover.InstalledVersion(context.Background(), dirs, m)
	require.NoError(t, err)
	assert.Nil(t, version)
}

func TestInstalledVersionToleratesExitCode(t *testing.T) {
	t.Parallel()

	dirs := testInstallDirs(t)
	writeBinary(t, dirs, "rg", `echo "ripgrep 13.0.0"; exit 2`)

	m := testManifest("ripgrep", "rg", "13.0.0", `ripgrep ([0-9][^ ]*)`)
	version, err := discover.InstalledVersion(context.Background(), dirs, m)
	require.NoError(t, err)
	require.NotNil(t, version)
	assert.Equal(t, "13.0.0", version.String())
}

func TestInstalledVersionSpawnFailure(t *testing.T) {
	t.Parallel()

	dirs := testInstallDirs(t)
	// present but not executable
	path := filepath.Join(dirs.Bin(), "rg")
	require.NoError(t, os.WriteFile(path, []byte("not a script"), 0644))

	m := testManifest("ripgrep", "rg", "13.0.0", `ripgrep ([0-9][^ ]*)`)
	_, err := discover.InstalledVersion(context.Background(), dirs, m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to run")
}

func TestInstalledVersionInvalidVersion(t *testing.T) {
	t.Parallel()

	dirs := testInstallDirs(t)
	writeBinary(t, dirs, "rg", `echo "ripgrep whatever"`)

	m := testManifest("ripgrep", "rg", "13.0.0", `ripgrep ([^ ]+)`)
	_, err := discover.InstalledVersion(context.Background(), dirs, m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid version")
}

func TestOutdatedVersion(t *testing.T) {
	t.Parallel()

	dirs := testInstallDirs(t)
	writeBinary(t, dirs, "rg", `echo "ripgrep 12.1.0"`)

	outdated := testManifest("ripgrep", "rg", "13.0.0", `ripgrep ([0-9][^ ]*)`)
	version, err := discover.OutdatedVersion(context.Background(), dirs, outdated)
	require.NoError(t, err)
	require.NotNil(t, version)
	assert.Equal(t, "12.1.0", version.String())

	current := testManifest("ripgrep", "rg", "12.1.0", `ripgrep ([0-9][^ ]*)`)
	version, err = discover.OutdatedVersion(context.Background(), dirs, current)
	require.NoError(t, err)
	assert.Nil(t, version)

	// an installed version that is newer than the manifest is not outdated
	older := testManifest("ripgrep", "rg", "12.0.0", `ripgrep ([0-9][^ ]*)`)
	version, err = discover.OutdatedVersion(context.Background(), dirs, older)
	require.NoError(t, err)
	assert.Nil(t, version)
}

func TestOutdatedVersionNotInstalled(t *testing.T) {
	t.Parallel()

	dirs := testInstallDirs(t)

	m := testManifest("ripgrep", "rg", "13.0.0", `ripgrep ([0-9][^ ]*)`)
	version, err := discover.OutdatedVersion(context.Background(), dirs, m)
	require.NoError(t, err)
	assert.Nil(t, version)
}

func TestInstalledVersions(t *testing.T) {
	t.Parallel()

	dirs := testInstallDirs(t)
	writeBinary(t, dirs, "rg", `echo "ripgrep 13.0.0"`)
	writeBinary(t, dirs, "fd", `echo "fd 8.2.1"`)

	entries := []manifest.Entry{
		{Manifest: testManifest("fd", "fd", "8.2.1", `fd ([0-9][^ ]*)`)},
		{Manifest: testManifest("hexyl", "hexyl", "0.9.0", `hexyl ([0-9][^ ]*)`)},
		{Manifest: testManifest("ripgrep", "rg", "13.0.0", `ripgrep ([0-9][^ ]*)`)},
	}

	results, err := discover.InstalledVersions(context.Background(), dirs, entries, 2)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "fd", results[0].Entry.Manifest.Info.Name)
	assert.Equal(t, "8.2.1", results[0].Version.String())
	assert.Equal(t, "ripgrep", results[1].Entry.Manifest.Info.Name)
	assert.Equal(t, "13.0.0", results[1].Version.String())
}

func TestOutdatedVersions(t *testing.T) {
	t.Parallel()

	dirs := testInstallDirs(t)
	writeBinary(t, dirs, "rg", `echo "ripgrep 12.0.0"`)
	writeBinary(t, dirs, "fd", `echo "fd 8.2.1"`)

	entries := []manifest.Entry{
		{Manifest: testManifest("fd", "fd", "8.2.1", `fd ([0-9][^ ]*)`)},
		{Manifest: testManifest("ripgrep", "rg", "13.0.0", `ripgrep ([0-9][^ ]*)`)},
	}

	results, err := discover.OutdatedVersions(context.Background(), dirs, entries, 2)
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, "ripgrep", results[0].Entry.Manifest.Info.Name)
	assert.Equal(t, "12.0.0", results[0].Version.String())
}
