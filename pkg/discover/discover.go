package discover

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/Masterminds/semver/v3"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/lunaryorn/homebins/pkg/manifest"
	"github.com/lunaryorn/homebins/pkg/paths"
)

// InstalledVersion discovers the installed version of the given manifest
// by running its binary with the version check arguments and extracting
// the version from the output.
//
// Returns nil if the binary doesn't exist or its output doesn't match
// the version check pattern; fails if the binary cannot be run or
// reports a version that doesn't parse.
func InstalledVersion(ctx context.Context, install paths.InstallDirs, m *manifest.Manifest) (*semver.Version, error) {
	binary := filepath.Join(install.Bin(), m.Discover.Binary)
	info, err := os.Stat(binary)
	if err != nil || !info.Mode().IsRegular() {
		return nil, nil
	}

	args := m.Discover.VersionCheck.Args
	output, err := exec.CommandContext(ctx, binary, args...).Output()
	if err != nil {
		// A non-zero exit doesn't matter as long as there is output to
		// match against; some tools print their version and then exit
		// with an error.
		var exitErr *exec.ExitError
		if !eris.As(err, &exitErr) {
			return nil, eris.Wrapf(err, "Failed to run %s with %v", binary, args)
		}
	}

	if !utf8.Valid(output) {
		return nil, eris.Errorf("Output of command %s with %v is not valid UTF-8", binary, args)
	}

	pattern, err := m.Discover.VersionCheck.Regexp()
	if err != nil {
		return nil, eris.Wrapf(err, "Version check for %s failed", m.Info.Name)
	}

	var raw string
	if match := pattern.FindStringSubmatch(string(output)); match != nil {
		// classes like [^ ] also match the trailing line break
		raw = strings.TrimSpace(match[1])
	}
	if raw == "" {
		log.Debug().
			Str("binary", binary).
			Str("pattern", pattern.String()).
			Msg("Version check output didn't match")
		return nil, nil
	}

	version, err := semver.NewVersion(raw)
	if err != nil {
		return nil, eris.Wrapf(err, "Output of command %s with %v contains invalid version %s", binary, args, raw)
	}

	return version, nil
}

// OutdatedVersion returns the installed version of the given manifest if
// it is older than the manifest version, nil otherwise.
func OutdatedVersion(ctx context.Context, install paths.InstallDirs, m *manifest.Manifest) (*semver.Version, error) {
	installed, err := InstalledVersion(ctx, install, m)
	if err != nil || installed == nil {
		return nil, err
	}

	available, err := m.Version()
	if err != nil {
		return nil, err
	}

	if installed.LessThan(available) {
		return installed, nil
	}
	return nil, nil
}

// Result is the outcome of probing one manifest.
type Result struct {
	Entry   manifest.Entry
	Version *semver.Version
}

// InstalledVersions probes all given manifests and returns those with an
// installed version, in input order.
func InstalledVersions(ctx context.Context, install paths.InstallDirs, entries []manifest.Entry, parallel int) ([]Result, error) {
	return probeAll(ctx, entries, parallel, func(ctx context.Context, m *manifest.Manifest) (*semver.Version, error) {
		return InstalledVersion(ctx, install, m)
	})
}

// OutdatedVersions probes all given manifests and returns those whose
// installed version is older than the manifest version, in input order.
func OutdatedVersions(ctx context.Context, install paths.InstallDirs, entries []manifest.Entry, parallel int) ([]Result, error) {
	return probeAll(ctx, entries, parallel, func(ctx context.Context, m *manifest.Manifest) (*semver.Version, error) {
		return OutdatedVersion(ctx, install, m)
	})
}

// probeAll runs probe for every entry, at most parallel at a time, and
// collects the entries the probe returned a version for.
func probeAll(ctx context.Context, entries []manifest.Entry, parallel int, probe func(context.Context, *manifest.Manifest) (*semver.Version, error)) ([]Result, error) {
	versions := make([]*semver.Version, len(entries))

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(parallel)
	for idx, entry := range entries {
		idx, entry := idx, entry
		group.Go(func() error {
			version, err := probe(ctx, entry.Manifest)
			if err != nil {
				return err
			}

			versions[idx] = version
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var results []Result
	for idx, version := range versions {
		if version != nil {
			results = append(results, Result{Entry: entries[idx], Version: version})
		}
	}
	return results, nil
}
