package operations

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"github.com/lunaryorn/homebins/pkg/manifest"
	"github.com/lunaryorn/homebins/pkg/paths"
)

// Destination is the place a single installed file ends up at.
type Destination struct {
	Dir  paths.Directory
	Name string
}

// Path returns the absolute path of the destination under the given
// install dirs.
func (d Destination) Path(install paths.InstallDirs) string {
	return filepath.Join(install.Path(d.Dir), d.Name)
}

func (d Destination) String() string {
	return fmt.Sprintf("%s/%s", d.Dir, d.Name)
}

// Op is a single step of installing a manifest.
type Op interface {
	// Describe returns a short imperative description, e.g. "download
	// https://…".
	Describe() string
	Apply(ctx context.Context, env *Env) error
}

// Env carries the directories and clients operations run against.
type Env struct {
	Install paths.InstallDirs
	Dirs    paths.OperationDirs
	Client  *http.Client
	// Progress creates the progress bar for a long-running step. Leave
	// nil for the default terminal bar.
	Progress func(length int64, desc string) *progressbar.ProgressBar
}

var defaultClient = &http.Client{Timeout: 30 * time.Minute}

func (e *Env) client() *http.Client {
	if e.Client != nil {
		return e.Client
	}
	return defaultClient
}

func (e *Env) bar(length int64, desc string) *progressbar.ProgressBar {
	if e.Progress != nil {
		return e.Progress(length, desc)
	}
	return DefaultProgress(length, desc)
}

// DefaultProgress returns a byte progress bar, hidden on CI where the
// redraws just clutter the log.
func DefaultProgress(length int64, desc string) *progressbar.ProgressBar {
	if os.Getenv("CI") == "true" {
		return progressbar.NewOptions64(length, progressbar.OptionSetVisibility(false))
	}
	return progressbar.DefaultBytes(length, desc)
}

func modeFor(t manifest.FileType) os.FileMode {
	if t == manifest.TypeBin {
		return 0755
	}
	return 0644
}

// InstallPlan returns the operations that install the given manifest, in
// application order: per download a fetch, then either an unpack plus one
// install step per listed file, or a single install step for a bare
// binary.
func InstallPlan(m *manifest.Manifest) []Op {
	var ops []Op

	for _, dl := range m.Install {
		artifact := dl.FileName()
		ops = append(ops, &DownloadOp{URL: dl.Download, Artifact: artifact, Checksums: dl.Checksums})

		if len(dl.Files) > 0 {
			ops = append(ops, &UnpackOp{Artifact: artifact})
			for _, file := range dl.Files {
				ops = append(ops, &PlaceOp{
					Source:   file.Source,
					FromWork: true,
					Dest:     Destination{Dir: file.Directory(), Name: file.TargetName()},
					Mode:     modeFor(file.Type),
				})
			}
			continue
		}

		name := dl.BinaryName()
		dest := Destination{Dir: paths.Bin(), Name: name}
		if strings.HasSuffix(artifact, ".gz") {
			ops = append(ops,
				&GunzipOp{Artifact: artifact, Target: name},
				&PlaceOp{Source: name, FromWork: true, Dest: dest, Mode: 0755})
		} else {
			ops = append(ops, &PlaceOp{Source: artifact, Dest: dest, Mode: 0755})
		}
	}

	return ops
}

// Destinations returns the destinations of all files the install plan
// places.
func Destinations(m *manifest.Manifest) []Destination {
	var dests []Destination
	for _, op := range InstallPlan(m) {
		if place, ok := op.(*PlaceOp); ok {
			dests = append(dests, place.Dest)
		}
	}
	return dests
}

// RemovePlan returns the operations that remove an installed manifest.
func RemovePlan(m *manifest.Manifest) []RemoveOp {
	dests := Destinations(m)
	ops := make([]RemoveOp, len(dests))
	for idx, dest := range dests {
		ops[idx] = RemoveOp{Dest: dest}
	}
	return ops
}

// InstalledFiles returns all files installing the manifest would create.
func InstalledFiles(install paths.InstallDirs, m *manifest.Manifest) []string {
	dests := Destinations(m)
	files := make([]string, len(dests))
	for idx, dest := range dests {
		files[idx] = dest.Path(install)
	}
	return files
}

// FilesToRemove returns all files removing the manifest would delete.
func FilesToRemove(install paths.InstallDirs, m *manifest.Manifest) []string {
	ops := RemovePlan(m)
	files := make([]string, len(ops))
	for idx, op := range ops {
		files[idx] = op.Dest.Path(install)
	}
	return files
}

// Apply runs the given operations in order, stopping at the first
// failure.
func Apply(ctx context.Context, env *Env, ops []Op) error {
	if err := env.Dirs.Ensure(); err != nil {
		return err
	}

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return eris.Wrap(err, "Install aborted")
		}

		log.Debug().Str("op", op.Describe()).Msg("Applying operation")
		if err := op.Apply(ctx, env); err != nil {
			return eris.Wrapf(err, "Failed to %s", op.Describe())
		}
	}

	return nil
}

// RemoveOp deletes one installed file. Missing files are fine: remove is
// idempotent.
type RemoveOp struct {
	Dest Destination
}

func (o RemoveOp) Describe() string {
	return fmt.Sprintf("remove %s", o.Dest)
}

func (o RemoveOp) Apply(ctx context.Context, env *Env) error {
	path := o.Dest.Path(env.Install)
	err := os.Remove(path)
	if err != nil && !eris.Is(err, os.ErrNotExist) {
		return eris.Wrapf(err, "Failed to remove %s", path)
	}
	return nil
}
