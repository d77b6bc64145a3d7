package cli

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/lunaryorn/homebins/pkg/config"
	"github.com/lunaryorn/homebins/pkg/manifest"
	"github.com/lunaryorn/homebins/pkg/operations"
	"github.com/lunaryorn/homebins/pkg/paths"
	"github.com/lunaryorn/homebins/pkg/repo"
	"github.com/lunaryorn/homebins/pkg/state"
)

// App bundles everything the subcommands work with. setup builds it
// before any subcommand runs.
type App struct {
	Config  *config.Config
	Project paths.ProjectDirs
	Install paths.InstallDirs
	Repos   *repo.Repos
	// Manifests is the configured local manifest directory, already
	// expanded; empty when none is configured.
	Manifests string

	client *http.Client
}

var app *App

// Store returns the manifest store over all synced repositories plus the
// configured local manifest directory, which takes precedence.
func (a *App) Store() *manifest.Store {
	dirs := a.Repos.ManifestDirs()
	if a.Manifests != "" {
		dirs = append(dirs, a.Manifests)
	}
	return manifest.NewStore(dirs...)
}

// OpsEnv returns the operation environment for the named manifest.
func (a *App) OpsEnv(name string) *operations.Env {
	return &operations.Env{
		Install: a.Install,
		Dirs:    a.Project.OperationDirs(name),
		Client:  a.client,
	}
}

// OpenLedger opens the install ledger. The ledger is advisory, so a
// ledger that can't be opened (another homebins holding the lock, a
// read-only data dir) only costs the cleanup of stale files; we warn and
// carry on without it.
func (a *App) OpenLedger() *state.Ledger {
	ledger, err := state.Open(a.Project.StateFile())
	if err != nil {
		log.Warn().Err(err).Msg("Continuing without the install ledger")
		return nil
	}
	return ledger
}
