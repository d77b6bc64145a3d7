package cli

import (
	"context"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lunaryorn/homebins/pkg/discover"
	"github.com/lunaryorn/homebins/pkg/env"
	"github.com/lunaryorn/homebins/pkg/manifest"
	"github.com/lunaryorn/homebins/pkg/operations"
	"github.com/lunaryorn/homebins/pkg/state"
)

var installCmd = &cobra.Command{
	Use:   "install [MANIFEST...]",
	Short: "Install manifests",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, err := cmd.Flags().GetBool("all")
		if err != nil {
			return err
		}
		force, err := cmd.Flags().GetBool("force")
		if err != nil {
			return err
		}

		if all && len(args) > 0 {
			return eris.New("Cannot combine --all with explicit manifest names")
		}
		if !all && len(args) == 0 {
			return eris.New("Nothing to install: name manifests or pass --all")
		}

		if _, err := env.Check(os.Stderr, app.Install); err != nil {
			log.Warn().Err(err).Msg("Environment check failed")
		}

		entries, err := selectEntries(app.Store(), args, all)
		if err != nil {
			return err
		}

		ledger := app.OpenLedger()
		if ledger != nil {
			defer ledger.Close()
		}

		for _, entry := range entries {
			if err := installOne(cmd.Context(), ledger, entry, force); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	installCmd.Flags().Bool("all", false, "Install all available manifests")
	installCmd.Flags().BoolP("force", "f", false, "Reinstall even when already up to date")
	rootCmd.AddCommand(installCmd)
}

// selectEntries resolves the install targets: every manifest with all,
// the named manifests otherwise.
func selectEntries(store *manifest.Store, names []string, all bool) ([]manifest.Entry, error) {
	if all {
		return store.All()
	}

	entries := make([]manifest.Entry, len(names))
	for idx, name := range names {
		entry, err := store.Get(name)
		if err != nil {
			return nil, err
		}
		entries[idx] = entry
	}
	return entries, nil
}

// installOne installs a single manifest unless the installed version is
// already up to date. Files a previous install produced that the current
// manifest no longer installs are cleaned up afterwards.
func installOne(ctx context.Context, ledger *state.Ledger, entry manifest.Entry, force bool) error {
	m := entry.Manifest
	available, err := m.Version()
	if err != nil {
		return err
	}

	installed, err := discover.InstalledVersion(ctx, app.Install, m)
	if err != nil {
		return err
	}
	if installed != nil && !installed.LessThan(available) && !force {
		printTask("%s %s is already installed", m.Info.Name, installed)
		return nil
	}

	printTask("Installing %s %s", m.Info.Name, available)

	var previous *state.Record
	if ledger != nil {
		if previous, err = ledger.Get(m.Info.Name); err != nil {
			return err
		}
	}

	opsEnv := app.OpsEnv(m.Info.Name)
	if err := operations.Apply(ctx, opsEnv, operations.InstallPlan(m)); err != nil {
		return err
	}

	files := operations.InstalledFiles(app.Install, m)
	for _, stale := range staleFiles(previous, files) {
		printSubtask("Removing stale %s", stale)
		if err := os.Remove(stale); err != nil && !eris.Is(err, os.ErrNotExist) {
			return eris.Wrapf(err, "Failed to remove stale file %s", stale)
		}
	}

	if ledger != nil {
		record := state.Record{
			Name:        m.Info.Name,
			Version:     available.String(),
			Files:       files,
			InstalledAt: time.Now().UTC(),
		}
		if err := ledger.Put(record); err != nil {
			return err
		}
	}

	printSubtask("Installed %s %s", m.Info.Name, available)
	return nil
}

// staleFiles returns the files of the previous install that the current
// install no longer produces.
func staleFiles(previous *state.Record, current []string) []string {
	if previous == nil {
		return nil
	}

	keep := make(map[string]bool, len(current))
	for _, file := range current {
		keep[file] = true
	}

	var stale []string
	for _, file := range previous.Files {
		if !keep[file] {
			stale = append(stale, file)
		}
	}
	return stale
}
