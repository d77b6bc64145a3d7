package cli

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/lunaryorn/homebins/pkg/manifest"
	"github.com/lunaryorn/homebins/pkg/operations"
	"github.com/lunaryorn/homebins/pkg/state"
)

var removeCmd = &cobra.Command{
	Use:     "remove MANIFEST...",
	Aliases: []string{"uninstall"},
	Short:   "Remove installed manifests",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ledger := app.OpenLedger()
		if ledger != nil {
			defer ledger.Close()
		}

		store := app.Store()
		for _, name := range args {
			if err := removeOne(ledger, store, name); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func removeOne(ledger *state.Ledger, store *manifest.Store, name string) error {
	files, err := filesToRemove(ledger, store, name)
	if err != nil {
		return err
	}

	printTask("Removing %s", name)
	for _, file := range files {
		if err := os.Remove(file); err != nil && !eris.Is(err, os.ErrNotExist) {
			return eris.Wrapf(err, "Failed to remove %s", file)
		}
		printSubtask("Removed %s", file)
	}

	if ledger != nil {
		return ledger.Delete(name)
	}
	return nil
}

// filesToRemove prefers the ledger record, which knows what an older
// manifest version actually installed; without one the current manifest
// decides.
func filesToRemove(ledger *state.Ledger, store *manifest.Store, name string) ([]string, error) {
	if ledger != nil {
		record, err := ledger.Get(name)
		if err != nil {
			return nil, err
		}
		if record != nil {
			return record.Files, nil
		}
	}

	entry, err := store.Get(name)
	if err != nil {
		return nil, err
	}
	return operations.FilesToRemove(app.Install, entry.Manifest), nil
}
