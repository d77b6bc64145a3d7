package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lunaryorn/homebins/pkg/discover"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Sync manifest repositories and show outdated installs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		install, err := cmd.Flags().GetBool("install")
		if err != nil {
			return err
		}

		printTask("Syncing manifest repositories")
		if err := app.Repos.Sync(cmd.Context()); err != nil {
			return err
		}

		entries, err := app.Store().All()
		if err != nil {
			return err
		}

		results, err := discover.OutdatedVersions(cmd.Context(), app.Install, entries, app.Config.Parallel)
		if err != nil {
			return err
		}

		if len(results) == 0 {
			printTask("Everything is up to date")
			return nil
		}

		if !install {
			printTask("Outdated:")
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, result := range results {
				info := result.Entry.Manifest.Info
				fmt.Fprintf(w, "%s\t%s -> %s\n", info.Name, result.Version, info.Version)
			}
			return w.Flush()
		}

		ledger := app.OpenLedger()
		if ledger != nil {
			defer ledger.Close()
		}
		for _, result := range results {
			if err := installOne(cmd.Context(), ledger, result.Entry, false); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	updateCmd.Flags().BoolP("install", "i", false, "Install outdated manifests after syncing")
	rootCmd.AddCommand(updateCmd)
}
