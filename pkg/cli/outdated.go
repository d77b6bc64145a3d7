package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lunaryorn/homebins/pkg/discover"
)

var outdatedCmd = &cobra.Command{
	Use:   "outdated",
	Short: "List installed manifests with a newer version available",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := app.Store().All()
		if err != nil {
			return err
		}

		results, err := discover.OutdatedVersions(cmd.Context(), app.Install, entries, app.Config.Parallel)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, result := range results {
			info := result.Entry.Manifest.Info
			fmt.Fprintf(w, "%s\t%s\t%s\n", info.Name, result.Version, info.Version)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(outdatedCmd)
}
