package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lunaryorn/homebins/pkg/discover"
)

var installedCmd = &cobra.Command{
	Use:   "installed",
	Short: "List installed manifests and their versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := app.Store().All()
		if err != nil {
			return err
		}

		results, err := discover.InstalledVersions(cmd.Context(), app.Install, entries, app.Config.Parallel)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, result := range results {
			fmt.Fprintf(w, "%s\t%s\n", result.Entry.Manifest.Info.Name, result.Version)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(installedCmd)
}
