package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lunaryorn/homebins/pkg/operations"
)

var filesCmd = &cobra.Command{
	Use:   "files MANIFEST...",
	Short: "List the files a manifest installs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := app.Store()
		for _, name := range args {
			entry, err := store.Get(name)
			if err != nil {
				return err
			}

			for _, file := range operations.InstalledFiles(app.Install, entry.Manifest) {
				fmt.Println(file)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(filesCmd)
}
