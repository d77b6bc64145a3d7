package cli

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest MANIFEST",
	Short: "Print the manifest for a name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entry, err := app.Store().Get(args[0])
		if err != nil {
			return err
		}

		data, err := os.ReadFile(entry.Path)
		if err != nil {
			return eris.Wrapf(err, "Failed to read manifest %s", entry.Path)
		}

		_, err = os.Stdout.Write(data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(manifestCmd)
}
