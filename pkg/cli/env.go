package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/lunaryorn/homebins/pkg/env"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Check that $PATH and the manpath pick up the install directories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		warnings, err := env.Check(os.Stderr, app.Install)
		if err != nil {
			return err
		}

		if warnings == 0 {
			printTask("Environment ok: %s on $PATH, %s on manpath", app.Install.Bin(), app.Install.Man())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(envCmd)
}
