package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setup runs as the persistent pre-run of every subcommand and must find
// the flags declared on the root command through the passed command.
func TestSetupReadsPersistentFlagsFromSubcommand(t *testing.T) {
	if _, err := os.UserHomeDir(); err != nil {
		t.Skip("No home directory in this environment")
	}

	root := t.TempDir()
	file := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(file, []byte(fmt.Sprintf("root = %q\n", root)), 0644))

	flags := rootCmd.PersistentFlags()
	require.NoError(t, flags.Set("config", file))
	require.NoError(t, flags.Set("parallel", "2"))
	t.Cleanup(func() {
		for name, value := range map[string]string{"config": "", "parallel": "0"} {
			flag := flags.Lookup(name)
			require.NoError(t, flag.Value.Set(value))
			flag.Changed = false
		}
	})

	require.NoError(t, setup(listCmd))

	assert.Equal(t, root, app.Config.Root)
	assert.Equal(t, root, app.Install.Root)
	assert.Equal(t, 2, app.Config.Parallel)
}
