package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/lunaryorn/homebins/pkg/config"
	"github.com/lunaryorn/homebins/pkg/paths"
	"github.com/lunaryorn/homebins/pkg/repo"
)

var rootCmd = &cobra.Command{
	Use:   "homebins",
	Short: "Install binaries to $HOME",
	Long: `homebins installs single-binary tools and their manpages into your home
directory, driven by declarative manifests from manifest repositories.

Not a package manager: there is no database of installed packages, versions
are discovered by running the installed binaries themselves.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringP("config", "c", "", "Configuration file to load instead of the default")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.Bool("json-log", false, "Output JSON log messages instead of pretty console output")
	flags.Int("parallel", 0, "Concurrent version checks")
}

// Execute runs the homebins command line.
func Execute(ctx context.Context) {
	cobra.CheckErr(rootCmd.ExecuteContext(ctx))
}

// setup loads the configuration, initializes logging and builds the App
// the subcommands work with. The flags live on the root command; going
// through cmd keeps setup out of rootCmd's own initialization.
func setup(cmd *cobra.Command) error {
	project, err := paths.NewProjectDirs()
	if err != nil {
		return err
	}

	flags := cmd.Root().PersistentFlags()

	files := project.ConfigFiles()
	configFile, err := flags.GetString("config")
	if err != nil {
		return err
	}
	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return eris.Wrapf(err, "Cannot read configuration file %s", configFile)
		}
		files = []string{configFile}
	}

	cfg, loader := config.Loader(files...)
	if err := loader.Load(); err != nil {
		return eris.Wrap(err, "Failed to load configuration")
	}

	if flags.Changed("log-level") {
		if cfg.Log.Level, err = flags.GetString("log-level"); err != nil {
			return err
		}
	}
	if flags.Changed("json-log") {
		if cfg.Log.JSON, err = flags.GetBool("json-log"); err != nil {
			return err
		}
	}
	if flags.Changed("parallel") {
		if cfg.Parallel, err = flags.GetInt("parallel"); err != nil {
			return err
		}
	}

	if cfg.Log.JSON {
		zerolog.ErrorStackMarshaler = func(err error) interface{} {
			return eris.ToJSON(err, true)
		}
	} else {
		log.Logger = log.Output(consoleWriter(os.Stderr))
		zerolog.ErrorStackMarshaler = func(err error) interface{} {
			return eris.ToString(err, true)
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	zerolog.SetGlobalLevel(cfg.LogLevel())
	log.Logger = log.Logger.With().Stack().Logger()

	install, err := cfg.InstallDirs()
	if err != nil {
		return err
	}
	manifests, err := cfg.ManifestDir()
	if err != nil {
		return err
	}
	repos, err := cfg.RepoList()
	if err != nil {
		return err
	}

	app = &App{
		Config:    cfg,
		Project:   project,
		Install:   install,
		Repos:     repo.New(project, repos),
		Manifests: manifests,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
	return nil
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	writer := zerolog.ConsoleWriter{Out: out}
	writer.TimeFormat = "15:04:05"

	writer.FormatFieldValue = func(value interface{}) string {
		str, ok := value.(string)
		if ok && strings.Contains(str, "\\n") && strings.Contains(str, "\\t") {
			// unquote values that contain line breaks and tabs because
			// they're most likely stack traces
			if unquoted, err := strconv.Unquote(str); err == nil {
				return unquoted
			}
		}

		return fmt.Sprintf("%s", value)
	}
	return writer
}
