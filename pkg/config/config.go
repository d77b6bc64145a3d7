package config

import (
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigtoml"
	"github.com/cristalhq/aconfig/aconfigyaml"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/lunaryorn/homebins/pkg/paths"
	"github.com/lunaryorn/homebins/pkg/repo"
)

// DefaultRepo is the manifest repository used when none is configured.
const DefaultRepo = "https://github.com/lunaryorn/homebins-manifests.git"

// Config describes all configuration options
type Config struct {
	Root      string        `default:"~/.local" usage:"Directory to install binaries and manpages under"`
	Repos     []string      `default:"https://github.com/lunaryorn/homebins-manifests.git" usage:"Manifest repositories to sync (git URL, or name=url)"`
	Manifests string        `usage:"Additional local directory with manifests"`
	Parallel  int           `default:"4" usage:"Concurrent version checks"`
	Timeout   time.Duration `default:"30m" usage:"Timeout for a single download"`
	Log       struct {
		Level string `default:"info"`
		JSON  bool   `default:"false" usage:"Output JSON instead of pretty console messages"`
	}
}

var logLevels = map[string]zerolog.Level{
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
	"fatal":   zerolog.FatalLevel,
}

// Loader initializes an empty config object and returns a new Loader for
// this object. The given files are tried in order and the first one that
// exists is loaded; no file at all is fine, the defaults cover a fresh
// setup. Flags are left to the CLI.
func Loader(files ...string) (*Config, *aconfig.Loader) {
	cfg := Config{}
	return &cfg, aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "HOMEBINS",
		SkipFlags: true,
		Files:     files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".toml": aconfigtoml.New(),
			".yaml": aconfigyaml.New(),
		},
	})
}

// Validate verifies that all config fields have valid values
func (cfg *Config) Validate() error {
	_, ok := logLevels[cfg.Log.Level]
	if !ok {
		return eris.Errorf(`Invalid value for log.level: %s`, cfg.Log.Level)
	}

	if cfg.Parallel < 1 {
		return eris.Errorf(`Invalid value for parallel: %d (must be at least 1)`, cfg.Parallel)
	}

	if cfg.Timeout <= 0 {
		return eris.Errorf(`Invalid value for timeout: %s`, cfg.Timeout)
	}

	if _, err := cfg.InstallDirs(); err != nil {
		return err
	}

	if _, err := cfg.ManifestDir(); err != nil {
		return err
	}

	if _, err := cfg.RepoList(); err != nil {
		return err
	}

	return nil
}

// LogLevel converts the .Log.Level field to a zerolog.Level
func (cfg *Config) LogLevel() zerolog.Level {
	return logLevels[cfg.Log.Level]
}

// InstallDirs returns the install directories under the configured root,
// with a leading ~ expanded.
func (cfg *Config) InstallDirs() (paths.InstallDirs, error) {
	if cfg.Root == "" {
		return paths.InstallDirs{}, eris.New(`Invalid value for root: must not be empty`)
	}

	root, err := homedir.Expand(cfg.Root)
	if err != nil {
		return paths.InstallDirs{}, eris.Wrapf(err, `Invalid value for root: %s`, cfg.Root)
	}

	return paths.NewInstallDirs(root), nil
}

// ManifestDir returns the configured local manifest directory with a
// leading ~ expanded, or an empty string when none is configured.
func (cfg *Config) ManifestDir() (string, error) {
	if cfg.Manifests == "" {
		return "", nil
	}

	dir, err := homedir.Expand(cfg.Manifests)
	if err != nil {
		return "", eris.Wrapf(err, `Invalid value for manifests: %s`, cfg.Manifests)
	}
	return dir, nil
}

// RepoList parses the configured manifest repositories.
func (cfg *Config) RepoList() ([]repo.Repo, error) {
	repos := make([]repo.Repo, len(cfg.Repos))
	for idx, spec := range cfg.Repos {
		parsed, err := repo.FromSpec(spec)
		if err != nil {
			return nil, eris.Wrap(err, `Invalid value for repos`)
		}
		repos[idx] = parsed
	}
	return repos, nil
}
