package paths

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

type dirKind int

const (
	dirBin dirKind = iota + 1
	dirMan
)

// Directory identifies a target directory inside the install root.
type Directory struct {
	kind    dirKind
	section int
}

// Bin is the directory for executables.
func Bin() Directory {
	return Directory{kind: dirBin}
}

// Man is the directory for manpages of the given section.
func Man(section int) Directory {
	return Directory{kind: dirMan, section: section}
}

func (d Directory) String() string {
	if d.kind == dirMan {
		return fmt.Sprintf("man%d", d.section)
	}
	return "bin"
}

// InstallDirs resolves target directories under a single install root,
// usually ~/.local.
type InstallDirs struct {
	Root string
}

func NewInstallDirs(root string) InstallDirs {
	return InstallDirs{Root: root}
}

// Bin returns the directory binaries are installed to.
func (d InstallDirs) Bin() string {
	return filepath.Join(d.Root, "bin")
}

// Man returns the root of the manpage hierarchy, i.e. the directory that
// belongs on $MANPATH.
func (d InstallDirs) Man() string {
	return filepath.Join(d.Root, "share", "man")
}

// Path returns the concrete directory for the given target directory.
func (d InstallDirs) Path(dir Directory) string {
	switch dir.kind {
	case dirMan:
		return filepath.Join(d.Man(), dir.String())
	default:
		return d.Bin()
	}
}

// ProjectDirs holds the directories homebins itself uses for downloads,
// cloned manifest repositories and local state.
type ProjectDirs struct {
	Cache  string
	Data   string
	Config string
}

// NewProjectDirs resolves the project directories from the XDG base
// directories, with the usual $HOME fallbacks.
func NewProjectDirs() (ProjectDirs, error) {
	cache, err := os.UserCacheDir()
	if err != nil {
		return ProjectDirs{}, eris.Wrap(err, "Failed to determine the cache directory")
	}

	config, err := os.UserConfigDir()
	if err != nil {
		return ProjectDirs{}, eris.Wrap(err, "Failed to determine the config directory")
	}

	data := os.Getenv("XDG_DATA_HOME")
	if data == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ProjectDirs{}, eris.Wrap(err, "Failed to determine the home directory")
		}
		data = filepath.Join(home, ".local", "share")
	}

	return ProjectDirs{
		Cache:  filepath.Join(cache, "homebins"),
		Data:   filepath.Join(data, "homebins"),
		Config: filepath.Join(config, "homebins"),
	}, nil
}

// ConfigFile returns the path of the primary configuration file.
func (d ProjectDirs) ConfigFile() string {
	return filepath.Join(d.Config, "config.toml")
}

// ConfigFiles returns all candidate configuration files; the first one
// that exists wins.
func (d ProjectDirs) ConfigFiles() []string {
	return []string{
		d.ConfigFile(),
		filepath.Join(d.Config, "config.yaml"),
	}
}

// StateFile returns the path of the install ledger.
func (d ProjectDirs) StateFile() string {
	return filepath.Join(d.Data, "state.db")
}

// RepoDir returns the directory a manifest repository is cloned to.
func (d ProjectDirs) RepoDir(name string) string {
	return filepath.Join(d.Data, "repos", name)
}

// OperationDirs holds the per-manifest working directories used while
// applying operations.
type OperationDirs struct {
	// Download receives downloaded artifacts; verified downloads are kept
	// here so repeated installs don't fetch them again.
	Download string
	// Work receives the unpacked contents of downloaded archives.
	Work string
}

// OperationDirs returns the working directories for the named manifest.
func (d ProjectDirs) OperationDirs(manifest string) OperationDirs {
	return OperationDirs{
		Download: filepath.Join(d.Cache, "downloads", manifest),
		Work:     filepath.Join(d.Cache, "work", manifest),
	}
}

// Ensure creates the operation directories.
func (o OperationDirs) Ensure() error {
	for _, dir := range []string{o.Download, o.Work} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return eris.Wrapf(err, "Failed to create directory %s", dir)
		}
	}
	return nil
}
