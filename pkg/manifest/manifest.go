package manifest

import (
	"bytes"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/pelletier/go-toml/v2"
	"github.com/rotisserie/eris"

	"github.com/lunaryorn/homebins/pkg/checksum"
	"github.com/lunaryorn/homebins/pkg/paths"
)

// FileType describes what kind of file a manifest installs.
type FileType string

const (
	// TypeBin is an executable, installed to <root>/bin with mode 0755.
	TypeBin FileType = "bin"
	// TypeMan is a manpage, installed to <root>/share/man/man<section>.
	TypeMan FileType = "man"
)

// Info holds the descriptive part of a manifest.
type Info struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
	URL     string `toml:"url,omitempty"`
	License string `toml:"license,omitempty"`
}

// VersionCheck describes how to extract a version number from the output
// of an installed binary.
type VersionCheck struct {
	// Args are passed to the binary, e.g. ["--version"].
	Args []string `toml:"args"`
	// Pattern is a regular expression whose first capture group matches
	// the version number in the output.
	Pattern string `toml:"pattern"`
}

// Regexp compiles the version check pattern.
func (c VersionCheck) Regexp() (*regexp.Regexp, error) {
	re, err := regexp.Compile(c.Pattern)
	if err != nil {
		return nil, eris.Wrapf(err, "Invalid version check pattern %s", c.Pattern)
	}
	return re, nil
}

// Discover describes how to find the installed version of a manifest.
type Discover struct {
	// Binary is the name of the installed executable, relative to the bin
	// directory.
	Binary       string       `toml:"binary"`
	VersionCheck VersionCheck `toml:"version_check"`
}

// File is a single file to take out of a downloaded archive.
type File struct {
	// Source is the path of the file inside the archive.
	Source string `toml:"source"`
	// Name overrides the installed file name; defaults to the base name of
	// Source.
	Name    string   `toml:"name,omitempty"`
	Type    FileType `toml:"type"`
	Section int      `toml:"section,omitempty"`
}

// TargetName returns the file name to install as. Archive entries always
// use forward slashes, so path.Base applies.
func (f File) TargetName() string {
	if f.Name != "" {
		return f.Name
	}
	return path.Base(f.Source)
}

// Directory returns the target directory for this file.
func (f File) Directory() paths.Directory {
	if f.Type == TypeMan {
		return paths.Man(f.Section)
	}
	return paths.Bin()
}

// Download is one artifact to fetch. With a files list the artifact is an
// archive and the listed files are installed out of it; without one the
// artifact itself is installed as a binary.
type Download struct {
	Download  string             `toml:"download"`
	Name      string             `toml:"name,omitempty"`
	Checksums checksum.Checksums `toml:"checksums"`
	Files     []File             `toml:"files,omitempty"`
}

// FileName returns the name of the downloaded artifact on disk.
func (d Download) FileName() string {
	parsed, err := url.Parse(d.Download)
	if err != nil {
		return path.Base(d.Download)
	}
	return path.Base(parsed.Path)
}

// BinaryName returns the name a bare (file-less) download is installed
// as: the explicit name, or the artifact name with a trailing .gz
// stripped.
func (d Download) BinaryName() string {
	if d.Name != "" {
		return d.Name
	}
	return strings.TrimSuffix(d.FileName(), ".gz")
}

// Manifest describes how to install, check and remove a single tool.
type Manifest struct {
	Info     Info       `toml:"info"`
	Discover Discover   `toml:"discover"`
	Install  []Download `toml:"install"`
}

// Version returns the manifest version. Validate guarantees that it
// parses.
func (m *Manifest) Version() (*semver.Version, error) {
	version, err := semver.NewVersion(m.Info.Version)
	if err != nil {
		return nil, eris.Wrapf(err, "Manifest %s has invalid version %s", m.Info.Name, m.Info.Version)
	}
	return version, nil
}

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._+-]*$`)

// Validate checks the manifest for the invariants the rest of homebins
// relies on.
func (m *Manifest) Validate() error {
	if m.Info.Name == "" {
		return eris.New("Manifest has no name")
	}
	if !namePattern.MatchString(m.Info.Name) {
		return eris.Errorf("Manifest name %s contains invalid characters", m.Info.Name)
	}
	if m.Info.Version == "" {
		return eris.Errorf("Manifest %s has no version", m.Info.Name)
	}
	if _, err := m.Version(); err != nil {
		return err
	}

	if m.Discover.Binary == "" {
		return eris.Errorf("Manifest %s has no binary to discover", m.Info.Name)
	}
	re, err := m.Discover.VersionCheck.Regexp()
	if err != nil {
		return eris.Wrapf(err, "Version check for %s failed", m.Info.Name)
	}
	if re.NumSubexp() < 1 {
		return eris.Errorf("Version check pattern %s for %s has no capture group", m.Discover.VersionCheck.Pattern, m.Info.Name)
	}

	if len(m.Install) == 0 {
		return eris.Errorf("Manifest %s declares no downloads", m.Info.Name)
	}
	for _, dl := range m.Install {
		if err := dl.validate(m.Info.Name); err != nil {
			return err
		}
	}

	return nil
}

func (d Download) validate(manifest string) error {
	if d.Download == "" {
		return eris.Errorf("Manifest %s has a download without a URL", manifest)
	}
	parsed, err := url.Parse(d.Download)
	if err != nil {
		return eris.Wrapf(err, "Manifest %s has an invalid download URL %s", manifest, d.Download)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return eris.Errorf("Manifest %s has an unsupported download URL %s", manifest, d.Download)
	}
	if d.Checksums.Empty() {
		return eris.Errorf("Download %s of manifest %s has no checksums", d.Download, manifest)
	}

	if len(d.Files) == 0 {
		if d.BinaryName() == "" || !namePattern.MatchString(d.BinaryName()) {
			return eris.Errorf("Download %s of manifest %s needs an explicit binary name", d.Download, manifest)
		}
		return nil
	}

	for _, file := range d.Files {
		if file.Source == "" {
			return eris.Errorf("Manifest %s has a file without a source", manifest)
		}
		if !filepath.IsLocal(filepath.FromSlash(file.Source)) {
			return eris.Errorf("File %s of manifest %s has a source outside the archive", file.Source, manifest)
		}
		switch file.Type {
		case TypeBin:
			if file.Section != 0 {
				return eris.Errorf("File %s of manifest %s is a binary with a manpage section", file.Source, manifest)
			}
		case TypeMan:
			if file.Section < 1 || file.Section > 9 {
				return eris.Errorf("File %s of manifest %s has invalid manpage section %d", file.Source, manifest, file.Section)
			}
		default:
			return eris.Errorf("File %s of manifest %s has unknown type %s", file.Source, manifest, file.Type)
		}
		if !namePattern.MatchString(file.TargetName()) {
			return eris.Errorf("File %s of manifest %s has invalid target name %s", file.Source, manifest, file.TargetName())
		}
	}

	return nil
}

// Parse reads a manifest from TOML and validates it. Unknown keys are
// rejected so that typos in hand-written manifests fail loudly instead
// of silently dropping a checksum or a file.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&m); err != nil {
		return nil, eris.Wrap(err, "Failed to parse manifest")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load reads a manifest from the given file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "Failed to read manifest %s", path)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, eris.Wrapf(err, "Invalid manifest %s", path)
	}
	return m, nil
}

