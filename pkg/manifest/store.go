package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

// NotFound is returned when a store has no manifest with the requested
// name.
type NotFound struct {
	Name string
}

var _ error = (*NotFound)(nil)

func (e NotFound) Error() string {
	return fmt.Sprintf("No manifest for %s", e.Name)
}

// Entry is a manifest together with the file it was loaded from.
type Entry struct {
	Manifest *Manifest
	Path     string
}

// Store looks up manifests across a list of directories, usually the
// synced manifest repositories plus an optional local directory. Later
// directories override earlier ones when names collide.
type Store struct {
	dirs []string
}

func NewStore(dirs ...string) *Store {
	return &Store{dirs: dirs}
}

// All loads every manifest in the store, sorted by name. Directories that
// don't exist yet (a repository that was never synced) are skipped.
func (s *Store) All() ([]Entry, error) {
	byName := make(map[string]Entry)

	for _, dir := range s.dirs {
		items, err := os.ReadDir(dir)
		if err != nil {
			if eris.Is(err, os.ErrNotExist) {
				log.Debug().Str("dir", dir).Msg("Skipping missing manifest directory")
				continue
			}
			return nil, eris.Wrapf(err, "Failed to read manifest directory %s", dir)
		}

		for _, item := range items {
			if item.IsDir() || !strings.HasSuffix(item.Name(), ".toml") {
				continue
			}

			path := filepath.Join(dir, item.Name())
			m, err := Load(path)
			if err != nil {
				return nil, err
			}

			if previous, ok := byName[m.Info.Name]; ok {
				log.Warn().
					Str("manifest", m.Info.Name).
					Str("replaced", previous.Path).
					Str("using", path).
					Msg("Duplicate manifest name")
			}
			byName[m.Info.Name] = Entry{Manifest: m, Path: path}
		}
	}

	entries := make([]Entry, 0, len(byName))
	for _, entry := range byName {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Manifest.Info.Name < entries[j].Manifest.Info.Name
	})

	return entries, nil
}

// Get returns the manifest with the given name.
func (s *Store) Get(name string) (Entry, error) {
	entries, err := s.All()
	if err != nil {
		return Entry{}, err
	}
	for _, entry := range entries {
		if entry.Manifest.Info.Name == name {
			return entry, nil
		}
	}
	return Entry{}, NotFound{Name: name}
}
