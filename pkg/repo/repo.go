package repo

import (
	"context"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"github.com/lunaryorn/homebins/pkg/paths"
)

// Repo is a git repository of manifests.
type Repo struct {
	Name string
	URL  string
}

// The name becomes a directory under the data dir, so it must be a
// single safe path element.
var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// FromSpec parses a configured repository entry. A plain git URL names
// the checkout after the last path element, minus a .git suffix; an
// explicit name can be given as name=url.
func FromSpec(spec string) (Repo, error) {
	name, rawURL, found := strings.Cut(spec, "=")
	if !found || strings.ContainsAny(name, ":/") {
		name, rawURL = "", spec
	}

	if rawURL == "" {
		return Repo{}, eris.Errorf("Repository entry %s has no URL", spec)
	}

	if name == "" {
		parsed, err := url.Parse(rawURL)
		if err != nil {
			return Repo{}, eris.Wrapf(err, "Invalid repository URL %s", rawURL)
		}
		name = strings.TrimSuffix(path.Base(parsed.Path), ".git")
	}

	if !namePattern.MatchString(name) {
		return Repo{}, eris.Errorf("Cannot derive a repository name from %s", spec)
	}

	return Repo{Name: name, URL: rawURL}, nil
}

// Repos manages the manifest repositories cloned into the data directory.
type Repos struct {
	repos   []Repo
	project paths.ProjectDirs
}

func New(project paths.ProjectDirs, repos []Repo) *Repos {
	return &Repos{repos: repos, project: project}
}

// Dir returns the checkout directory of the given repository.
func (r *Repos) Dir(repo Repo) string {
	return r.project.RepoDir(repo.Name)
}

// ManifestDirs returns the manifest directories of all repositories, in
// configuration order. A repository that keeps its manifests in a
// manifests/ subdirectory is handled transparently; repositories that
// were never synced are skipped.
func (r *Repos) ManifestDirs() []string {
	var dirs []string
	for _, repo := range r.repos {
		dir := r.Dir(repo)
		if _, err := os.Stat(dir); err != nil {
			continue
		}

		if sub := filepath.Join(dir, "manifests"); dirExists(sub) {
			dirs = append(dirs, sub)
		} else {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// Sync clones missing repositories and pulls existing ones. Git output
// goes straight to the user's terminal.
func (r *Repos) Sync(ctx context.Context) error {
	if len(r.repos) == 0 {
		return nil
	}

	git, err := exec.LookPath("git")
	if err != nil {
		return eris.Wrap(err, "Syncing manifest repositories requires git on $PATH")
	}

	for _, repo := range r.repos {
		dir := r.Dir(repo)

		var args []string
		if dirExists(filepath.Join(dir, ".git")) {
			args = pullArgs(dir)
		} else {
			if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
				return eris.Wrapf(err, "Failed to create repository directory for %s", repo.Name)
			}
			args = cloneArgs(repo.URL, dir)
		}

		log.Debug().Str("repo", repo.Name).Strs("args", args).Msg("Running git")
		cmd := exec.CommandContext(ctx, git, args...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return eris.Wrapf(err, "Failed to sync manifest repository %s from %s", repo.Name, repo.URL)
		}
	}

	return nil
}

func cloneArgs(url, dir string) []string {
	return []string{"clone", "--depth", "1", url, dir}
}

func pullArgs(dir string) []string {
	return []string{"-C", dir, "pull", "--ff-only"}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
