package env

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mitchellh/colorstring"
	"github.com/rotisserie/eris"

	"github.com/lunaryorn/homebins/pkg/paths"
)

// PathContains reports whether the search path list (in $PATH syntax)
// contains the given directory.
func PathContains(list, dir string) bool {
	cleaned := filepath.Clean(dir)
	for _, item := range filepath.SplitList(list) {
		if item != "" && filepath.Clean(item) == cleaned {
			return true
		}
	}
	return false
}

// Manpath returns the search path for manpages: the output of the
// manpath command when it is available, the value of $MANPATH otherwise.
func Manpath() (string, error) {
	manpath, err := exec.LookPath("manpath")
	if err != nil {
		return os.Getenv("MANPATH"), nil
	}

	output, err := exec.Command(manpath).Output()
	if err != nil {
		return "", eris.Wrap(err, "Failed to run manpath")
	}
	return strings.TrimSpace(string(output)), nil
}

// Check warns when the install directories are not picked up by the
// environment, i.e. when the bin dir is missing from $PATH or the man
// dir is missing from the manpath. Warnings go to w; the return value is
// the number of warnings printed.
//
// A missing directory is not an error: installing still works, the shell
// just won't find the result.
func Check(w io.Writer, install paths.InstallDirs) (int, error) {
	warnings := 0

	path, ok := os.LookupEnv("PATH")
	switch {
	case !ok:
		warnings++
		colorstring.Fprintf(w, "[yellow][bold]WARNING: $PATH not set![reset]\n")
	case !PathContains(path, install.Bin()):
		warnings++
		colorstring.Fprintf(w, "[yellow][bold]WARNING: $PATH does not contain bin dir at %s[reset]\nAdd %s to $PATH in your shell profile.\n",
			install.Bin(), install.Bin())
	}

	manpath, err := Manpath()
	if err != nil {
		return warnings, err
	}
	if !PathContains(manpath, install.Man()) {
		warnings++
		colorstring.Fprintf(w, "[yellow][bold]WARNING: manpath does not contain man dir at %s[reset]\nAdd %s to $MANPATH in your shell profile; see man 1 manpath for more information.\n",
			install.Man(), install.Man())
	}

	return warnings, nil
}
