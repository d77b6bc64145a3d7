package operations

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/ulikunitz/xz"
)

// UnpackOp extracts a downloaded archive into a fresh work directory.
type UnpackOp struct {
	Artifact string
}

func (o *UnpackOp) Describe() string {
	return fmt.Sprintf("unpack %s", o.Artifact)
}

func (o *UnpackOp) Apply(ctx context.Context, env *Env) error {
	extract, err := extractorFor(o.Artifact)
	if err != nil {
		return err
	}

	if err := os.RemoveAll(env.Dirs.Work); err != nil {
		return eris.Wrapf(err, "Failed to clear work directory %s", env.Dirs.Work)
	}
	if err := os.MkdirAll(env.Dirs.Work, 0755); err != nil {
		return eris.Wrapf(err, "Failed to create work directory %s", env.Dirs.Work)
	}

	archive := filepath.Join(env.Dirs.Download, o.Artifact)
	handle, err := os.Open(archive)
	if err != nil {
		return eris.Wrapf(err, "Failed to open archive %s", archive)
	}
	defer handle.Close()

	bar := env.bar(-1, "      unpack")
	defer bar.Finish()

	return extract(handle, bar, env.Dirs.Work)
}

// GunzipOp decompresses a bare gzipped binary into the work directory.
type GunzipOp struct {
	Artifact string
	Target   string
}

func (o *GunzipOp) Describe() string {
	return fmt.Sprintf("decompress %s", o.Artifact)
}

func (o *GunzipOp) Apply(ctx context.Context, env *Env) error {
	archive := filepath.Join(env.Dirs.Download, o.Artifact)
	handle, err := os.Open(archive)
	if err != nil {
		return eris.Wrapf(err, "Failed to open %s", archive)
	}
	defer handle.Close()

	reader, err := gzip.NewReader(handle)
	if err != nil {
		return eris.Wrapf(err, "Failed to open gzip stream for %s", archive)
	}
	defer reader.Close()

	target := filepath.Join(env.Dirs.Work, o.Target)
	if err := os.MkdirAll(env.Dirs.Work, 0755); err != nil {
		return eris.Wrapf(err, "Failed to create work directory %s", env.Dirs.Work)
	}

	dest, err := os.Create(target)
	if err != nil {
		return eris.Wrapf(err, "Failed to create file %s", target)
	}
	defer dest.Close()

	if _, err := io.Copy(dest, reader); err != nil {
		return eris.Wrapf(err, "Failed to decompress %s", archive)
	}

	return dest.Close()
}

// PlaceOp copies one file to its destination, replacing any previous
// version atomically.
type PlaceOp struct {
	// Source is relative to the work directory when FromWork is set,
	// otherwise to the download directory.
	Source   string
	FromWork bool
	Dest     Destination
	Mode     os.FileMode
}

func (o *PlaceOp) Describe() string {
	return fmt.Sprintf("install %s", o.Dest)
}

func (o *PlaceOp) Apply(ctx context.Context, env *Env) error {
	base := env.Dirs.Download
	if o.FromWork {
		base = env.Dirs.Work
	}
	source := filepath.Join(base, filepath.FromSlash(o.Source))

	src, err := os.Open(source)
	if err != nil {
		return eris.Wrapf(err, "Failed to open %s", source)
	}
	defer src.Close()

	destDir := env.Install.Path(o.Dest.Dir)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return eris.Wrapf(err, "Failed to create directory %s", destDir)
	}

	dest := o.Dest.Path(env.Install)
	tmp := filepath.Join(destDir, "."+o.Dest.Name+".tmp")
	handle, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, o.Mode)
	if err != nil {
		return eris.Wrapf(err, "Failed to create file %s", tmp)
	}
	defer func() {
		handle.Close()
		os.Remove(tmp)
	}()

	if _, err := io.Copy(handle, src); err != nil {
		return eris.Wrapf(err, "Failed to copy %s to %s", source, tmp)
	}
	if err := handle.Close(); err != nil {
		return eris.Wrapf(err, "Failed to write %s", tmp)
	}

	// the create mode is subject to the umask
	if err := os.Chmod(tmp, o.Mode); err != nil {
		return eris.Wrapf(err, "Failed to set permissions on %s", tmp)
	}

	if err := os.Rename(tmp, dest); err != nil {
		return eris.Wrapf(err, "Failed to move %s into place", dest)
	}

	log.Debug().Str("file", dest).Msg("Installed file")
	return nil
}

type extractor func(f *os.File, bar *progressbar.ProgressBar, destDir string) error

// extractorFor picks an extractor based on the artifact name.
func extractorFor(name string) (extractor, error) {
	switch {
	case strings.HasSuffix(name, ".zip"):
		return extractZip, nil

	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return func(f *os.File, bar *progressbar.ProgressBar, destDir string) error {
			reader, err := gzip.NewReader(f)
			if err != nil {
				return eris.Wrap(err, "Failed to open gzip stream")
			}
			defer reader.Close()

			return extractTar(reader, bar, destDir)
		}, nil

	case strings.HasSuffix(name, ".tar.bz2"):
		return func(f *os.File, bar *progressbar.ProgressBar, destDir string) error {
			return extractTar(bzip2.NewReader(f), bar, destDir)
		}, nil

	case strings.HasSuffix(name, ".tar.xz"):
		return func(f *os.File, bar *progressbar.ProgressBar, destDir string) error {
			reader, err := xz.NewReader(f)
			if err != nil {
				return eris.Wrap(err, "Failed to open xz stream")
			}

			return extractTar(reader, bar, destDir)
		}, nil
	}

	return nil, eris.Errorf("Archive format not supported: %s", name)
}

// entryDest validates an archive entry name and returns its destination
// below destDir. Entries that would escape the destination are rejected.
func entryDest(destDir, name string) (string, error) {
	cleaned := filepath.FromSlash(name)
	if !filepath.IsLocal(cleaned) {
		return "", eris.Errorf("Archive entry %s escapes the extraction directory", name)
	}
	return filepath.Join(destDir, cleaned), nil
}

func extractTar(r io.Reader, bar *progressbar.ProgressBar, destDir string) error {
	archive := tar.NewReader(r)

	for {
		item, err := archive.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return eris.Wrap(err, "Failed to read archive entry")
		}

		fi := item.FileInfo()
		if fi.IsDir() {
			continue
		}

		dest, err := entryDest(destDir, item.Name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return eris.Wrapf(err, "Failed to create directory %s", filepath.Dir(dest))
		}

		switch item.Typeflag {
		case tar.TypeSymlink:
			if filepath.IsAbs(item.Linkname) {
				return eris.Errorf("Archive entry %s links to absolute path %s", item.Name, item.Linkname)
			}
			// the target is relative to the entry's directory and must
			// stay inside the extraction root
			linked := path.Join(path.Dir(item.Name), item.Linkname)
			if !filepath.IsLocal(filepath.FromSlash(linked)) {
				return eris.Errorf("Archive entry %s links outside the archive: %s", item.Name, item.Linkname)
			}
			if err := os.Symlink(item.Linkname, dest); err != nil {
				return eris.Wrapf(err, "Failed to create symlink %s pointing to %s", dest, item.Linkname)
			}

		case tar.TypeReg:
			handle, err := os.Create(dest)
			if err != nil {
				return eris.Wrapf(err, "Failed to create file %s", dest)
			}

			if _, err := io.Copy(io.MultiWriter(handle, bar), archive); err != nil {
				handle.Close()
				return eris.Wrapf(err, "Failed to read archive entry %s", item.Name)
			}
			if err := handle.Close(); err != nil {
				return eris.Wrapf(err, "Failed to write extracted file %s", dest)
			}
			if err := os.Chmod(dest, fi.Mode().Perm()); err != nil {
				return eris.Wrapf(err, "Failed to set permissions on %s", dest)
			}

		default:
			log.Debug().Str("entry", item.Name).Msg("Skipping unsupported archive entry")
		}
	}

	return nil
}

func extractZip(f *os.File, bar *progressbar.ProgressBar, destDir string) error {
	stat, err := f.Stat()
	if err != nil {
		return eris.Wrap(err, "Failed to stat archive")
	}

	archive, err := zip.NewReader(f, stat.Size())
	if err != nil {
		return eris.Wrap(err, "Failed to open zip archive")
	}

	for _, item := range archive.File {
		if strings.HasSuffix(item.Name, "/") || item.FileInfo().IsDir() {
			continue
		}

		dest, err := entryDest(destDir, item.Name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return eris.Wrapf(err, "Failed to create directory %s", filepath.Dir(dest))
		}

		entry, err := item.Open()
		if err != nil {
			return eris.Wrap(err, "Failed to open archive entry")
		}

		handle, err := os.Create(dest)
		if err != nil {
			entry.Close()
			return eris.Wrapf(err, "Failed to create file %s", dest)
		}

		if _, err := io.Copy(io.MultiWriter(handle, bar), entry); err != nil {
			handle.Close()
			entry.Close()
			return eris.Wrapf(err, "Failed to read archive entry %s", item.Name)
		}
		entry.Close()
		if err := handle.Close(); err != nil {
			return eris.Wrapf(err, "Failed to write extracted file %s", dest)
		}

		// .zip files don't reliably carry permissions; fix up what's there
		if perm := item.Mode().Perm(); perm != 0 {
			if err := os.Chmod(dest, perm); err != nil {
				return eris.Wrapf(err, "Failed to set permissions on %s", dest)
			}
		}
	}

	return nil
}
