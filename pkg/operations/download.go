package operations

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"

	"github.com/lunaryorn/homebins/pkg/checksum"
)

// DownloadOp fetches one artifact into the download directory and
// verifies its checksums. A previously downloaded artifact that still
// verifies is reused.
type DownloadOp struct {
	URL       string
	Artifact  string
	Checksums checksum.Checksums
}

func (o *DownloadOp) Describe() string {
	return fmt.Sprintf("download %s", o.URL)
}

func (o *DownloadOp) Apply(ctx context.Context, env *Env) error {
	target := filepath.Join(env.Dirs.Download, o.Artifact)

	if cached, err := o.verifyExisting(target); err != nil {
		return err
	} else if cached {
		log.Debug().Str("artifact", target).Msg("Reusing verified download")
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.URL, nil)
	if err != nil {
		return eris.Wrapf(err, "Invalid download URL %s", o.URL)
	}

	resp, err := env.client().Do(req)
	if err != nil {
		return eris.Wrapf(err, "Failed to start download for %s", o.URL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("Download of %s failed: %s", o.URL, resp.Status)
	}

	sums, check, err := o.Checksums.Writer()
	if err != nil {
		return err
	}

	tmp := target + ".tmp"
	handle, err := os.Create(tmp)
	if err != nil {
		return eris.Wrapf(err, "Failed to create download file %s", tmp)
	}
	defer func() {
		handle.Close()
		os.Remove(tmp)
	}()

	bar := env.bar(resp.ContentLength, "     download")
	if _, err := io.Copy(io.MultiWriter(handle, sums, bar), resp.Body); err != nil {
		return eris.Wrapf(err, "Failed during download of %s", o.URL)
	}
	bar.Finish()

	if err := handle.Close(); err != nil {
		return eris.Wrapf(err, "Failed to write download to %s", tmp)
	}

	if err := check(); err != nil {
		return eris.Wrapf(err, "Download of %s is corrupt", o.URL)
	}

	if err := os.Rename(tmp, target); err != nil {
		return eris.Wrapf(err, "Failed to move download to %s", target)
	}

	return nil
}

// verifyExisting checks whether the artifact is already present and
// intact. A present but corrupt artifact is discarded.
func (o *DownloadOp) verifyExisting(target string) (bool, error) {
	handle, err := os.Open(target)
	if err != nil {
		if eris.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, eris.Wrapf(err, "Failed to open cached download %s", target)
	}
	defer handle.Close()

	if err := o.Checksums.Verify(handle); err != nil {
		log.Warn().Str("artifact", target).Msg("Cached download is corrupt, fetching again")
		if err := os.Remove(target); err != nil {
			return false, eris.Wrapf(err, "Failed to discard corrupt download %s", target)
		}
		return false, nil
	}

	return true, nil
}
