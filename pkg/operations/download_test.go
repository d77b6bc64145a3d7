package operations_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lunaryorn/homebins/pkg/checksum"
	"github.com/lunaryorn/homebins/pkg/operations"
)

const artifactBody = "pretend this is a tarball"

func artifactChecksums() checksum.Checksums {
	digest := sha256.Sum256([]byte(artifactBody))
	return checksum.Checksums{Sha256: hex.EncodeToString(digest[:])}
}

// artifactServer serves artifactBody and counts requests.
func artifactServer(t *testing.T) (*httptest.Server, *atomic.Int64) {
	t.Helper()

	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(artifactBody))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestDownload(t *testing.T) {
	t.Parallel()

	server, hits := artifactServer(t)
	env := testEnv(t)
	env.Client = server.Client()

	op := &operations.DownloadOp{
		URL:       server.URL + "/tool.tar.gz",
		Artifact:  "tool.tar.gz",
		Checksums: artifactChecksums(),
	}
	require.NoError(t, op.Apply(context.Background(), env))

	assert.EqualValues(t, 1, hits.Load())
	content, err := os.ReadFile(filepath.Join(env.Dirs.Download, "tool.tar.gz"))
	require.NoError(t, err)
	assert.Equal(t, artifactBody, string(content))
}

func TestDownloadReusesVerifiedArtifact(t *testing.T) {
	t.Parallel()

	server, hits := artifactServer(t)
	env := testEnv(t)
	env.Client = server.Client()

	target := filepath.Join(env.Dirs.Download, "tool.tar.gz")
	require.NoError(t, os.WriteFile(target, []byte(artifactBody), 0644))

	op := &operations.DownloadOp{
		URL:       server.URL + "/tool.tar.gz",
		Artifact:  "tool.tar.gz",
		Checksums: artifactChecksums(),
	}
	require.NoError(t, op.Apply(context.Background(), env))

	assert.Zero(t, hits.Load())
}

func TestDownloadReplacesCorruptArtifact(t *testing.T) {
	t.Parallel()

	server, hits := artifactServer(t)
	env := testEnv(t)
	env.Client = server.Client()

	target := filepath.Join(env.Dirs.Download, "tool.tar.gz")
	require.NoError(t, os.WriteFile(target, []byte("damaged"), 0644))

	op := &operations.DownloadOp{
		URL:       server.URL + "/tool.tar.gz",
		Artifact:  "tool.tar.gz",
		Checksums: artifactChecksums(),
	}
	require.NoError(t, op.Apply(context.Background(), env))

	assert.EqualValues(t, 1, hits.Load())
	content, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, artifactBody, string(content))
}

func TestDownloadChecksumMismatch(t *testing.T) {
	t.Parallel()

	server, _ := artifactServer(t)
	env := testEnv(t)
	env.Client = server.Client()

	op := &operations.DownloadOp{
		URL:       server.URL + "/tool.tar.gz",
		Artifact:  "tool.tar.gz",
		Checksums: checksum.Checksums{Sha256: strings.Repeat("0", 64)},
	}
	err := op.Apply(context.Background(), env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt")

	// neither the artifact nor the temporary file may be left behind
	assert.NoFileExists(t, filepath.Join(env.Dirs.Download, "tool.tar.gz"))
	assert.NoFileExists(t, filepath.Join(env.Dirs.Download, "tool.tar.gz.tmp"))
}

func TestDownloadHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)

	env := testEnv(t)
	env.Client = server.Client()

	op := &operations.DownloadOp{
		URL:       server.URL + "/tool.tar.gz",
		Artifact:  "tool.tar.gz",
		Checksums: artifactChecksums(),
	}
	err := op.Apply(context.Background(), env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
