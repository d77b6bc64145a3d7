package checksum

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/crypto/blake2b"
)

// Checksums holds the expected digests of a download, as lowercase hex
// strings. b2 denotes BLAKE2b-512, the algorithm homebins manifests have
// always used; sha256 and sha512 are accepted as well.
type Checksums struct {
	B2     string `toml:"b2,omitempty"`
	Sha256 string `toml:"sha256,omitempty"`
	Sha512 string `toml:"sha512,omitempty"`
}

// Empty reports whether no digest is set.
func (c Checksums) Empty() bool {
	return c.B2 == "" && c.Sha256 == "" && c.Sha512 == ""
}

type digest struct {
	algo     string
	expected string
	hash     hash.Hash
}

func (c Checksums) digests() ([]digest, error) {
	var digests []digest

	if c.B2 != "" {
		b2, err := blake2b.New512(nil)
		if err != nil {
			return nil, eris.Wrap(err, "Failed to initialize BLAKE2b")
		}
		digests = append(digests, digest{algo: "b2", expected: c.B2, hash: b2})
	}
	if c.Sha256 != "" {
		digests = append(digests, digest{algo: "sha256", expected: c.Sha256, hash: sha256.New()})
	}
	if c.Sha512 != "" {
		digests = append(digests, digest{algo: "sha512", expected: c.Sha512, hash: sha512.New()})
	}

	return digests, nil
}

// Verify streams r through every configured hash once and fails on the
// first mismatch. An empty checksum set is an error: a download we cannot
// verify must not be installed.
func (c Checksums) Verify(r io.Reader) error {
	digests, err := c.digests()
	if err != nil {
		return err
	}
	if len(digests) == 0 {
		return eris.New("No checksums to verify against")
	}

	writers := make([]io.Writer, len(digests))
	for idx, d := range digests {
		writers[idx] = d.hash
	}

	if _, err := io.Copy(io.MultiWriter(writers...), r); err != nil {
		return eris.Wrap(err, "Failed to read data for checksum verification")
	}

	return c.check(digests)
}

// Writer returns a write-through target for every configured hash plus a
// check function to call once all data was written. This allows verifying
// a download while it is streamed to disk.
func (c Checksums) Writer() (io.Writer, func() error, error) {
	digests, err := c.digests()
	if err != nil {
		return nil, nil, err
	}
	if len(digests) == 0 {
		return nil, nil, eris.New("No checksums to verify against")
	}

	writers := make([]io.Writer, len(digests))
	for idx, d := range digests {
		writers[idx] = d.hash
	}

	return io.MultiWriter(writers...), func() error {
		return c.check(digests)
	}, nil
}

func (c Checksums) check(digests []digest) error {
	for _, d := range digests {
		actual := hex.EncodeToString(d.hash.Sum(nil))
		if actual != strings.ToLower(d.expected) {
			return eris.Errorf("Checksum mismatch (%s): expected %s, got %s", d.algo, d.expected, actual)
		}
	}
	return nil
}
