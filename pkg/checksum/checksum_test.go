package checksum_test

import (
	"crypto/sha512"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"github.com/lunaryorn/homebins/pkg/checksum"
)

const payload = "hello world"

func TestVerifySha256(t *testing.T) {
	t.Parallel()

	sums := checksum.Checksums{
		Sha256: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
	}
	assert.NoError(t, sums.Verify(strings.NewReader(payload)))
}

func TestVerifyAllAlgorithms(t *testing.T) {
	t.Parallel()

	b2 := blake2b.Sum512([]byte(payload))
	s512 := sha512.Sum512([]byte(payload))
	sums := checksum.Checksums{
		B2:     hex.EncodeToString(b2[:]),
		Sha256: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		Sha512: hex.EncodeToString(s512[:]),
	}
	assert.NoError(t, sums.Verify(strings.NewReader(payload)))
}

func TestVerifyAcceptsUppercaseDigests(t *testing.T) {
	t.Parallel()

	sums := checksum.Checksums{
		Sha256: "B94D27B9934D3E08A52E52D7DA7DABFAC484EFE37A5380EE9088F7ACE2EFCDE9",
	}
	assert.NoError(t, sums.Verify(strings.NewReader(payload)))
}

func TestVerifyMismatch(t *testing.T) {
	t.Parallel()

	sums := checksum.Checksums{
		Sha256: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde8",
	}
	err := sums.Verify(strings.NewReader(payload))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Checksum mismatch (sha256)")
}

func TestVerifyEmpty(t *testing.T) {
	t.Parallel()

	err := checksum.Checksums{}.Verify(strings.NewReader(payload))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No checksums")
}

func TestWriter(t *testing.T) {
	t.Parallel()

	sums := checksum.Checksums{
		Sha256: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
	}
	w, check, err := sums.Writer()
	require.NoError(t, err)

	_, err = w.Write([]byte(payload[:5]))
	require.NoError(t, err)
	_, err = w.Write([]byte(payload[5:]))
	require.NoError(t, err)

	assert.NoError(t, check())
}

func TestWriterMismatch(t *testing.T) {
	t.Parallel()

	sums := checksum.Checksums{Sha256: strings.Repeat("0", 64)}
	w, check, err := sums.Writer()
	require.NoError(t, err)

	_, err = w.Write([]byte(payload))
	require.NoError(t, err)
	assert.Error(t, check())
}

func TestEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, checksum.Checksums{}.Empty())
	assert.False(t, checksum.Checksums{B2: "aa"}.Empty())
	assert.False(t, checksum.Checksums{Sha512: "aa"}.Empty())
}
