package imgcache

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

// Algorithm names a checksum digest used for manifest freshness validation.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	SHA1   Algorithm = "sha1"
	MD5    Algorithm = "md5"
)

// New returns a fresh hash for the algorithm.
func (a Algorithm) New() (hash.Hash, error) {
	switch a {
	case SHA256:
		return sha256.New(), nil
	case SHA1:
		return sha1.New(), nil
	case MD5:
		return md5.New(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownHash, a)
	}
}

// Checksum streams r through the digest and returns the hex fingerprint.
func Checksum(algorithm Algorithm, r io.Reader) (string, error) {
	h, err := algorithm.New()
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("checksum: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ChecksumBytes returns the hex fingerprint of data.
func ChecksumBytes(algorithm Algorithm, data []byte) (string, error) {
	h, err := algorithm.New()
	if err != nil {
		return "", err
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ChecksumFile streams the file at path through the digest. A missing file
// reports ErrSourceNotFound; the source being unreadable is a condition
// broader than caching and callers are expected to fail the whole operation.
func ChecksumFile(algorithm Algorithm, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrSourceNotFound, path)
		}
		return "", fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	return Checksum(algorithm, f)
}
