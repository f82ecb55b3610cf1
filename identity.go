package imgcache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// CacheKey derives the slot directory name for a source: a sha256 hex digest
// of the relative identifier alone. It is independent of transform
// parameters, so every variant ever requested for one source lands in the
// same slot. Collisions are treated as not occurring.
func CacheKey(relativeSourceID string) string {
	h := sha256.Sum256([]byte(relativeSourceID))
	return hex.EncodeToString(h[:])
}

// OutputID derives the identifier of one generated variant.
//
// Local sources digest (path, canonical config, mtime in milliseconds): the
// identity is computable before the transform runs, at the cost of trusting
// the mtime as a proxy for content change. Remote sources digest (URL
// without query, canonical config, fetched source bytes): content-addressed,
// so identical bytes reproduce the same identity across builds.
func OutputID(source SourceIdentity, config TransformConfig) string {
	h := sha256.New()
	h.Write([]byte(source.Reference()))
	h.Write([]byte{0})
	h.Write([]byte(config.Canonical()))
	h.Write([]byte{0})
	switch s := source.(type) {
	case LocalSource:
		h.Write([]byte(strconv.FormatInt(s.ModTime.UnixMilli(), 10)))
	case RemoteSource:
		h.Write(s.Data)
	}
	return hex.EncodeToString(h.Sum(nil))
}
