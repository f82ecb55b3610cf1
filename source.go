package imgcache

import (
	"strings"
	"time"
)

// SourceIdentity is the canonical reference to an input asset. Two variants
// exist: LocalSource for files inside the project tree (path + mtime) and
// RemoteSource for networked assets (URL, no reliable mtime).
type SourceIdentity interface {
	// Reference returns the canonical identifier used for digests: the
	// relative path for local sources, the URL without its query for remote
	// sources.
	Reference() string
}

// LocalSource identifies an asset by its canonical relative path and
// last-modified timestamp.
type LocalSource struct {
	Path    string
	ModTime time.Time
}

func (s LocalSource) Reference() string { return s.Path }

// RemoteSource identifies a networked asset by URL. Data holds the fetched
// source bytes; fetching itself is the caller's job.
type RemoteSource struct {
	URL  string
	Data []byte
}

// Reference returns the URL stripped of its query string.
func (s RemoteSource) Reference() string {
	if i := strings.IndexByte(s.URL, '?'); i >= 0 {
		return s.URL[:i]
	}
	return s.URL
}
