package imgcache

import (
	"os"
	"path/filepath"

	"github.com/aweris/imgcache/internal/remote"
)

// DefaultRetentionSeconds is the default sliding retention window (one day).
const DefaultRetentionSeconds = 86400

// Authenticator provides credentials for remote registries.
type Authenticator = remote.Authenticator

// Options configures a Cache.
type Options struct {
	Root             string
	Enabled          bool
	RetentionSeconds int64
	Algorithm        Algorithm
	Remote           string
	Auth             Authenticator
	Concurrency      int
}

// Option is a functional option for configuring Open.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		Root:             defaultCacheRoot(),
		Enabled:          true,
		RetentionSeconds: DefaultRetentionSeconds,
		Algorithm:        SHA256,
		Concurrency:      remote.DefaultConcurrency,
	}
}

// WithRoot sets the cache root directory.
func WithRoot(dir string) Option {
	return func(o *Options) { o.Root = dir }
}

// WithEnabled toggles caching. A disabled cache still resolves images by
// invoking the engine directly.
func WithEnabled(enabled bool) Option {
	return func(o *Options) { o.Enabled = enabled }
}

// WithRetention sets the sliding retention window for Sweep, in seconds.
// Zero disables garbage collection.
func WithRetention(seconds int64) Option {
	return func(o *Options) {
		if seconds >= 0 {
			o.RetentionSeconds = seconds
		}
	}
}

// WithAlgorithm sets the checksum algorithm used for invalidation.
func WithAlgorithm(a Algorithm) Option {
	return func(o *Options) { o.Algorithm = a }
}

// WithRemote sets the OCI image ref used by Push and Pull
// (e.g., "ttl.sh/myorg/imgcache:main").
func WithRemote(imageRef string) Option {
	return func(o *Options) { o.Remote = imageRef }
}

// WithAuth sets custom registry authentication.
func WithAuth(auth Authenticator) Option {
	return func(o *Options) { o.Auth = auth }
}

// WithConcurrency sets the number of parallel operations for push/pull.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

func defaultCacheRoot() string {
	if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
		return filepath.Join(xdgCache, "imgcache")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "imgcache")
	}
	return ".imgcache"
}
