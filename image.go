package imgcache

import "sync"

// Image is a servable generated variant. It is a tagged variant: either the
// bytes just produced by the transform engine, or the path of a persisted
// cache artifact. Consumers dispatch on the concrete type rather than
// probing for capabilities.
type Image interface {
	// Metadata returns the transform-produced scalar metadata.
	Metadata() Metadata

	isImage()
}

// GeneratedImage holds a variant produced by the engine during this run. Its
// bytes are in memory; the cache has already persisted them when caching is
// enabled.
type GeneratedImage struct {
	Data []byte
	Meta Metadata
}

func (i GeneratedImage) Metadata() Metadata { return i.Meta }
func (GeneratedImage) isImage()             {}

// CachedImage points at a persisted artifact file reused from a previous
// build. The path is recomputed on every load, never read from the manifest.
type CachedImage struct {
	Path string
	Meta Metadata
}

func (i CachedImage) Metadata() Metadata { return i.Meta }
func (CachedImage) isImage()             {}

// Session maps served identifiers to images for one development-server run.
// It replaces an implicit process-global map: the host creates one per
// server start and calls Reset on restart.
type Session struct {
	mu     sync.RWMutex
	images map[string]Image
}

func NewSession() *Session {
	return &Session{images: make(map[string]Image)}
}

// Put registers an image under a served identifier.
func (s *Session) Put(id string, img Image) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[id] = img
}

// Get returns the image registered under id.
func (s *Session) Get(id string) (Image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	img, ok := s.images[id]
	return img, ok
}

// Len returns the number of registered images.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}

// Reset drops every registration. Defined behavior on server restart.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = make(map[string]Image)
}
