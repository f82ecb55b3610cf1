package imgcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImageVariants(t *testing.T) {
	t.Parallel()

	var img Image = GeneratedImage{Data: []byte("x"), Meta: Metadata{OutputID: "id", Format: "png"}}
	switch img.(type) {
	case GeneratedImage:
	default:
		t.Fatal("expected GeneratedImage")
	}
	assert.Equal(t, "png", img.Metadata().Format)

	img = CachedImage{Path: "/cache/slot/id.png", Meta: Metadata{OutputID: "id", Format: "png"}}
	switch v := img.(type) {
	case CachedImage:
		assert.Equal(t, "/cache/slot/id.png", v.Path)
	default:
		t.Fatal("expected CachedImage")
	}
}

func TestSessionResetDropsRegistrations(t *testing.T) {
	t.Parallel()

	s := NewSession()
	s.Put("/img/hero-300.webp", GeneratedImage{Meta: Metadata{OutputID: "id1", Format: "webp"}})
	s.Put("/img/hero-500.webp", CachedImage{Path: "p", Meta: Metadata{OutputID: "id2", Format: "webp"}})

	assert.Equal(t, 2, s.Len())
	img, ok := s.Get("/img/hero-300.webp")
	assert.True(t, ok)
	assert.Equal(t, "id1", img.Metadata().OutputID)

	s.Reset()
	assert.Equal(t, 0, s.Len())
	_, ok = s.Get("/img/hero-300.webp")
	assert.False(t, ok)
}
