package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)
	return s
}

func TestWriteLookupRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	artifacts := []Artifact{
		{Meta: Metadata{OutputID: "i1", Format: "png", Width: 300, Height: 150}, Data: []byte("png bytes")},
		{Meta: Metadata{OutputID: "i2", Format: "webp", Width: 500, Height: 250}, Data: []byte("webp bytes")},
	}

	written, err := s.Write("k1", "c1", artifacts)
	require.NoError(t, err)
	assert.Len(t, written.Metadatas, 2)

	m, ok := s.Lookup("k1")
	require.True(t, ok)
	assert.True(t, m.Fresh("c1"))
	assert.False(t, m.Fresh("c2"))
	require.Len(t, m.Metadatas, 2)
	assert.Equal(t, "i1", m.Metadatas[0].OutputID)
	assert.Equal(t, 300, m.Metadatas[0].Width)

	data, err := os.ReadFile(s.ArtifactPath("k1", m.Metadatas[1]))
	require.NoError(t, err)
	assert.Equal(t, []byte("webp bytes"), data)
}

func TestWriteIdempotent(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	artifacts := []Artifact{
		{Meta: Metadata{OutputID: "i1", Format: "png"}, Data: []byte("bytes")},
	}

	_, err := s.Write("k1", "c1", artifacts)
	require.NoError(t, err)
	_, err = s.Write("k1", "c1", artifacts)
	require.NoError(t, err)

	entries, err := os.ReadDir(s.SlotDir("k1"))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "one artifact plus the manifest, no duplicates")
}

func TestWriteCarriesOverExistingArtifacts(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	first := Metadata{OutputID: "i1", Format: "png"}
	_, err := s.Write("k1", "c1", []Artifact{{Meta: first, Data: []byte("one")}})
	require.NoError(t, err)

	// Accumulate a second variant without re-supplying the first's bytes.
	second := Metadata{OutputID: "i2", Format: "webp"}
	_, err = s.Write("k1", "c1", []Artifact{{Meta: first}, {Meta: second, Data: []byte("two")}})
	require.NoError(t, err)

	m, ok := s.Lookup("k1")
	require.True(t, ok)
	assert.Len(t, m.Metadatas, 2)

	data, err := os.ReadFile(s.ArtifactPath("k1", first))
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), data)
}

func TestWriteFailureRemovesSlot(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	// Carrying over an artifact that is not on disk must fail the write and
	// leave no partially populated, falsely valid slot behind.
	_, err := s.Write("k1", "c1", []Artifact{
		{Meta: Metadata{OutputID: "ghost", Format: "png"}},
		{Meta: Metadata{OutputID: "i2", Format: "webp"}, Data: []byte("two")},
	})
	require.Error(t, err)

	_, ok := s.Lookup("k1")
	assert.False(t, ok)
	_, statErr := os.Stat(s.SlotDir("k1"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestLookupMissingSlot(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, ok := s.Lookup("nope")
	assert.False(t, ok)
}

func TestLookupCorruptManifestIsMiss(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(s.SlotDir("k1"), 0755))
	require.NoError(t, os.WriteFile(s.ManifestPath("k1"), []byte("{not json"), 0644))

	_, ok := s.Lookup("k1")
	assert.False(t, ok, "corrupt manifest reads as a miss, never an error")
}

func TestTouchMovesRecencyMarker(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, err := s.Write("k1", "c1", []Artifact{{Meta: Metadata{OutputID: "i1", Format: "png"}, Data: []byte("x")}})
	require.NoError(t, err)

	old := timeDaysAgo(2)
	require.NoError(t, os.Chtimes(s.ManifestPath("k1"), old, old))
	require.NoError(t, s.Touch("k1"))

	info, err := os.Stat(s.ManifestPath("k1"))
	require.NoError(t, err)
	assert.True(t, info.ModTime().After(old))
}

func TestRestoreRequiresManifest(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	err := s.Restore("k1", map[string][]byte{"i1.png": []byte("x")})
	assert.Error(t, err)
}

func TestRestoreRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, err := s.Write("k1", "c1", []Artifact{{Meta: Metadata{OutputID: "i1", Format: "png"}, Data: []byte("x")}})
	require.NoError(t, err)

	files, err := s.LoadSlot("k1")
	require.NoError(t, err)
	assert.Len(t, files, 2)

	other := newTestStore(t)
	require.NoError(t, other.Restore("k1", files))

	m, ok := other.Lookup("k1")
	require.True(t, ok)
	assert.True(t, m.Fresh("c1"))
}

func TestStatsAndClear(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, err := s.Write("k1", "c1", []Artifact{{Meta: Metadata{OutputID: "i1", Format: "png"}, Data: []byte("1234")}})
	require.NoError(t, err)
	_, err = s.Write("k2", "c2", []Artifact{{Meta: Metadata{OutputID: "i2", Format: "webp"}, Data: []byte("56789")}})
	require.NoError(t, err)

	stats, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Slots)
	assert.Equal(t, 2, stats.Artifacts)
	assert.Greater(t, stats.Bytes, int64(9))

	require.NoError(t, s.Clear())
	stats, err = s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Slots)
}
