package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timeDaysAgo(days int) time.Time {
	return time.Now().Add(-time.Duration(days) * 24 * time.Hour)
}

func writeSweepSlot(t *testing.T, s *Store, key string, age time.Duration) {
	t.Helper()
	_, err := s.Write(key, "c", []Artifact{{Meta: Metadata{OutputID: "i-" + key, Format: "png"}, Data: []byte("x")}})
	require.NoError(t, err)
	if age > 0 {
		old := time.Now().Add(-age)
		require.NoError(t, os.Chtimes(s.ManifestPath(key), old, old))
	}
}

func TestSweepRetentionWindow(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)

	// Marker at now-90000s with retention 86400s: evicted.
	writeSweepSlot(t, s, "stale", 90000*time.Second)
	// Marker at now-80000s: survives.
	writeSweepSlot(t, s, "recent", 80000*time.Second)

	removed := Sweep(s.Root(), 86400)
	assert.Equal(t, 1, removed)

	_, ok := s.Lookup("stale")
	assert.False(t, ok)
	_, ok = s.Lookup("recent")
	assert.True(t, ok)
}

func TestSweepZeroRetentionIsNoop(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	writeSweepSlot(t, s, "ancient", 365*24*time.Hour)

	assert.Equal(t, 0, Sweep(s.Root(), 0))
	_, ok := s.Lookup("ancient")
	assert.True(t, ok)
}

func TestSweepRemovesSlotsWithoutManifest(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	// An aborted build can leave artifacts without a manifest.
	dir := s.SlotDir("broken")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "i1.png"), []byte("x"), 0644))

	assert.Equal(t, 1, Sweep(s.Root(), 86400))
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestSweepMissingRootIsHarmless(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, Sweep(filepath.Join(t.TempDir(), "nope"), 86400))
}
