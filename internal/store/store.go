package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// Artifact pairs output metadata with its bytes. Data may be nil when the
// artifact file is already persisted in the slot (accumulating a new variant
// into an existing manifest); the file write is then skipped.
type Artifact struct {
	Meta Metadata
	Data []byte
}

// Store owns the on-disk cache entry layout under one root directory.
// Operations against a single slot are not synchronized here; the caller
// holds a per-key lock across the full lookup/decide/write sequence.
type Store struct {
	root string
}

// New opens a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache root cannot be empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}
	return &Store{root: dir}, nil
}

func (s *Store) Root() string { return s.root }

// SlotDir returns the slot directory for a cache key.
func (s *Store) SlotDir(key string) string {
	return filepath.Join(s.root, key)
}

// ManifestPath returns the slot's manifest path.
func (s *Store) ManifestPath(key string) string {
	return filepath.Join(s.root, key, ManifestName)
}

// ArtifactPath recomputes the artifact path for a metadata entry. Paths are
// never persisted in the manifest.
func (s *Store) ArtifactPath(key string, m Metadata) string {
	return filepath.Join(s.root, key, m.Filename())
}

// Lookup reads the slot's manifest. Any I/O or parse failure reads as
// absent, never as an error: a corrupt slot is overwritten by the next
// write, so the cache self-heals instead of surfacing corruption.
func (s *Store) Lookup(key string) (*Manifest, bool) {
	data, err := os.ReadFile(s.ManifestPath(key))
	if err != nil {
		return nil, false
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		log.Debug().Str("slot", key).Err(err).Msg("unparsable manifest, treating as miss")
		return nil, false
	}
	return &m, true
}

// Touch refreshes the manifest's modification time to now, implementing a
// sliding recency window rather than a fixed expiry from creation time.
func (s *Store) Touch(key string) error {
	now := time.Now()
	return os.Chtimes(s.ManifestPath(key), now, now)
}

// Write persists a full slot: every artifact file is flushed before the
// manifest, and the manifest is written last as the completeness signal.
// On any mid-sequence failure the whole slot directory is removed rather
// than leaving a partially populated, falsely valid entry.
func (s *Store) Write(key, checksum string, artifacts []Artifact) (*Manifest, error) {
	dir := s.SlotDir(key)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create slot dir: %w", err)
	}

	m, err := s.writeSlot(dir, checksum, artifacts)
	if err != nil {
		log.Warn().Str("slot", key).Err(err).Msg("slot write failed, removing partial entry")
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			log.Warn().Str("slot", key).Err(rmErr).Msg("failed to remove partial slot")
		}
		return nil, err
	}
	return m, nil
}

func (s *Store) writeSlot(dir, checksum string, artifacts []Artifact) (*Manifest, error) {
	metadatas := make([]Metadata, 0, len(artifacts))
	for _, a := range artifacts {
		metadatas = append(metadatas, a.Meta)

		path := filepath.Join(dir, a.Meta.Filename())
		if a.Data == nil {
			// Carried over from the existing manifest; the file is already
			// on disk.
			if _, err := os.Stat(path); err != nil {
				return nil, fmt.Errorf("carried artifact %s: %w", a.Meta.Filename(), err)
			}
			continue
		}
		if err := writeFileSync(path, a.Data); err != nil {
			return nil, fmt.Errorf("write artifact %s: %w", a.Meta.Filename(), err)
		}
	}

	m := &Manifest{
		Checksum:  checksum,
		Created:   time.Now().UnixMilli(),
		Metadatas: metadatas,
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := writeFileSync(filepath.Join(dir, ManifestName), data); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	return m, nil
}

// Restore writes a pulled slot with the same ordering discipline as Write:
// artifact files first, manifest last.
func (s *Store) Restore(key string, files map[string][]byte) error {
	manifest, ok := files[ManifestName]
	if !ok {
		return fmt.Errorf("slot %s: missing %s", key, ManifestName)
	}

	dir := s.SlotDir(key)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create slot dir: %w", err)
	}

	write := func() error {
		for name, data := range files {
			if name == ManifestName {
				continue
			}
			if err := writeFileSync(filepath.Join(dir, name), data); err != nil {
				return fmt.Errorf("write artifact %s: %w", name, err)
			}
		}
		return writeFileSync(filepath.Join(dir, ManifestName), manifest)
	}

	if err := write(); err != nil {
		log.Warn().Str("slot", key).Err(err).Msg("slot restore failed, removing partial entry")
		_ = os.RemoveAll(dir)
		return err
	}
	return nil
}

// LoadSlot reads every file of a slot into memory, keyed by filename.
func (s *Store) LoadSlot(key string) (map[string][]byte, error) {
	dir := s.SlotDir(key)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make(map[string][]byte, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		files[e.Name()] = data
	}
	return files, nil
}

// Slots lists the cache keys present under the root.
func (s *Store) Slots() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read cache root: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			keys = append(keys, e.Name())
		}
	}
	return keys, nil
}

// Clear removes every slot.
func (s *Store) Clear() error {
	keys, err := s.Slots()
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := os.RemoveAll(s.SlotDir(key)); err != nil {
			return fmt.Errorf("remove slot %s: %w", key, err)
		}
	}
	return nil
}

// Stats summarizes the store contents.
type Stats struct {
	Slots     int
	Artifacts int
	Bytes     int64
}

// Stats walks the root and counts slots, artifact files and total bytes.
func (s *Store) Stats() (Stats, error) {
	keys, err := s.Slots()
	if err != nil {
		return Stats{}, err
	}

	st := Stats{Slots: len(keys)}
	for _, key := range keys {
		entries, err := os.ReadDir(s.SlotDir(key))
		if err != nil {
			continue
		}
		for _, e := range entries {
			info, err := e.Info()
			if err != nil || e.IsDir() {
				continue
			}
			st.Bytes += info.Size()
			if e.Name() != ManifestName {
				st.Artifacts++
			}
		}
	}
	return st, nil
}

// writeFileSync writes data and flushes it to stable storage before
// returning. Artifact files must be durable before the manifest appears.
func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
