package store

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

// SweepConcurrency bounds parallel slot deletions during a sweep.
const SweepConcurrency = 8

// Sweep iterates the cache root's immediate subdirectories and evicts stale
// or corrupt slots. A slot is deleted when its manifest cannot be stat'ed
// (missing or corrupt entry) or when its recency marker — the manifest's
// modification time, refreshed on every hit — is older than the retention
// window. retentionSeconds == 0 disables garbage collection entirely.
//
// Sweep runs once at the end of a completed build, never during a
// long-running development session. Per-slot deletion failures are logged
// and skipped; a sweep never fails the build.
func Sweep(root string, retentionSeconds int64) int {
	if retentionSeconds == 0 {
		return 0
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		log.Warn().Str("root", root).Err(err).Msg("cache sweep skipped")
		return 0
	}

	retention := time.Duration(retentionSeconds) * time.Second
	now := time.Now()

	removed := make(chan int, len(entries))
	p := pool.New().WithMaxGoroutines(SweepConcurrency)

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(root, e.Name())

		p.Go(func() {
			info, err := os.Stat(filepath.Join(dir, ManifestName))
			if err == nil && now.Sub(info.ModTime()) <= retention {
				return
			}

			if err := os.RemoveAll(dir); err != nil {
				log.Warn().Str("slot", filepath.Base(dir)).Err(err).Msg("failed to evict slot")
				return
			}
			removed <- 1
		})
	}

	p.Wait()
	close(removed)

	n := 0
	for range removed {
		n++
	}
	if n > 0 {
		log.Debug().Int("removed", n).Str("root", root).Msg("cache sweep complete")
	}
	return n
}
