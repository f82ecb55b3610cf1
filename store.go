package imgcache

import "github.com/aweris/imgcache/internal/store"

// Manifest is the durable description of one cache slot.
// Re-exported from internal/store for convenience.
type Manifest = store.Manifest

// Metadata describes one generated output variant.
// Re-exported from internal/store for convenience.
type Metadata = store.Metadata

// Stats summarizes the store contents.
// Re-exported from internal/store for convenience.
type Stats = store.Stats

// Artifact pairs output metadata with its bytes for a slot write.
// Re-exported from internal/store for convenience.
type Artifact = store.Artifact
