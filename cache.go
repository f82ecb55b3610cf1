package imgcache

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/aweris/imgcache/internal/remote"
	"github.com/aweris/imgcache/internal/store"
)

// Cache is the build-time artifact cache. It owns the on-disk slot layout
// and the per-key locking discipline; the transform engine and the build
// tool's plugin lifecycle stay outside.
type Cache struct {
	store  *store.Store
	locks  *keyedMutex
	remote *remote.Registry
	opts   *Options
}

// Open creates or opens a cache with the given options.
func Open(opts ...Option) (*Cache, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	s, err := store.New(options.Root)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		store: s,
		locks: newKeyedMutex(),
		opts:  options,
	}

	if options.Remote != "" {
		reg, err := remote.NewRegistry(options.Remote, options.Auth)
		if err != nil {
			return nil, err
		}
		reg.SetConcurrency(options.Concurrency)
		c.remote = reg
	}

	return c, nil
}

// Root returns the cache root directory.
func (c *Cache) Root() string { return c.store.Root() }

// Enabled reports whether caching is active.
func (c *Cache) Enabled() bool { return c.opts.Enabled }

// Resolve returns a servable image for (source, config), reusing a persisted
// artifact when the slot is fresh and regenerating through the engine
// otherwise. The whole sequence runs under the source's key lock, so
// concurrent requests with different configs accumulate into one manifest.
//
// A missing or unreadable source fails the operation before any cache
// interaction. Cache-side failures never do: a corrupt slot reads as a miss
// and a failed write leaves the build running with the freshly generated
// bytes, as though nothing had been cached this run.
func (c *Cache) Resolve(ctx context.Context, source SourceIdentity, config TransformConfig, engine Engine) (Image, error) {
	if !c.opts.Enabled {
		res, err := c.transform(ctx, source, config, engine)
		if err != nil {
			return nil, err
		}
		return GeneratedImage{Data: res.Data, Meta: c.metadata(source, config, res)}, nil
	}

	checksum, err := c.checksum(source)
	if err != nil {
		return nil, err
	}

	key := CacheKey(source.Reference())
	id := OutputID(source, config)

	unlock := c.locks.lock(key)
	defer unlock()

	manifest, ok := c.store.Lookup(key)
	if ok && manifest.Fresh(checksum) {
		if meta, found := manifest.Find(id); found {
			if err := c.store.Touch(key); err != nil {
				log.Debug().Str("slot", key).Err(err).Msg("failed to refresh recency marker")
			}
			return CachedImage{Path: c.store.ArtifactPath(key, meta), Meta: meta}, nil
		}

		// Fresh slot, unseen variant: generate and accumulate it alongside
		// the existing outputs.
		res, err := c.transform(ctx, source, config, engine)
		if err != nil {
			return nil, err
		}
		meta := c.metadata(source, config, res)

		artifacts := make([]store.Artifact, 0, len(manifest.Metadatas)+1)
		for _, md := range manifest.Metadatas {
			artifacts = append(artifacts, store.Artifact{Meta: md})
		}
		artifacts = append(artifacts, store.Artifact{Meta: meta, Data: res.Data})

		c.persist(key, checksum, artifacts)
		return GeneratedImage{Data: res.Data, Meta: meta}, nil
	}

	// Miss, or the source changed since the slot was written: the whole slot
	// is replaced, not patched.
	res, err := c.transform(ctx, source, config, engine)
	if err != nil {
		return nil, err
	}
	meta := c.metadata(source, config, res)

	c.persist(key, checksum, []store.Artifact{{Meta: meta, Data: res.Data}})
	return GeneratedImage{Data: res.Data, Meta: meta}, nil
}

// persist writes the slot; failures are logged by the store and swallowed
// here so the build proceeds uncached for this source.
func (c *Cache) persist(key, checksum string, artifacts []store.Artifact) {
	if _, err := c.store.Write(key, checksum, artifacts); err != nil {
		log.Warn().Str("slot", key).Err(err).Msg("proceeding without cache for this source")
	}
}

func (c *Cache) transform(ctx context.Context, source SourceIdentity, config TransformConfig, engine Engine) (*TransformResult, error) {
	res, err := engine.Transform(ctx, source, config)
	if err != nil {
		return nil, fmt.Errorf("transform %s: %w", source.Reference(), err)
	}
	if res == nil {
		return nil, fmt.Errorf("transform %s: engine returned no result", source.Reference())
	}
	return res, nil
}

func (c *Cache) metadata(source SourceIdentity, config TransformConfig, res *TransformResult) Metadata {
	return Metadata{
		OutputID: OutputID(source, config),
		Format:   res.Format,
		Width:    res.Width,
		Height:   res.Height,
		Extra:    res.Extra,
	}
}

// checksum fingerprints the source's raw bytes. Failure is escalated: an
// unreadable source is a condition broader than caching.
func (c *Cache) checksum(source SourceIdentity) (string, error) {
	switch s := source.(type) {
	case LocalSource:
		return ChecksumFile(c.opts.Algorithm, s.Path)
	case RemoteSource:
		return ChecksumBytes(c.opts.Algorithm, s.Data)
	default:
		return "", fmt.Errorf("unsupported source %T", source)
	}
}

// Lookup reads a slot's manifest directly. Exposed for orchestrators that
// drive the store themselves; most callers want Resolve.
func (c *Cache) Lookup(key string) (*Manifest, bool) { return c.store.Lookup(key) }

// ArtifactPath recomputes the artifact path for a metadata entry.
func (c *Cache) ArtifactPath(key string, meta Metadata) string {
	return c.store.ArtifactPath(key, meta)
}

// Touch refreshes a slot's recency marker. Orchestrators driving the store
// themselves call this on a hit; Resolve does it automatically.
func (c *Cache) Touch(key string) error { return c.store.Touch(key) }

// Write persists a full slot under the key's lock. Most callers want
// Resolve; this is the low-level entry point for external orchestrators.
func (c *Cache) Write(key, checksum string, artifacts []Artifact) (*Manifest, error) {
	unlock := c.locks.lock(key)
	defer unlock()
	return c.store.Write(key, checksum, artifacts)
}

// Sweep evicts slots whose recency marker is older than the retention
// window. Call once at the end of a completed build; returns the number of
// evicted slots.
func (c *Cache) Sweep() int {
	return store.Sweep(c.store.Root(), c.opts.RetentionSeconds)
}

// Stats summarizes the store contents.
func (c *Cache) Stats() (Stats, error) { return c.store.Stats() }

// Slots lists the cache keys present in the store.
func (c *Cache) Slots() ([]string, error) { return c.store.Slots() }

// Clear removes every slot.
func (c *Cache) Clear() error { return c.store.Clear() }

// Push uploads the cache to the configured remote ref.
func (c *Cache) Push(ctx context.Context) error {
	if c.remote == nil {
		return ErrNoRemote
	}

	keys, err := c.store.Slots()
	if err != nil {
		return err
	}

	slots := make(map[string]map[string][]byte, len(keys))
	for _, key := range keys {
		files, err := c.store.LoadSlot(key)
		if err != nil {
			log.Warn().Str("slot", key).Err(err).Msg("skipping unreadable slot")
			continue
		}
		if _, ok := files[store.ManifestName]; !ok {
			// Incomplete slot left behind by an aborted build.
			continue
		}
		slots[key] = files
	}

	return c.remote.Push(ctx, slots)
}

// Pull downloads slots that differ from the local cache and restores them
// with the usual artifacts-before-manifest ordering.
func (c *Cache) Pull(ctx context.Context) error {
	if c.remote == nil {
		return ErrNoRemote
	}

	localHashes := make(map[string]string)
	if keys, err := c.store.Slots(); err == nil {
		for _, key := range keys {
			if files, err := c.store.LoadSlot(key); err == nil {
				localHashes[key] = remote.SlotHash(files)
			}
		}
	}

	slots, err := c.remote.Pull(ctx, localHashes)
	if err != nil {
		return err
	}

	for key, files := range slots {
		unlock := c.locks.lock(key)
		err := c.store.Restore(key, files)
		unlock()
		if err != nil {
			return err
		}
	}
	return nil
}

// Close releases the cache. Present for symmetry with Open; the store holds
// no open handles between operations.
func (c *Cache) Close() error { return nil }
