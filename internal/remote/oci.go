// Package remote syncs the artifact cache with an OCI registry.
//
// Each cache slot (manifest plus artifact files) is packed into one layer
// blob, zstd-compressed for transfer. The image config carries a
// slot -> {hash, layer} map so pulls only download slots that differ from
// the local cache. Packing is deterministic, so unchanged slots produce
// digest-identical layers and registries skip re-uploading them.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/empty"
	"github.com/google/go-containerregistry/pkg/v1/mutate"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/types"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/aweris/imgcache/internal/compression"
)

const DefaultConcurrency = 4

const slotsLabel = "dev.imgcache.slots"

// Registry pushes and pulls the cache to an OCI image reference.
type Registry struct {
	ref         name.Reference
	auth        Authenticator
	concurrency int
}

// NewRegistry creates a registry sync target from a standard image ref
// (e.g., "ttl.sh/myorg/imgcache:main").
func NewRegistry(imageRef string, auth Authenticator) (*Registry, error) {
	ref, err := name.ParseReference(imageRef, name.WithDefaultTag("latest"))
	if err != nil {
		return nil, fmt.Errorf("invalid image ref %q: %w", imageRef, err)
	}
	return &Registry{ref: ref, auth: auth, concurrency: DefaultConcurrency}, nil
}

// SetConcurrency sets the number of parallel operations for push/pull.
func (r *Registry) SetConcurrency(n int) {
	if n > 0 {
		r.concurrency = n
	}
}

func (r *Registry) String() string   { return r.ref.String() }
func (r *Registry) Registry() string { return r.ref.Context().RegistryStr() }

var slotCompressor, _ = compression.NewCompressor(2)

// slotLayer implements v1.Layer with zstd compression for remote transfer.
type slotLayer struct {
	compressed   []byte
	uncompressed []byte
}

func newSlotLayer(data []byte) *slotLayer {
	return &slotLayer{
		compressed:   slotCompressor.Compress(data),
		uncompressed: data,
	}
}

func (l *slotLayer) Digest() (v1.Hash, error) {
	h, _, err := v1.SHA256(bytes.NewReader(l.compressed))
	return h, err
}

func (l *slotLayer) DiffID() (v1.Hash, error) {
	h, _, err := v1.SHA256(bytes.NewReader(l.uncompressed))
	return h, err
}

func (l *slotLayer) Compressed() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(l.compressed)), nil
}

func (l *slotLayer) Uncompressed() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(l.uncompressed)), nil
}

func (l *slotLayer) Size() (int64, error)                { return int64(len(l.compressed)), nil }
func (l *slotLayer) MediaType() (types.MediaType, error) { return types.OCILayerZStd, nil }

// Push uploads the cache as an image: one layer per slot.
func (r *Registry) Push(ctx context.Context, slots map[string]map[string][]byte) error {
	keys := make([]string, 0, len(slots))
	for key := range slots {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	log.Info().Int("slots", len(keys)).Str("ref", r.String()).Msg("pushing cache")

	infos := make(map[string]SlotInfo, len(keys))
	layers := make([]v1.Layer, 0, len(keys))
	for _, key := range keys {
		files := slots[key]
		layer := newSlotLayer(PackSlot(files))
		digest, err := layer.Digest()
		if err != nil {
			return fmt.Errorf("layer digest: %w", err)
		}
		layers = append(layers, layer)
		infos[key] = SlotInfo{Hash: SlotHash(files), Layer: digest.String()}
	}

	img, err := r.buildImage(layers, infos)
	if err != nil {
		return fmt.Errorf("build image: %w", err)
	}

	options := r.remoteOptions()
	options = append(options, remote.WithContext(ctx), remote.WithJobs(r.concurrency))
	if _, err := retry(ctx, 3, func() (struct{}, error) {
		return struct{}{}, remote.Write(r.ref, img, options...)
	}); err != nil {
		return fmt.Errorf("push to %s: %w", r.String(), err)
	}

	log.Info().Str("ref", r.String()).Msg("push complete")
	return nil
}

func (r *Registry) buildImage(layers []v1.Layer, infos map[string]SlotInfo) (v1.Image, error) {
	img := empty.Image

	if len(layers) > 0 {
		var err error
		img, err = mutate.AppendLayers(img, layers...)
		if err != nil {
			return nil, err
		}
	}

	cfg, err := img.ConfigFile()
	if err != nil {
		return nil, err
	}

	infoJSON, _ := json.Marshal(infos)
	cfg.Config.Labels = map[string]string{slotsLabel: string(infoJSON)}

	return mutate.ConfigFile(img, cfg)
}

// Pull downloads slots whose remote hash differs from localHashes. The
// returned map holds only the changed slots, keyed by cache key, each a
// filename -> bytes map.
func (r *Registry) Pull(ctx context.Context, localHashes map[string]string) (map[string]map[string][]byte, error) {
	options := append(r.remoteOptions(), remote.WithContext(ctx))
	img, err := retry(ctx, 3, func() (v1.Image, error) {
		return remote.Image(r.ref, options...)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}

	cfg, err := img.ConfigFile()
	if err != nil {
		return nil, fmt.Errorf("get config: %w", err)
	}

	var infos map[string]SlotInfo
	if infoJSON := cfg.Config.Labels[slotsLabel]; infoJSON != "" {
		if err := json.Unmarshal([]byte(infoJSON), &infos); err != nil {
			return nil, fmt.Errorf("parse %s label: %w", slotsLabel, err)
		}
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("image %s carries no cache slots", r.String())
	}

	// Layer digest -> slot keys needing it.
	needed := make(map[string][]string)
	for key, info := range infos {
		if localHashes[key] == info.Hash {
			continue
		}
		needed[info.Layer] = append(needed[info.Layer], key)
	}
	if len(needed) == 0 {
		log.Info().Str("ref", r.String()).Msg("cache already up to date")
		return map[string]map[string][]byte{}, nil
	}

	layers, err := img.Layers()
	if err != nil {
		return nil, fmt.Errorf("get layers: %w", err)
	}

	log.Info().Int("layers", len(needed)).Str("ref", r.String()).Msg("pulling changed slots")

	var mu sync.Mutex
	slots := make(map[string]map[string][]byte)

	p := pool.New().WithMaxGoroutines(r.concurrency).WithContext(ctx).WithCancelOnError()

	for _, layer := range layers {
		digest, err := layer.Digest()
		if err != nil {
			continue
		}
		keys := needed[digest.String()]
		if len(keys) == 0 {
			continue
		}

		p.Go(func(ctx context.Context) error {
			rc, err := layer.Uncompressed()
			if err != nil {
				return fmt.Errorf("read layer: %w", err)
			}
			data, err := io.ReadAll(rc)
			if cerr := rc.Close(); cerr != nil {
				return fmt.Errorf("close layer: %w", cerr)
			}
			if err != nil {
				return fmt.Errorf("read layer: %w", err)
			}

			files, err := UnpackSlot(data)
			if err != nil {
				return fmt.Errorf("unpack layer: %w", err)
			}

			mu.Lock()
			for _, key := range keys {
				slots[key] = files
			}
			mu.Unlock()
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return nil, err
	}

	log.Info().Int("slots", len(slots)).Str("ref", r.String()).Msg("pull complete")
	return slots, nil
}

func (r *Registry) remoteOptions() []remote.Option {
	if r.auth != nil {
		username, password, err := r.auth.Authenticate(r.Registry())
		if err == nil && username != "" {
			return []remote.Option{remote.WithAuth(&authn.Basic{
				Username: username,
				Password: password,
			})}
		}
	}
	return []remote.Option{remote.WithAuthFromKeychain(authn.DefaultKeychain)}
}

func retry[T any](ctx context.Context, maxAttempts int, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err
		if i < maxAttempts-1 {
			delay := time.Duration(1<<i) * 500 * time.Millisecond
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return zero, lastErr
}
