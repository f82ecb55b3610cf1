// Package imgcache provides a build-time cache for generated image variants.
//
// Given a source asset and a set of transform directives, imgcache decides
// whether a previously generated output can be reused or must be regenerated
// by an external transform engine. Outputs are persisted atomically under a
// per-source slot directory and garbage-collected by recency once per build.
//
// Basic usage:
//
//	cache, _ := imgcache.Open(imgcache.WithRoot(".image-cache"))
//	defer cache.Close()
//
//	src := imgcache.LocalSource{Path: "assets/hero.png", ModTime: mtime}
//	cfg := imgcache.NewTransformConfig(
//		imgcache.Directive{Key: "width", Value: "300"},
//		imgcache.Directive{Key: "format", Value: "webp"},
//	)
//
//	img, _ := cache.Resolve(ctx, src, cfg, engine)
//	switch img := img.(type) {
//	case imgcache.CachedImage:
//		// reuse img.Path
//	case imgcache.GeneratedImage:
//		// serve img.Data, already persisted for the next build
//	}
//
//	// End of build: evict slots untouched for longer than the retention window.
//	cache.Sweep()
//
// With remote sync:
//
//	cache, _ := imgcache.Open(imgcache.WithRemote("ttl.sh/myorg/imgcache:main"))
//	cache.Push(ctx)
//	cache.Pull(ctx)
//
// Concurrent requests for the same source are serialized per cache key so
// different transform configs accumulate into one slot manifest. Independent
// processes sharing a cache directory are not coordinated; that is a
// documented limitation, not a feature.
package imgcache
