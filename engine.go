package imgcache

import "context"

// Engine is the external image-processing engine, consumed as a black box:
// given a source and a config it produces output bytes plus structured
// scalar metadata.
type Engine interface {
	Transform(ctx context.Context, source SourceIdentity, config TransformConfig) (*TransformResult, error)
}

// TransformResult is one completed engine output for a given config.
type TransformResult struct {
	Data   []byte
	Format string
	Width  int
	Height int

	// Extra carries additional scalar fields produced by the engine; they
	// are persisted in the manifest alongside format and dimensions.
	Extra map[string]any
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, source SourceIdentity, config TransformConfig) (*TransformResult, error)

func (f EngineFunc) Transform(ctx context.Context, source SourceIdentity, config TransformConfig) (*TransformResult, error) {
	return f(ctx, source, config)
}
