package roundtrip

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"

	"github.com/wippyai/wasm-codec/errors"
	"github.com/wippyai/wasm-codec/wasm"
)

// Compiler compiles modules with wazero to confirm that encoder output is
// accepted by a real runtime.
type Compiler struct {
	runtime wazero.Runtime
}

// NewCompiler creates a compiler whose core features follow cfg.Features.
// Tail calls are never enabled, so modules using them are skipped.
func NewCompiler(ctx context.Context, cfg Config) *Compiler {
	return &Compiler{runtime: wazero.NewRuntimeWithConfig(ctx, runtimeConfig(cfg))}
}

func runtimeConfig(cfg Config) wazero.RuntimeConfig {
	runtimeCfg := wazero.NewRuntimeConfig()
	features := api.CoreFeaturesV2
	if cfg.Features.Has(wasm.FeatureThreads) {
		features |= experimental.CoreFeaturesThreads
	}
	runtimeCfg = runtimeCfg.WithCoreFeatures(features)
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	return runtimeCfg
}

// Compile compiles and immediately releases bin.
func (c *Compiler) Compile(ctx context.Context, bin []byte) error {
	compiled, err := c.runtime.CompileModule(ctx, bin)
	if err != nil {
		return errors.Wrap(errors.PhaseVerify, errors.KindInvalidData, err, "wazero compile")
	}
	return compiled.Close(ctx)
}

// Close releases the runtime.
func (c *Compiler) Close(ctx context.Context) error {
	return c.runtime.Close(ctx)
}
