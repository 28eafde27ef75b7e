package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/wasm-codec/codec"
	"github.com/wippyai/wasm-codec/roundtrip"
	"github.com/wippyai/wasm-codec/wasm"
)

// loadConfig reads the YAML config file, if any, and applies the -features
// override on top of it.
func loadConfig(path, features string) (roundtrip.Config, error) {
	cfg := roundtrip.DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if features != "" {
		f, err := wasm.ParseFeatures(features)
		if err != nil {
			return cfg, err
		}
		cfg.Features = f
	}
	return cfg, nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.DisableStacktrace = true
	return cfg.Build()
}

func installLogger(l *zap.Logger) {
	codec.SetLogger(l)
	wasm.SetLogger(l)
	roundtrip.SetLogger(l)
}
