package wasm

import (
	"strings"

	"github.com/wippyai/wasm-codec/errors"
)

// Features selects which post-MVP extensions the decoder accepts.
// The base set (MVP, sign extension and saturating truncation) is always on.
type Features uint32

const (
	FeatureTailCall Features = 1 << iota
	FeatureSIMD
	FeatureReferenceTypes
	FeatureBulkMemory
	FeatureThreads
)

const (
	// FeaturesNone accepts only the base instruction set.
	FeaturesNone Features = 0
	// FeaturesAll accepts every supported extension.
	FeaturesAll = FeatureTailCall | FeatureSIMD | FeatureReferenceTypes | FeatureBulkMemory | FeatureThreads
)

var featureNames = []struct {
	name string
	f    Features
}{
	{"tail-call", FeatureTailCall},
	{"simd", FeatureSIMD},
	{"reference-types", FeatureReferenceTypes},
	{"bulk-memory", FeatureBulkMemory},
	{"threads", FeatureThreads},
}

// Normalize adds features implied by others. Reference types require bulk
// memory.
func (f Features) Normalize() Features {
	if f&FeatureReferenceTypes != 0 {
		f |= FeatureBulkMemory
	}
	return f & FeaturesAll
}

// Has reports whether every feature in x is enabled.
func (f Features) Has(x Features) bool {
	return f.Normalize()&x == x
}

func (f Features) String() string {
	f = f.Normalize()
	if f == FeaturesNone {
		return "none"
	}
	var names []string
	for _, n := range featureNames {
		if f&n.f != 0 {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, ",")
}

// ParseFeatures parses a comma-separated feature list. "all" and "none" are
// accepted as shorthands.
func ParseFeatures(s string) (Features, error) {
	var f Features
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		switch part {
		case "", "none", "mvp":
			continue
		case "all":
			f |= FeaturesAll
			continue
		}
		found := false
		for _, n := range featureNames {
			if n.name == part {
				f |= n.f
				found = true
				break
			}
		}
		if !found {
			return 0, errors.InvalidInput(errors.PhaseConfig, "unknown feature "+part)
		}
	}
	return f.Normalize(), nil
}

// MarshalText implements encoding.TextMarshaler.
func (f Features) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Features) UnmarshalText(text []byte) error {
	v, err := ParseFeatures(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}
