package modgen

import (
	"encoding/hex"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wippyai/wasm-codec/wasm"
)

var featureSets = []wasm.Features{
	wasm.FeaturesNone,
	wasm.FeatureSIMD,
	wasm.FeatureReferenceTypes,
	wasm.FeatureBulkMemory | wasm.FeatureThreads,
	wasm.FeaturesAll,
}

// TestModGen verifies that generated modules survive encode and decode with
// the features they were generated for.
func TestModGen(t *testing.T) {
	tested := map[string]struct{}{}
	rand := rand.New(rand.NewSource(0)) // use deterministic seed source for easy debugging.
	for _, size := range []int{1, 2, 5, 10, 50} {
		for i := 0; i < 20; i++ {
			seed := make([]byte, size)
			_, err := rand.Read(seed)
			require.NoError(t, err)
			encoded := hex.EncodeToString(seed)
			if _, ok := tested[encoded]; ok {
				continue
			}
			tested[encoded] = struct{}{}
			features := featureSets[i%len(featureSets)]

			t.Run(encoded, func(t *testing.T) {
				m := Gen(seed, features)
				bin := m.Encode()

				opts := wasm.DefaultOptions()
				opts.Features = features
				opts.Eager = true
				decoded, err := wasm.DecodeModuleWithOptions(bin, opts)
				require.NoError(t, err, "features: %s", features)

				eq, err := wasm.Equal(m, decoded)
				require.NoError(t, err)
				require.True(t, eq)

				require.Equal(t, bin, decoded.Encode())
				require.Equal(t, bin, decoded.EncodeCanonical())
			})
		}
	}
}

func TestGen_Deterministic(t *testing.T) {
	seed := []byte("deterministic seed")
	a := Gen(seed, wasm.FeaturesAll).Encode()
	b := Gen(seed, wasm.FeaturesAll).Encode()
	require.Equal(t, a, b)

	c := Gen([]byte("another seed"), wasm.FeaturesAll).Encode()
	require.NotEqual(t, a, c)
}

func TestGen_EmptySeed(t *testing.T) {
	m := Gen(nil, wasm.FeaturesAll)
	require.Empty(t, m.Sections)
	require.Equal(t, []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}, m.Encode())
}

func TestGen_RespectsFeatures(t *testing.T) {
	for i := 0; i < 50; i++ {
		seed := []byte{byte(i), 0x5a, byte(i * 7)}
		bin := Gen(seed, wasm.FeaturesNone).Encode()

		opts := wasm.DefaultOptions()
		opts.Features = wasm.FeaturesNone
		opts.Eager = true
		m, err := wasm.DecodeModuleWithOptions(bin, opts)
		require.NoError(t, err)
		for _, s := range m.Sections {
			require.False(t, s.Unknown(), "section %s", s.ID)
		}
	}
}
