package roundtrip

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/wasm-codec/errors"
	"github.com/wippyai/wasm-codec/wasm"
)

// Config configures round-trip checks.
type Config struct {
	// Features selects the extensions accepted while decoding.
	Features wasm.Features `yaml:"features" json:"features"`

	// MaxNesting bounds block nesting. Zero uses the codec default.
	MaxNesting int `yaml:"max_nesting" json:"max_nesting,omitempty"`

	// BorrowInput decodes without copying raw spans.
	BorrowInput bool `yaml:"borrow_input" json:"borrow_input,omitempty"`

	// Compile additionally compiles the original and the canonical
	// encoding with wazero and requires both to agree.
	Compile bool `yaml:"compile" json:"compile,omitempty"`

	// MemoryLimitPages caps memories declared by compiled modules.
	// Zero keeps the wazero default.
	MemoryLimitPages uint32 `yaml:"memory_limit_pages" json:"memory_limit_pages,omitempty"`
}

// DefaultConfig accepts every extension and skips compilation.
func DefaultConfig() Config {
	return Config{Features: wasm.FeaturesAll}
}

// Options returns the decode options described by c.
func (c Config) Options() wasm.Options {
	opts := wasm.DefaultOptions()
	opts.Features = c.Features
	if c.MaxNesting > 0 {
		opts.MaxNesting = c.MaxNesting
	}
	opts.BorrowInput = c.BorrowInput
	return opts
}

// Outcome classifies a successful round trip.
type Outcome string

const (
	// OutcomeIdentical means the canonical encoding equals the input.
	OutcomeIdentical Outcome = "identical"
	// OutcomeEquivalent means the canonical encoding differs from the input
	// but decodes to the same values.
	OutcomeEquivalent Outcome = "equivalent"
	// OutcomeFailed means a decode or verification step failed.
	OutcomeFailed Outcome = "failed"
)

// Report describes a single round-trip check.
type Report struct {
	Path     string        `json:"path,omitempty"`
	Size     int           `json:"size"`
	Sections int           `json:"sections"`
	Outcome  Outcome       `json:"outcome"`
	Compiled bool          `json:"compiled,omitempty"`
	Skipped  string        `json:"compile_skipped,omitempty"`
	Elapsed  time.Duration `json:"elapsed"`
	Err      error         `json:"-"`
}

// Check decodes data and verifies that:
//   - the lazy re-encoding equals data,
//   - every payload materializes,
//   - the canonical re-encoding equals data, or decodes to equal values.
//
// With cfg.Compile the canonical encoding must also compile wherever the
// original does.
func Check(ctx context.Context, data []byte, cfg Config) *Report {
	start := time.Now()
	r := &Report{Size: len(data)}
	r.Err = check(ctx, data, cfg, r)
	if r.Err != nil {
		r.Outcome = OutcomeFailed
	}
	r.Elapsed = time.Since(start)
	return r
}

func check(ctx context.Context, data []byte, cfg Config, r *Report) error {
	opts := cfg.Options()
	m, err := wasm.DecodeModuleWithOptions(data, opts)
	if err != nil {
		return err
	}
	r.Sections = len(m.Sections)

	if out := m.Encode(); !bytes.Equal(out, data) {
		return mismatch("lazy re-encoding", data, out)
	}
	if err := m.Materialize(); err != nil {
		return err
	}
	if out := m.Encode(); !bytes.Equal(out, data) {
		return mismatch("materialized re-encoding", data, out)
	}

	canon := m.EncodeCanonical()
	if bytes.Equal(canon, data) {
		r.Outcome = OutcomeIdentical
	} else {
		back, err := wasm.DecodeModuleWithOptions(canon, opts)
		if err != nil {
			return errors.Wrap(errors.PhaseVerify, errors.KindRoundTrip, err, "canonical encoding does not decode")
		}
		eq, err := wasm.Equal(m, back)
		if err != nil {
			return errors.Wrap(errors.PhaseVerify, errors.KindRoundTrip, err, "canonical encoding does not materialize")
		}
		if !eq {
			return mismatch("canonical encoding", data, canon)
		}
		r.Outcome = OutcomeEquivalent
	}

	if !cfg.Compile {
		return nil
	}
	comp := NewCompiler(ctx, cfg)
	defer comp.Close(ctx)
	if err := comp.Compile(ctx, data); err != nil {
		r.Skipped = err.Error()
		return nil
	}
	if err := comp.Compile(ctx, canon); err != nil {
		return errors.Wrap(errors.PhaseVerify, errors.KindRoundTrip, err, "canonical encoding does not compile")
	}
	r.Compiled = true
	return nil
}

// CheckGenerated encodes m and checks that the bytes decode back to equal
// values and re-encode unchanged.
func CheckGenerated(ctx context.Context, m *wasm.Module, cfg Config) *Report {
	bin := m.Encode()
	r := Check(ctx, bin, cfg)
	if r.Err != nil {
		return r
	}
	back, err := wasm.DecodeModuleWithOptions(bin, cfg.Options())
	if err == nil {
		var eq bool
		eq, err = wasm.Equal(m, back)
		if err == nil && !eq {
			err = errors.New(errors.PhaseVerify, errors.KindRoundTrip).
				Detail("decoded module differs from generated module").
				Build()
		}
	}
	if err != nil {
		r.Err = err
		r.Outcome = OutcomeFailed
	}
	return r
}

// WalkCorpus checks every .wasm file under dir. Failing files produce
// failed reports; only walk and read errors abort the walk.
func WalkCorpus(ctx context.Context, dir string, cfg Config) ([]*Report, error) {
	var reports []*Report
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".wasm") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Load("read "+path, err)
		}
		r := Check(ctx, data, cfg)
		r.Path = path
		reports = append(reports, r)

		fields := []zap.Field{
			zap.String("path", path),
			zap.Int("size", r.Size),
			zap.String("outcome", string(r.Outcome)),
			zap.Duration("elapsed", r.Elapsed),
		}
		if r.Err != nil {
			Logger().Warn("round trip failed", append(fields, zap.Error(r.Err))...)
		} else {
			Logger().Info("round trip", fields...)
		}
		return nil
	})
	if err != nil {
		return reports, errors.Load("walk "+dir, err)
	}
	return reports, nil
}

// Summary counts reports by outcome.
type Summary struct {
	Total      int `json:"total"`
	Identical  int `json:"identical"`
	Equivalent int `json:"equivalent"`
	Failed     int `json:"failed"`
	Compiled   int `json:"compiled"`
}

// Summarize counts reports by outcome.
func Summarize(reports []*Report) Summary {
	var s Summary
	for _, r := range reports {
		s.Total++
		switch r.Outcome {
		case OutcomeIdentical:
			s.Identical++
		case OutcomeEquivalent:
			s.Equivalent++
		default:
			s.Failed++
		}
		if r.Compiled {
			s.Compiled++
		}
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%d files: %d identical, %d equivalent, %d failed",
		s.Total, s.Identical, s.Equivalent, s.Failed)
}

// mismatch reports the first differing offset between want and got.
func mismatch(what string, want, got []byte) error {
	i := 0
	for i < len(want) && i < len(got) && want[i] == got[i] {
		i++
	}
	return errors.New(errors.PhaseVerify, errors.KindRoundTrip).
		Offset(i).
		Detail("%s differs (input %d bytes, output %d bytes)", what, len(want), len(got)).
		Build()
}
