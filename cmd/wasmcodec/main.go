package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/wasm-codec/roundtrip"
	"github.com/wippyai/wasm-codec/wasm"
)

func main() {
	var (
		wasmFile    = flag.String("wasm", "", "Path to core module wasm file")
		corpus      = flag.String("corpus", "", "Round-trip every .wasm file under this directory")
		sections    = flag.Bool("sections", false, "List sections without decoding them")
		dump        = flag.Bool("dump", false, "Print the decoded module as JSON")
		check       = flag.Bool("check", false, "Round-trip the module and compile it with wazero")
		strip       = flag.String("strip", "", "Drop custom sections with this name (\"*\" for all) and write -o")
		output      = flag.String("o", "", "Output path for -strip")
		features    = flag.String("features", "", "Comma-separated extensions (mvp, all, simd, threads, ...)")
		configFile  = flag.String("config", "", "YAML config file")
		interactive = flag.Bool("i", false, "Interactive section browser")
		verbose     = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	if *wasmFile == "" && *corpus == "" {
		fmt.Fprintln(os.Stderr, "Usage: wasmcodec -wasm <file.wasm> [-sections] [-dump] [-check] [-features list]")
		fmt.Fprintln(os.Stderr, "       wasmcodec -wasm <file.wasm> -strip <name> -o <out.wasm>")
		fmt.Fprintln(os.Stderr, "       wasmcodec -wasm <file.wasm> -i  (interactive mode)")
		fmt.Fprintln(os.Stderr, "       wasmcodec -corpus <dir> [-config file.yaml]")
		os.Exit(1)
	}

	logger, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	installLogger(logger)

	cfg, err := loadConfig(*configFile, *features)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *check {
		cfg.Compile = true
	}
	logger.Debug("configuration", zap.Stringer("features", cfg.Features), zap.Bool("compile", cfg.Compile))

	ctx := context.Background()

	if *corpus != "" {
		if err := runCorpus(ctx, *corpus, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			logger.Warn("stdout is not a terminal, listing sections instead")
			*sections = true
		} else {
			if err := runInteractive(*wasmFile, cfg); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	opts := runOptions{
		sections: *sections,
		dump:     *dump,
		check:    *check,
		strip:    *strip,
		output:   *output,
	}
	if err := run(ctx, *wasmFile, cfg, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type runOptions struct {
	sections bool
	dump     bool
	check    bool
	strip    string
	output   string
}

func run(ctx context.Context, wasmFile string, cfg roundtrip.Config, opts runOptions) error {
	data, err := os.ReadFile(wasmFile)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	m, err := wasm.DecodeModuleWithOptions(data, cfg.Options())
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	switch {
	case opts.dump:
		out, err := json.MarshalIndent(viewModule(wasmFile, len(data), cfg.Features, m), "", "  ")
		if err != nil {
			return fmt.Errorf("marshal: %w", err)
		}
		fmt.Println(string(out))
		return nil

	case opts.strip != "":
		if opts.output == "" {
			return fmt.Errorf("-strip needs -o")
		}
		name := opts.strip
		if name == "*" {
			name = ""
		}
		n, err := m.StripCustom(name)
		if err != nil {
			return fmt.Errorf("strip: %w", err)
		}
		out := m.Encode()
		if err := os.WriteFile(opts.output, out, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Printf("Removed %d custom sections, %d -> %d bytes\n", n, len(data), len(out))
		return nil
	}

	fmt.Printf("Module: %s\n", wasmFile)
	fmt.Printf("Size: %d bytes\n", len(data))
	fmt.Printf("Features: %s\n", cfg.Features)
	fmt.Printf("Sections: %d\n", len(m.Sections))

	if opts.sections || !opts.check {
		fmt.Println()
		for i, s := range m.Sections {
			fmt.Println(sectionLine(i, s))
		}
	}

	if !opts.check {
		return nil
	}

	r := roundtrip.Check(ctx, data, cfg)
	fmt.Printf("\nRound trip: %s (%s)\n", r.Outcome, r.Elapsed)
	switch {
	case r.Compiled:
		fmt.Println("Compile: ok")
	case r.Skipped != "":
		fmt.Printf("Compile: skipped, input rejected by wazero: %s\n", r.Skipped)
	}
	if r.Err != nil {
		return fmt.Errorf("round trip: %w", r.Err)
	}
	return nil
}

func runCorpus(ctx context.Context, dir string, cfg roundtrip.Config) error {
	reports, err := roundtrip.WalkCorpus(ctx, dir, cfg)
	if err != nil {
		return err
	}
	for _, r := range reports {
		if r.Err != nil {
			fmt.Printf("FAIL %s: %v\n", r.Path, r.Err)
		}
	}
	s := roundtrip.Summarize(reports)
	fmt.Println(s)
	if s.Failed > 0 {
		return fmt.Errorf("%d files failed", s.Failed)
	}
	return nil
}
