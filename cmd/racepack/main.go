// Package main provides a command-line tool for inspecting and rewriting
// material and model packages.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/heisthecat31/racepack/pkg/format"
)

var (
	mode           string
	inputPath      string
	outputDir      string
	platformName   string
	kindName       string
	compress       bool
	level          int
	includeRules   string
	excludeRules   string
	workers        int
	forceOverwrite bool

	platform format.Platform
)

func init() {
	flag.StringVar(&mode, "mode", "", "Operation mode: info, textures, repack, verify")
	flag.StringVar(&inputPath, "input", "", "Input container (or directory for verify)")
	flag.StringVar(&outputDir, "output", "", "Output directory for textures and repack")
	flag.StringVar(&platformName, "platform", "pc", "Platform of model packages: pc, xbox")
	flag.StringVar(&kindName, "kind", "auto", "Container kind: auto, material, model")
	flag.BoolVar(&compress, "compress", false, "Write repacked containers in a zstd envelope")
	flag.IntVar(&level, "level", 0, "zstd compression level (0 uses the default)")
	flag.StringVar(&includeRules, "include", "", "Comma-separated glob patterns selecting files to verify")
	flag.StringVar(&excludeRules, "exclude", "", "Comma-separated glob patterns excluded from verify")
	flag.IntVar(&workers, "workers", 0, "Verify workers (0 uses GOMAXPROCS)")
	flag.BoolVar(&forceOverwrite, "force", false, "Allow non-empty output directory")
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := validateFlags(); err != nil {
		flag.Usage()
		return err
	}

	switch mode {
	case "info":
		return runInfo()
	case "textures":
		if err := prepareOutputDir(); err != nil {
			return err
		}
		return runTextures()
	case "repack":
		if err := prepareOutputDir(); err != nil {
			return err
		}
		return runRepack()
	case "verify":
		return runVerify()
	default:
		return fmt.Errorf("unknown mode: %s", mode)
	}
}

func validateFlags() error {
	if mode == "" {
		return fmt.Errorf("mode is required")
	}
	if inputPath == "" {
		return fmt.Errorf("input is required")
	}

	switch mode {
	case "info", "verify":
	case "textures", "repack":
		if outputDir == "" {
			return fmt.Errorf("%s mode requires -output", mode)
		}
	default:
		return fmt.Errorf("mode must be 'info', 'textures', 'repack' or 'verify'")
	}

	p, err := format.ParsePlatform(platformName)
	if err != nil {
		return err
	}
	platform = p

	switch kindName {
	case "auto", "material", "model":
	default:
		return fmt.Errorf("kind must be 'auto', 'material' or 'model'")
	}
	if workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return nil
}

func prepareOutputDir() error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	if !forceOverwrite {
		empty, err := isDirEmpty(outputDir)
		if err != nil {
			return fmt.Errorf("check output directory: %w", err)
		}
		if !empty {
			return fmt.Errorf("output directory is not empty (use -force to override)")
		}
	}

	return nil
}

func isDirEmpty(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	_, err = f.Readdir(1)
	return err == io.EOF, nil
}

// splitPatterns splits a comma-separated flag value, dropping blanks.
func splitPatterns(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
