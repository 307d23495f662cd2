package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/heisthecat31/racepack/pkg/archive"
)

const envelopeExt = ".zst"

func runRepack() error {
	c, err := loadFile(inputPath)
	if err != nil {
		return err
	}

	data, err := c.encode()
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	name := strings.TrimSuffix(filepath.Base(c.path), envelopeExt)
	if !compress {
		path := filepath.Join(outputDir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Printf("Repacked %s (%d bytes) to %s\n", c.kind, len(data), path)
		return nil
	}

	path := filepath.Join(outputDir, name+envelopeExt)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	var opts []archive.WriterOption
	if level != 0 {
		opts = append(opts, archive.WithCompressionLevel(level))
	}
	if err := archive.Encode(f, c.kind, c.format, data, opts...); err != nil {
		return fmt.Errorf("compress %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	fmt.Printf("Repacked %s (%d bytes) to %s\n", c.kind, len(data), path)
	return nil
}
