package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/heisthecat31/racepack/pkg/material"
	"github.com/heisthecat31/racepack/pkg/texture"
)

func runTextures() error {
	c, err := loadFile(inputPath)
	if err != nil {
		return err
	}
	if c.materials == nil || len(c.materials.Textures) == 0 {
		fmt.Println("No textures to export")
		return nil
	}

	base := strings.TrimSuffix(filepath.Base(c.path), filepath.Ext(c.path))
	for i := range c.materials.Textures {
		dds, err := textureDDS(c.materials, i)
		if err != nil {
			return fmt.Errorf("texture %d: %w", i, err)
		}
		t := &c.materials.Textures[i]
		name := fmt.Sprintf("%s_%03d_%08x.dds", base, i, t.Hash)
		if err := os.WriteFile(filepath.Join(outputDir, name), dds, 0644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	fmt.Printf("Exported %d textures to %s\n", len(c.materials.Textures), outputDir)
	return nil
}

// textureDDS converts the top mip of texture i to a DDS file. Paletted
// textures are expanded to ARGB8 with the first palette bound to them.
func textureDDS(p *material.Package, i int) ([]byte, error) {
	t := &p.Textures[i]
	if t.Format == texture.FormatP8 {
		if ref, slot, ok := paletteOwner(p, i); ok {
			argb, err := ref.Depalettize(slot)
			if err != nil {
				return nil, err
			}
			return texture.EncodeDDS(texture.FormatARGB8, t.Width, t.Height, 1, nil, argb)
		}
		fmt.Printf("Warning: texture %d has no palette, exporting indices only\n", i)
	}

	pixels, err := p.Pixels(i)
	if err != nil {
		return nil, err
	}
	return texture.EncodeDDS(t.Format, t.Width, t.Height, 1, nil, pixels)
}

// paletteOwner finds a substance slot binding texture i to a palette.
func paletteOwner(p *material.Package, i int) (material.SubstanceRef, int, bool) {
	for j := range p.Substances {
		ref := material.SubstanceRef{Package: p, Index: j}
		for slot, tex := range ref.Get().Textures {
			if tex != i {
				continue
			}
			if _, ok := ref.PaletteFor(slot); ok {
				return ref, slot, true
			}
		}
	}
	return material.SubstanceRef{}, 0, false
}
