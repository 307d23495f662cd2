package main

import (
	"fmt"

	"github.com/heisthecat31/racepack/pkg/material"
	"github.com/heisthecat31/racepack/pkg/model"
	"github.com/heisthecat31/racepack/pkg/shader"
)

func runInfo() error {
	c, err := loadFile(inputPath)
	if err != nil {
		return err
	}

	envelope := ""
	if c.compressed {
		envelope = " (zstd envelope)"
	}
	fmt.Printf("%s: %s package %s, %d bytes%s\n", c.path, c.kind, c.format, len(c.raw), envelope)

	if c.model != nil {
		printModel(c.model)
	}
	if c.materials != nil {
		printMaterials(c.materials)
	}
	return nil
}

func printModel(p *model.Package) {
	fmt.Printf("Models: %d, lod instances: %d, submodels: %d, vertex declarations: %d\n",
		len(p.Models), len(p.LodInstances), len(p.SubModels), len(p.VertexDecls))
	fmt.Printf("Vertex buffer: %d bytes, index buffer: %d bytes\n", len(p.VertexBuffer), len(p.IndexBuffer))
	if p.XboxSubModels {
		fmt.Println("Submodels use the narrow Xbox layout")
	}
	if p.LayoutAmbiguous {
		fmt.Println("Warning: submodels also parse as narrow Xbox records; standard layout assumed")
	}

	for i := range p.Models {
		m := &p.Models[i]
		fmt.Printf("  [%d] %q uid=0x%08x lods=%d\n", i, m.Name, m.UID, len(m.Lods))
		for j := range m.Lods {
			lod := &m.Lods[j]
			slot, ok := lod.Slot()
			if !ok {
				slot = -1
			}
			fmt.Printf("      lod slot %d distance %.1f instances %d\n", slot, lod.Distance, len(lod.Instances))
		}
	}

	statuses := make(map[material.Status]int)
	for i := range p.SubModels {
		statuses[p.ResolveMaterial(i, nil).Status]++
	}
	for s, n := range statuses {
		fmt.Printf("Material handles %s: %d\n", s, n)
	}

	b := p.Bounds()
	fmt.Printf("Bounds: center (%.2f, %.2f, %.2f) radius %.2f\n", b.X(), b.Y(), b.Z(), b.W())
}

func printMaterials(p *material.Package) {
	fmt.Printf("Materials: %d, substances: %d, textures: %d, palettes: %d\n",
		len(p.Materials), len(p.Substances), len(p.Textures), len(p.Palettes))

	for i := range p.Materials {
		ref := p.Material(i)
		m := ref.Get()
		fmt.Printf("  [%d] handle 0x%04x %s substances=%d\n", i, m.Handle, m.Type, len(m.Substances))
		for j, s := range ref.Substances() {
			e := shader.Resolve(s.SubstanceBits)
			_, passes, ok := shader.Converge(s.SubstanceBits, 4)
			stable := "stable"
			if !ok {
				stable = "unstable"
			} else if passes > 1 {
				stable = fmt.Sprintf("canonical after %d passes", passes)
			}
			fmt.Printf("      substance %d: bin %s effect %d specular=%v textures=%d (%s)\n",
				j, s.Bin, e.ID, e.Specular, len(s.Textures), stable)
		}
	}

	for i := range p.Textures {
		t := &p.Textures[i]
		fmt.Printf("  texture %d: %s %dx%d mips=%d %d bytes hash=0x%08x\n",
			i, t.Format, t.Width, t.Height, t.MipCount, len(t.Data), t.Hash)
	}
}
