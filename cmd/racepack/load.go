package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/heisthecat31/racepack/pkg/archive"
	"github.com/heisthecat31/racepack/pkg/format"
	"github.com/heisthecat31/racepack/pkg/material"
	"github.com/heisthecat31/racepack/pkg/model"
)

// container is a decoded package file.
type container struct {
	path       string
	raw        []byte // uncompressed container bytes
	kind       archive.Kind
	format     format.Format
	compressed bool

	materials *material.Package // the package itself, or the one a model embeds
	model     *model.Package
}

// loadFile reads a material or model package, unwrapping a zstd envelope
// when present. Bare model packages carry no magic, so they are recognized
// by the absence of a material magic unless -kind says otherwise.
func loadFile(path string) (*container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	c := &container{path: path}
	if archive.IsArchive(data) {
		h, payload, err := archive.ReadAll(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		data = payload
		c.kind = h.Kind
		c.format = h.Format()
		c.compressed = true
	} else {
		c.kind = detectKind(data)
		c.format = format.Format{Platform: platform}
	}
	c.raw = data

	if err := c.decode(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func detectKind(data []byte) archive.Kind {
	switch kindName {
	case "material":
		return archive.KindMaterial
	case "model":
		return archive.KindModel
	}
	if material.IsPackage(data) {
		return archive.KindMaterial
	}
	return archive.KindModel
}

func (c *container) decode() error {
	switch c.kind {
	case archive.KindMaterial:
		p, err := material.Decode(c.raw)
		if err != nil {
			return err
		}
		c.materials = p
		c.format = p.Format
	case archive.KindModel:
		p, err := model.Decode(c.raw, model.Options{Platform: c.format.Platform})
		if err != nil {
			return err
		}
		c.model = p
		c.materials = p.Materials
		c.format = p.Format
	default:
		return fmt.Errorf("unknown container kind %s", c.kind)
	}
	return nil
}

// encode re-encodes the decoded package.
func (c *container) encode() ([]byte, error) {
	if c.model != nil {
		return model.Encode(c.model)
	}
	return material.Encode(c.materials)
}
