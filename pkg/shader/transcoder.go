// Package shader translates between the compact substance fields stored in
// material packages and the table-driven effect description the renderer
// works with.
//
// Resolve and Compile are two independent transforms. Compile(Resolve(x))
// is not x in general: some inputs need several Compile/Resolve passes to
// reach a fixed point. Converge runs those passes.
package shader

import "github.com/heisthecat31/racepack/pkg/material"

// Effect is the resolved shader description of a substance.
type Effect struct {
	ID       int
	Flags    uint16
	Specular bool
}

// Effect IDs with special handling.
const (
	EffectNone          = -1
	EffectDetail        = 4
	EffectShinyRoad     = 7
	EffectReserved      = 8
	EffectLight         = 9
	EffectCarLights     = 16
	EffectMasked        = 18
	EffectMaskedClutter = 20
)

// binEffect maps a render bin to its effect; EffectNone marks reserved bins.
var binEffect = [material.BinCount]int{
	0, 0, 1, 4, 2, 3, 7, 5, 6, 6, 10, -1, 11, 11, 12, 13,
	14, 15, 16, 14, 14, 14, 17, 17, 19, 6, -1, -1, 9, 9, 21, 21,
	3, 3, -1, 21, 22, 22, 22, -1, -1,
}

// flagMap pairs a substance flag bit with the effect flag bit it sets.
var flagMap = [...]struct {
	substance uint32
	effect    uint16
}{
	{0x000001, 0x0001},
	{0x000002, 0x0004},
	{0x000008, 0x0010},
	{0x000020, 0x0040},
	{0x000400, 0x0100},
	{0x004000, 0x1000},
	{0x100000, 0x8000},
}

const (
	effectFlagShiny      = 0x8000
	substanceWet         = 0x2
	substanceAlphaMask   = 0x40
	substanceCarLightBit = 0x8
	flagsMask            = 0xFFFFFF
)

// EffectForBin returns the table effect of b, EffectNone for reserved bins.
func EffectForBin(b material.Bin) int {
	if b >= material.BinCount {
		return EffectNone
	}
	return binEffect[b]
}

// reserved reports whether b has no table effect.
func reserved(b material.Bin) bool {
	return EffectForBin(b) == EffectNone
}

// Specular reports whether both texture-state bytes enable specular.
func Specular(b material.SubstanceBits) bool {
	return b.TS1&3 != 0 && b.TS2&3 != 0
}

// Resolve derives the effect of a substance.
func Resolve(b material.SubstanceBits) Effect {
	e := Effect{Specular: Specular(b)}

	e.ID = EffectForBin(b.Bin)
	if e.ID == EffectNone {
		e.ID = EffectReserved
		if b.Flags&substanceAlphaMask != 0 && !e.Specular {
			if b.Bin == material.BinClutter {
				e.ID = EffectMaskedClutter
			} else {
				e.ID = EffectMasked
			}
		}
	}

	for _, m := range flagMap {
		if b.Flags&m.substance != 0 {
			e.Flags |= m.effect
		}
	}

	// Shiny road override.
	if e.ID == EffectShinyRoad && e.Flags&effectFlagShiny != 0 && b.Flags&substanceWet != 0 {
		e.ID = EffectDetail
		e.Flags = 0
	}
	return e
}

// compileBin picks the bin that encodes effect id, preferring the current one.
func compileBin(cur material.Bin, id int) material.Bin {
	switch id {
	case EffectReserved, EffectMasked:
		if reserved(cur) && cur != material.BinClutter {
			return cur
		}
		return material.BinFence
	case EffectMaskedClutter:
		return material.BinClutter
	}
	if EffectForBin(cur) == id {
		return cur
	}
	for b, eff := range binEffect {
		if eff == id {
			return material.Bin(b)
		}
	}
	return cur
}

// Compile encodes e into the substance fields of b. Fields the effect does
// not describe are kept from b.
func Compile(b material.SubstanceBits, e Effect) material.SubstanceBits {
	out := b
	out.Bin = compileBin(b.Bin, e.ID)

	for _, m := range flagMap {
		out.Flags &^= m.substance
		if e.Flags&m.effect != 0 {
			out.Flags |= m.substance
		}
	}
	switch e.ID {
	case EffectMasked, EffectMaskedClutter:
		out.Flags |= substanceAlphaMask
	case EffectReserved:
		out.Flags &^= substanceAlphaMask
	}

	if e.Specular {
		if out.TS1&3 == 0 {
			out.TS1 |= 1
		}
		if out.TS2&3 == 0 {
			out.TS2 |= 1
		}
	} else {
		out.TS2 &^= 3
	}

	switch out.TextureFlags {
	case material.TextureBumpMap:
		out.TS3 = 2
	case material.TextureColorMask:
		out.TS3 = 1
	case material.TextureDamage:
		out.TS3 = 3
	case material.TextureColorMaskDamage:
		out.TS3 = 4
	case material.TextureFlag1:
		out.TS3 = 0
		out.TS1 |= 0x80
	}

	switch e.ID {
	case EffectLight:
		out.TextureFlags = material.TextureFlag1
		out.TS1 = 129
	case EffectCarLights:
		out.Flags &^= substanceCarLightBit
	}

	out.Flags &= flagsMask
	return out
}

// Converge applies Compile(b, Resolve(b)) until the fields stop changing or
// maxPasses passes have run. It returns the final fields, the number of
// passes run (the last one being the pass that changed nothing) and whether
// a fixed point was reached.
func Converge(b material.SubstanceBits, maxPasses int) (material.SubstanceBits, int, bool) {
	for pass := 1; pass <= maxPasses; pass++ {
		next := Compile(b, Resolve(b))
		if next == b {
			return b, pass, true
		}
		b = next
	}
	return b, maxPasses, false
}
