// Package format describes the container revisions the toolkit understands.
//
// A Format is the (version, platform) pair read from a container header. Its
// layout tables (entry sizes, alignments, optional header fields, byte order)
// are looked up once per decode or encode instead of being re-branched per
// field.
package format

import (
	"fmt"
	"slices"
	"strings"
)

// Platform identifies the hardware a container was built for.
type Platform uint8

const (
	PlatformPC Platform = iota
	PlatformXbox
	PlatformPS2
	PlatformWii
)

func (p Platform) String() string {
	switch p {
	case PlatformPC:
		return "PC"
	case PlatformXbox:
		return "Xbox"
	case PlatformPS2:
		return "PS2"
	case PlatformWii:
		return "Wii"
	default:
		return fmt.Sprintf("Platform(%d)", uint8(p))
	}
}

// ParsePlatform maps a case-insensitive platform name to a Platform.
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(s) {
	case "pc":
		return PlatformPC, nil
	case "xbox":
		return PlatformXbox, nil
	case "ps2":
		return PlatformPS2, nil
	case "wii":
		return PlatformWii, nil
	}
	return 0, fmt.Errorf("unknown platform %q", s)
}

// Material package magic values, as read from a little-endian u32.
const (
	MagicPC   uint32 = 0x504D4350 // "PCMP"
	MagicXbox uint32 = 0x504D4258 // "XBMP"
	MagicPS2  uint32 = 0x32435354 // "TSC2"
)

// Format is a container revision.
type Format struct {
	Version  uint32
	Platform Platform
}

func (f Format) String() string {
	return fmt.Sprintf("%s v%d", f.Platform, f.Version)
}

// Versions lists the container versions with known layouts.
var Versions = []uint32{1, 6, 9}

// SupportedVersion reports whether v has a layout on any platform.
func SupportedVersion(v uint32) bool {
	return slices.Contains(Versions, v)
}

// PlatformForMagic maps a material package magic to its platform.
func PlatformForMagic(magic uint32) (Platform, error) {
	switch magic {
	case MagicPC:
		return PlatformPC, nil
	case MagicXbox:
		return PlatformXbox, nil
	case MagicPS2:
		return PlatformPS2, nil
	}
	return 0, fmt.Errorf("%w: 0x%08x", ErrInvalidMagic, magic)
}

// MagicForPlatform is the inverse of PlatformForMagic.
func MagicForPlatform(p Platform) (uint32, error) {
	switch p {
	case PlatformPC:
		return MagicPC, nil
	case PlatformXbox:
		return MagicXbox, nil
	case PlatformPS2:
		return MagicPS2, nil
	}
	return 0, fmt.Errorf("%w: no material package magic for %s", ErrUnsupportedFormat, p)
}
