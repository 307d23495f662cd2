package texture

import (
	"encoding/binary"
	"fmt"
)

// DDS header constants
const (
	DDS_MAGIC                    = 0x20534444 // "DDS "
	DDS_HEADER_SIZE              = 124
	DDS_FILE_HEADER_SIZE         = 4 + DDS_HEADER_SIZE
	DDS_HEADER_FLAGS_CAPS        = 0x1
	DDS_HEADER_FLAGS_HEIGHT      = 0x2
	DDS_HEADER_FLAGS_WIDTH       = 0x4
	DDS_HEADER_FLAGS_PITCH       = 0x8
	DDS_HEADER_FLAGS_PIXELFORMAT = 0x1000
	DDS_HEADER_FLAGS_MIPMAPCOUNT = 0x20000
	DDS_HEADER_FLAGS_LINEARSIZE  = 0x80000
	DDS_HEADER_FLAGS_DEPTH       = 0x800000

	DDS_SURFACE_FLAGS_COMPLEX = 0x8
	DDS_SURFACE_FLAGS_TEXTURE = 0x1000
	DDS_SURFACE_FLAGS_MIPMAP  = 0x400000

	DDS_CUBEMAP           = 0x200
	DDS_CUBEMAP_ALLFACES  = 0xFC00
	DDS_VOLUME            = 0x200000
	DDS_PIXELFORMAT_SIZE  = 32
	DDPF_ALPHAPIXELS      = 0x1
	DDPF_FOURCC           = 0x4
	DDPF_PALETTEINDEXED8  = 0x20
	DDPF_RGB              = 0x40
	DDS_PALETTE_BYTES     = 256 * 4
	DDS_DEFAULT_CUBEFACES = 6
)

// FourCC codes of the block-compressed formats, as little-endian u32.
const (
	FourCCDXT1 = 0x31545844 // "DXT1"
	FourCCDXT2 = 0x32545844 // "DXT2"
	FourCCDXT3 = 0x33545844 // "DXT3"
	FourCCDXT5 = 0x35545844 // "DXT5"
)

// PixelFormat is the 32-byte DDS_PIXELFORMAT block.
type PixelFormat struct {
	Flags       uint32
	FourCC      uint32
	RGBBitCount uint32
	RBitMask    uint32
	GBitMask    uint32
	BBitMask    uint32
	ABitMask    uint32
}

// Header is the DDS file header without its magic.
type Header struct {
	Flags             uint32
	Height            uint32
	Width             uint32
	PitchOrLinearSize uint32
	Depth             uint32
	MipMapCount       uint32
	PixelFormat       PixelFormat
	Caps              uint32
	Caps2             uint32
	Caps3             uint32
	Caps4             uint32
}

// NewHeader builds the header describing a width x height texture of format f
// with mips mip levels.
func NewHeader(f Format, width, height, mips uint32) (*Header, error) {
	info, ok := formats[f]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}

	h := &Header{
		Flags:       DDS_HEADER_FLAGS_CAPS | DDS_HEADER_FLAGS_HEIGHT | DDS_HEADER_FLAGS_WIDTH | DDS_HEADER_FLAGS_PIXELFORMAT,
		Height:      height,
		Width:       width,
		MipMapCount: mips,
		Caps:        DDS_SURFACE_FLAGS_TEXTURE,
	}

	if info.compressed {
		h.Flags |= DDS_HEADER_FLAGS_LINEARSIZE
		h.PitchOrLinearSize = levelSize(f, width, height)
		h.PixelFormat = PixelFormat{Flags: DDPF_FOURCC, FourCC: info.fourCC}
	} else {
		h.Flags |= DDS_HEADER_FLAGS_PITCH
		h.PitchOrLinearSize = width * info.bpp / 8
		switch f {
		case FormatP8:
			h.PixelFormat = PixelFormat{Flags: DDPF_PALETTEINDEXED8, RGBBitCount: 8}
		case FormatARGB8:
			h.PixelFormat = PixelFormat{
				Flags:       DDPF_RGB | DDPF_ALPHAPIXELS,
				RGBBitCount: 32,
				RBitMask:    0x00FF0000,
				GBitMask:    0x0000FF00,
				BBitMask:    0x000000FF,
				ABitMask:    0xFF000000,
			}
		}
	}

	if mips > 1 {
		h.Flags |= DDS_HEADER_FLAGS_MIPMAPCOUNT
		h.Caps |= DDS_SURFACE_FLAGS_COMPLEX | DDS_SURFACE_FLAGS_MIPMAP
	}

	return h, nil
}

// Format maps the pixel format block back to a texture format.
func (h *Header) Format() (Format, error) {
	pf := h.PixelFormat
	switch {
	case pf.Flags&DDPF_FOURCC != 0:
		for f, info := range formats {
			if info.compressed && info.fourCC == pf.FourCC {
				return f, nil
			}
		}
		return FormatUnknown, fmt.Errorf("%w: fourCC 0x%08x", ErrUnsupportedFormat, pf.FourCC)
	case pf.Flags&DDPF_PALETTEINDEXED8 != 0:
		return FormatP8, nil
	case pf.Flags&DDPF_RGB != 0 && pf.RGBBitCount == 32:
		return FormatARGB8, nil
	}
	return FormatUnknown, fmt.Errorf("%w: pixel format flags 0x%x", ErrUnsupportedFormat, pf.Flags)
}

// MarshalBinary encodes the header with its magic.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, DDS_FILE_HEADER_SIZE)
	h.EncodeTo(buf)
	return buf, nil
}

// EncodeTo writes magic and header to buf.
// The buffer must be at least DDS_FILE_HEADER_SIZE bytes.
func (h *Header) EncodeTo(buf []byte) {
	le := binary.LittleEndian
	le.PutUint32(buf[0:4], DDS_MAGIC)
	le.PutUint32(buf[4:8], DDS_HEADER_SIZE)
	le.PutUint32(buf[8:12], h.Flags)
	le.PutUint32(buf[12:16], h.Height)
	le.PutUint32(buf[16:20], h.Width)
	le.PutUint32(buf[20:24], h.PitchOrLinearSize)
	le.PutUint32(buf[24:28], h.Depth)
	le.PutUint32(buf[28:32], h.MipMapCount)

	// dwReserved1[11]
	clear(buf[32:76])

	// DDS_PIXELFORMAT
	le.PutUint32(buf[76:80], DDS_PIXELFORMAT_SIZE)
	le.PutUint32(buf[80:84], h.PixelFormat.Flags)
	le.PutUint32(buf[84:88], h.PixelFormat.FourCC)
	le.PutUint32(buf[88:92], h.PixelFormat.RGBBitCount)
	le.PutUint32(buf[92:96], h.PixelFormat.RBitMask)
	le.PutUint32(buf[96:100], h.PixelFormat.GBitMask)
	le.PutUint32(buf[100:104], h.PixelFormat.BBitMask)
	le.PutUint32(buf[104:108], h.PixelFormat.ABitMask)

	le.PutUint32(buf[108:112], h.Caps)
	le.PutUint32(buf[112:116], h.Caps2)
	le.PutUint32(buf[116:120], h.Caps3)
	le.PutUint32(buf[120:124], h.Caps4)

	// dwReserved2
	clear(buf[124:128])
}

// UnmarshalBinary decodes magic and header from data.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < DDS_FILE_HEADER_SIZE {
		return fmt.Errorf("%w: DDS header needs %d bytes, got %d", ErrShortData, DDS_FILE_HEADER_SIZE, len(data))
	}
	le := binary.LittleEndian
	if magic := le.Uint32(data[0:4]); magic != DDS_MAGIC {
		return fmt.Errorf("invalid DDS magic: 0x%08x", magic)
	}
	if size := le.Uint32(data[4:8]); size != DDS_HEADER_SIZE {
		return fmt.Errorf("invalid DDS header size: %d", size)
	}
	if size := le.Uint32(data[76:80]); size != DDS_PIXELFORMAT_SIZE {
		return fmt.Errorf("invalid DDS pixel format size: %d", size)
	}

	h.Flags = le.Uint32(data[8:12])
	h.Height = le.Uint32(data[12:16])
	h.Width = le.Uint32(data[16:20])
	h.PitchOrLinearSize = le.Uint32(data[20:24])
	h.Depth = le.Uint32(data[24:28])
	h.MipMapCount = le.Uint32(data[28:32])
	h.PixelFormat = PixelFormat{
		Flags:       le.Uint32(data[80:84]),
		FourCC:      le.Uint32(data[84:88]),
		RGBBitCount: le.Uint32(data[88:92]),
		RBitMask:    le.Uint32(data[92:96]),
		GBitMask:    le.Uint32(data[96:100]),
		BBitMask:    le.Uint32(data[100:104]),
		ABitMask:    le.Uint32(data[104:108]),
	}
	h.Caps = le.Uint32(data[108:112])
	h.Caps2 = le.Uint32(data[112:116])
	h.Caps3 = le.Uint32(data[116:120])
	h.Caps4 = le.Uint32(data[120:124])
	return nil
}

// EncodeDDS builds a complete DDS file: header, optional 256-entry palette
// (P8 only) and pixel data.
func EncodeDDS(f Format, width, height, mips uint32, palette, data []byte) ([]byte, error) {
	h, err := NewHeader(f, width, height, mips)
	if err != nil {
		return nil, err
	}

	size := DDS_FILE_HEADER_SIZE + len(data)
	if f == FormatP8 {
		size += DDS_PALETTE_BYTES
	}
	out := make([]byte, size)
	h.EncodeTo(out)

	pos := DDS_FILE_HEADER_SIZE
	if f == FormatP8 {
		copy(out[pos:pos+DDS_PALETTE_BYTES], palette)
		pos += DDS_PALETTE_BYTES
	}
	copy(out[pos:], data)
	return out, nil
}
