package texture

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/heisthecat31/racepack/pkg/format"
)

func TestFormatName(t *testing.T) {
	tests := []struct {
		format   Format
		expected string
	}{
		{FormatP8, "P8"},
		{FormatDXT1, "DXT1"},
		{FormatDXT5, "DXT5"},
		{FormatARGB8, "ARGB8"},
		{Format(99), "UNKNOWN(0x63)"},
	}

	for _, tt := range tests {
		if name := tt.format.String(); name != tt.expected {
			t.Errorf("Format %d: expected %s, got %s", tt.format, tt.expected, name)
		}
	}
}

func TestDataSize(t *testing.T) {
	tests := []struct {
		name     string
		format   Format
		w, h     uint32
		mips     uint32
		expected uint32
	}{
		{"DXT1 64x64 single", FormatDXT1, 64, 64, 0, ((64 + 3) / 4) * ((64 + 3) / 4) * 8},
		{"DXT1 64x64 explicit single", FormatDXT1, 64, 64, 1, 2048},
		// 2048 + 512 + 128 + 32 + 8 + 8 + 8
		{"DXT1 64x64 full chain", FormatDXT1, 64, 64, 7, 2744},
		{"DXT5 64x64", FormatDXT5, 64, 64, 0, 4096},
		{"DXT3 non multiple of 4", FormatDXT3, 5, 5, 1, 2 * 2 * 16},
		{"P8 64x32 two mips", FormatP8, 64, 32, 2, 64*32 + 32*16},
		{"ARGB8 4x4", FormatARGB8, 4, 4, 1, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DataSize(tt.format, tt.w, tt.h, tt.mips); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestHeader(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		for _, f := range []Format{FormatP8, FormatDXT1, FormatDXT2, FormatDXT3, FormatDXT5, FormatARGB8} {
			h, err := NewHeader(f, 128, 64, 8)
			if err != nil {
				t.Fatalf("%s: %v", f, err)
			}
			data, err := h.MarshalBinary()
			if err != nil {
				t.Fatalf("%s: marshal: %v", f, err)
			}
			if len(data) != DDS_FILE_HEADER_SIZE {
				t.Errorf("%s: header length %d", f, len(data))
			}

			decoded := &Header{}
			if err := decoded.UnmarshalBinary(data); err != nil {
				t.Fatalf("%s: unmarshal: %v", f, err)
			}
			if *decoded != *h {
				t.Errorf("%s: mismatch: got %+v, want %+v", f, decoded, h)
			}
			back, err := decoded.Format()
			if err != nil || back != f {
				t.Errorf("%s: Format() got %s (%v)", f, back, err)
			}
		}
	})

	t.Run("Layout", func(t *testing.T) {
		h, _ := NewHeader(FormatDXT1, 512, 256, 1)
		data, _ := h.MarshalBinary()
		if magic := binary.LittleEndian.Uint32(data[0:4]); magic != DDS_MAGIC {
			t.Errorf("Expected DDS magic 0x%08X, got 0x%08X", DDS_MAGIC, magic)
		}
		if height := binary.LittleEndian.Uint32(data[12:16]); height != 256 {
			t.Errorf("Height in header: expected 256, got %d", height)
		}
		if width := binary.LittleEndian.Uint32(data[16:20]); width != 512 {
			t.Errorf("Width in header: expected 512, got %d", width)
		}
		if linear := binary.LittleEndian.Uint32(data[20:24]); linear != 128*64*8 {
			t.Errorf("Linear size: expected %d, got %d", 128*64*8, linear)
		}
		if string(data[84:88]) != "DXT1" {
			t.Errorf("FourCC: got %q", data[84:88])
		}
		if h.Flags&DDS_HEADER_FLAGS_MIPMAPCOUNT != 0 {
			t.Error("single level header should not set MIPMAPCOUNT")
		}
	})

	t.Run("InvalidMagic", func(t *testing.T) {
		data := make([]byte, DDS_FILE_HEADER_SIZE)
		if err := (&Header{}).UnmarshalBinary(data); err == nil {
			t.Error("expected error for invalid magic")
		}
	})

	t.Run("Short", func(t *testing.T) {
		if err := (&Header{}).UnmarshalBinary(make([]byte, 10)); !errors.Is(err, ErrShortData) {
			t.Errorf("got %v, want ErrShortData", err)
		}
	})

	t.Run("UnsupportedFormat", func(t *testing.T) {
		if _, err := NewHeader(Format(42), 4, 4, 1); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("got %v, want ErrUnsupportedFormat", err)
		}
		h := &Header{PixelFormat: PixelFormat{Flags: DDPF_FOURCC, FourCC: 0x31495441}} // "ATI1"
		if _, err := h.Format(); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("ATI1: got %v, want ErrUnsupportedFormat", err)
		}
	})
}

func TestHeaderDataSize(t *testing.T) {
	t.Run("Plain", func(t *testing.T) {
		h, _ := NewHeader(FormatDXT1, 64, 64, 7)
		size, err := h.DataSize()
		if err != nil || size != 2744 {
			t.Errorf("got %d (%v), want 2744", size, err)
		}
	})

	t.Run("Cubemap", func(t *testing.T) {
		h, _ := NewHeader(FormatDXT1, 64, 64, 1)
		h.Caps2 = DDS_CUBEMAP | DDS_CUBEMAP_ALLFACES
		size, _ := h.DataSize()
		if size != 2048*6 {
			t.Errorf("all faces: got %d, want %d", size, 2048*6)
		}

		h.Caps2 = DDS_CUBEMAP | 0x400 | 0x800
		size, _ = h.DataSize()
		if size != 2048*2 {
			t.Errorf("two faces: got %d, want %d", size, 2048*2)
		}

		h.Caps2 = DDS_CUBEMAP
		size, _ = h.DataSize()
		if size != 2048*6 {
			t.Errorf("no face bits: got %d, want %d", size, 2048*6)
		}
	})

	t.Run("Volume", func(t *testing.T) {
		h, _ := NewHeader(FormatARGB8, 4, 4, 3)
		h.Flags |= DDS_HEADER_FLAGS_DEPTH
		h.Caps2 = DDS_VOLUME
		h.Depth = 4
		size, _ := h.DataSize()
		// 4x4x4, 2x2x2, 1x1x1 texels at 4 bytes
		if want := uint32(256 + 32 + 4); size != want {
			t.Errorf("got %d, want %d", size, want)
		}
	})
}

func TestPackedDims(t *testing.T) {
	for _, dims := range [][2]uint32{{1, 1}, {256, 128}, {8, 1024}, {32768, 2}} {
		b, err := PackDims(dims[0], dims[1])
		if err != nil {
			t.Fatalf("PackDims(%v): %v", dims, err)
		}
		w, h := UnpackDims(b)
		if w != dims[0] || h != dims[1] {
			t.Errorf("PackDims(%v): unpacked %dx%d", dims, w, h)
		}
	}

	b, _ := PackDims(256, 128)
	if b != 0x78 {
		t.Errorf("PackDims(256, 128): got %#x, want 0x78", b)
	}

	for _, bad := range []uint32{0, 3, 100, 65536} {
		if _, err := PackedBits(bad); !errors.Is(err, ErrNotPowerOfTwo) {
			t.Errorf("PackedBits(%d): got %v, want ErrNotPowerOfTwo", bad, err)
		}
	}
}

func sequence(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i)
	}
	return b
}

func TestUnswizzle4x4(t *testing.T) {
	// Both tilings agree on square power-of-two textures.
	want := []byte{
		0, 1, 4, 5,
		2, 3, 6, 7,
		8, 9, 12, 13,
		10, 11, 14, 15,
	}

	mask, err := UnswizzleMask(sequence(16), 4, 4, 1)
	if err != nil {
		t.Fatalf("mask: %v", err)
	}
	if !bytes.Equal(mask, want) {
		t.Errorf("mask: got %v, want %v", mask, want)
	}

	quad, err := UnswizzleQuad(sequence(16), 4, 4, 1, QuadDepth(4, 4))
	if err != nil {
		t.Fatalf("quad: %v", err)
	}
	if !bytes.Equal(quad, want) {
		t.Errorf("quad: got %v, want %v", quad, want)
	}
}

func TestUnswizzleMaskRect(t *testing.T) {
	// 4x2: u takes address bits 0 and 2, v takes bit 1.
	got, err := UnswizzleMask(sequence(8), 4, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0, 1, 4, 5, 2, 3, 6, 7}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSwizzleRoundTrip(t *testing.T) {
	t.Run("Mask", func(t *testing.T) {
		for _, d := range [][3]int{{4, 4, 1}, {8, 2, 4}, {1, 16, 1}, {64, 32, 2}} {
			src := sequence(d[0] * d[1] * d[2])
			tiled, err := SwizzleMask(src, d[0], d[1], d[2])
			if err != nil {
				t.Fatalf("%v: %v", d, err)
			}
			back, err := UnswizzleMask(tiled, d[0], d[1], d[2])
			if err != nil {
				t.Fatalf("%v: %v", d, err)
			}
			if !bytes.Equal(back, src) {
				t.Errorf("%v: round trip mismatch", d)
			}
		}
	})

	t.Run("Quad", func(t *testing.T) {
		for _, d := range [][3]int{{4, 4, 1}, {8, 2, 4}, {6, 10, 1}, {1, 7, 2}, {32, 32, 1}} {
			src := sequence(d[0] * d[1] * d[2])
			depth := QuadDepth(d[0], d[1])
			tiled, err := SwizzleQuad(src, d[0], d[1], d[2], depth)
			if err != nil {
				t.Fatalf("%v: %v", d, err)
			}
			back, err := UnswizzleQuad(tiled, d[0], d[1], d[2], depth)
			if err != nil {
				t.Fatalf("%v: %v", d, err)
			}
			if !bytes.Equal(back, src) {
				t.Errorf("%v: round trip mismatch", d)
			}
		}
	})

	t.Run("MaskRejectsNonPowerOfTwo", func(t *testing.T) {
		if _, err := UnswizzleMask(sequence(12), 3, 4, 1); !errors.Is(err, ErrNotPowerOfTwo) {
			t.Errorf("got %v, want ErrNotPowerOfTwo", err)
		}
	})

	t.Run("Short", func(t *testing.T) {
		if _, err := UnswizzleQuad(sequence(3), 2, 2, 1, 1); !errors.Is(err, ErrShortData) {
			t.Errorf("got %v, want ErrShortData", err)
		}
	})
}

func TestQuadDepth(t *testing.T) {
	tests := []struct{ w, h, want int }{
		{1, 1, 0}, {2, 2, 1}, {4, 4, 2}, {256, 64, 8}, {6, 10, 3},
	}
	for _, tt := range tests {
		if got := QuadDepth(tt.w, tt.h); got != tt.want {
			t.Errorf("QuadDepth(%d, %d): got %d, want %d", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestDepalettize(t *testing.T) {
	palette := make([]byte, 32*4)
	for i := range 32 {
		copy(palette[i*4:], []byte{byte(i), byte(i * 2), byte(i * 3), 0xFF})
	}

	t.Run("Linear", func(t *testing.T) {
		out, err := Depalettize([]byte{0, 1, 2, 31}, 2, 2, palette, nil)
		if err != nil {
			t.Fatal(err)
		}
		want := []byte{
			0, 0, 0, 0xFF, 1, 2, 3, 0xFF,
			2, 4, 6, 0xFF, 31, 62, 93, 0xFF,
		}
		if !bytes.Equal(out, want) {
			t.Errorf("got %v, want %v", out, want)
		}
	})

	t.Run("Swizzled", func(t *testing.T) {
		linear := []byte{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5, 8, 9, 7, 9, 3}
		tiled, _ := SwizzleMask(linear, 4, 4, 1)
		out, err := Depalettize(tiled, 4, 4, palette, UnswizzlerFor(format.PlatformXbox))
		if err != nil {
			t.Fatal(err)
		}
		for i, idx := range linear {
			if out[i*4] != idx || out[i*4+3] != 0xFF {
				t.Errorf("texel %d: got %v, want index %d", i, out[i*4:i*4+4], idx)
			}
		}
	})

	t.Run("OutOfPaletteIndex", func(t *testing.T) {
		out, err := Depalettize([]byte{200}, 1, 1, palette, nil)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(out, []byte{0, 0, 0, 0}) {
			t.Errorf("got %v, want transparent black", out)
		}
	})
}

func TestUnswizzlerFor(t *testing.T) {
	if UnswizzlerFor(format.PlatformPC) != nil || SwizzlerFor(format.PlatformPC) != nil {
		t.Error("PC textures are linear")
	}
	src := sequence(64)
	for _, p := range []format.Platform{format.PlatformXbox, format.PlatformPS2} {
		tiled, err := SwizzlerFor(p)(src, 16, 4, 1)
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		back, err := UnswizzlerFor(p)(tiled, 16, 4, 1)
		if err != nil || !bytes.Equal(back, src) {
			t.Errorf("%s: round trip mismatch (%v)", p, err)
		}
	}
}

func TestEncodeDDS(t *testing.T) {
	data := make([]byte, DataSize(FormatDXT5, 16, 16, 1))
	dds, err := EncodeDDS(FormatDXT5, 16, 16, 1, nil, data)
	if err != nil {
		t.Fatal(err)
	}
	if len(dds) != DDS_FILE_HEADER_SIZE+256 {
		t.Errorf("DXT5 size: got %d, want %d", len(dds), DDS_FILE_HEADER_SIZE+256)
	}

	palette := bytes.Repeat([]byte{1, 2, 3, 4}, 64)
	dds, err = EncodeDDS(FormatP8, 8, 8, 1, palette, make([]byte, 64))
	if err != nil {
		t.Fatal(err)
	}
	if len(dds) != DDS_FILE_HEADER_SIZE+DDS_PALETTE_BYTES+64 {
		t.Errorf("P8 size: got %d", len(dds))
	}
	if !bytes.Equal(dds[DDS_FILE_HEADER_SIZE:DDS_FILE_HEADER_SIZE+256], palette) {
		t.Error("palette not copied after header")
	}
}

func TestContentHash(t *testing.T) {
	a := ContentHash([]byte("road_diffuse"))
	if a != ContentHash([]byte("road_diffuse")) {
		t.Error("hash not deterministic")
	}
	if a == ContentHash([]byte("road_diffusf")) {
		t.Error("hash collision on one-byte change")
	}
}
