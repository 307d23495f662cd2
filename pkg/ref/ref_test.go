package ref

import (
	"errors"
	"testing"

	"github.com/heisthecat31/racepack/pkg/format"
)

func TestStrided(t *testing.T) {
	tbl := Strided("substance", 0x100, 0x20, 4)

	for i := range 4 {
		off := uint32(0x100 + i*0x20)
		got, err := tbl.Resolve(off)
		if err != nil {
			t.Fatalf("Resolve(%#x): %v", off, err)
		}
		if got != i {
			t.Errorf("Resolve(%#x): got %d, want %d", off, got, i)
		}
		back, err := tbl.Offset(i)
		if err != nil || back != off {
			t.Errorf("Offset(%d): got %#x (%v), want %#x", i, back, err, off)
		}
	}

	for _, off := range []uint32{0, 0x0ff, 0x110, 0x180} {
		if _, err := tbl.Resolve(off); !errors.Is(err, format.ErrDanglingReference) {
			t.Errorf("Resolve(%#x): got %v, want ErrDanglingReference", off, err)
		}
	}
	if _, err := tbl.Offset(4); !errors.Is(err, format.ErrDanglingReference) {
		t.Errorf("Offset(4): got %v, want ErrDanglingReference", err)
	}
}

func TestResolveRun(t *testing.T) {
	tbl := Strided("submodel", 0x200, 0x38, 5)

	t.Run("Valid", func(t *testing.T) {
		run, err := tbl.ResolveRun(0x200+0x38, 3)
		if err != nil {
			t.Fatalf("ResolveRun: %v", err)
		}
		want := []int{1, 2, 3}
		for i := range want {
			if run[i] != want[i] {
				t.Errorf("run[%d]: got %d, want %d", i, run[i], want[i])
			}
		}
	})

	t.Run("Empty", func(t *testing.T) {
		run, err := tbl.ResolveRun(0xdead, 0)
		if err != nil || run != nil {
			t.Errorf("empty run: got %v, %v", run, err)
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		if _, err := tbl.ResolveRun(0x200+3*0x38, 3); !errors.Is(err, format.ErrDanglingReference) {
			t.Errorf("got %v, want ErrDanglingReference", err)
		}
	})
}

func TestUnorderedAdd(t *testing.T) {
	tbl := NewTable("texture")
	tbl.Add(0x300, 2)
	tbl.Add(0x100, 0)
	tbl.Add(0x200, 1)

	for want, off := range []uint32{0x100, 0x200, 0x300} {
		got, err := tbl.Resolve(off)
		if err != nil || got != want {
			t.Errorf("Resolve(%#x): got %d (%v), want %d", off, got, err, want)
		}
	}
	if tbl.Len() != 3 {
		t.Errorf("Len: got %d, want 3", tbl.Len())
	}
}
