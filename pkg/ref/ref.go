// Package ref turns the byte offsets containers use as pointers into indices
// of flat, per-type entry arrays.
//
// Offsets exist only while a container is being decoded or encoded; the
// in-memory object graph links entries by index.
package ref

import (
	"fmt"
	"sort"

	"github.com/heisthecat31/racepack/pkg/format"
)

// Info pairs a stored offset with the entry it addresses.
type Info[T any] struct {
	Offset uint32
	Value  T
}

// Table maps the stored offsets of one entry array to array indices.
type Table struct {
	name    string
	entries []Info[int]
	sorted  bool
}

// NewTable returns an empty table. name is used in error messages.
func NewTable(name string) *Table {
	return &Table{name: name, sorted: true}
}

// Strided returns a table for count fixed-size entries starting at base.
func Strided(name string, base, stride uint32, count int) *Table {
	t := &Table{name: name, entries: make([]Info[int], count), sorted: true}
	for i := range count {
		t.entries[i] = Info[int]{Offset: base + uint32(i)*stride, Value: i}
	}
	return t
}

// Add records that the entry with index idx lives at offset.
func (t *Table) Add(offset uint32, idx int) {
	if n := len(t.entries); n > 0 && t.entries[n-1].Offset >= offset {
		t.sorted = false
	}
	t.entries = append(t.entries, Info[int]{Offset: offset, Value: idx})
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

func (t *Table) sort() {
	if t.sorted {
		return
	}
	sort.SliceStable(t.entries, func(i, j int) bool {
		return t.entries[i].Offset < t.entries[j].Offset
	})
	t.sorted = true
}

// Resolve returns the index of the entry stored at offset.
func (t *Table) Resolve(offset uint32) (int, error) {
	t.sort()
	i := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].Offset >= offset
	})
	if i == len(t.entries) || t.entries[i].Offset != offset {
		return 0, fmt.Errorf("%w: no %s entry at 0x%x", format.ErrDanglingReference, t.name, offset)
	}
	return t.entries[i].Value, nil
}

// ResolveRun resolves a contiguous run of count entries starting at offset.
// Runs are positional, so the table must hold entries in index order (as
// Strided builds them). A zero count never dereferences offset.
func (t *Table) ResolveRun(offset uint32, count int) ([]int, error) {
	if count == 0 {
		return nil, nil
	}
	first, err := t.Resolve(offset)
	if err != nil {
		return nil, err
	}
	if first+count > len(t.entries) {
		return nil, fmt.Errorf("%w: %s run of %d at 0x%x exceeds table of %d",
			format.ErrDanglingReference, t.name, count, offset, len(t.entries))
	}
	run := make([]int, count)
	for i := range run {
		run[i] = first + i
	}
	return run, nil
}

// Offset returns the stored offset of the entry with index idx.
func (t *Table) Offset(idx int) (uint32, error) {
	t.sort()
	if idx >= 0 && idx < len(t.entries) && t.entries[idx].Value == idx {
		return t.entries[idx].Offset, nil
	}
	for _, e := range t.entries {
		if e.Value == idx {
			return e.Offset, nil
		}
	}
	return 0, fmt.Errorf("%w: %s index %d out of range", format.ErrDanglingReference, t.name, idx)
}
