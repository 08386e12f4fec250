package stats

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/cilium/ebpf"
)

// Table is a source of counter table snapshots.
type Table interface {
	// Entries returns one entry per key, ordered by pid then function.
	Entries() ([]Entry, error)
}

// RawIterator yields raw rows of the kernel map.
type RawIterator interface {
	Next(key, value any) bool
	Err() error
}

// MapTable reads the jitterbuffer_stats hash map. The instrumentation program updates
// the map concurrently; no locking is done on the reader side.
type MapTable struct {
	m *ebpf.Map
}

// NewMapTable wraps m, which must use the jitterbuffer key and value layouts.
func NewMapTable(m *ebpf.Map) (*MapTable, error) {
	if m == nil {
		return nil, fmt.Errorf("stats map is required")
	}
	if m.KeySize() != RawKeySize || m.ValueSize() != RawValueSize {
		return nil, fmt.Errorf("stats map layout mismatch: key %d/%d bytes, value %d/%d bytes",
			m.KeySize(), RawKeySize, m.ValueSize(), RawValueSize)
	}
	return &MapTable{m: m}, nil
}

// Entries implements Table.
func (t *MapTable) Entries() ([]Entry, error) {
	return Collect(t.m.Iterate())
}

// Collect drains it and merges rows sharing a (pid, function) key across threads.
func Collect(it RawIterator) ([]Entry, error) {
	var (
		rawKey   RawKey
		rawValue RawValue
		merged   = make(map[Key]Value)
	)

	for it.Next(&rawKey, &rawValue) {
		key := rawKey.Key()
		value := rawValue.Value()
		if prev, ok := merged[key]; ok {
			value = prev.Merge(value)
		}
		merged[key] = value
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats map: %w", err)
	}

	entries := make([]Entry, 0, len(merged))
	for k, v := range merged {
		entries = append(entries, Entry{Key: k, Value: v})
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(a.Key.PID, b.Key.PID); c != 0 {
			return c
		}
		return cmp.Compare(a.Key.Function, b.Key.Function)
	})

	return entries, nil
}
