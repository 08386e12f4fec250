package stats

import (
	"errors"
	"os"
	"testing"

	"github.com/cilium/ebpf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	key   RawKey
	value RawValue
}

// fakeIterator feeds rows through the binary decoders, like the map iterator does.
type fakeIterator struct {
	rows []row
	pos  int
	err  error
}

func (f *fakeIterator) Next(key, value any) bool {
	if f.pos >= len(f.rows) {
		return false
	}
	r := f.rows[f.pos]
	f.pos++

	kb, _ := r.key.MarshalBinary()
	vb, _ := r.value.MarshalBinary()
	if err := key.(*RawKey).UnmarshalBinary(kb); err != nil {
		f.err = err
		return false
	}
	if err := value.(*RawValue).UnmarshalBinary(vb); err != nil {
		f.err = err
		return false
	}
	return true
}

func (f *fakeIterator) Err() error { return f.err }

func TestCollect_MergesThreads(t *testing.T) {
	it := &fakeIterator{rows: []row{
		{newRawKey(200, 201, "jitterbuffer_get"), RawValue{DroppedPackets: 1, MinDelayNs: NoSample}},
		{newRawKey(100, 101, "probe_a"), RawValue{PacketCount: 4, TotalDelayNs: 40, MinDelayNs: 5, MaxDelayNs: 15, TotalBytes: 10}},
		{newRawKey(100, 102, "probe_a"), RawValue{PacketCount: 6, TotalDelayNs: 60, MinDelayNs: 3, MaxDelayNs: 12, TotalBytes: 20}},
		{newRawKey(100, 101, "probe_b"), RawValue{PacketCount: 1, TotalDelayNs: 7, MinDelayNs: 7, MaxDelayNs: 7}},
	}}

	entries, err := Collect(it)
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{Key{100, "probe_a"}, Value{PacketCount: 10, TotalBytes: 30, TotalDelayNs: 100, MinDelayNs: 3, MaxDelayNs: 15}},
		{Key{100, "probe_b"}, Value{PacketCount: 1, TotalDelayNs: 7, MinDelayNs: 7, MaxDelayNs: 7}},
		{Key{200, "jitterbuffer_get"}, Value{DroppedPackets: 1, MinDelayNs: NoSample}},
	}, entries)
}

func TestCollect_Empty(t *testing.T) {
	entries, err := Collect(&fakeIterator{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCollect_IteratorError(t *testing.T) {
	_, err := Collect(&fakeIterator{err: ebpf.ErrIterationAborted})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ebpf.ErrIterationAborted))
}

func TestNewMapTable_Validation(t *testing.T) {
	_, err := NewMapTable(nil)
	assert.Error(t, err)
}

func TestMapTable_Kernel(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("creating BPF maps requires root")
	}

	m, err := ebpf.NewMap(&ebpf.MapSpec{
		Type:       ebpf.Hash,
		KeySize:    RawKeySize,
		ValueSize:  RawValueSize,
		MaxEntries: 16,
	})
	if err != nil {
		t.Skipf("eBPF maps not supported: %v", err)
	}
	defer m.Close() // nolint:errcheck

	require.NoError(t, m.Put(newRawKey(100, 1, "probe_a"), RawValue{PacketCount: 2, MinDelayNs: 4, MaxDelayNs: 9, TotalDelayNs: 13}))
	require.NoError(t, m.Put(newRawKey(100, 2, "probe_a"), RawValue{PacketCount: 1, MinDelayNs: 6, MaxDelayNs: 6, TotalDelayNs: 6}))

	table, err := NewMapTable(m)
	require.NoError(t, err)

	entries, err := table.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, Key{PID: 100, Function: "probe_a"}, entries[0].Key)
	assert.Equal(t, Value{PacketCount: 3, TotalDelayNs: 19, MinDelayNs: 4, MaxDelayNs: 9}, entries[0].Value)

	wrong, err := ebpf.NewMap(&ebpf.MapSpec{Type: ebpf.Hash, KeySize: 4, ValueSize: 8, MaxEntries: 1})
	require.NoError(t, err)
	defer wrong.Close() // nolint:errcheck
	_, err = NewMapTable(wrong)
	assert.Error(t, err)
}
