// Package stats decodes the counter table written by the instrumentation program.
package stats

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

const (
	// FunctionNameSize is the width of the NUL-padded function name in the key.
	FunctionNameSize = 64

	// RawKeySize is sizeof(struct jitterbuffer_key).
	RawKeySize = 4 + 4 + FunctionNameSize

	// RawValueSize is sizeof(struct jitterbuffer_metrics).
	RawValueSize = 8 * 8

	// NoSample is the min_delay_ns value of a key that has not completed a call yet.
	NoSample = math.MaxUint64
)

// Key identifies one metric series group.
type Key struct {
	PID      uint32
	Function string
}

// Value holds the kernel counters of a key.
type Value struct {
	PacketCount    uint64
	DroppedPackets uint64
	TotalBytes     uint64
	TotalDelayNs   uint64
	// MinDelayNs is NoSample until a delay has been recorded.
	MinDelayNs uint64
	// MaxDelayNs is 0 until a delay has been recorded.
	MaxDelayNs uint64
}

// HasMinDelay reports whether MinDelayNs holds a recorded sample.
func (v Value) HasMinDelay() bool {
	return v.MinDelayNs != NoSample
}

// AverageDelaySeconds returns TotalDelayNs/PacketCount in seconds.
// ok is false when no packets were counted.
func (v Value) AverageDelaySeconds() (avg float64, ok bool) {
	if v.PacketCount == 0 {
		return 0, false
	}
	return float64(v.TotalDelayNs) / float64(v.PacketCount) / 1e9, true
}

// Merge folds o into v: counters add up, min and max keep the extremes.
func (v Value) Merge(o Value) Value {
	v.PacketCount += o.PacketCount
	v.DroppedPackets += o.DroppedPackets
	v.TotalBytes += o.TotalBytes
	v.TotalDelayNs += o.TotalDelayNs
	v.MinDelayNs = min(v.MinDelayNs, o.MinDelayNs)
	v.MaxDelayNs = max(v.MaxDelayNs, o.MaxDelayNs)
	return v
}

// Entry is one decoded row of the counter table.
type Entry struct {
	Key   Key
	Value Value
}

// RawKey mirrors struct jitterbuffer_key.
type RawKey struct {
	PID          uint32
	TID          uint32
	FunctionName [FunctionNameSize]byte
}

// UnmarshalBinary decodes the key in host byte order.
func (k *RawKey) UnmarshalBinary(data []byte) error {
	if len(data) < RawKeySize {
		return fmt.Errorf("key is %d bytes, want %d", len(data), RawKeySize)
	}
	k.PID = binary.NativeEndian.Uint32(data[0:4])
	k.TID = binary.NativeEndian.Uint32(data[4:8])
	copy(k.FunctionName[:], data[8:RawKeySize])
	return nil
}

// MarshalBinary encodes the key in host byte order.
func (k RawKey) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RawKeySize)
	binary.NativeEndian.PutUint32(buf[0:4], k.PID)
	binary.NativeEndian.PutUint32(buf[4:8], k.TID)
	copy(buf[8:], k.FunctionName[:])
	return buf, nil
}

// Key returns the series key: the pid and the sanitized function name.
func (k RawKey) Key() Key {
	return Key{PID: k.PID, Function: FunctionName(k.FunctionName[:])}
}

// FunctionName trims buf at the first NUL and drops invalid UTF-8.
func FunctionName(buf []byte) string {
	if i := strings.IndexByte(string(buf), 0); i >= 0 {
		buf = buf[:i]
	}
	s := string(buf)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return s
}

// RawValue mirrors struct jitterbuffer_metrics.
type RawValue struct {
	PacketCount     uint64
	TotalDelayNs    uint64
	MinDelayNs      uint64
	MaxDelayNs      uint64
	BufferSize      uint64
	DroppedPackets  uint64
	TotalBytes      uint64
	LastTimestampNs uint64
}

// UnmarshalBinary decodes the value in host byte order.
func (v *RawValue) UnmarshalBinary(data []byte) error {
	if len(data) < RawValueSize {
		return fmt.Errorf("value is %d bytes, want %d", len(data), RawValueSize)
	}
	field := func(i int) uint64 { return binary.NativeEndian.Uint64(data[i*8 : i*8+8]) }
	v.PacketCount = field(0)
	v.TotalDelayNs = field(1)
	v.MinDelayNs = field(2)
	v.MaxDelayNs = field(3)
	v.BufferSize = field(4)
	v.DroppedPackets = field(5)
	v.TotalBytes = field(6)
	v.LastTimestampNs = field(7)
	return nil
}

// MarshalBinary encodes the value in host byte order.
func (v RawValue) MarshalBinary() ([]byte, error) {
	buf := make([]byte, RawValueSize)
	for i, f := range []uint64{
		v.PacketCount, v.TotalDelayNs, v.MinDelayNs, v.MaxDelayNs,
		v.BufferSize, v.DroppedPackets, v.TotalBytes, v.LastTimestampNs,
	} {
		binary.NativeEndian.PutUint64(buf[i*8:], f)
	}
	return buf, nil
}

// Value returns the counters exported as metrics.
func (v RawValue) Value() Value {
	return Value{
		PacketCount:    v.PacketCount,
		DroppedPackets: v.DroppedPackets,
		TotalBytes:     v.TotalBytes,
		TotalDelayNs:   v.TotalDelayNs,
		MinDelayNs:     v.MinDelayNs,
		MaxDelayNs:     v.MaxDelayNs,
	}
}
