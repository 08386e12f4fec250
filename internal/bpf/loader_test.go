package bpf

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coral-mesh/jitterbuffer-exporter/internal/constants"
	exporterrors "github.com/coral-mesh/jitterbuffer-exporter/internal/errors"
)

func TestDefaultObjectPath(t *testing.T) {
	path, err := DefaultObjectPath()
	require.NoError(t, err)

	exe, err := os.Executable()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(filepath.Dir(exe), constants.BPFObjectFile), path)

	resolved, err := ResolveObjectPath("")
	require.NoError(t, err)
	assert.Equal(t, path, resolved)

	resolved, err = ResolveObjectPath("/opt/monitor.o")
	require.NoError(t, err)
	assert.Equal(t, "/opt/monitor.o", resolved)
}

func TestCheckSource(t *testing.T) {
	dir := t.TempDir()

	err := CheckSource(filepath.Join(dir, constants.BPFObjectFile))
	assert.ErrorIs(t, err, exporterrors.ErrInstrumentationSourceMissing)

	err = CheckSource(dir)
	assert.ErrorIs(t, err, exporterrors.ErrInstrumentationSourceMissing)

	obj := filepath.Join(dir, "present.o")
	require.NoError(t, os.WriteFile(obj, []byte("x"), 0o644))
	assert.NoError(t, CheckSource(obj))
}

func TestLoad_MissingObject(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))

	_, err := Load(filepath.Join(t.TempDir(), "absent.o"), logger)
	assert.ErrorIs(t, err, exporterrors.ErrInstrumentationSourceMissing)
}

func TestLoadSpec_NotAnELF(t *testing.T) {
	obj := filepath.Join(t.TempDir(), constants.BPFObjectFile)
	require.NoError(t, os.WriteFile(obj, []byte("definitely not an object file"), 0o644))

	_, err := LoadSpec(obj)
	require.Error(t, err)
	assert.NotErrorIs(t, err, exporterrors.ErrInstrumentationSourceMissing)
	assert.Contains(t, err.Error(), "parse instrumentation program")
}

func TestObjects_NilSafe(t *testing.T) {
	var o *Objects
	assert.Nil(t, o.Program("avcodec_send_packet_entry"))
	assert.NoError(t, o.Close())
}

func TestDetectCapabilities(t *testing.T) {
	caps := DetectCapabilities()
	if runtime.GOOS != "linux" {
		assert.False(t, caps.Supported)
		return
	}

	assert.True(t, caps.Supported)
	assert.NotEmpty(t, caps.KernelRelease)
	t.Logf("kernel=%s btf=%v privileged=%v", caps.KernelRelease, caps.BTFAvailable, caps.Privileged)
}
