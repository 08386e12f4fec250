package proc

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBinaryPath_Self(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("/proc is only available on Linux")
	}

	want, err := os.Executable()
	require.NoError(t, err)

	got, err := GetBinaryPath(os.Getpid())
	require.NoError(t, err)

	wantReal, err := filepath.EvalSymlinks(want)
	require.NoError(t, err)
	gotReal, err := filepath.EvalSymlinks(got)
	require.NoError(t, err)
	assert.Equal(t, wantReal, gotReal)
}

func TestGetBinaryPath_Invalid(t *testing.T) {
	_, err := GetBinaryPath(0)
	assert.Error(t, err)

	_, err = GetBinaryPath(-5)
	assert.Error(t, err)
}

func TestGetBinaryPath_NoSuchProcess(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("/proc is only available on Linux")
	}

	// Above the default pid_max, so it cannot name a live process.
	_, err := GetBinaryPath(1 << 30)
	assert.Error(t, err)
}

func TestGetProcessName_Self(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("/proc is only available on Linux")
	}
	assert.NotEmpty(t, GetProcessName(os.Getpid()))
	assert.Empty(t, GetProcessName(1<<30))
}
