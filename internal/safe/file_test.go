package safe

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFile(t *testing.T) {
	t.Run("reads regular file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "monitor.bpf.o")
		require.NoError(t, os.WriteFile(path, []byte("\x7fELF"), 0o644))

		got, err := ReadFile(path, nil)
		require.NoError(t, err)
		assert.Equal(t, []byte("\x7fELF"), got)
	})

	t.Run("missing file wraps ErrNotExist", func(t *testing.T) {
		_, err := ReadFile(filepath.Join(t.TempDir(), "absent"), nil)
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})

	t.Run("rejects symlink by default", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "real")
		link := filepath.Join(dir, "link")
		require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
		require.NoError(t, os.Symlink(src, link))

		_, err := ReadFile(link, nil)
		assert.Error(t, err)

		got, err := ReadFile(link, &ReadOptions{AllowSymlinks: true})
		require.NoError(t, err)
		assert.Equal(t, []byte("x"), got)
	})

	t.Run("rejects directory", func(t *testing.T) {
		_, err := ReadFile(t.TempDir(), nil)
		assert.Error(t, err)
	})

	t.Run("rejects oversized file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "big")
		require.NoError(t, os.WriteFile(path, make([]byte, 32), 0o644))

		_, err := ReadFile(path, &ReadOptions{MaxSize: 16})
		assert.ErrorContains(t, err, "exceeds maximum")
	})
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, Exists(dir))
	assert.False(t, Exists(filepath.Join(dir, "nope")))
}
