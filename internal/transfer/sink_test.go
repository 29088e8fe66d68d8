package transfer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskSinkWritesFile(t *testing.T) {
	dir := t.TempDir()
	sink := DiskSink{Dir: dir}

	handle, err := sink.Materialize("hello.txt", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "hello.txt"), handle)

	data, err := os.ReadFile(handle)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestDiskSinkRenamesOnCollision(t *testing.T) {
	dir := t.TempDir()
	sink := DiskSink{Dir: dir}

	first, err := sink.Materialize("dup.txt", []byte("one"))
	require.NoError(t, err)
	second, err := sink.Materialize("dup.txt", []byte("two"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, filepath.Join(dir, "dup (1).txt"), second)

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), data)
}

func TestDiskSinkStripsPathComponents(t *testing.T) {
	dir := t.TempDir()
	sink := DiskSink{Dir: dir}

	handle, err := sink.Materialize("../escape.txt", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.txt"), handle)
}

func TestDiskSinkCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "deeper")
	sink := DiskSink{Dir: dir}

	handle, err := sink.Materialize("f.bin", []byte("x"))
	require.NoError(t, err)
	assert.FileExists(t, handle)
}
