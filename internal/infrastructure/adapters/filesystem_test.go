package adapters

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealFileSystem_WriteAndList(t *testing.T) {
	fs := NewRealFileSystem()
	dir := filepath.Join(t.TempDir(), "snapshots")

	require.NoError(t, fs.WriteFile(filepath.Join(dir, "snapshot_b.yaml"), []byte("b"), 0o644))
	require.NoError(t, fs.WriteFile(filepath.Join(dir, "snapshot_a.yaml"), []byte("a"), 0o644))
	require.NoError(t, fs.MkdirAll(filepath.Join(dir, "nested"), 0o755))

	files, err := fs.ListFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"snapshot_a.yaml", "snapshot_b.yaml"}, files, "sorted, regular files only, no leftover tmp files")

	data, err := fs.ReadFile(filepath.Join(dir, "snapshot_a.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "a", string(data))

	assert.True(t, fs.Exists(dir))
	require.NoError(t, fs.Remove(filepath.Join(dir, "snapshot_a.yaml")))
	assert.False(t, fs.Exists(filepath.Join(dir, "snapshot_a.yaml")))
}
