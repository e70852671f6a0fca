package media

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func TestObjectNameDetectsExtension(t *testing.T) {
	key := ObjectName("user", "abc123", pngHeader)
	require.Equal(t, "user/abc123.png", key)
}

func TestObjectNameRandomFallback(t *testing.T) {
	a := ObjectName("chat", "", pngHeader)
	b := ObjectName("chat", "", pngHeader)
	require.True(t, strings.HasPrefix(a, "chat/"))
	require.True(t, strings.HasSuffix(a, ".png"))
	require.NotEqual(t, a, b)
}

func TestDiskStoreRoundTrip(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)

	key, err := store.Put(context.Background(), "chat/a.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)
	require.Equal(t, "chat/a.png", key)

	data, err := os.ReadFile(filepath.Join(store.root, "chat", "a.png"))
	require.NoError(t, err)
	require.Equal(t, pngHeader, data)

	require.NoError(t, store.Remove(context.Background(), key))
	_, err = os.Stat(filepath.Join(store.root, "chat", "a.png"))
	require.True(t, os.IsNotExist(err))
}

func TestDiskStoreContainsTraversal(t *testing.T) {
	root := t.TempDir()
	store, err := NewDiskStore(root)
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../escape.png", bytes.NewReader(pngHeader))
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(root, "escape.png"))
	require.NoError(t, statErr, "dotted keys must stay inside the store root")
	_, statErr = os.Stat(filepath.Join(filepath.Dir(root), "escape.png"))
	require.True(t, os.IsNotExist(statErr))
}

func TestDiskStoreRemoveMissingIsNoop(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Remove(context.Background(), "chat/never-there.png"))
}
