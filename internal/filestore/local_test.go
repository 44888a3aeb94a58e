package filestore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tripwise-ai/tripwise/internal/config"
	appErr "github.com/tripwise-ai/tripwise/internal/pkg/errors"
)

func newLocalStore(t *testing.T) Store {
	store, err := New(config.FileStoreConfig{Type: "local", Dir: t.TempDir()})
	require.NoError(t, err)
	return store
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store := newLocalStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "guide.txt", strings.NewReader("airport bus every 20 minutes")))

	rc, err := store.Open(ctx, "guide.txt")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "airport bus every 20 minutes", string(data))
}

func TestLocalStoreRejectsPathTraversal(t *testing.T) {
	store := newLocalStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "../etc/passwd", "a/b.txt", `a\b.txt`} {
		err := store.Save(ctx, key, strings.NewReader("x"))
		require.ErrorIs(t, err, appErr.ErrInvalid, "key %q", key)
		_, err = store.Open(ctx, key)
		require.ErrorIs(t, err, appErr.ErrInvalid, "key %q", key)
	}
}

func TestLocalStoreOpenMissing(t *testing.T) {
	store := newLocalStore(t)
	_, err := store.Open(context.Background(), "missing.txt")
	require.Error(t, err)
}

func TestNewUnsupportedType(t *testing.T) {
	_, err := New(config.FileStoreConfig{Type: "ftp"})
	require.Error(t, err)
	_, err = New(config.FileStoreConfig{})
	require.Error(t, err)
}
