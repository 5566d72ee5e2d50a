package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/packrat/pkg/store"
	storetesting "github.com/marmos91/packrat/pkg/store/testing"
)

func newTestStore(t *testing.T) *FSStore {
	t.Helper()
	st, err := New(context.Background(), t.TempDir())
	require.NoError(t, err)
	return st
}

func TestFSStoreSuite(t *testing.T) {
	storetesting.RunSuite(t, func(t *testing.T) store.Store {
		return newTestStore(t)
	})
}

func TestFSStoreLayout(t *testing.T) {
	ctx := context.Background()

	t.Run("SaveCreatesClientDirectory", func(t *testing.T) {
		st := newTestStore(t)
		require.NoError(t, st.Save(ctx, 42, "backup.txt", []byte("data")))

		// Files live at <root>/<clientID>/<name>, client ID in decimal.
		path := filepath.Join(st.Root(), "42", "backup.txt")
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, []byte("data"), data)
	})

	t.Run("EmptyClientDirectoryIsUnknownClient", func(t *testing.T) {
		st := newTestStore(t)
		require.NoError(t, os.MkdirAll(filepath.Join(st.Root(), "7"), 0755))

		_, err := st.Restore(ctx, 7, "anything")
		assert.ErrorIs(t, err, store.ErrNoClient)

		_, err = st.List(ctx, 7)
		assert.ErrorIs(t, err, store.ErrNoClient)
	})

	t.Run("NewCreatesRoot", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "nested", "storage")
		_, err := New(ctx, root)
		require.NoError(t, err)

		info, err := os.Stat(root)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("StateSurvivesReopen", func(t *testing.T) {
		root := t.TempDir()
		st, err := New(ctx, root)
		require.NoError(t, err)
		require.NoError(t, st.Save(ctx, 1, "persist.bin", []byte("still here")))
		require.NoError(t, st.Close())

		reopened, err := New(ctx, root)
		require.NoError(t, err)
		data, err := reopened.Restore(ctx, 1, "persist.bin")
		require.NoError(t, err)
		assert.Equal(t, []byte("still here"), data)
	})
}
