package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/packrat/pkg/store"
	storetesting "github.com/marmos91/packrat/pkg/store/testing"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	st, err := New(context.Background(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, st.Close())
	})
	return st
}

func TestBadgerStoreSuite(t *testing.T) {
	storetesting.RunSuite(t, func(t *testing.T) store.Store {
		return newTestStore(t)
	})
}

func TestBadgerStorePersistence(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir()

	st, err := New(ctx, path)
	require.NoError(t, err)
	require.NoError(t, st.Save(ctx, 1, "persist.bin", []byte("still here")))
	require.NoError(t, st.Close())

	reopened, err := New(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	data, err := reopened.Restore(ctx, 1, "persist.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("still here"), data)
}

func TestBadgerStoreKeyIsolation(t *testing.T) {
	// Client 1 must not be mistaken for a prefix of client 11.
	ctx := context.Background()
	st := newTestStore(t)

	require.NoError(t, st.Save(ctx, 11, "f", []byte("eleven")))

	_, err := st.List(ctx, 1)
	assert.ErrorIs(t, err, store.ErrNoClient)
}
