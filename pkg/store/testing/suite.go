// Package testing provides a conformance suite every store backend runs
// to prove it implements the shared Store semantics.
package testing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/packrat/pkg/store"
)

// Factory builds a fresh, empty store for one subtest. Cleanup should be
// registered on t.
type Factory func(t *testing.T) store.Store

// RunSuite exercises the shared semantics of a Store implementation.
func RunSuite(t *testing.T, factory Factory) {
	ctx := context.Background()

	t.Run("SaveThenRestoreRoundTrips", func(t *testing.T) {
		st := factory(t)

		payload := []byte("hello")
		require.NoError(t, st.Save(ctx, 42, "notes.txt", payload))

		got, err := st.Restore(ctx, 42, "notes.txt")
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	})

	t.Run("SaveTruncatesPriorContent", func(t *testing.T) {
		st := factory(t)

		require.NoError(t, st.Save(ctx, 1, "a.bin", []byte("a longer first version")))
		require.NoError(t, st.Save(ctx, 1, "a.bin", []byte("v2")))

		got, err := st.Restore(ctx, 1, "a.bin")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), got)
	})

	t.Run("SavePreservesBinaryContent", func(t *testing.T) {
		st := factory(t)

		payload := []byte{0x00, 0xFF, 0x0A, 0x00, 0x7F, 0x80}
		require.NoError(t, st.Save(ctx, 7, "blob", payload))

		got, err := st.Restore(ctx, 7, "blob")
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	})

	t.Run("SaveAllowsEmptyPayload", func(t *testing.T) {
		st := factory(t)

		require.NoError(t, st.Save(ctx, 7, "empty", nil))

		got, err := st.Restore(ctx, 7, "empty")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("UnknownClient", func(t *testing.T) {
		st := factory(t)

		_, err := st.Restore(ctx, 99, "anything")
		assert.ErrorIs(t, err, store.ErrNoClient)

		err = st.Delete(ctx, 99, "anything")
		assert.ErrorIs(t, err, store.ErrNoClient)

		_, err = st.List(ctx, 99)
		assert.ErrorIs(t, err, store.ErrNoClient)
	})

	t.Run("UnknownFileForKnownClient", func(t *testing.T) {
		st := factory(t)

		require.NoError(t, st.Save(ctx, 5, "known.txt", []byte("x")))

		_, err := st.Restore(ctx, 5, "missing.txt")
		assert.ErrorIs(t, err, store.ErrNoFile)

		err = st.Delete(ctx, 5, "missing.txt")
		assert.ErrorIs(t, err, store.ErrNoFile)
	})

	t.Run("DeleteThenRestoreReportsNoFile", func(t *testing.T) {
		st := factory(t)

		// A second file keeps the namespace non-empty after the delete,
		// so the client stays known.
		require.NoError(t, st.Save(ctx, 42, "notes.txt", []byte("hello")))
		require.NoError(t, st.Save(ctx, 42, "keep.txt", []byte("keep")))

		require.NoError(t, st.Delete(ctx, 42, "notes.txt"))

		_, err := st.Restore(ctx, 42, "notes.txt")
		assert.ErrorIs(t, err, store.ErrNoFile)
	})

	t.Run("DeletingLastFileForgetsClient", func(t *testing.T) {
		st := factory(t)

		require.NoError(t, st.Save(ctx, 42, "only.txt", []byte("x")))
		require.NoError(t, st.Delete(ctx, 42, "only.txt"))

		// The namespace is empty now, which reads as an unknown client.
		_, err := st.List(ctx, 42)
		assert.ErrorIs(t, err, store.ErrNoClient)
	})

	t.Run("ListReturnsAllNames", func(t *testing.T) {
		st := factory(t)

		require.NoError(t, st.Save(ctx, 42, "a.txt", []byte("a")))
		require.NoError(t, st.Save(ctx, 42, "b.txt", []byte("b")))

		names, err := st.List(ctx, 42)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, names)
	})

	t.Run("ClientsAreIsolated", func(t *testing.T) {
		st := factory(t)

		require.NoError(t, st.Save(ctx, 1, "shared-name", []byte("one")))
		require.NoError(t, st.Save(ctx, 2, "shared-name", []byte("two")))

		got, err := st.Restore(ctx, 1, "shared-name")
		require.NoError(t, err)
		assert.Equal(t, []byte("one"), got)

		got, err = st.Restore(ctx, 2, "shared-name")
		require.NoError(t, err)
		assert.Equal(t, []byte("two"), got)
	})
}
