package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/packrat/pkg/store"
	"github.com/marmos91/packrat/pkg/store/memory"
)

// fakeAdapter records lifecycle calls and blocks in Serve until its
// context is cancelled.
type fakeAdapter struct {
	name     string
	store    store.Store
	serveErr error
	served   chan struct{}
}

func newFakeAdapter(name string) *fakeAdapter {
	return &fakeAdapter{name: name, served: make(chan struct{})}
}

func (a *fakeAdapter) Name() string            { return a.name }
func (a *fakeAdapter) SetStore(st store.Store) { a.store = st }
func (a *fakeAdapter) Stop() error             { return nil }

func (a *fakeAdapter) Serve(ctx context.Context) error {
	close(a.served)
	if a.serveErr != nil {
		return a.serveErr
	}
	<-ctx.Done()
	return nil
}

func TestNew(t *testing.T) {
	t.Run("PanicsOnNilStore", func(t *testing.T) {
		assert.Panics(t, func() { New(nil) })
	})
}

func TestAddAdapter(t *testing.T) {
	t.Run("InjectsStore", func(t *testing.T) {
		st := memory.New()
		srv := New(st)

		a := newFakeAdapter("fake")
		require.NoError(t, srv.AddAdapter(a))
		assert.Equal(t, store.Store(st), a.store)
	})

	t.Run("RejectsNilAdapter", func(t *testing.T) {
		srv := New(memory.New())
		assert.Error(t, srv.AddAdapter(nil))
	})

	t.Run("RejectsAfterServe", func(t *testing.T) {
		srv := New(memory.New())
		a := newFakeAdapter("fake")
		require.NoError(t, srv.AddAdapter(a))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- srv.Serve(ctx) }()
		<-a.served

		assert.Error(t, srv.AddAdapter(newFakeAdapter("late")))

		cancel()
		require.NoError(t, <-done)
	})
}

func TestServe(t *testing.T) {
	t.Run("FailsWithoutAdapters", func(t *testing.T) {
		srv := New(memory.New())
		assert.Error(t, srv.Serve(context.Background()))
	})

	t.Run("RunsAllAdaptersUntilCancelled", func(t *testing.T) {
		srv := New(memory.New())
		a := newFakeAdapter("first")
		b := newFakeAdapter("second")
		require.NoError(t, srv.AddAdapter(a))
		require.NoError(t, srv.AddAdapter(b))

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- srv.Serve(ctx) }()

		<-a.served
		<-b.served
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("Serve did not return after cancellation")
		}
	})

	t.Run("ReturnsAdapterError", func(t *testing.T) {
		srv := New(memory.New())
		failing := newFakeAdapter("failing")
		failing.serveErr = errors.New("port already in use")
		require.NoError(t, srv.AddAdapter(failing))

		err := srv.Serve(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failing adapter")
	})
}
