package backup_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	protocol "github.com/marmos91/packrat/internal/protocol/backup"
	"github.com/marmos91/packrat/internal/protocol/backup/wire"
	"github.com/marmos91/packrat/pkg/adapter/backup"
	"github.com/marmos91/packrat/pkg/client"
	"github.com/marmos91/packrat/pkg/store/memory"
)

// ============================================================================
// Test Helper Functions
// ============================================================================

// startAdapter launches an adapter on an OS-assigned port against a
// fresh memory store and returns its address plus a shutdown function.
func startAdapter(t *testing.T, config backup.Config) (addr string, shutdown func()) {
	t.Helper()

	adapter := backup.New(config, nil)
	adapter.SetStore(memory.New())

	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- adapter.Serve(ctx)
	}()

	// Wait for the listener to come up.
	require.Eventually(t, func() bool {
		return adapter.Port() != 0
	}, 5*time.Second, 10*time.Millisecond, "adapter never started listening")

	addr = net.JoinHostPort("127.0.0.1", strconv.Itoa(adapter.Port()))
	shutdown = func() {
		cancel()
		select {
		case err := <-serveDone:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Fatal("adapter did not shut down")
		}
	}
	return addr, shutdown
}

// rawRequest dials the adapter, writes raw and reads everything the
// server sends back before closing.
func rawRequest(t *testing.T, addr string, raw []byte) []byte {
	t.Helper()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write(raw)
	require.NoError(t, err)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	resp, err := io.ReadAll(conn)
	require.NoError(t, err)
	return resp
}

// requestHeader builds the 6-byte request header.
func requestHeader(clientID uint32, opcode uint8) []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, struct {
		ClientID uint32
		Version  uint8
		Opcode   uint8
	}{ClientID: clientID, Version: protocol.Version, Opcode: opcode})
	return buf.Bytes()
}

// responseStatus decodes the status from a raw 3-byte response header.
func responseStatus(t *testing.T, resp []byte) protocol.Status {
	t.Helper()
	require.GreaterOrEqual(t, len(resp), 3, "response shorter than its header")
	assert.Equal(t, protocol.Version, resp[0])
	return protocol.Status(binary.LittleEndian.Uint16(resp[1:3]))
}

// ============================================================================
// End-To-End Tests
// ============================================================================

func TestAdapterEndToEnd(t *testing.T) {
	addr, shutdown := startAdapter(t, backup.Config{Enabled: true, Port: 0})
	defer shutdown()

	ctx := context.Background()
	c := client.New(addr, 42)

	t.Run("SaveRestoreRoundTrip", func(t *testing.T) {
		content := []byte("the quick brown fox")
		require.NoError(t, c.Save(ctx, "fox.txt", content))

		restored, err := c.Restore(ctx, "fox.txt")
		require.NoError(t, err)
		assert.Equal(t, content, restored)
	})

	t.Run("ListReturnsSavedNames", func(t *testing.T) {
		require.NoError(t, c.Save(ctx, "second.txt", []byte("2")))

		listing, err := c.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, listing.Names, "fox.txt")
		assert.Contains(t, listing.Names, "second.txt")
		assert.Len(t, listing.AdvisoryName, 32)
	})

	t.Run("DeleteRemovesFile", func(t *testing.T) {
		require.NoError(t, c.Save(ctx, "doomed.txt", []byte("x")))
		require.NoError(t, c.Delete(ctx, "doomed.txt"))

		_, err := c.Restore(ctx, "doomed.txt")
		assert.ErrorIs(t, err, client.ErrNoFile)
	})

	t.Run("UnknownClient", func(t *testing.T) {
		other := client.New(addr, 9999)
		_, err := other.Restore(ctx, "anything")
		assert.ErrorIs(t, err, client.ErrNoClient)

		_, err = other.List(ctx)
		assert.ErrorIs(t, err, client.ErrNoClient)
	})

	t.Run("ClientsAreIsolated", func(t *testing.T) {
		other := client.New(addr, 43)
		require.NoError(t, other.Save(ctx, "mine.txt", []byte("43's data")))

		_, err := c.Restore(ctx, "mine.txt")
		assert.ErrorIs(t, err, client.ErrNoFile)
	})

	t.Run("EmptyPayloadRoundTrips", func(t *testing.T) {
		require.NoError(t, c.Save(ctx, "empty.bin", nil))

		restored, err := c.Restore(ctx, "empty.bin")
		require.NoError(t, err)
		assert.Empty(t, restored)
	})
}

// ============================================================================
// Protocol Robustness Tests
// ============================================================================

func TestAdapterMalformedInput(t *testing.T) {
	addr, shutdown := startAdapter(t, backup.Config{Enabled: true, Port: 0})
	defer shutdown()

	t.Run("UnknownOpcodeGetsGeneralError", func(t *testing.T) {
		resp := rawRequest(t, addr, requestHeader(1, 99))
		assert.Equal(t, protocol.StatusErrorGeneral, responseStatus(t, resp))
	})

	t.Run("InvalidNameGetsGeneralError", func(t *testing.T) {
		raw := requestHeader(1, uint8(protocol.OpRestore))
		// Leading space fails name validation.
		raw = append(raw, 5, 0, ' ', 'f', 'i', 'l', 'e')

		resp := rawRequest(t, addr, raw)
		assert.Equal(t, protocol.StatusErrorGeneral, responseStatus(t, resp))
	})

	t.Run("ResidualBytesAreDiscarded", func(t *testing.T) {
		// A valid List request followed by garbage: the garbage must
		// not be parsed as a second request, and the single response
		// must still arrive.
		raw := requestHeader(7, uint8(protocol.OpList))
		raw = append(raw, []byte("residual garbage that looks like nothing")...)

		resp := rawRequest(t, addr, raw)
		// Client 7 never saved anything.
		assert.Equal(t, protocol.StatusErrorNoClient, responseStatus(t, resp))
		assert.Len(t, resp, 3, "response must be exactly one header")
	})

	t.Run("LargeResidualBytesAreDiscarded", func(t *testing.T) {
		// A residual far beyond any read buffer: the server must keep
		// consuming it until the peer falls silent, or its close would
		// reset the connection and destroy the queued response.
		raw := requestHeader(7, uint8(protocol.OpList))
		garbage := make([]byte, 1<<20)
		for i := range garbage {
			garbage[i] = byte(i)
		}
		raw = append(raw, garbage...)

		resp := rawRequest(t, addr, raw)
		assert.Equal(t, protocol.StatusErrorNoClient, responseStatus(t, resp))
		assert.Len(t, resp, 3, "response must be exactly one header")
	})

	t.Run("TruncatedRequestGetsGeneralError", func(t *testing.T) {
		// Save header that promises a name and never sends one.
		conn, err := net.Dial("tcp", addr)
		require.NoError(t, err)

		_, err = conn.Write(requestHeader(1, uint8(protocol.OpSave)))
		require.NoError(t, err)
		require.NoError(t, conn.(*net.TCPConn).CloseWrite())

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		resp, err := io.ReadAll(conn)
		require.NoError(t, err)
		require.NoError(t, conn.Close())

		assert.Equal(t, protocol.StatusErrorGeneral, responseStatus(t, resp))
	})

	t.Run("ConnectionClosesAfterResponse", func(t *testing.T) {
		conn, err := net.Dial("tcp", addr)
		require.NoError(t, err)
		defer conn.Close()

		buf := new(bytes.Buffer)
		buf.Write(requestHeader(1, uint8(protocol.OpSave)))
		name, err := wire.NewName([]byte("once.txt"))
		require.NoError(t, err)
		require.NoError(t, name.Encode(buf))
		payload, err := wire.NewPayload([]byte("x"))
		require.NoError(t, err)
		require.NoError(t, payload.Encode(buf))

		_, err = conn.Write(buf.Bytes())
		require.NoError(t, err)

		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		resp, err := io.ReadAll(conn)
		require.NoError(t, err, "server must close the connection after one response")
		assert.Equal(t, protocol.StatusSuccessSaveOrDelete, responseStatus(t, resp))
	})
}

// ============================================================================
// Lifecycle Tests
// ============================================================================

func TestAdapterLifecycle(t *testing.T) {
	t.Run("GracefulShutdown", func(t *testing.T) {
		addr, shutdown := startAdapter(t, backup.Config{
			Enabled:         true,
			Port:            0,
			ShutdownTimeout: 2 * time.Second,
		})

		c := client.New(addr, 1)
		require.NoError(t, c.Save(context.Background(), "f.txt", []byte("x")))

		// shutdown asserts Serve returns nil.
		shutdown()

		// New connections must be refused after shutdown.
		_, err := net.DialTimeout("tcp", addr, time.Second)
		assert.Error(t, err)
	})

	t.Run("ServesWithConnectionLimit", func(t *testing.T) {
		addr, shutdown := startAdapter(t, backup.Config{
			Enabled:        true,
			Port:           0,
			MaxConnections: 1,
		})
		defer shutdown()

		// Sequential requests all get through a single slot.
		c := client.New(addr, 1)
		ctx := context.Background()
		for i := 0; i < 5; i++ {
			require.NoError(t, c.Save(ctx, "f.txt", []byte("x")))
		}

		_, err := c.Restore(ctx, "f.txt")
		require.NoError(t, err)
	})

	t.Run("ServesWithRateLimit", func(t *testing.T) {
		addr, shutdown := startAdapter(t, backup.Config{
			Enabled:    true,
			Port:       0,
			AcceptRate: 100,
		})
		defer shutdown()

		c := client.New(addr, 1)
		require.NoError(t, c.Save(context.Background(), "f.txt", []byte("x")))
	})
}
