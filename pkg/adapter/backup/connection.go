package backup

import (
	"bufio"
	"context"
	"io"
	"net"
	"time"

	"github.com/marmos91/packrat/internal/logger"
	protocol "github.com/marmos91/packrat/internal/protocol/backup"
)

// drainWindow is the idle window after which a drain stops waiting for
// more residual bytes. It bounds the gap between the response being
// written and the connection closing on both the success and failure
// paths; it is not a request read timeout.
const drainWindow = 10 * time.Millisecond

// connection runs exactly one request/response cycle and closes. The
// protocol has no pipelining: bytes left on the wire after a parsed
// request are discarded, never interpreted as a second request.
type connection struct {
	adapter *BackupAdapter
	conn    net.Conn
}

// serve handles the connection's single request.
//
// Failure handling mirrors the error taxonomy: a parse failure drains
// the socket and answers with a general error; a response write failure
// closes without retry; a panic anywhere is caught once here and
// converted into one best-effort general error.
func (c *connection) serve(ctx context.Context) {
	remoteAddr := c.conn.RemoteAddr().String()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic handling backup connection from %s: %v", remoteAddr, r)
			c.sendGeneralError()
		}
		_ = c.conn.Close()
		c.adapter.finishConnection(remoteAddr)
	}()

	start := time.Now()
	reader := bufio.NewReader(c.conn)

	req, err := protocol.DecodeRequest(reader)
	if err != nil {
		logger.Debug("Unparsable request from %s: %v", remoteAddr, err)
		c.drain(reader)
		c.adapter.metrics.RecordRequest("unparsable", protocol.StatusErrorGeneral.String(), time.Since(start))
		c.sendGeneralError()
		return
	}

	// Residual bytes past the end of a valid request are protocol
	// noise; drop whatever the reader buffered ahead of the parse. The
	// rest of the socket is drained after the response, before close,
	// so a large residual never triggers a reset that could destroy
	// the queued response.
	if buffered := reader.Buffered(); buffered > 0 {
		logger.Debug("Discarding %d residual bytes from %s", buffered, remoteAddr)
		_, _ = reader.Discard(buffered)
	}

	resp := req.Process(ctx, c.adapter.store)

	w := &countingWriter{w: c.conn}
	if err := resp.Encode(w); err != nil {
		// Close without retry; the client is gone or stalled.
		logger.Debug("Failed to send %s response to %s: %v", resp.Status(), remoteAddr, err)
		return
	}

	c.adapter.metrics.RecordRequest(req.Op().String(), resp.Status().String(), time.Since(start))
	c.adapter.metrics.RecordBytesSent(w.n)

	// Consume whatever the peer is still sending so the deferred close
	// never resets a connection with unread data.
	c.drain(reader)

	logger.Debug("Handled %s from %s with %s in %v",
		req.Op(), remoteAddr, resp.Status(), time.Since(start))
}

// drain discards the connection's remaining inbound bytes so the close
// that follows never resets the socket with data unread. It takes the
// reader's buffered bytes, then keeps reading for as long as the peer
// keeps sending, giving up after one idle drainWindow or at EOF; it
// never waits for a silent peer beyond that.
func (c *connection) drain(reader *bufio.Reader) {
	if buffered := reader.Buffered(); buffered > 0 {
		_, _ = reader.Discard(buffered)
	}

	defer func() {
		_ = c.conn.SetReadDeadline(time.Time{})
	}()

	for {
		if err := c.conn.SetReadDeadline(time.Now().Add(drainWindow)); err != nil {
			return
		}
		// A residual can be far larger than one window allows through;
		// progress within a window extends the drain, silence ends it.
		if n, _ := io.Copy(io.Discard, c.conn); n == 0 {
			return
		}
	}
}

// sendGeneralError makes the single best-effort attempt at an error
// response that the taxonomy allows.
func (c *connection) sendGeneralError() {
	resp := &protocol.ErrorGeneralResponse{}
	if err := resp.Encode(c.conn); err != nil {
		logger.Debug("Failed to send general error to %s: %v", c.conn.RemoteAddr(), err)
	}
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
