// Package backup implements the TCP adapter for the backup protocol:
// the accept loop, bounded connection admission and the per-connection
// request dispatcher.
package backup

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marmos91/packrat/internal/logger"
	"github.com/marmos91/packrat/internal/ratelimiter"
	"github.com/marmos91/packrat/pkg/metrics"
	"github.com/marmos91/packrat/pkg/store"
)

// Config holds the backup adapter configuration.
//
// The protocol is strictly one request per connection, so
// MaxConnections doubles as the bound on concurrent in-flight requests.
type Config struct {
	// Enabled controls whether the adapter is started.
	Enabled bool `mapstructure:"enabled"`

	// Port is the TCP port to listen on. 0 lets the OS pick one (used
	// by tests). Default: 1256.
	Port int `mapstructure:"port" validate:"min=0,max=65535"`

	// MaxConnections bounds concurrent connections; the accept loop
	// blocks once the bound is reached. 0 means unbounded, which is
	// how the protocol was originally deployed but is not recommended.
	MaxConnections int `mapstructure:"max_connections" validate:"min=0"`

	// AcceptRate limits accepted connections per second (token
	// bucket). 0 disables rate limiting.
	AcceptRate uint `mapstructure:"accept_rate"`

	// AcceptBurst is the burst capacity of the accept rate limiter.
	// Ignored when AcceptRate is 0; defaults to AcceptRate.
	AcceptBurst uint `mapstructure:"accept_burst"`

	// ShutdownTimeout is how long Serve waits for in-flight
	// connections before force-closing them.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`

	// MetricsLogInterval is the period for logging connection counters.
	// 0 disables periodic logging.
	MetricsLogInterval time.Duration `mapstructure:"metrics_log_interval" validate:"min=0"`
}

func (c *Config) applyDefaults() {
	// The port default (1256) lives in pkg/config so that tests can ask
	// for an OS-assigned port with 0 here.
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

// BackupAdapter accepts TCP connections and runs one request/response
// cycle on each.
//
// The accept path is sequential: it accepts a connection, hands it to a
// dedicated goroutine, and resumes accepting. A connection that stalls
// mid-request blocks only its own goroutine; there is deliberately no
// read timeout (see the protocol notes in DESIGN.md), so such a
// goroutine is held until the peer closes or the server shuts down.
type BackupAdapter struct {
	config  Config
	metrics metrics.BackupMetrics
	limiter *ratelimiter.RateLimiter
	store   store.Store

	listener net.Listener
	portMu   sync.RWMutex

	// connSemaphore bounds concurrent connections when MaxConnections
	// is set; nil means unbounded.
	connSemaphore chan struct{}

	activeConns  sync.WaitGroup
	connCount    atomic.Int32
	openConns    sync.Map // remote addr -> net.Conn, for forced closure
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// New creates a BackupAdapter. Zero config values are replaced with
// defaults; nil metrics get a no-op implementation.
func New(config Config, backupMetrics metrics.BackupMetrics) *BackupAdapter {
	config.applyDefaults()

	if backupMetrics == nil {
		backupMetrics = metrics.NewNoopBackupMetrics()
	}

	var connSemaphore chan struct{}
	if config.MaxConnections > 0 {
		connSemaphore = make(chan struct{}, config.MaxConnections)
		logger.Debug("Backup connection limit: %d", config.MaxConnections)
	} else {
		logger.Debug("Backup connection limit: unbounded")
	}

	return &BackupAdapter{
		config:        config,
		metrics:       backupMetrics,
		limiter:       ratelimiter.New(config.AcceptRate, config.AcceptBurst),
		connSemaphore: connSemaphore,
		shutdown:      make(chan struct{}),
	}
}

func (a *BackupAdapter) Name() string {
	return "backup"
}

// SetStore injects the shared store. Called once before Serve.
func (a *BackupAdapter) SetStore(st store.Store) {
	a.store = st
}

// Port returns the port the adapter is actually listening on. Useful
// when the configured port is 0.
func (a *BackupAdapter) Port() int {
	a.portMu.RLock()
	defer a.portMu.RUnlock()

	if a.listener == nil {
		return 0
	}
	return a.listener.Addr().(*net.TCPAddr).Port
}

// ActiveConnections returns the number of currently open connections.
func (a *BackupAdapter) ActiveConnections() int32 {
	return a.connCount.Load()
}

// Serve accepts connections until ctx is cancelled, then shuts down
// gracefully: the listener closes first, in-flight connections get up
// to ShutdownTimeout to finish, and whatever remains is force-closed.
func (a *BackupAdapter) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", a.config.Port))
	if err != nil {
		return fmt.Errorf("backup listener on port %d: %w", a.config.Port, err)
	}

	a.portMu.Lock()
	a.listener = listener
	a.portMu.Unlock()

	logger.Info("Backup server listening on port %d", a.Port())

	go func() {
		<-ctx.Done()
		a.initiateShutdown()
	}()

	if a.config.MetricsLogInterval > 0 {
		go a.logMetrics(ctx)
	}

	for {
		// Admission control happens before Accept so a full server
		// leaves connections in the listen backlog instead of
		// accepting and stalling them.
		if a.connSemaphore != nil {
			select {
			case a.connSemaphore <- struct{}{}:
			case <-a.shutdown:
				return a.gracefulShutdown()
			}
		}

		if err := a.limiter.Wait(ctx); err != nil {
			a.releaseSlot()
			return a.gracefulShutdown()
		}

		tcpConn, err := listener.Accept()
		if err != nil {
			a.releaseSlot()

			select {
			case <-a.shutdown:
				return a.gracefulShutdown()
			default:
				logger.Debug("Error accepting backup connection: %v", err)
				continue
			}
		}

		a.activeConns.Add(1)
		count := a.connCount.Add(1)
		a.openConns.Store(tcpConn.RemoteAddr().String(), tcpConn)

		a.metrics.RecordConnectionAccepted()
		a.metrics.SetActiveConnections(count)

		logger.Debug("Backup connection accepted from %s (active: %d)",
			tcpConn.RemoteAddr(), count)

		c := &connection{adapter: a, conn: tcpConn}
		go c.serve(ctx)
	}
}

// Stop closes the listener, stopping new accepts immediately.
func (a *BackupAdapter) Stop() error {
	a.initiateShutdown()
	return nil
}

func (a *BackupAdapter) releaseSlot() {
	if a.connSemaphore != nil {
		<-a.connSemaphore
	}
}

// finishConnection is called by a connection goroutine when it is done.
func (a *BackupAdapter) finishConnection(remoteAddr string) {
	a.openConns.Delete(remoteAddr)
	count := a.connCount.Add(-1)
	a.metrics.RecordConnectionClosed()
	a.metrics.SetActiveConnections(count)
	a.releaseSlot()
	a.activeConns.Done()
}

func (a *BackupAdapter) initiateShutdown() {
	a.shutdownOnce.Do(func() {
		close(a.shutdown)

		a.portMu.RLock()
		listener := a.listener
		a.portMu.RUnlock()

		if listener != nil {
			_ = listener.Close()
		}
	})
}

// gracefulShutdown waits for in-flight connections, force-closing the
// stragglers once the shutdown timeout expires.
func (a *BackupAdapter) gracefulShutdown() error {
	logger.Info("Backup server shutting down (%d active connections)", a.connCount.Load())

	done := make(chan struct{})
	go func() {
		a.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Backup server shut down cleanly")
		return nil
	case <-time.After(a.config.ShutdownTimeout):
		forced := 0
		a.openConns.Range(func(_, value any) bool {
			if conn, ok := value.(net.Conn); ok {
				_ = conn.Close()
				forced++
			}
			return true
		})
		logger.Warn("Backup server force-closed %d connections after %v",
			forced, a.config.ShutdownTimeout)

		// The force-closes unblock the remaining handlers.
		<-done
		return nil
	}
}

func (a *BackupAdapter) logMetrics(ctx context.Context) {
	ticker := time.NewTicker(a.config.MetricsLogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.shutdown:
			return
		case <-ticker.C:
			logger.Info("Backup server: %d active connections", a.connCount.Load())
		}
	}
}
