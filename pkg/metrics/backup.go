package metrics

import "time"

// BackupMetrics collects protocol-level metrics for the backup adapter.
// Implementations must be safe for concurrent use.
type BackupMetrics interface {
	// RecordRequest records one completed request/response cycle with
	// the opcode handled ("SAVE", "LIST", "unparsable", ...) and the
	// status sent back.
	RecordRequest(op string, status string, duration time.Duration)

	// RecordBytesSent records response bytes written to a client.
	RecordBytesSent(n int64)

	RecordConnectionAccepted()
	RecordConnectionClosed()
	SetActiveConnections(count int32)
}

// NewNoopBackupMetrics returns a BackupMetrics that discards everything.
func NewNoopBackupMetrics() BackupMetrics {
	return noopBackupMetrics{}
}

type noopBackupMetrics struct{}

func (noopBackupMetrics) RecordRequest(string, string, time.Duration) {}
func (noopBackupMetrics) RecordBytesSent(int64)                       {}
func (noopBackupMetrics) RecordConnectionAccepted()                   {}
func (noopBackupMetrics) RecordConnectionClosed()                     {}
func (noopBackupMetrics) SetActiveConnections(int32)                  {}
