// Package history optionally persists every collected job to SQLite so
// observations survive ledger eviction and restarts.
package history

import (
	"context"

	"codeberg.org/mutker/printwatch/internal/printjob"
)

// Recorder is the sink the collector forwards inserted records to.
type Recorder interface {
	Record(ctx context.Context, rec printjob.Record) error
	Close() error
}

// Repository defines the interface for history storage
type Repository interface {
	Record(entry *Entry) error
	Flush() error
	Close() error
}

// Entry is one stored row. SessionID groups the rows written by one process.
type Entry struct {
	SessionID string
	Record    printjob.Record
}
