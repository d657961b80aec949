// Package execlog provides the bounded, append-only execution log: a
// diagnostic sink recording the outcome of every fired strategy action.
// The automation core only writes; the surrounding application only reads.
package execlog

import (
	"context"
	"log"
	"sync"
	"time"

	"solana-autotrader/internal/domain"
	"solana-autotrader/internal/storage"
)

// DefaultCapacity bounds the log to the most recent entries.
const DefaultCapacity = 50

// archiveBatchSize is the buffered-entry threshold for batch archives.
const archiveBatchSize = 16

// BulkArchiver is implemented by archive stores that write entries in
// batches. When the archive supports it, appends are buffered and written
// archiveBatchSize at a time; Flush drains the remainder.
type BulkArchiver interface {
	InsertBulk(ctx context.Context, entries []*domain.ExecutionEntry) error
}

// Log is a bounded, concurrency-safe ring of execution entries, newest
// first. Optionally mirrors every entry to an archive store.
type Log struct {
	mu      sync.RWMutex
	entries []domain.ExecutionEntry
	cap     int
	pending []*domain.ExecutionEntry // buffered for the batch archive

	archive storage.ExecutionHistoryStore // optional
	bulk    BulkArchiver                  // non-nil when archive batches
	logger  *log.Logger                   // optional
}

// Option configures a Log.
type Option func(*Log)

// WithArchive mirrors every appended entry to the archive store.
// Archive failures are logged and never propagate to the caller.
func WithArchive(store storage.ExecutionHistoryStore) Option {
	return func(l *Log) {
		l.archive = store
		l.bulk, _ = store.(BulkArchiver)
	}
}

// WithLogger sets the logger used for archive failures.
func WithLogger(logger *log.Logger) Option {
	return func(l *Log) {
		l.logger = logger
	}
}

// New creates a Log bounded to capacity entries. Non-positive capacity
// falls back to DefaultCapacity.
func New(capacity int, opts ...Option) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	l := &Log{cap: capacity}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append records one entry, evicting the oldest when full.
func (l *Log) Append(ctx context.Context, e domain.ExecutionEntry) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	l.mu.Lock()
	l.entries = append([]domain.ExecutionEntry{e}, l.entries...)
	if len(l.entries) > l.cap {
		l.entries = l.entries[:l.cap]
	}
	var batch []*domain.ExecutionEntry
	if l.bulk != nil {
		l.pending = append(l.pending, &e)
		if len(l.pending) >= archiveBatchSize {
			batch = l.pending
			l.pending = nil
		}
	}
	l.mu.Unlock()

	if batch != nil {
		l.archiveBatch(ctx, batch)
		return
	}
	if l.archive != nil && l.bulk == nil {
		if err := l.archive.Insert(ctx, &e); err != nil && l.logger != nil {
			l.logger.Printf("archive execution entry: %v", err)
		}
	}
}

// Flush writes any buffered archive entries. Call on shutdown when the
// archive store batches writes; a no-op otherwise.
func (l *Log) Flush(ctx context.Context) {
	l.mu.Lock()
	batch := l.pending
	l.pending = nil
	l.mu.Unlock()

	if len(batch) > 0 {
		l.archiveBatch(ctx, batch)
	}
}

func (l *Log) archiveBatch(ctx context.Context, batch []*domain.ExecutionEntry) {
	if err := l.bulk.InsertBulk(ctx, batch); err != nil && l.logger != nil {
		l.logger.Printf("archive %d execution entries: %v", len(batch), err)
	}
}

// Entries returns a copy of the log, newest first.
func (l *Log) Entries() []domain.ExecutionEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.ExecutionEntry(nil), l.entries...)
}

// Len returns the current entry count.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
