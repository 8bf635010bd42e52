// Package ledger keeps the bounded, deduplicated, insertion-ordered set of
// job records observed since startup.
package ledger

import (
	"sync"

	"codeberg.org/mutker/printwatch/internal/printjob"
)

const (
	DefaultCapacity   = 1000
	DefaultEvictBatch = 100
)

type AppendResult int

const (
	Inserted AppendResult = iota
	DuplicateSkipped
)

func (r AppendResult) String() string {
	if r == Inserted {
		return "inserted"
	}
	return "duplicate"
}

// Statistics summarizes the ledger at one point in time.
type Statistics struct {
	Count                  int
	CountByStatus          map[printjob.Status]int
	TotalPages             int
	TotalDocumentSizeBytes int64
}

// AveragePages returns TotalPages/Count, or 0 for an empty ledger.
func (s Statistics) AveragePages() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.TotalPages) / float64(s.Count)
}

type Option func(*Ledger)

// WithCapacity sets the size above which eviction happens.
func WithCapacity(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.capacity = n
		}
	}
}

// WithEvictBatch sets how many of the oldest records one eviction removes.
func WithEvictBatch(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.evictBatch = n
		}
	}
}

// Ledger is safe for concurrent use. Appends are serialized; snapshots and
// statistics may run in parallel with each other but never observe a
// partially applied append.
type Ledger struct {
	mu         sync.RWMutex
	records    []printjob.Record
	keys       map[printjob.Key]struct{}
	capacity   int
	evictBatch int
}

func New(opts ...Option) *Ledger {
	l := &Ledger{
		capacity:   DefaultCapacity,
		evictBatch: DefaultEvictBatch,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.evictBatch > l.capacity {
		l.evictBatch = l.capacity
	}
	l.records = make([]printjob.Record, 0, l.capacity+1)
	l.keys = make(map[printjob.Key]struct{}, l.capacity+1)
	return l
}

// Append inserts rec unless a record with the same printer and job ID is
// already held. When the insert takes the ledger over capacity the oldest
// evictBatch records are dropped under the same lock.
func (l *Ledger) Append(rec printjob.Record) AppendResult {
	key := rec.Key()

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.keys[key]; ok {
		return DuplicateSkipped
	}

	l.records = append(l.records, rec)
	l.keys[key] = struct{}{}

	if len(l.records) > l.capacity {
		l.evict()
	}

	return Inserted
}

func (l *Ledger) evict() {
	for _, old := range l.records[:l.evictBatch] {
		delete(l.keys, old.Key())
	}

	kept := make([]printjob.Record, len(l.records)-l.evictBatch, l.capacity+1)
	copy(kept, l.records[l.evictBatch:])
	l.records = kept
}

// Snapshot returns a copy of the records in insertion order.
func (l *Ledger) Snapshot() []printjob.Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]printjob.Record, len(l.records))
	copy(out, l.records)
	return out
}

func (l *Ledger) Statistics() Statistics {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stats := Statistics{
		Count:         len(l.records),
		CountByStatus: make(map[printjob.Status]int),
	}
	for i := range l.records {
		r := &l.records[i]
		stats.CountByStatus[r.Status]++
		stats.TotalPages += r.Pages
		stats.TotalDocumentSizeBytes += r.DocumentSizeBytes
	}
	return stats
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.records)
}

// Contains reports whether a record with key is held.
func (l *Ledger) Contains(key printjob.Key) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.keys[key]
	return ok
}
