package ledger_test

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"codeberg.org/mutker/printwatch/internal/ledger"
	"codeberg.org/mutker/printwatch/internal/printjob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(printer string, id int) printjob.Record {
	return printjob.Record{
		PrinterName:       printer,
		JobID:             strconv.Itoa(id),
		ObservedAt:        time.Unix(int64(id), 0),
		Status:            printjob.StatusQueued,
		Pages:             1,
		DocumentSizeBytes: 100,
		UserAccount:       "bob",
	}
}

func TestAppendDeduplicates(t *testing.T) {
	l := ledger.New()

	assert.Equal(t, ledger.Inserted, l.Append(record("LaserA", 42)))
	assert.Equal(t, ledger.DuplicateSkipped, l.Append(record("LaserA", 42)))
	assert.Equal(t, ledger.Inserted, l.Append(record("LaserB", 42)))
	assert.Equal(t, 2, l.Len())
	assert.True(t, l.Contains(printjob.Key{PrinterName: "LaserA", JobID: "42"}))
}

func TestDuplicateKeepsFirstRecord(t *testing.T) {
	l := ledger.New()

	first := record("LaserA", 1)
	second := first
	second.Status = printjob.StatusPrinting
	second.Pages = 9

	l.Append(first)
	l.Append(second)

	snap := l.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, first, snap[0])
}

func TestBatchEviction(t *testing.T) {
	l := ledger.New()

	for i := 1; i <= 1000; i++ {
		require.Equal(t, ledger.Inserted, l.Append(record("P", i)))
	}
	assert.Equal(t, 1000, l.Len())

	l.Append(record("P", 1001))
	assert.Equal(t, 901, l.Len())

	snap := l.Snapshot()
	assert.Equal(t, "101", snap[0].JobID)
	assert.Equal(t, "1001", snap[len(snap)-1].JobID)

	// Evicted keys are forgotten and may be inserted again.
	assert.False(t, l.Contains(printjob.Key{PrinterName: "P", JobID: "1"}))
	assert.Equal(t, ledger.Inserted, l.Append(record("P", 1)))
	assert.Equal(t, ledger.DuplicateSkipped, l.Append(record("P", 101)))
}

func TestNeverExceedsCapacity(t *testing.T) {
	l := ledger.New(ledger.WithCapacity(10), ledger.WithEvictBatch(3))

	for i := 0; i < 100; i++ {
		l.Append(record("P", i))
		assert.LessOrEqual(t, l.Len(), 10)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	l := ledger.New()
	l.Append(record("P", 1))

	snap := l.Snapshot()
	snap[0].PrinterName = "changed"

	assert.Equal(t, "P", l.Snapshot()[0].PrinterName)
}

func TestStatistics(t *testing.T) {
	l := ledger.New()

	assert.Zero(t, l.Statistics().AveragePages())

	a := record("P", 1)
	a.Pages = 3
	a.Status = printjob.StatusPrinting
	b := record("P", 2)
	b.Pages = 2
	b.DocumentSizeBytes = 400
	l.Append(a)
	l.Append(b)

	stats := l.Statistics()
	assert.Equal(t, 2, stats.Count)
	assert.Equal(t, 5, stats.TotalPages)
	assert.Equal(t, int64(500), stats.TotalDocumentSizeBytes)
	assert.Equal(t, map[printjob.Status]int{
		printjob.StatusPrinting: 1,
		printjob.StatusQueued:   1,
	}, stats.CountByStatus)
	assert.InDelta(t, 2.5, stats.AveragePages(), 1e-9)
}

func TestConcurrentAppendAndSnapshot(t *testing.T) {
	l := ledger.New(ledger.WithCapacity(500), ledger.WithEvictBatch(50))

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				l.Append(record("P"+strconv.Itoa(w), i))
			}
		}(w)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			snap := l.Snapshot()
			assert.LessOrEqual(t, len(snap), 500)

			seen := make(map[printjob.Key]bool, len(snap))
			for _, r := range snap {
				assert.False(t, seen[r.Key()], "duplicate key in snapshot")
				seen[r.Key()] = true
			}
			stats := l.Statistics()
			assert.Equal(t, stats.Count, stats.TotalPages)
		}
	}()

	wg.Wait()
	<-done
	assert.LessOrEqual(t, l.Len(), 500)
}
