// Package sink batches match records into a persistent store
package sink

import (
	"context"
	"sync"
	"time"

	"github.com/GriffinCanCode/matchscan/internal/orchestrator/matches"
	"github.com/GriffinCanCode/matchscan/internal/trace"
)

// Writer stores a batch of records for a run.
type Writer interface {
	InsertRecords(ctx context.Context, runID string, records []matches.Record) (int, error)
}

// Batcher accumulates records and writes them in batches, either when
// maxSize records are pending or flushDelay after the last Add.
type Batcher struct {
	writer     Writer
	runID      string
	maxSize    int
	flushDelay time.Duration
	mu         sync.Mutex
	items      []matches.Record
	timer      *time.Timer
	stopped    bool
	wg         sync.WaitGroup
}

// NewBatcher creates a record batcher for runID.
func NewBatcher(writer Writer, runID string, maxSize int, flushDelay time.Duration) *Batcher {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if flushDelay <= 0 {
		flushDelay = DefaultFlushDelay
	}
	return &Batcher{
		writer:     writer,
		runID:      runID,
		maxSize:    maxSize,
		flushDelay: flushDelay,
		items:      make([]matches.Record, 0, maxSize),
	}
}

// Add queues a record. Records added after Stop are dropped.
func (b *Batcher) Add(r matches.Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}

	b.items = append(b.items, r)

	if len(b.items) >= b.maxSize {
		b.flushLocked()
		return
	}

	if b.timer == nil {
		b.timer = time.AfterFunc(b.flushDelay, b.timerFlush)
	} else {
		b.timer.Reset(b.flushDelay)
	}
}

func (b *Batcher) timerFlush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

func (b *Batcher) flushLocked() {
	if len(b.items) == 0 {
		return
	}
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	items := b.items
	b.items = make([]matches.Record, 0, b.maxSize)

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), WriteTimeout)
		defer cancel()
		ctx, span := trace.StartSpan(ctx, "record_batch_flush")
		defer span.End()
		span.SetAttr("count", len(items))

		log := trace.Logger(ctx)
		stored, err := b.writer.InsertRecords(ctx, b.runID, items)
		if err != nil {
			span.SetAttr("error", err.Error())
			log.Warn("batch record store failed", "error", err, "count", len(items))
		} else {
			log.Debug("batch records stored", "stored", stored, "submitted", len(items))
		}
	}()
}

// Flush forces immediate flush of pending records.
func (b *Batcher) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.flushLocked()
}

// Stop flushes remaining records and waits for in-flight writes.
func (b *Batcher) Stop() {
	b.mu.Lock()
	b.stopped = true
	b.flushLocked()
	b.mu.Unlock()
	b.wg.Wait()
}
