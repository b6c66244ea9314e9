// ring.go: MPSC ring buffer feeding the log sink
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package qa

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"
)

// logEntry is one record waiting to be written by the sink goroutine.
type logEntry struct {
	handler slog.Handler
	record  slog.Record
}

// logRing is a multi-producer single-consumer ring of log entries.
// Producers claim a sequence atomically and wait for a free slot when the
// ring is full, so records are never dropped while the consumer runs.
type logRing struct {
	buffer   []logEntry
	capacity int64
	mask     int64

	writerCursor atomic.Int64
	readerCursor atomic.Int64
	_            [48]byte

	// available[i] holds the sequence stored in slot i, or -1.
	available []atomic.Int64

	processor func(*logEntry)
	batchSize int64

	running atomic.Bool
	// writers counts producers between the running check and publishing
	// their slot; the consumer drains until it drops to zero.
	writers   atomic.Int64
	processed atomic.Int64
	waits     atomic.Int64
}

func newLogRing(capacity int64, processor func(*logEntry)) *logRing {
	if capacity <= 0 || (capacity&(capacity-1)) != 0 {
		capacity = 256
	}
	r := &logRing{
		buffer:    make([]logEntry, capacity),
		capacity:  capacity,
		mask:      capacity - 1,
		available: make([]atomic.Int64, capacity),
		processor: processor,
		batchSize: 16,
	}
	for i := range r.available {
		r.available[i].Store(-1)
	}
	r.running.Store(true)
	return r
}

// write enqueues e. It returns false once the ring is stopped. A write
// that saw the ring running is always drained, even if stop races it.
func (r *logRing) write(e logEntry) bool {
	r.writers.Add(1)
	defer r.writers.Add(-1)
	if !r.running.Load() {
		return false
	}
	seq := r.writerCursor.Add(1) - 1

	// Full: wait for the consumer to free the slot.
	if seq >= r.readerCursor.Load()+r.capacity {
		r.waits.Add(1)
		for spins := 0; seq >= r.readerCursor.Load()+r.capacity; spins++ {
			if spins < 64 {
				runtime.Gosched()
			} else {
				time.Sleep(50 * time.Microsecond)
			}
		}
	}

	idx := seq & r.mask
	r.buffer[idx] = e
	r.available[idx].Store(seq)
	return true
}

// processBatch hands the next contiguous run of published entries to the
// processor and returns how many there were.
func (r *logRing) processBatch() int {
	current := r.readerCursor.Load()
	writerPos := r.writerCursor.Load()
	if current >= writerPos {
		return 0
	}

	maxProcess := min(r.batchSize, writerPos-current)
	last := current - 1
	for seq := current; seq < current+maxProcess; seq++ {
		if r.available[seq&r.mask].Load() != seq {
			break
		}
		last = seq
	}
	if last < current {
		return 0
	}

	for seq := current; seq <= last; seq++ {
		idx := seq & r.mask
		r.processor(&r.buffer[idx])
		r.buffer[idx] = logEntry{}
		r.available[idx].Store(-1)
	}
	n := last - current + 1
	r.readerCursor.Store(last + 1)
	r.processed.Add(n)
	return int(n)
}

// run is the consumer loop. It spins briefly, then yields, then sleeps
// while idle. After stop it keeps draining until no producer is left
// between its running check and publishing, so no claimed sequence is
// lost and a producer waiting on a full ring is always released.
func (r *logRing) run() {
	spins := 0
	for r.running.Load() {
		if r.processBatch() > 0 {
			spins = 0
			continue
		}
		spins++
		switch {
		case spins < 1000:
		case spins < 4000:
			if spins&7 == 0 {
				runtime.Gosched()
			}
		default:
			time.Sleep(200 * time.Microsecond)
			spins = 0
		}
	}

	for {
		inFlight := r.writers.Load()
		if r.processBatch() > 0 {
			continue
		}
		if inFlight == 0 && r.readerCursor.Load() >= r.writerCursor.Load() {
			return
		}
		runtime.Gosched()
	}
}

func (r *logRing) stop() {
	r.running.Store(false)
}

// ringStats is a snapshot of the ring counters.
type ringStats struct {
	Buffered  int64
	Processed int64
	Waits     int64
	Capacity  int64
	Running   bool
}

func (r *logRing) stats() ringStats {
	w, rd := r.writerCursor.Load(), r.readerCursor.Load()
	return ringStats{
		Buffered:  w - rd,
		Processed: r.processed.Load(),
		Waits:     r.waits.Load(),
		Capacity:  r.capacity,
		Running:   r.running.Load(),
	}
}

// handle writes e through its handler. Errors from the final handler have
// nowhere to go and are dropped.
func (e *logEntry) handle() {
	_ = e.handler.Handle(context.Background(), e.record)
}
