// logsink.go: Single-writer logging for concurrently running checks
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package qa

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultSinkCapacity is the ring size used when NewLogSink gets zero.
const DefaultSinkCapacity = 1024

// LogSink serializes log records from many goroutines onto one output
// handler. Records are queued and written in order by a single consumer
// goroutine, so lines from parallel checks never interleave.
type LogSink struct {
	out    slog.Handler
	ring   *logRing
	done   chan struct{}
	closed atomic.Bool
	once   sync.Once
}

// NewLogSink starts a sink writing to out. capacity is rounded to the
// default unless it is a power of two.
func NewLogSink(out slog.Handler, capacity int) *LogSink {
	if capacity == 0 {
		capacity = DefaultSinkCapacity
	}
	s := &LogSink{out: out, done: make(chan struct{})}
	s.ring = newLogRing(int64(capacity), (*logEntry).handle)
	go func() {
		defer close(s.done)
		s.ring.run()
	}()
	return s
}

// Logger returns a logger whose records go through the sink.
func (s *LogSink) Logger() *slog.Logger {
	return slog.New(&sinkHandler{sink: s, next: s.out})
}

// Close stops accepting records, writes everything queued and waits for
// the consumer to exit. Records logged after Close are written directly.
func (s *LogSink) Close() error {
	s.once.Do(func() {
		s.closed.Store(true)
		s.ring.stop()
		<-s.done
	})
	return nil
}

// SinkStats reports the sink counters.
type SinkStats struct {
	Buffered  int64
	Written   int64
	FullWaits int64
	Running   bool
}

// Stats returns a snapshot of the sink counters.
func (s *LogSink) Stats() SinkStats {
	st := s.ring.stats()
	return SinkStats{
		Buffered:  st.Buffered,
		Written:   st.Processed,
		FullWaits: st.Waits,
		Running:   st.Running,
	}
}

// sinkHandler carries the attrs and groups of one derived logger. The
// wrapped handler is derived too, so the consumer only calls Handle.
type sinkHandler struct {
	sink *LogSink
	next slog.Handler
}

func (h *sinkHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *sinkHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.sink.closed.Load() {
		return h.next.Handle(ctx, r)
	}
	if !h.sink.ring.write(logEntry{handler: h.next, record: r.Clone()}) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

func (h *sinkHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sinkHandler{sink: h.sink, next: h.next.WithAttrs(attrs)}
}

func (h *sinkHandler) WithGroup(name string) slog.Handler {
	return &sinkHandler{sink: h.sink, next: h.next.WithGroup(name)}
}
