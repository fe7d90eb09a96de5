// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"context"
	"log/slog"
	"sync"
)

type (
	// LogRecorder captures every record logged through its Logger.
	LogRecorder struct {
		mu      sync.Mutex
		records []LogRecord
	}

	// LogRecord is a captured slog record with its attributes flattened.
	LogRecord struct {
		Level   slog.Level
		Message string
		Attrs   map[string]any
	}

	recordHandler struct {
		rec   *LogRecorder
		attrs []slog.Attr
		group string
	}
)

// NewLogRecorder creates an empty LogRecorder.
func NewLogRecorder() *LogRecorder {
	return &LogRecorder{}
}

// Logger returns a logger that writes into the recorder at every level.
func (r *LogRecorder) Logger() *slog.Logger {
	return slog.New(&recordHandler{rec: r})
}

// Records returns a copy of everything captured so far.
func (r *LogRecorder) Records() []LogRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LogRecord, len(r.records))
	copy(out, r.records)
	return out
}

// Messages returns the messages captured at exactly level, in order.
func (r *LogRecorder) Messages(level slog.Level) []string {
	var out []string
	for _, rec := range r.Records() {
		if rec.Level == level {
			out = append(out, rec.Message)
		}
	}
	return out
}

// Count returns the number of records captured at exactly level.
func (r *LogRecorder) Count(level slog.Level) int {
	return len(r.Messages(level))
}

func (h *recordHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordHandler) Handle(_ context.Context, record slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+record.NumAttrs())
	for _, a := range h.attrs {
		attrs[h.key(a.Key)] = a.Value.Resolve().Any()
	}
	record.Attrs(func(a slog.Attr) bool {
		attrs[h.key(a.Key)] = a.Value.Resolve().Any()
		return true
	})

	h.rec.mu.Lock()
	h.rec.records = append(h.rec.records, LogRecord{Level: record.Level, Message: record.Message, Attrs: attrs})
	h.rec.mu.Unlock()
	return nil
}

func (h *recordHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

func (h *recordHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.group = h.key(name)
	return &next
}

func (h *recordHandler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}
