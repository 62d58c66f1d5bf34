package logging

import (
	"context"
	"log/slog"
	"time"
)

// LogCallback receives each buffered entry. The status API uses it to
// forward records onto the event bus without importing this package's
// globals.
type LogCallback func(entry LogEntry)

// BufferHandler records into the history buffer and the registered
// callback, both looked up per record so handlers created before
// Initialize start buffering once it runs.
type BufferHandler struct {
	level slog.Leveler
	scope scope
}

// NewBufferHandler returns a history handler gated by level.
func NewBufferHandler(level slog.Leveler) *BufferHandler {
	return &BufferHandler{level: level}
}

func (h *BufferHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *BufferHandler) Handle(_ context.Context, r slog.Record) error {
	mu.RLock()
	buffer, callback := history, onRecord
	mu.RUnlock()
	if buffer == nil && callback == nil {
		return nil
	}

	entry := LogEntry{
		Timestamp: r.Time,
		Level:     levelName(r.Level),
		Module:    "main",
		Message:   r.Message,
	}
	for _, f := range h.scope.collect(r) {
		if f.isModule() {
			entry.Module = f.value.String()
			continue
		}
		if entry.Attributes == nil {
			entry.Attributes = make(map[string]any)
		}
		entry.Attributes[f.key(".")] = plainValue(f.value)
	}

	if buffer != nil {
		buffer.Write(entry)
	}
	if callback != nil {
		callback(entry)
	}
	return nil
}

func (h *BufferHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &BufferHandler{level: h.level, scope: h.scope.withAttrs(attrs)}
}

func (h *BufferHandler) WithGroup(name string) slog.Handler {
	return &BufferHandler{level: h.level, scope: h.scope.withGroup(name)}
}

// plainValue converts v to something that marshals cleanly to JSON.
func plainValue(v slog.Value) any {
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
	}
	return v.Any()
}
