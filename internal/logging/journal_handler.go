package logging

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/journal"
)

// journalIdentifier is the SYSLOG_IDENTIFIER used with journalctl -t.
const journalIdentifier = "picambench"

// JournalHandler sends records to journald with attributes as upper-case
// structured fields, so `journalctl MODULE=session` works.
type JournalHandler struct {
	level slog.Leveler
	scope scope
}

// NewJournalHandler returns a journald handler gated by level.
func NewJournalHandler(level slog.Leveler) *JournalHandler {
	return &JournalHandler{level: level}
}

func (h *JournalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *JournalHandler) Handle(_ context.Context, r slog.Record) error {
	fields := map[string]string{"SYSLOG_IDENTIFIER": journalIdentifier}
	for _, f := range h.scope.collect(r) {
		fields[journalKey(f)] = journalValue(f.value)
	}
	return journal.Send(r.Message, journalPriority(r.Level), fields)
}

func (h *JournalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &JournalHandler{level: h.level, scope: h.scope.withAttrs(attrs)}
}

func (h *JournalHandler) WithGroup(name string) slog.Handler {
	return &JournalHandler{level: h.level, scope: h.scope.withGroup(name)}
}

// IsJournalAvailable reports whether journald's socket is reachable.
func IsJournalAvailable() bool {
	return journal.Enabled()
}

func journalPriority(l slog.Level) journal.Priority {
	switch {
	case l >= slog.LevelError:
		return journal.PriErr
	case l >= slog.LevelWarn:
		return journal.PriWarning
	case l >= slog.LevelInfo:
		return journal.PriInfo
	}
	return journal.PriDebug
}

// journalKey upper-cases the path and maps characters journald rejects
// in field names to underscores.
func journalKey(f field) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		}
		return '_'
	}, f.key("_"))
}

func journalValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	}
	return v.String()
}
