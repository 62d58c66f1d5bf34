package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// DefaultHistory is the number of records kept for the status API.
const DefaultHistory = 1000

// Logger is the subset of *slog.Logger the process wrapper and telemetry
// goroutines log through.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config selects the global level, the output format and per-module
// overrides keyed by module name.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

// levelFor resolves module's level: its override, else the global level,
// else info. An empty module resolves the global level.
func (c Config) levelFor(module string) slog.Level {
	if module != "" {
		if l, ok := parseLevel(c.Modules[module]); ok {
			return l
		}
	}
	if l, ok := parseLevel(c.Level); ok {
		return l
	}
	return slog.LevelInfo
}

var (
	mu        sync.RWMutex
	cfg       Config
	loggers   = make(map[string]*slog.Logger)
	levels    = make(map[string]*slog.LevelVar)
	rootLevel = new(slog.LevelVar)
	history   *RingBuffer
	onRecord  LogCallback

	// output receives text or json records. Stdout is left to command
	// output such as list-cameras and info.
	output io.Writer = os.Stderr
)

// Initialize applies config. Loggers handed out earlier keep working: their
// level vars are updated and their handlers rebuilt for the new format.
func Initialize(config Config) {
	mu.Lock()
	defer mu.Unlock()

	cfg = config
	history = NewRingBuffer(DefaultHistory)

	rootLevel.Set(cfg.levelFor(""))
	for module, lv := range levels {
		lv.Set(cfg.levelFor(module))
		loggers[module] = slog.New(newHandler(lv)).With("module", module)
	}
	slog.SetDefault(slog.New(newHandler(rootLevel)))
}

// GetBuffer returns the history buffer, nil before Initialize.
func GetBuffer() *RingBuffer {
	mu.RLock()
	defer mu.RUnlock()
	return history
}

// SetLogCallback registers fn to receive every record; nil removes it.
func SetLogCallback(fn LogCallback) {
	mu.Lock()
	defer mu.Unlock()
	onRecord = fn
}

// GetLogger returns the logger for module, creating it on first use.
func GetLogger(module string) *slog.Logger {
	mu.RLock()
	logger, ok := loggers[module]
	mu.RUnlock()
	if ok {
		return logger
	}

	mu.Lock()
	defer mu.Unlock()
	if logger, ok := loggers[module]; ok {
		return logger
	}

	lv := new(slog.LevelVar)
	lv.Set(cfg.levelFor(module))
	logger = slog.New(newHandler(lv)).With("module", module)
	loggers[module] = logger
	levels[module] = lv
	return logger
}

// newHandler builds the output, journal and history chain for level.
// Callers hold mu.
func newHandler(level slog.Leveler) slog.Handler {
	var handlers []slog.Handler

	if writerUsable(output) {
		opts := &slog.HandlerOptions{Level: level}
		if strings.EqualFold(cfg.Format, "json") {
			handlers = append(handlers, slog.NewJSONHandler(output, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(output, opts))
		}
	}
	if IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}
	handlers = append(handlers, NewBufferHandler(level))

	if len(handlers) == 1 {
		return handlers[0]
	}
	return NewMultiHandler(handlers...)
}

// writerUsable rejects files that go nowhere, such as /dev/null under a
// service manager. Other writers are always usable.
func writerUsable(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return true
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&(os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0 || mode.IsRegular()
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return 0, false
}

func levelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "error"
	case l >= slog.LevelWarn:
		return "warn"
	case l >= slog.LevelInfo:
		return "info"
	}
	return "debug"
}
