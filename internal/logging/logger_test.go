package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

// reset clears package state and sends output to buf.
func reset(t *testing.T, buf *bytes.Buffer) {
	t.Helper()
	mu.Lock()
	cfg = Config{}
	loggers = make(map[string]*slog.Logger)
	levels = make(map[string]*slog.LevelVar)
	history = nil
	onRecord = nil
	prev := output
	output = buf
	mu.Unlock()
	t.Cleanup(func() {
		mu.Lock()
		output = prev
		mu.Unlock()
	})
}

func TestModuleLevelOverride(t *testing.T) {
	var buf bytes.Buffer
	reset(t, &buf)

	Initialize(Config{
		Level:   "info",
		Format:  "text",
		Modules: map[string]string{"session": "debug", "api": "warn"},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"session", true, true, true},
		{"api", false, false, true},
		{"telemetry", false, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			h := GetLogger(tt.module).Handler()
			ctx := context.Background()
			if got := h.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := h.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("info enabled = %v, want %v", got, tt.wantInfo)
			}
			if got := h.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("warn enabled = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestOutputFormat(t *testing.T) {
	tests := []struct {
		format string
		want   []string
	}{
		{"text", []string{"level=WARN", "module=ffmpeg", `msg="Producer stalled"`, "frame=42"}},
		{"json", []string{`"level":"WARN"`, `"module":"ffmpeg"`, `"msg":"Producer stalled"`, `"frame":42`}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			reset(t, &buf)
			Initialize(Config{Level: "info", Format: tt.format})

			GetLogger("ffmpeg").Debug("hidden")
			GetLogger("ffmpeg").Warn("Producer stalled", "frame", 42)

			out := buf.String()
			if strings.Contains(out, "hidden") {
				t.Errorf("debug record written at info level:\n%s", out)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %s:\n%s", w, out)
				}
			}
		})
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	var buf bytes.Buffer
	reset(t, &buf)

	before := GetLogger("ffmpeg")
	if before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("logger created before Initialize has debug enabled")
	}

	Initialize(Config{Level: "info", Modules: map[string]string{"ffmpeg": "debug"}})

	if !before.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("early logger did not pick up the module level")
	}
	if !GetLogger("ffmpeg").Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("logger after Initialize does not have debug enabled")
	}
}

func TestMultiHandlerDeliversOncePerHandler(t *testing.T) {
	var debugBuf, infoBuf bytes.Buffer
	multi := NewMultiHandler(
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&infoBuf, &slog.HandlerOptions{Level: slog.LevelInfo}),
	)
	logger := slog.New(multi).With("module", "session")

	logger.Debug("debug only")
	logger.Info("both")

	if strings.Count(debugBuf.String(), "debug only") != 1 || strings.Contains(infoBuf.String(), "debug only") {
		t.Errorf("debug record routed wrong: debug=%q info=%q", debugBuf.String(), infoBuf.String())
	}
	if !strings.Contains(debugBuf.String(), "both") || !strings.Contains(infoBuf.String(), "both") {
		t.Errorf("info record not fanned out: debug=%q info=%q", debugBuf.String(), infoBuf.String())
	}
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("socket gone") }

func TestMultiHandlerJoinsErrors(t *testing.T) {
	var buf bytes.Buffer
	text := slog.NewTextHandler(&buf, nil)
	multi := NewMultiHandler(failingHandler{text}, text)

	r := slog.Record{Level: slog.LevelInfo, Message: "still written"}
	err := multi.Handle(context.Background(), r)
	if err == nil || !strings.Contains(err.Error(), "socket gone") {
		t.Errorf("Handle() error = %v, want the failing handler's error", err)
	}
	if !strings.Contains(buf.String(), "still written") {
		t.Error("healthy handler skipped after a failure")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		ok    bool
	}{
		{"debug", slog.LevelDebug, true},
		{"DEBUG", slog.LevelDebug, true},
		{" info ", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"warning", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseLevel(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseLevel(%q) = %v, %v; want %v, %v", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestConfigLevelFor(t *testing.T) {
	c := Config{Level: "warn", Modules: map[string]string{"session": "debug", "api": "bogus"}}
	if got := c.levelFor("session"); got != slog.LevelDebug {
		t.Errorf("session = %v", got)
	}
	if got := c.levelFor("api"); got != slog.LevelWarn {
		t.Errorf("api with invalid override = %v, want global warn", got)
	}
	if got := (Config{}).levelFor("session"); got != slog.LevelInfo {
		t.Errorf("empty config = %v, want info", got)
	}
}

func TestRingBufferReadAllOrder(t *testing.T) {
	rb := NewRingBuffer(3)
	if got := rb.ReadAll(); got != nil {
		t.Fatalf("ReadAll() on empty buffer = %v, want nil", got)
	}

	for _, msg := range []string{"a", "b", "c", "d", "e"} {
		rb.Write(LogEntry{Message: msg})
	}

	if rb.Count() != 3 {
		t.Errorf("Count() = %d, want 3", rb.Count())
	}
	var got []string
	for _, e := range rb.ReadAll() {
		got = append(got, e.Message)
	}
	if strings.Join(got, ",") != "c,d,e" {
		t.Errorf("ReadAll() = %v, want [c d e]", got)
	}
}

func TestRingBufferTail(t *testing.T) {
	rb := NewRingBuffer(10)
	for i, module := range []string{"session", "api", "session", "ffmpeg", "session"} {
		rb.Write(LogEntry{Module: module, Message: string(rune('a' + i))})
	}

	tests := []struct {
		module string
		limit  int
		want   string
	}{
		{"", 0, "abcde"},
		{"session", 0, "ace"},
		{"session", 2, "ce"},
		{"", 1, "e"},
		{"telemetry", 5, ""},
	}
	for _, tt := range tests {
		entries := rb.Tail(tt.module, tt.limit)
		if entries == nil {
			t.Errorf("Tail(%q, %d) = nil, want empty slice", tt.module, tt.limit)
		}
		var got strings.Builder
		for _, e := range entries {
			got.WriteString(e.Message)
		}
		if got.String() != tt.want {
			t.Errorf("Tail(%q, %d) = %q, want %q", tt.module, tt.limit, got.String(), tt.want)
		}
	}
}

func TestBufferHandlerCapturesModuleAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	reset(t, &buf)
	Initialize(Config{Level: "debug", Format: "text"})

	var seen []LogEntry
	SetLogCallback(func(e LogEntry) { seen = append(seen, e) })
	defer SetLogCallback(nil)

	GetLogger("telemetry").With("pid", 7).WithGroup("sample").
		Info("Status published", "fps", 29.5, "error", errors.New("short read"))

	entries := GetBuffer().ReadAll()
	if len(entries) == 0 {
		t.Fatal("no entries buffered")
	}
	last := entries[len(entries)-1]
	if last.Module != "telemetry" || last.Message != "Status published" || last.Level != "info" {
		t.Errorf("entry = %+v", last)
	}
	if last.Attributes["pid"] != int64(7) {
		t.Errorf("pid = %#v, want 7 outside the later group", last.Attributes["pid"])
	}
	if last.Attributes["sample.fps"] != 29.5 {
		t.Errorf("sample.fps = %v, want 29.5", last.Attributes["sample.fps"])
	}
	if last.Attributes["sample.error"] != "short read" {
		t.Errorf("sample.error = %v, want error string", last.Attributes["sample.error"])
	}
	if len(seen) == 0 || seen[len(seen)-1].Message != "Status published" {
		t.Errorf("callback did not see the entry: %v", seen)
	}
}

func TestJournalKey(t *testing.T) {
	tests := []struct {
		path []string
		want string
	}{
		{[]string{"module"}, "MODULE"},
		{[]string{"sample", "fps"}, "SAMPLE_FPS"},
		{[]string{"exit-code"}, "EXIT_CODE"},
	}
	for _, tt := range tests {
		if got := journalKey(field{path: tt.path}); got != tt.want {
			t.Errorf("journalKey(%v) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
