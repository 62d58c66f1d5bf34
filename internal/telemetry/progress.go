package telemetry

import (
	"strconv"
	"strings"
)

// LineSplitter reassembles records from a byte stream delimited by '\r' or
// '\n'. ffmpeg rewrites its stats line in place with '\r'.
type LineSplitter struct {
	buf    []byte
	OnLine func(line string)
}

// maxPending caps an unterminated record.
const maxPending = 64 * 1024

// Write feeds bytes and emits every completed, non-empty line.
func (l *LineSplitter) Write(p []byte) (int, error) {
	for _, b := range p {
		if b == '\r' || b == '\n' {
			l.flush()
			continue
		}
		if len(l.buf) >= maxPending {
			l.buf = l.buf[:0]
		}
		l.buf = append(l.buf, b)
	}
	return len(p), nil
}

// Flush emits any pending partial line.
func (l *LineSplitter) Flush() {
	l.flush()
}

func (l *LineSplitter) flush() {
	if len(l.buf) == 0 {
		return
	}
	line := string(l.buf)
	l.buf = l.buf[:0]
	if l.OnLine != nil {
		l.OnLine(line)
	}
}

// ParseProgressLine extracts fps= and bitrate= from an ffmpeg stats line
// such as "frame=  120 fps= 29 q=-0.0 size=N/A time=00:00:04.00 bitrate=N/A speed=1x".
// A malformed fps value reports okFPS=false without affecting bitrate.
func ParseProgressLine(line string) (fps float64, bitrate string, okFPS, okBitrate bool) {
	if v, ok := fieldValue(line, "fps="); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			fps, okFPS = f, true
		}
	}
	if v, ok := fieldValue(line, "bitrate="); ok && v != "" {
		bitrate, okBitrate = v, true
	}
	return fps, bitrate, okFPS, okBitrate
}

// fieldValue returns the token after key, skipping padding spaces.
func fieldValue(line, key string) (string, bool) {
	idx := keyIndex(line, key)
	if idx < 0 {
		return "", false
	}
	rest := strings.TrimLeft(line[idx+len(key):], " ")
	if end := strings.IndexAny(rest, " \t"); end >= 0 {
		rest = rest[:end]
	}
	return rest, true
}

// keyIndex finds key at a field boundary so "fps=" does not match inside
// another field name.
func keyIndex(line, key string) int {
	from := 0
	for {
		i := strings.Index(line[from:], key)
		if i < 0 {
			return -1
		}
		i += from
		if i == 0 || line[i-1] == ' ' || line[i-1] == '\t' {
			return i
		}
		from = i + len(key)
	}
}
