package logging

import (
	"sync"
	"time"
)

// LogEntry is one buffered record as served by the status API.
type LogEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer keeps the newest entries up to a fixed capacity.
type RingBuffer struct {
	mu      sync.Mutex
	entries []LogEntry
	next    int
	full    bool
}

// NewRingBuffer returns a buffer holding at most size entries.
func NewRingBuffer(size int) *RingBuffer {
	if size < 1 {
		size = 1
	}
	return &RingBuffer{entries: make([]LogEntry, size)}
}

// Write stores entry, evicting the oldest when full.
func (rb *RingBuffer) Write(entry LogEntry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.entries[rb.next] = entry
	rb.next++
	if rb.next == len(rb.entries) {
		rb.next = 0
		rb.full = true
	}
}

// ReadAll returns every entry, oldest first, or nil when empty.
func (rb *RingBuffer) ReadAll() []LogEntry {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.ordered()
}

// Tail returns up to limit of the newest entries for module, oldest first.
// An empty module matches every entry and a limit below 1 means no limit.
// The result is never nil.
func (rb *RingBuffer) Tail(module string, limit int) []LogEntry {
	rb.mu.Lock()
	all := rb.ordered()
	rb.mu.Unlock()

	out := make([]LogEntry, 0, len(all))
	for _, e := range all {
		if module == "" || e.Module == module {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Count returns the number of stored entries.
func (rb *RingBuffer) Count() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.full {
		return len(rb.entries)
	}
	return rb.next
}

func (rb *RingBuffer) ordered() []LogEntry {
	if !rb.full {
		if rb.next == 0 {
			return nil
		}
		return append([]LogEntry(nil), rb.entries[:rb.next]...)
	}
	out := make([]LogEntry, 0, len(rb.entries))
	out = append(out, rb.entries[rb.next:]...)
	return append(out, rb.entries[:rb.next]...)
}
