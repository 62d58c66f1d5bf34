// Package telemetry samples CPU and memory of the supervised processes,
// parses the consumer's progress statistics and publishes the merged result
// to the status file read by the preview overlay.
package telemetry

import "sync"

// Record is the latest merged measurement.
type Record struct {
	CPUPercent float64 // sum over processes, unclamped
	MemoryMB   float64
	FPS        float64
	Bitrate    string // verbatim from the progress line, "" until seen
}

// Shared guards the record written by the sampler and the log reader.
type Shared struct {
	mu     sync.Mutex
	record Record
}

// SetUsage stores a CPU and memory sample.
func (s *Shared) SetUsage(cpuPercent, memoryMB float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.CPUPercent = cpuPercent
	s.record.MemoryMB = memoryMB
}

// ApplyProgress updates FPS and bitrate from one progress line. Fields the
// line lacks keep their previous value.
func (s *Shared) ApplyProgress(line string) {
	fps, bitrate, okFPS, okBitrate := ParseProgressLine(line)
	if !okFPS && !okBitrate {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if okFPS {
		s.record.FPS = fps
	}
	if okBitrate {
		s.record.Bitrate = bitrate
	}
}

// Snapshot returns a copy of the record.
func (s *Shared) Snapshot() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}
