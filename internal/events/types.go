package events

// Event type constants for kelindar/event.
const (
	TypeSessionStateChanged uint32 = iota + 1
	TypeTelemetry
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// SessionStateChangedEvent is published on every supervisor state transition.
type SessionStateChangedEvent struct {
	State     string `json:"state" example:"running" doc:"New session state"`
	Previous  string `json:"previous" example:"starting" doc:"Previous session state"`
	Source    string `json:"source" example:"usb:/dev/video0" doc:"Resolved capture source"`
	Reason    string `json:"reason,omitempty" example:"consumer exited" doc:"Why the transition happened"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SessionStateChangedEvent.
func (e SessionStateChangedEvent) Type() uint32 { return TypeSessionStateChanged }

// TelemetryEvent carries one published status sample.
type TelemetryEvent struct {
	Source     string  `json:"source" example:"onboard" doc:"Resolved capture source"`
	FPS        float64 `json:"fps" example:"29.9" doc:"Frames per second reported by the consumer"`
	Resolution string  `json:"resolution" example:"1280x720" doc:"Configured capture resolution"`
	Bitrate    string  `json:"bitrate" example:"838.9kbits/s" doc:"Bitrate reported by the consumer"`
	CPUPercent float64 `json:"cpu_percent" example:"42.5" doc:"Combined CPU usage of both processes"`
	MemoryMB   float64 `json:"memory_mb" example:"63.2" doc:"Combined resident memory of both processes"`
	Timestamp  string  `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Sample timestamp"`
}

// Type returns the event type identifier for TelemetryEvent.
func (e TelemetryEvent) Type() uint32 { return TypeTelemetry }

// LogEntryEvent mirrors one buffered log entry for live log streaming.
type LogEntryEvent struct {
	Timestamp  string         `json:"timestamp" example:"2025-01-27T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"session" doc:"Logger module"`
	Message    string         `json:"message" example:"Pipeline running" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
