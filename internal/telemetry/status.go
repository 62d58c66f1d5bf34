package telemetry

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// BitrateUnknown is shown until the consumer reports a bitrate.
const BitrateUnknown = "N/A"

// ErrMalformedStatus is returned by ParseStatus.
var ErrMalformedStatus = errors.New("malformed status")

// Status is the rendered form of a Record.
type Status struct {
	FPS        float64 `json:"fps"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Bitrate    string  `json:"bitrate"`
	CPUPercent float64 `json:"cpu_percent"`
	MemoryMB   float64 `json:"memory_mb"`
}

// NewStatus renders rec for a stream of the given size.
func NewStatus(rec Record, width, height int) Status {
	bitrate := rec.Bitrate
	if bitrate == "" {
		bitrate = BitrateUnknown
	}
	return Status{
		FPS:        rec.FPS,
		Width:      width,
		Height:     height,
		Bitrate:    bitrate,
		CPUPercent: rec.CPUPercent,
		MemoryMB:   rec.MemoryMB,
	}
}

// Placeholder is written before either process has reported anything.
func Placeholder(width, height int) Status {
	return NewStatus(Record{}, width, height)
}

// Format renders the overlay text.
func (s Status) Format() string {
	return fmt.Sprintf("FPS: %.1f\nRES: %dx%d\nBitRate: %s\nCPU: %.1f%%\nMEM_MB: %.1f\n",
		s.FPS, s.Width, s.Height, s.Bitrate, s.CPUPercent, s.MemoryMB)
}

// ParseStatus parses text produced by Format. Values come back at the
// one-decimal precision they were written with.
func ParseStatus(text string) (Status, error) {
	var s Status
	seen := map[string]bool{}

	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		label, value, ok := strings.Cut(sc.Text(), ": ")
		if !ok {
			continue
		}
		var err error
		switch label {
		case "FPS":
			s.FPS, err = strconv.ParseFloat(value, 64)
		case "RES":
			w, h, found := strings.Cut(value, "x")
			if !found {
				err = fmt.Errorf("resolution %q", value)
				break
			}
			if s.Width, err = strconv.Atoi(w); err == nil {
				s.Height, err = strconv.Atoi(h)
			}
		case "BitRate":
			s.Bitrate = value
		case "CPU":
			s.CPUPercent, err = strconv.ParseFloat(strings.TrimSuffix(value, "%"), 64)
		case "MEM_MB":
			s.MemoryMB, err = strconv.ParseFloat(value, 64)
		default:
			continue
		}
		if err != nil {
			return Status{}, fmt.Errorf("%w: %s: %w", ErrMalformedStatus, label, err)
		}
		seen[label] = true
	}
	for _, label := range []string{"FPS", "RES", "BitRate", "CPU", "MEM_MB"} {
		if !seen[label] {
			return Status{}, fmt.Errorf("%w: missing %s", ErrMalformedStatus, label)
		}
	}
	return s, nil
}

// ReadStatusFile reads and parses a status file.
func ReadStatusFile(path string) (Status, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Status{}, err
	}
	return ParseStatus(string(data))
}

// WriteStatusFile replaces path with the rendered status. The content is
// written to a temporary file in the same directory and renamed, so a
// reader never sees a partial file.
func WriteStatusFile(path string, s Status) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".status-*")
	if err != nil {
		return fmt.Errorf("create temp status: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(s.Format()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write status: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close status: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod status: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace status: %w", err)
	}
	return nil
}
