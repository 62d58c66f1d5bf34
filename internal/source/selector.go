// Package source resolves the user's source choice into a concrete onboard
// sensor or USB capture device.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/smazurov/picambench/internal/devices"
	"github.com/smazurov/picambench/internal/logging"
	"github.com/smazurov/picambench/internal/pipeline"
)

// Sentinel errors returned by Select.
var (
	ErrNoCameraFound      = errors.New("no camera found")
	ErrOnboardUnavailable = errors.New("onboard camera not available")
	ErrInvalidDevice      = errors.New("device is not a supported capture device")
)

// Kind is the resolved capture modality.
type Kind string

const (
	KindOnboard Kind = "onboard"
	KindUSB     Kind = "usb"
)

// Resolved is the outcome of source selection.
type Resolved struct {
	Kind       Kind
	DevicePath string
	Card       string
	Formats    devices.Formats
	Helper     string // onboard capture helper binary
}

// Describe returns a short human-readable label.
func (r Resolved) Describe() string {
	if r.Kind == KindOnboard {
		return fmt.Sprintf("onboard camera via %s", r.Helper)
	}
	return fmt.Sprintf("USB camera %s (%s) formats: %s", r.DevicePath, r.Card, r.Formats)
}

// Prober is the subset of devices.Prober used for selection.
type Prober interface {
	Probe(path string) (devices.CaptureDevice, bool)
	Scan() (devices.CaptureDevice, bool)
}

// Onboard reports onboard sensor availability.
type Onboard interface {
	Available(ctx context.Context) (helper string, ok bool)
}

// Selector chooses a capture source.
type Selector struct {
	prober  Prober
	onboard Onboard
	logger  *slog.Logger
}

// NewSelector creates a Selector.
func NewSelector(prober Prober, onboard Onboard) *Selector {
	return &Selector{
		prober:  prober,
		onboard: onboard,
		logger:  logging.GetLogger("source"),
	}
}

// Select resolves mode into a source. explicitPath is only used for
// pipeline.SourceDevice.
func (s *Selector) Select(ctx context.Context, mode pipeline.SourceMode, explicitPath string) (Resolved, error) {
	switch mode {
	case pipeline.SourceOnboard:
		helper, ok := s.onboard.Available(ctx)
		if !ok {
			return Resolved{}, ErrOnboardUnavailable
		}
		return Resolved{Kind: KindOnboard, Helper: helper}, nil

	case pipeline.SourceDevice:
		dev, ok := s.prober.Probe(explicitPath)
		if !ok {
			return Resolved{}, fmt.Errorf("%w: %s", ErrInvalidDevice, explicitPath)
		}
		return fromDevice(dev), nil

	case pipeline.SourceAuto:
		if helper, ok := s.onboard.Available(ctx); ok {
			s.logger.Info("Onboard camera detected", "helper", helper)
			return Resolved{Kind: KindOnboard, Helper: helper}, nil
		}
		if dev, ok := s.prober.Scan(); ok {
			s.logger.Info("USB camera selected", "device", dev.DevicePath, "card", dev.Card, "formats", dev.Formats.String())
			return fromDevice(dev), nil
		}
		return Resolved{}, ErrNoCameraFound

	default:
		return Resolved{}, fmt.Errorf("unknown source mode %q", mode)
	}
}

func fromDevice(dev devices.CaptureDevice) Resolved {
	return Resolved{
		Kind:       KindUSB,
		DevicePath: dev.DevicePath,
		Card:       dev.Card,
		Formats:    dev.Formats,
	}
}
