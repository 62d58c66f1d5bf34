// Package pipeline holds the validated benchmark configuration shared by
// source selection, command building and supervision.
package pipeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Corner selects where the telemetry overlay is drawn.
type Corner string

const (
	CornerTopLeft     Corner = "top-left"
	CornerTopRight    Corner = "top-right"
	CornerBottomLeft  Corner = "bottom-left"
	CornerBottomRight Corner = "bottom-right"
)

// SourceMode selects how the capture source is chosen.
type SourceMode string

const (
	SourceAuto    SourceMode = "auto"
	SourceOnboard SourceMode = "onboard"
	SourceDevice  SourceMode = "device"
)

// EncodeMode selects the encoder used when the camera cannot deliver H.264.
type EncodeMode string

const (
	EncodeAuto     EncodeMode = "auto"
	EncodeSoftware EncodeMode = "software"
	EncodeHardware EncodeMode = "hardware"
)

// AutoPolicy names how EncodeAuto resolves when transcoding is required.
type AutoPolicy string

const (
	AutoPreferHardware AutoPolicy = "hardware"
	AutoPreferSoftware AutoPolicy = "software"
)

// Defaults applied by the CLI.
const (
	DefaultWidth    = 1280
	DefaultHeight   = 720
	DefaultFPS      = 30
	DefaultBitrate  = 4000000
	DefaultFontFile = "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid pipeline config")

// Config is one run's pipeline configuration. Treat as immutable once
// Validate succeeds.
type Config struct {
	Width      int
	Height     int
	FPS        int
	Bitrate    int // bits per second
	Corner     Corner
	Source     SourceMode
	DevicePath string // only for SourceDevice
	Encode     EncodeMode
	AutoPolicy AutoPolicy
	Overlay    bool
	FontFile   string
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Width:      DefaultWidth,
		Height:     DefaultHeight,
		FPS:        DefaultFPS,
		Bitrate:    DefaultBitrate,
		Corner:     CornerTopLeft,
		Source:     SourceAuto,
		Encode:     EncodeAuto,
		AutoPolicy: AutoPreferHardware,
		Overlay:    true,
		FontFile:   DefaultFontFile,
	}
}

// Validate checks every field and returns the first problem found.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: resolution %dx%d must be positive", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("%w: fps %d must be positive", ErrInvalidConfig, c.FPS)
	}
	if c.Bitrate <= 0 {
		return fmt.Errorf("%w: bitrate %d must be positive", ErrInvalidConfig, c.Bitrate)
	}
	if _, err := ParseCorner(string(c.Corner)); err != nil {
		return err
	}
	switch c.Source {
	case SourceAuto, SourceOnboard:
	case SourceDevice:
		if c.DevicePath == "" {
			return fmt.Errorf("%w: device source requires a device path", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown source mode %q", ErrInvalidConfig, c.Source)
	}
	if _, err := ParseEncodeMode(string(c.Encode)); err != nil {
		return err
	}
	if _, err := ParseAutoPolicy(string(c.AutoPolicy)); err != nil {
		return err
	}
	return nil
}

// ResolveEncode returns the concrete encoder preference, applying the auto
// policy when the mode is EncodeAuto.
func (c Config) ResolveEncode() EncodeMode {
	if c.Encode != EncodeAuto {
		return c.Encode
	}
	if c.AutoPolicy == AutoPreferSoftware {
		return EncodeSoftware
	}
	return EncodeHardware
}

// Resolution renders WxH.
func (c Config) Resolution() string {
	return fmt.Sprintf("%dx%d", c.Width, c.Height)
}

// ParseResolution parses "WxH" into positive dimensions.
func ParseResolution(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("%w: resolution %q is not WIDTHxHEIGHT", ErrInvalidConfig, s)
	}
	w, errW := strconv.Atoi(ws)
	h, errH := strconv.Atoi(hs)
	if errW != nil || errH != nil {
		return 0, 0, fmt.Errorf("%w: resolution %q is not WIDTHxHEIGHT", ErrInvalidConfig, s)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: resolution %q must be positive", ErrInvalidConfig, s)
	}
	return w, h, nil
}

// ParseCorner accepts the four corner names.
func ParseCorner(s string) (Corner, error) {
	switch c := Corner(strings.ToLower(s)); c {
	case CornerTopLeft, CornerTopRight, CornerBottomLeft, CornerBottomRight:
		return c, nil
	}
	return "", fmt.Errorf("%w: unknown corner %q", ErrInvalidConfig, s)
}

// ParseEncodeMode accepts auto, software and hardware.
func ParseEncodeMode(s string) (EncodeMode, error) {
	switch m := EncodeMode(strings.ToLower(s)); m {
	case EncodeAuto, EncodeSoftware, EncodeHardware:
		return m, nil
	}
	return "", fmt.Errorf("%w: unknown encode mode %q", ErrInvalidConfig, s)
}

// ParseAutoPolicy accepts hardware and software.
func ParseAutoPolicy(s string) (AutoPolicy, error) {
	switch p := AutoPolicy(strings.ToLower(s)); p {
	case AutoPreferHardware, AutoPreferSoftware:
		return p, nil
	}
	return "", fmt.Errorf("%w: unknown auto encode policy %q", ErrInvalidConfig, s)
}

// ParseSource maps the CLI source value to a mode. Anything other than
// "auto" or "csi"/"onboard" is treated as a device path.
func ParseSource(s string) (SourceMode, string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return SourceAuto, "", nil
	case "csi", "onboard":
		return SourceOnboard, "", nil
	}
	if !strings.HasPrefix(s, "/") {
		return "", "", fmt.Errorf("%w: source %q must be auto, csi or a device path", ErrInvalidConfig, s)
	}
	return SourceDevice, s, nil
}
