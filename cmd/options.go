package cmd

import (
	"fmt"
	"time"

	"github.com/smazurov/picambench/internal/logging"
	"github.com/smazurov/picambench/internal/pipeline"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"picambench.toml"`

	// Pipeline settings
	Source     string `help:"Capture source: auto, csi, or a device path such as /dev/video0" short:"s" default:"auto" toml:"pipeline.source" env:"SOURCE"`
	Resolution string `help:"Capture resolution WIDTHxHEIGHT" short:"r" default:"1280x720" toml:"pipeline.resolution" env:"RESOLUTION"`
	FPS        int    `name:"fps" help:"Capture frame rate" short:"f" default:"30" toml:"pipeline.fps" env:"FPS"`
	Bitrate    int    `help:"Target bitrate in bits per second" short:"b" default:"4000000" toml:"pipeline.bitrate" env:"BITRATE"`
	Encode     string `help:"Encoder for cameras without native H.264: auto, software, hardware" short:"e" default:"auto" toml:"pipeline.encode" env:"ENCODE"`
	AutoPolicy string `name:"auto-policy" help:"Encoder preferred by --encode auto: hardware, software" default:"hardware" toml:"pipeline.auto_policy" env:"AUTO_POLICY"`

	// Overlay settings
	Corner    string `help:"Overlay corner: top-left, top-right, bottom-left, bottom-right" default:"top-left" toml:"overlay.corner" env:"OVERLAY_CORNER"`
	NoOverlay bool   `name:"no-overlay" help:"Disable the telemetry overlay and sampling" default:"false" toml:"overlay.disabled" env:"NO_OVERLAY"`
	FontFile  string `name:"font-file" help:"Font used by the overlay" default:"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf" toml:"overlay.font_file" env:"FONT_FILE"`

	// Session settings
	WaitForCamera   string `name:"wait-for-camera" help:"In auto mode, wait this long for a camera to appear (e.g. 30s)" default:"0s" toml:"session.wait_for_camera" env:"WAIT_FOR_CAMERA"`
	WorkDir         string `name:"work-dir" help:"Parent directory for the session FIFO and status file" default:"" toml:"session.work_dir" env:"WORK_DIR"`
	GracefulTimeout string `name:"graceful-timeout" help:"Time a child gets to exit after SIGTERM before it is killed" default:"3s" toml:"session.graceful_timeout" env:"GRACEFUL_TIMEOUT"`

	// Status API settings
	Listen       string `help:"Serve the status API on this address (e.g. :8090); empty disables it" short:"l" default:"" toml:"api.listen" env:"API_LISTEN"`
	AuthUsername string `name:"auth-username" help:"Basic auth username for the status API" default:"" toml:"api.username" env:"API_USERNAME"`
	AuthPassword string `name:"auth-password" help:"Basic auth password for the status API" default:"" toml:"api.password" env:"API_PASSWORD"`

	// Logging settings
	LoggingLevel     string `name:"logging-level" help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `name:"logging-format" help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingDevices   string `name:"logging-devices" help:"Devices logging level" default:"info" toml:"logging.devices" env:"LOGGING_DEVICES"`
	LoggingSource    string `name:"logging-source" help:"Source selection logging level" default:"info" toml:"logging.source" env:"LOGGING_SOURCE"`
	LoggingSession   string `name:"logging-session" help:"Session supervisor logging level" default:"info" toml:"logging.session" env:"LOGGING_SESSION"`
	LoggingTelemetry string `name:"logging-telemetry" help:"Telemetry logging level" default:"info" toml:"logging.telemetry" env:"LOGGING_TELEMETRY"`
	LoggingFFmpeg    string `name:"logging-ffmpeg" help:"Child process output logging level" default:"info" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingAPI       string `name:"logging-api" help:"Status API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

// LoggingConfig returns the logging configuration selected by opts.
func (o *Options) LoggingConfig() logging.Config {
	return logging.Config{
		Level:  o.LoggingLevel,
		Format: o.LoggingFormat,
		Modules: map[string]string{
			"devices":   o.LoggingDevices,
			"source":    o.LoggingSource,
			"session":   o.LoggingSession,
			"telemetry": o.LoggingTelemetry,
			"ffmpeg":    o.LoggingFFmpeg,
			"api":       o.LoggingAPI,
		},
	}
}

// PipelineConfig parses and validates the pipeline settings.
func (o *Options) PipelineConfig() (pipeline.Config, error) {
	cfg := pipeline.Default()

	w, h, err := pipeline.ParseResolution(o.Resolution)
	if err != nil {
		return cfg, err
	}
	cfg.Width, cfg.Height = w, h
	cfg.FPS = o.FPS
	cfg.Bitrate = o.Bitrate

	if cfg.Source, cfg.DevicePath, err = pipeline.ParseSource(o.Source); err != nil {
		return cfg, err
	}
	if cfg.Encode, err = pipeline.ParseEncodeMode(o.Encode); err != nil {
		return cfg, err
	}
	if cfg.AutoPolicy, err = pipeline.ParseAutoPolicy(o.AutoPolicy); err != nil {
		return cfg, err
	}
	if cfg.Corner, err = pipeline.ParseCorner(o.Corner); err != nil {
		return cfg, err
	}
	cfg.Overlay = !o.NoOverlay
	if o.FontFile != "" {
		cfg.FontFile = o.FontFile
	}

	return cfg, cfg.Validate()
}

// Durations parses the session timing settings.
func (o *Options) Durations() (wait, graceful time.Duration, err error) {
	if wait, err = parseDuration("wait-for-camera", o.WaitForCamera); err != nil {
		return 0, 0, err
	}
	if graceful, err = parseDuration("graceful-timeout", o.GracefulTimeout); err != nil {
		return 0, 0, err
	}
	return wait, graceful, nil
}

func parseDuration(name, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q: %w", pipeline.ErrInvalidConfig, name, value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %s %q must not be negative", pipeline.ErrInvalidConfig, name, value)
	}
	return d, nil
}
