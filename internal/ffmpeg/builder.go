// Package ffmpeg builds the producer and consumer command lines for a
// benchmark pipeline and interprets ffmpeg diagnostic output.
package ffmpeg

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/smazurov/picambench/internal/pipeline"
	"github.com/smazurov/picambench/internal/source"
)

// Sentinel errors returned before anything is spawned.
var (
	ErrFFmpegNotFound        = errors.New("ffmpeg not found on PATH")
	ErrCaptureHelperNotFound = errors.New("rpicam-vid or libcamera-vid not found on PATH")
)

// Encoders used for USB sources.
const (
	EncoderCopy     = "copy"
	EncoderHardware = "h264_v4l2m2m"
	EncoderSoftware = "libx264"
)

// Preview window titles.
const (
	TitleOnboard = "PiCam Preview (CSI)"
	TitleUSB     = "USB Camera Preview"
)

// Builder assembles pipelines. The zero value resolves binaries with
// exec.LookPath.
type Builder struct {
	LookPath source.LookPathFunc
}

// Build resolves cfg and src into producer and consumer argv.
func (b Builder) Build(cfg pipeline.Config, src source.Resolved, paths Paths) (Pipeline, error) {
	lookPath := b.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if _, err := lookPath("ffmpeg"); err != nil {
		return Pipeline{}, ErrFFmpegNotFound
	}

	var p Pipeline
	title := TitleUSB

	switch src.Kind {
	case source.KindOnboard:
		helper := src.Helper
		if helper == "" {
			found, ok := source.FindOnboardHelper(lookPath)
			if !ok {
				return Pipeline{}, ErrCaptureHelperNotFound
			}
			helper = found
		} else if _, err := lookPath(helper); err != nil {
			return Pipeline{}, fmt.Errorf("%w: %s", ErrCaptureHelperNotFound, helper)
		}
		p.Producer = OnboardProducer(helper, cfg)
		p.ProducerToFIFO = true
		p.Encoder = helper
		title = TitleOnboard

	case source.KindUSB:
		p.InputFormat = InputFormat(src)
		p.Encoder = SelectEncoder(src, cfg.ResolveEncode())
		p.Producer = USBProducer(cfg, src.DevicePath, p.InputFormat, p.Encoder, paths.FIFO)

	default:
		return Pipeline{}, fmt.Errorf("unknown source kind %q", src.Kind)
	}

	var overlay *OverlayParams
	if cfg.Overlay {
		overlay = &OverlayParams{
			FontFile:   cfg.FontFile,
			StatusFile: paths.Status,
			Corner:     string(cfg.Corner),
		}
	}
	p.Consumer = Consumer(paths.FIFO, title, overlay)
	return p, nil
}

// OnboardProducer streams inline-header H.264 from the onboard sensor to stdout.
func OnboardProducer(helper string, cfg pipeline.Config) []string {
	return []string{
		helper,
		"--inline",
		"--codec", "h264",
		"--timeout", "0",
		"--width", strconv.Itoa(cfg.Width),
		"--height", strconv.Itoa(cfg.Height),
		"--framerate", strconv.Itoa(cfg.FPS),
		"--bitrate", strconv.Itoa(cfg.Bitrate),
		"-o", "-",
	}
}

// InputFormat picks the v4l2 input format, preferring compressed formats.
func InputFormat(src source.Resolved) string {
	switch {
	case src.Formats.H264:
		return "h264"
	case src.Formats.MJPEG:
		return "mjpeg"
	case src.Formats.YUYV:
		return "yuyv422"
	default:
		return "mjpeg"
	}
}

// SelectEncoder chooses the encoder for a USB source. A camera that already
// delivers H.264 is always passed through, whatever the encode preference.
func SelectEncoder(src source.Resolved, mode pipeline.EncodeMode) string {
	if src.Formats.H264 {
		return EncoderCopy
	}
	if mode == pipeline.EncodeHardware {
		return EncoderHardware
	}
	return EncoderSoftware
}

// EncoderArgs returns the output codec arguments for an encoder.
func EncoderArgs(encoder string, bitrate int) []string {
	rate := strconv.Itoa(bitrate)
	caps := []string{"-b:v", rate, "-maxrate", rate, "-bufsize", rate}

	switch encoder {
	case EncoderCopy:
		return []string{"-c:v", "copy"}
	case EncoderHardware:
		return append([]string{"-pix_fmt", "nv12", "-c:v", EncoderHardware}, caps...)
	default:
		return append([]string{"-c:v", EncoderSoftware, "-preset", "ultrafast", "-tune", "zerolatency"}, caps...)
	}
}

// USBProducer captures from a v4l2 device and writes raw H.264 into the FIFO.
func USBProducer(cfg pipeline.Config, device, inputFormat, encoder, fifo string) []string {
	args := Base()
	args = append(args,
		"-loglevel", "level+error",
		"-f", "v4l2",
		"-input_format", inputFormat,
		"-video_size", cfg.Resolution(),
		"-framerate", strconv.Itoa(cfg.FPS),
		"-i", device,
	)
	args = append(args, EncoderArgs(encoder, cfg.Bitrate)...)
	return append(args, "-f", "h264", "-y", fifo)
}

// Consumer decodes the FIFO and renders it to an SDL window, printing
// progress statistics on stderr. A nil overlay disables drawtext.
func Consumer(fifo, title string, overlay *OverlayParams) []string {
	args := Base()
	args = append(args, "-loglevel", "info", "-stats")
	args = append(args, ApplyOptions(ConsumerOptions)...)
	args = append(args, "-f", "h264", "-i", fifo)
	if overlay != nil {
		args = append(args, "-vf", DrawtextFilter(*overlay))
	}
	return append(args, "-an", "-f", "sdl", title)
}
