package ffmpeg

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/smazurov/picambench/internal/devices"
	"github.com/smazurov/picambench/internal/pipeline"
	"github.com/smazurov/picambench/internal/source"
)

func lookPathOnly(names ...string) source.LookPathFunc {
	return func(file string) (string, error) {
		if slices.Contains(names, file) {
			return "/usr/bin/" + file, nil
		}
		return "", errors.New("not found")
	}
}

var testPaths = Paths{FIFO: "/tmp/picambench.1/video.h264", Status: "/tmp/picambench.1/stats.txt"}

func usbSource(f devices.Formats) source.Resolved {
	return source.Resolved{Kind: source.KindUSB, DevicePath: "/dev/video1", Formats: f}
}

func TestNativeH264AlwaysCopies(t *testing.T) {
	for _, mode := range []pipeline.EncodeMode{pipeline.EncodeAuto, pipeline.EncodeSoftware, pipeline.EncodeHardware} {
		t.Run(string(mode), func(t *testing.T) {
			cfg := pipeline.Default()
			cfg.Encode = mode
			b := Builder{LookPath: lookPathOnly("ffmpeg")}

			p, err := b.Build(cfg, usbSource(devices.Formats{H264: true, MJPEG: true, YUYV: true}), testPaths)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			cmd := strings.Join(p.Producer, " ")
			if !strings.Contains(cmd, "-c:v copy") {
				t.Errorf("expected passthrough copy, got %q", cmd)
			}
			for _, enc := range []string{EncoderHardware, EncoderSoftware, "-b:v"} {
				if strings.Contains(cmd, enc) {
					t.Errorf("passthrough command must not contain %q: %q", enc, cmd)
				}
			}
			if p.InputFormat != "h264" {
				t.Errorf("InputFormat = %q, want h264", p.InputFormat)
			}
		})
	}
}

func TestUSBEncoderSelection(t *testing.T) {
	tests := []struct {
		name        string
		formats     devices.Formats
		encode      pipeline.EncodeMode
		policy      pipeline.AutoPolicy
		wantInput   string
		wantEncoder string
		wantArgs    string
	}{
		{
			name:        "mjpeg hardware",
			formats:     devices.Formats{MJPEG: true, YUYV: true},
			encode:      pipeline.EncodeHardware,
			wantInput:   "mjpeg",
			wantEncoder: EncoderHardware,
			wantArgs:    "-pix_fmt nv12 -c:v h264_v4l2m2m -b:v 4000000 -maxrate 4000000 -bufsize 4000000",
		},
		{
			name:        "yuyv software",
			formats:     devices.Formats{YUYV: true},
			encode:      pipeline.EncodeSoftware,
			wantInput:   "yuyv422",
			wantEncoder: EncoderSoftware,
			wantArgs:    "-c:v libx264 -preset ultrafast -tune zerolatency -b:v 4000000 -maxrate 4000000 -bufsize 4000000",
		},
		{
			name:        "auto resolves to hardware by default",
			formats:     devices.Formats{MJPEG: true},
			encode:      pipeline.EncodeAuto,
			policy:      pipeline.AutoPreferHardware,
			wantInput:   "mjpeg",
			wantEncoder: EncoderHardware,
		},
		{
			name:        "auto with software policy",
			formats:     devices.Formats{MJPEG: true},
			encode:      pipeline.EncodeAuto,
			policy:      pipeline.AutoPreferSoftware,
			wantInput:   "mjpeg",
			wantEncoder: EncoderSoftware,
		},
		{
			name:        "no known formats falls back to mjpeg",
			encode:      pipeline.EncodeSoftware,
			wantInput:   "mjpeg",
			wantEncoder: EncoderSoftware,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := pipeline.Default()
			cfg.Encode = tt.encode
			if tt.policy != "" {
				cfg.AutoPolicy = tt.policy
			}
			b := Builder{LookPath: lookPathOnly("ffmpeg")}
			p, err := b.Build(cfg, usbSource(tt.formats), testPaths)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if p.InputFormat != tt.wantInput {
				t.Errorf("InputFormat = %q, want %q", p.InputFormat, tt.wantInput)
			}
			if p.Encoder != tt.wantEncoder {
				t.Errorf("Encoder = %q, want %q", p.Encoder, tt.wantEncoder)
			}
			cmd := strings.Join(p.Producer, " ")
			if tt.wantArgs != "" && !strings.Contains(cmd, tt.wantArgs) {
				t.Errorf("producer %q missing %q", cmd, tt.wantArgs)
			}
			if p.ProducerToFIFO {
				t.Error("USB producer should open the FIFO itself")
			}
		})
	}
}

func TestUSBProducerCommand(t *testing.T) {
	cfg := pipeline.Default()
	cfg.Encode = pipeline.EncodeSoftware
	got := strings.Join(USBProducer(cfg, "/dev/video1", "yuyv422", EncoderSoftware, testPaths.FIFO), " ")
	want := "ffmpeg -hide_banner -loglevel level+error -f v4l2 -input_format yuyv422 -video_size 1280x720 -framerate 30 -i /dev/video1 " +
		"-c:v libx264 -preset ultrafast -tune zerolatency -b:v 4000000 -maxrate 4000000 -bufsize 4000000 " +
		"-f h264 -y /tmp/picambench.1/video.h264"
	if got != want {
		t.Errorf("USBProducer()\n got: %s\nwant: %s", got, want)
	}
}

func TestOnboardPipeline(t *testing.T) {
	cfg := pipeline.Default()
	b := Builder{LookPath: lookPathOnly("ffmpeg", "rpicam-vid")}
	p, err := b.Build(cfg, source.Resolved{Kind: source.KindOnboard, Helper: "rpicam-vid"}, testPaths)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	want := "rpicam-vid --inline --codec h264 --timeout 0 --width 1280 --height 720 --framerate 30 --bitrate 4000000 -o -"
	if got := strings.Join(p.Producer, " "); got != want {
		t.Errorf("producer = %q, want %q", got, want)
	}
	if !p.ProducerToFIFO {
		t.Error("onboard producer writes to stdout")
	}
	if p.Consumer[len(p.Consumer)-1] != TitleOnboard {
		t.Errorf("window title = %q", p.Consumer[len(p.Consumer)-1])
	}
}

func TestBuildMissingBinaries(t *testing.T) {
	cfg := pipeline.Default()

	_, err := Builder{LookPath: lookPathOnly("rpicam-vid")}.Build(cfg, usbSource(devices.Formats{MJPEG: true}), testPaths)
	if !errors.Is(err, ErrFFmpegNotFound) {
		t.Errorf("expected ErrFFmpegNotFound, got %v", err)
	}

	_, err = Builder{LookPath: lookPathOnly("ffmpeg")}.Build(cfg, source.Resolved{Kind: source.KindOnboard}, testPaths)
	if !errors.Is(err, ErrCaptureHelperNotFound) {
		t.Errorf("expected ErrCaptureHelperNotFound, got %v", err)
	}

	_, err = Builder{LookPath: lookPathOnly("ffmpeg")}.Build(cfg, source.Resolved{Kind: source.KindOnboard, Helper: "rpicam-vid"}, testPaths)
	if !errors.Is(err, ErrCaptureHelperNotFound) {
		t.Errorf("expected ErrCaptureHelperNotFound for vanished helper, got %v", err)
	}
}

func TestConsumerCommand(t *testing.T) {
	overlay := &OverlayParams{
		FontFile:   "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		StatusFile: testPaths.Status,
		Corner:     "bottom-right",
	}
	got := strings.Join(Consumer(testPaths.FIFO, TitleUSB, overlay), " ")
	wantPrefix := "ffmpeg -hide_banner -loglevel info -stats -fflags +nobuffer -flags +low_delay " +
		"-reorder_queue_size 0 -thread_queue_size 512 -f h264 -i /tmp/picambench.1/video.h264 -vf drawtext="
	if !strings.HasPrefix(got, wantPrefix) {
		t.Errorf("consumer prefix mismatch\n got: %s\nwant: %s", got, wantPrefix)
	}
	if !strings.Contains(got, "textfile=/tmp/picambench.1/stats.txt:reload=1:x=w-tw-10:y=h-th-10:") {
		t.Errorf("drawtext missing reload/corner: %s", got)
	}
	if !strings.HasSuffix(got, "-an -f sdl USB Camera Preview") {
		t.Errorf("consumer suffix mismatch: %s", got)
	}

	noOverlay := strings.Join(Consumer(testPaths.FIFO, TitleUSB, nil), " ")
	if strings.Contains(noOverlay, "-vf") {
		t.Errorf("overlay disabled but filter present: %s", noOverlay)
	}
}

func TestCornerPosition(t *testing.T) {
	tests := map[string]string{
		"top-left":     "x=10:y=10",
		"top-right":    "x=w-tw-10:y=10",
		"bottom-left":  "x=10:y=h-th-10",
		"bottom-right": "x=w-tw-10:y=h-th-10",
		"middle":       "x=10:y=10",
	}
	for corner, want := range tests {
		if got := CornerPosition(corner); got != want {
			t.Errorf("CornerPosition(%q) = %q, want %q", corner, got, want)
		}
	}
}

func TestEscapeFilterValue(t *testing.T) {
	tests := map[string]string{
		`/tmp/stats.txt`: `/tmp/stats.txt`,
		`/a:b`:           `/a\\:b`,
		`/tmp/a:b,c`:     `/tmp/a\\:b\,c`,
		`/w/it's`:        `/w/it\\\'s`,
		`C:\fonts`:       `C\\:\\\\fonts`,
		`/x[1];y`:        `/x\[1\]\;y`,
	}
	for in, want := range tests {
		if got := escapeFilterValue(in); got != want {
			t.Errorf("escapeFilterValue(%q) = %q, want %q", in, got, want)
		}
	}
}

// splitUnescaped splits s on unescaped sep and drops one level of
// backslash escaping, as ffmpeg's filtergraph and option parsers do.
func splitUnescaped(s string, sep byte) []string {
	var fields []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\' && i+1 < len(s):
			i++
			cur.WriteByte(s[i])
		case s[i] == sep:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(s[i])
		}
	}
	return append(fields, cur.String())
}

func TestDrawtextFilterSurvivesParsing(t *testing.T) {
	p := OverlayParams{
		FontFile:   `/opt/fonts, inc/it's:bold.ttf`,
		StatusFile: `/tmp/run:1/[cam];a\b/stats.txt`,
		Corner:     "top-right",
	}

	chain := splitUnescaped(DrawtextFilter(p), ',')
	if len(chain) != 1 {
		t.Fatalf("filter split into %d filters: %q", len(chain), chain)
	}
	name, opts, ok := strings.Cut(chain[0], "=")
	if !ok || name != "drawtext" {
		t.Fatalf("filter = %q", chain[0])
	}

	got := map[string]string{}
	for _, kv := range splitUnescaped(opts, ':') {
		k, v, _ := strings.Cut(kv, "=")
		got[k] = v
	}
	if got["fontfile"] != p.FontFile {
		t.Errorf("fontfile = %q, want %q", got["fontfile"], p.FontFile)
	}
	if got["textfile"] != p.StatusFile {
		t.Errorf("textfile = %q, want %q", got["textfile"], p.StatusFile)
	}
	if got["x"] != "w-tw-10" || got["reload"] != "1" {
		t.Errorf("options = %v", got)
	}
}
