package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/smazurov/picambench/internal/devices"
	"github.com/smazurov/picambench/internal/pipeline"
)

const listingMixed = `Available cameras
-----------------
0 : imx708 [4608x2592 10-bit RGGB] (/base/soc/i2c0mux/i2c@1/imx708@1a)
    Modes: 'SRGGB10_CSI2P' : 1536x864 [120.13 fps - (768, 432)/3072x1728 crop]
1 : uvcvideo [1280x720] (/base/axi/pcie@120000/rp1/usb@200000-1:1.0-046d:0825)
    Modes: 'MJPEG' : 1280x720 [30.00 fps - (0, 0)/1280x720 crop]
`

const listingUSBOnly = `Available cameras
-----------------
0 : uvcvideo [1280x720] (/base/axi/pcie@120000/rp1/usb@200000-1:1.0-046d:0825)
    Modes: 'MJPEG' : 1280x720 [30.00 fps - (0, 0)/1280x720 crop]
`

func TestParseCameraListing(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   bool
	}{
		{name: "csi and usb", output: listingMixed, want: true},
		{name: "usb only", output: listingUSBOnly, want: false},
		{name: "no cameras", output: "No cameras available!\n", want: false},
		{name: "header without entries", output: "Available cameras\n-----------------\n", want: false},
		{name: "garbage", output: "\x00\x01 segmentation fault", want: false},
		{name: "empty", output: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseCameraListing(tt.output); got != tt.want {
				t.Errorf("ParseCameraListing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func lookPathOnly(names ...string) LookPathFunc {
	return func(file string) (string, error) {
		for _, n := range names {
			if n == file {
				return "/usr/bin/" + n, nil
			}
		}
		return "", errors.New("not found")
	}
}

func TestOnboardCheckerAvailable(t *testing.T) {
	tests := []struct {
		name       string
		lookPath   LookPathFunc
		output     string
		runErr     error
		wantHelper string
		wantOK     bool
	}{
		{
			name:       "rpicam preferred",
			lookPath:   lookPathOnly("rpicam-vid", "libcamera-vid"),
			output:     listingMixed,
			wantHelper: "rpicam-vid",
			wantOK:     true,
		},
		{
			name:       "libcamera fallback",
			lookPath:   lookPathOnly("libcamera-vid"),
			output:     listingMixed,
			wantHelper: "libcamera-vid",
			wantOK:     true,
		},
		{
			name:     "no helper",
			lookPath: lookPathOnly(),
			output:   listingMixed,
		},
		{
			name:       "helper fails",
			lookPath:   lookPathOnly("rpicam-vid"),
			output:     listingMixed,
			runErr:     errors.New("exit status 1"),
			wantHelper: "rpicam-vid",
		},
		{
			name:       "usb only listing",
			lookPath:   lookPathOnly("rpicam-vid"),
			output:     listingUSBOnly,
			wantHelper: "rpicam-vid",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotArgs []string
			c := OnboardChecker{
				LookPath: tt.lookPath,
				Run: func(_ context.Context, name string, args ...string) ([]byte, error) {
					gotArgs = append([]string{name}, args...)
					return []byte(tt.output), tt.runErr
				},
			}
			helper, ok := c.Available(context.Background())
			if helper != tt.wantHelper || ok != tt.wantOK {
				t.Errorf("Available() = %q, %v; want %q, %v", helper, ok, tt.wantHelper, tt.wantOK)
			}
			if tt.wantHelper != "" && (len(gotArgs) != 2 || gotArgs[1] != "--list-cameras") {
				t.Errorf("unexpected helper invocation %v", gotArgs)
			}
		})
	}
}

type fakeOnboard struct {
	helper string
	ok     bool
}

func (f fakeOnboard) Available(context.Context) (string, bool) { return f.helper, f.ok }

type fakeProber struct {
	mu      sync.Mutex
	devices map[string]devices.CaptureDevice
	order   []string
}

func (f *fakeProber) Probe(path string) (devices.CaptureDevice, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.devices[path]
	return d, ok
}

func (f *fakeProber) Scan() (devices.CaptureDevice, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.order {
		if d, ok := f.devices[p]; ok {
			return d, true
		}
	}
	return devices.CaptureDevice{}, false
}

func (f *fakeProber) add(d devices.CaptureDevice) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.devices == nil {
		f.devices = map[string]devices.CaptureDevice{}
	}
	f.devices[d.DevicePath] = d
	f.order = append(f.order, d.DevicePath)
}

func TestSelect(t *testing.T) {
	usb := devices.CaptureDevice{DevicePath: "/dev/video1", Card: "Cam", Formats: devices.Formats{MJPEG: true}}

	tests := []struct {
		name     string
		onboard  fakeOnboard
		devs     []devices.CaptureDevice
		mode     pipeline.SourceMode
		path     string
		wantKind Kind
		wantErr  error
	}{
		{name: "auto prefers onboard", onboard: fakeOnboard{"rpicam-vid", true}, devs: []devices.CaptureDevice{usb}, mode: pipeline.SourceAuto, wantKind: KindOnboard},
		{name: "auto falls back to usb", devs: []devices.CaptureDevice{usb}, mode: pipeline.SourceAuto, wantKind: KindUSB},
		{name: "auto finds nothing", mode: pipeline.SourceAuto, wantErr: ErrNoCameraFound},
		{name: "explicit onboard unavailable", devs: []devices.CaptureDevice{usb}, mode: pipeline.SourceOnboard, wantErr: ErrOnboardUnavailable},
		{name: "explicit onboard", onboard: fakeOnboard{"libcamera-vid", true}, mode: pipeline.SourceOnboard, wantKind: KindOnboard},
		{name: "explicit device accepted", devs: []devices.CaptureDevice{usb}, mode: pipeline.SourceDevice, path: "/dev/video1", wantKind: KindUSB},
		{name: "explicit device rejected", devs: []devices.CaptureDevice{usb}, mode: pipeline.SourceDevice, path: "/dev/video0", wantErr: ErrInvalidDevice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProber{}
			for _, d := range tt.devs {
				p.add(d)
			}
			s := NewSelector(p, tt.onboard)

			res, err := s.Select(context.Background(), tt.mode, tt.path)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Select() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Select() unexpected error: %v", err)
			}
			if res.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", res.Kind, tt.wantKind)
			}
			if res.Kind == KindUSB && res.Formats != usb.Formats {
				t.Errorf("Formats = %+v, want %+v", res.Formats, usb.Formats)
			}
			if res.Kind == KindOnboard && res.Helper != tt.onboard.helper {
				t.Errorf("Helper = %q, want %q", res.Helper, tt.onboard.helper)
			}
		})
	}
}

func TestSelectWithWaitPicksUpNewNode(t *testing.T) {
	dir := t.TempDir()
	p := &fakeProber{}
	s := NewSelector(p, fakeOnboard{})

	go func() {
		time.Sleep(100 * time.Millisecond)
		node := filepath.Join(dir, "video4")
		p.add(devices.CaptureDevice{DevicePath: node, Card: "Late Cam"})
		_ = os.WriteFile(node, nil, 0o600)
	}()

	res, err := s.SelectWithWait(context.Background(), dir, 5*time.Second)
	if err != nil {
		t.Fatalf("SelectWithWait() error = %v", err)
	}
	if res.Card != "Late Cam" {
		t.Errorf("selected %+v", res)
	}
}

func TestSelectWithWaitTimesOut(t *testing.T) {
	s := NewSelector(&fakeProber{}, fakeOnboard{})
	_, err := s.SelectWithWait(context.Background(), t.TempDir(), 200*time.Millisecond)
	if !errors.Is(err, ErrNoCameraFound) {
		t.Errorf("expected ErrNoCameraFound, got %v", err)
	}
}
