package devices

import (
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/smazurov/picambench/internal/logging"
	"github.com/smazurov/picambench/pkg/linuxav/v4l2"
)

// Querier issues capability and format queries against a device node.
type Querier interface {
	QueryCapability(path string) (v4l2.Capability, error)
	EnumFormats(path string, bufType uint32) []v4l2.FormatInfo
}

type ioctlQuerier struct{}

func (ioctlQuerier) QueryCapability(path string) (v4l2.Capability, error) {
	return v4l2.QueryCapability(path)
}

func (ioctlQuerier) EnumFormats(path string, bufType uint32) []v4l2.FormatInfo {
	return v4l2.EnumFormats(path, bufType)
}

// Prober probes and filters capture devices. Results are never cached.
type Prober struct {
	querier Querier
	devDir  string
	logger  *slog.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithQuerier replaces the ioctl-backed querier.
func WithQuerier(q Querier) Option {
	return func(p *Prober) { p.querier = q }
}

// WithDevDir changes the directory scanned for video nodes.
func WithDevDir(dir string) Option {
	return func(p *Prober) { p.devDir = dir }
}

// NewProber creates a Prober backed by V4L2 ioctls on /dev.
func NewProber(opts ...Option) *Prober {
	p := &Prober{
		querier: ioctlQuerier{},
		devDir:  "/dev",
		logger:  logging.GetLogger("devices"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe queries path and reports whether it is an accepted capture device.
// Open or query failures reject the candidate; they are not errors.
func (p *Prober) Probe(path string) (CaptureDevice, bool) {
	caps, err := p.querier.QueryCapability(path)
	if err != nil {
		p.logger.Debug("Capability query failed", "device", path, "error", err)
		return CaptureDevice{}, false
	}
	if !Accept(caps) {
		p.logger.Debug("Device rejected",
			"device", path,
			"driver", caps.Driver,
			"card", caps.Card,
			"caps", caps.EffectiveCaps())
		return CaptureDevice{}, false
	}

	dev := CaptureDevice{
		DevicePath: path,
		Driver:     caps.Driver,
		Card:       caps.Card,
		BusInfo:    caps.BusInfo,
	}
	formatsFrom(p.querier.EnumFormats(path, v4l2.BufTypeVideoCapture), &dev.Formats)
	formatsFrom(p.querier.EnumFormats(path, v4l2.BufTypeVideoCaptureMPlane), &dev.Formats)
	return dev, true
}

// Scan returns the first accepted device in ascending node order.
func (p *Prober) Scan() (CaptureDevice, bool) {
	for _, path := range p.candidates() {
		if dev, ok := p.Probe(path); ok {
			return dev, true
		}
	}
	return CaptureDevice{}, false
}

// ScanAll returns every accepted device in ascending node order.
func (p *Prober) ScanAll() []CaptureDevice {
	var found []CaptureDevice
	for _, path := range p.candidates() {
		if dev, ok := p.Probe(path); ok {
			found = append(found, dev)
		}
	}
	return found
}

// candidates lists videoN nodes sorted by N.
func (p *Prober) candidates() []string {
	entries, err := os.ReadDir(p.devDir)
	if err != nil {
		p.logger.Debug("Failed to read device directory", "dir", p.devDir, "error", err)
		return nil
	}

	type node struct {
		index int
		path  string
	}
	var nodes []node
	for _, e := range entries {
		idx, ok := VideoIndex(e.Name())
		if !ok {
			continue
		}
		nodes = append(nodes, node{index: idx, path: filepath.Join(p.devDir, e.Name())})
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].index < nodes[j].index })

	paths := make([]string, len(nodes))
	for i, n := range nodes {
		paths[i] = n.path
	}
	return paths
}

// VideoIndex parses N from a "videoN" node name.
func VideoIndex(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, "video")
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
