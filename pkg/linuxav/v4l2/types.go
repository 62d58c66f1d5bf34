package v4l2

// Capability is the decoded result of VIDIOC_QUERYCAP.
type Capability struct {
	Driver       string
	Card         string
	BusInfo      string
	Version      uint32
	Capabilities uint32
	DeviceCaps   uint32
}

// EffectiveCaps returns the capabilities of the opened node. When the driver
// reports per-node device caps those are authoritative; the physical device
// caps may advertise features owned by a sibling node (e.g. UVC metadata).
func (c Capability) EffectiveCaps() uint32 {
	if c.Capabilities&CapDeviceCaps != 0 {
		return c.DeviceCaps
	}
	return c.Capabilities
}

// IsVideoCapture reports whether the node is a single- or multi-plane
// video capture node.
func (c Capability) IsVideoCapture() bool {
	return c.EffectiveCaps()&(CapVideoCapture|CapVideoCaptureMPlane) != 0
}

// FormatInfo contains information about a supported pixel format.
type FormatInfo struct {
	PixelFormat uint32
	Description string
	Emulated    bool
}

// Capability flags.
const (
	CapVideoCapture       = 0x00000001
	CapVideoCaptureMPlane = 0x00001000
	CapStreaming          = 0x04000000
	CapDeviceCaps         = 0x80000000
)

// Buffer types accepted by EnumFormats.
const (
	BufTypeVideoCapture       = 1
	BufTypeVideoCaptureMPlane = 9
)

// Pixel formats the benchmark cares about.
const (
	PixFmtYUYV  = 0x56595559 // 'YUYV'
	PixFmtMJPEG = 0x47504A4D // 'MJPG'
	PixFmtH264  = 0x34363248 // 'H264'
	PixFmtNV12  = 0x3231564E // 'NV12'
)

const fmtFlagEmulated = 0x0002
