// Package devices identifies genuine USB capture cameras among the
// Video4Linux nodes present on the host.
package devices

import (
	"strings"

	"github.com/smazurov/picambench/pkg/linuxav/v4l2"
)

// UVCDriver is the only driver accepted as a capture source.
const UVCDriver = "uvcvideo"

// platformMarkers identify SoC-internal nodes (ISP, codec, CSI front end)
// that expose V4L2 capture queues but are never cameras.
var platformMarkers = []string{"bcm2835", "rpivid", "pispbe", "rp1-cfe"}

// Formats records which pixel encodings a device advertises.
type Formats struct {
	H264  bool
	MJPEG bool
	YUYV  bool
}

// String renders the advertised formats in list-cameras order.
func (f Formats) String() string {
	var names []string
	if f.H264 {
		names = append(names, "H264")
	}
	if f.MJPEG {
		names = append(names, "MJPG")
	}
	if f.YUYV {
		names = append(names, "YUYV")
	}
	return strings.Join(names, " ")
}

// CaptureDevice is a probed, accepted capture node.
type CaptureDevice struct {
	DevicePath string
	Driver     string
	Card       string
	BusInfo    string
	Formats    Formats
}

// IsPlatformInternal reports whether driver or card names a SoC-internal node.
func IsPlatformInternal(driver, card string) bool {
	for _, marker := range platformMarkers {
		if strings.Contains(driver, marker) || strings.Contains(card, marker) {
			return true
		}
	}
	return false
}

// Accept applies the capture filter to a capability query result.
func Accept(caps v4l2.Capability) bool {
	if IsPlatformInternal(caps.Driver, caps.Card) {
		return false
	}
	if caps.Driver != UVCDriver {
		return false
	}
	return caps.IsVideoCapture()
}

func formatsFrom(list []v4l2.FormatInfo, into *Formats) {
	for _, f := range list {
		switch f.PixelFormat {
		case v4l2.PixFmtH264:
			into.H264 = true
		case v4l2.PixFmtMJPEG:
			into.MJPEG = true
		case v4l2.PixFmtYUYV:
			into.YUYV = true
		}
	}
}
