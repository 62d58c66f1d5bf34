//go:build linux

// Package v4l2 provides pure Go bindings to the subset of the Video4Linux2
// (V4L2) API needed to identify capture hardware: capability queries and
// pixel format enumeration.
//
// This package does not use cgo, enabling simple cross-compilation for
// single-board computers (arm64, arm) from a workstation.
//
// # Capability Queries
//
//	caps, err := v4l2.QueryCapability("/dev/video0")
//	if err == nil && caps.Driver == "uvcvideo" && caps.IsVideoCapture() {
//	    fmt.Printf("%s on %s\n", caps.Card, caps.BusInfo)
//	}
//
// # Format Queries
//
// Enumerate the formats advertised on the single-plane and multi-plane
// capture queues:
//
//	formats := v4l2.EnumFormats("/dev/video0", v4l2.BufTypeVideoCapture)
//	for _, f := range formats {
//	    fmt.Println(v4l2.FormatFourCC(f.PixelFormat), f.Description)
//	}
//
// Devices are always opened non-blocking and closed before a call returns.
package v4l2
