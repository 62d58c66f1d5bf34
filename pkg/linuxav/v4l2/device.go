//go:build linux

package v4l2

import (
	"bytes"
	"fmt"
	"unsafe"
)

// QueryCapability opens devicePath, issues VIDIOC_QUERYCAP and closes the node.
func QueryCapability(devicePath string) (Capability, error) {
	fd, err := open(devicePath)
	if err != nil {
		return Capability{}, fmt.Errorf("open %s: %w", devicePath, err)
	}
	defer closeFD(fd)

	raw := v4l2Capability{}
	if err := ioctl(fd, vidiocQuerycap, unsafe.Pointer(&raw)); err != nil {
		return Capability{}, fmt.Errorf("VIDIOC_QUERYCAP %s: %w", devicePath, err)
	}

	return Capability{
		Driver:       cstr(raw.driver[:]),
		Card:         cstr(raw.card[:]),
		BusInfo:      cstr(raw.busInfo[:]),
		Version:      raw.version,
		Capabilities: raw.capabilities,
		DeviceCaps:   raw.deviceCaps,
	}, nil
}

// cstr converts a null-terminated byte slice to a Go string.
func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
