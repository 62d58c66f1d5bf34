//go:build linux

package v4l2

import "unsafe"

// EnumFormats returns the pixel formats advertised on one capture queue.
// Enumeration stops at the first index the driver refuses; EINVAL is the
// normal end-of-list marker and any other failure is treated the same way,
// so a node that cannot be opened simply yields no formats.
func EnumFormats(devicePath string, bufType uint32) []FormatInfo {
	fd, err := open(devicePath)
	if err != nil {
		return nil
	}
	defer closeFD(fd)

	var formats []FormatInfo
	for i := uint32(0); ; i++ {
		desc := v4l2Fmtdesc{
			index: i,
			typ:   bufType,
		}
		if ioctl(fd, vidiocEnumFmt, unsafe.Pointer(&desc)) != nil {
			break
		}
		formats = append(formats, FormatInfo{
			PixelFormat: desc.pixelformat,
			Description: cstr(desc.description[:]),
			Emulated:    desc.flags&fmtFlagEmulated != 0,
		})
	}
	return formats
}

// FormatFourCC converts a 4-byte pixel format to a human-readable string.
func FormatFourCC(format uint32) string {
	b := make([]byte, 4)
	b[0] = byte(format & 0xFF)
	b[1] = byte((format >> 8) & 0xFF)
	b[2] = byte((format >> 16) & 0xFF)
	b[3] = byte((format >> 24) & 0xFF)
	return string(b)
}
