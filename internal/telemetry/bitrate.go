package telemetry

import (
	"strconv"
	"strings"
)

// BitrateKbps converts an ffmpeg bitrate token ("2048.3kbits/s",
// "1.2Mbits/s", "N/A") to kbit/s. Unparseable tokens yield 0.
func BitrateKbps(s string) float64 {
	scale := 1.0
	switch {
	case strings.HasSuffix(s, "kbits/s"):
		s = strings.TrimSuffix(s, "kbits/s")
	case strings.HasSuffix(s, "Mbits/s"):
		s = strings.TrimSuffix(s, "Mbits/s")
		scale = 1000
	case strings.HasSuffix(s, "bits/s"):
		s = strings.TrimSuffix(s, "bits/s")
		scale = 0.001
	default:
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v * scale
}
