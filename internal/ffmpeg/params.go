package ffmpeg

// Paths are the session artifacts the commands are wired to.
type Paths struct {
	FIFO   string // named pipe between producer and consumer
	Status string // telemetry text re-read by drawtext
}

// Pipeline is a fully resolved producer/consumer pair.
type Pipeline struct {
	Producer []string
	Consumer []string

	// ProducerToFIFO is true when the producer writes to stdout and the
	// supervisor must bind its stdout to the FIFO write end. Otherwise the
	// producer opens the FIFO itself.
	ProducerToFIFO bool

	InputFormat string // v4l2 input format for USB sources
	Encoder     string // "copy", "h264_v4l2m2m", "libx264" or the onboard helper
}

// OverlayParams configures the drawtext status overlay.
type OverlayParams struct {
	FontFile   string
	StatusFile string
	Corner     string
}
