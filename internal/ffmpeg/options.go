package ffmpeg

import "strings"

// OptionType is a consumer-side ffmpeg behaviour flag.
type OptionType string

const (
	OptionNoBuffer       OptionType = "nobuffer"
	OptionLowDelay       OptionType = "low_delay"
	OptionNoReorder      OptionType = "no_reorder"
	OptionThreadQueue512 OptionType = "thread_queue_512"
)

// ConsumerOptions are applied to every preview consumer. Together they
// disable input buffering and reordering so the preview shows frames as
// soon as they are decodable.
var ConsumerOptions = []OptionType{
	OptionNoBuffer,
	OptionLowDelay,
	OptionNoReorder,
	OptionThreadQueue512,
}

// Base returns the ffmpeg argv prefix shared by every invocation.
func Base() []string {
	return []string{"ffmpeg", "-hide_banner"}
}

// ApplyOptions expands option flags into input arguments.
func ApplyOptions(options []OptionType) []string {
	var args []string
	var fflags []string

	for _, option := range options {
		switch option {
		case OptionNoBuffer:
			fflags = append(fflags, "+nobuffer")
		case OptionLowDelay:
			args = append(args, "-flags", "+low_delay")
		case OptionNoReorder:
			args = append(args, "-reorder_queue_size", "0")
		case OptionThreadQueue512:
			args = append(args, "-thread_queue_size", "512")
		}
	}

	if len(fflags) > 0 {
		args = append([]string{"-fflags", strings.Join(fflags, "")}, args...)
	}
	return args
}
