// Package process wraps os/exec for supervised child processes.
//
// A Child is started in its own process group so terminal signals reach
// only the supervisor, which decides when and how children are stopped:
//   - Graceful stop with a caller-chosen signal and timeout
//   - Force kill with SIGKILL if the graceful stop times out
//   - Output streaming with pluggable log parsing
//   - Exit code extraction that is valid once Done is closed
//
// Example:
//
//	child, err := process.Start(process.Spec{
//	    Name:         "producer",
//	    Args:         []string{"ffmpeg", "-i", "/dev/video0", "out.h264"},
//	    OutputLogger: logging.GetLogger("ffmpeg"),
//	    Parser:       ffmpeg.ParseLogLevel,
//	}, logger)
//	if err != nil {
//	    return err
//	}
//	<-child.Done()
//	fmt.Println(child.ExitCode())
package process
