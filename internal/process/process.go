package process

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/smazurov/picambench/internal/logging"
)

// ExitCodeKilled is reported when a child had to be force-killed.
const ExitCodeKilled = 137

// LogParser parses a log line and returns the log level and message.
type LogParser func(line string) (level, msg string)

// Spec describes a child process. Nil Stdout or Stderr are streamed line
// by line to the child's logger.
type Spec struct {
	Name   string
	Args   []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// OutputLogger and Parser handle streamed output. A nil OutputLogger
	// logs through the child's own logger.
	OutputLogger logging.Logger
	Parser       LogParser
}

type outputStream struct {
	reader io.Reader
	source string
}

// Child is a started subprocess.
type Child struct {
	name            string
	cmd             *exec.Cmd
	pid             int
	logger          logging.Logger
	processLogger   logging.Logger
	logParser       LogParser
	done            chan struct{}
	outputDone      sync.WaitGroup
	exitCode        atomic.Int32
	waitErr         error
	gracefulTimeout time.Duration
	killTimeout     time.Duration
}

// Start launches the process described by spec.
func Start(spec Spec, logger logging.Logger) (*Child, error) {
	if len(spec.Args) == 0 {
		return nil, errors.New("empty command")
	}

	c := &Child{
		name:            spec.Name,
		logger:          logger,
		processLogger:   spec.OutputLogger,
		logParser:       spec.Parser,
		done:            make(chan struct{}),
		gracefulTimeout: 5 * time.Second,
		killTimeout:     5 * time.Second,
	}

	c.cmd = exec.Command(spec.Args[0], spec.Args[1:]...)
	c.cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.cmd.Stdin = spec.Stdin

	var streams []outputStream
	if spec.Stdout != nil {
		c.cmd.Stdout = spec.Stdout
	} else {
		stdout, err := c.cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("%s stdout pipe: %w", spec.Name, err)
		}
		streams = append(streams, outputStream{stdout, "stdout"})
	}
	if spec.Stderr != nil {
		c.cmd.Stderr = spec.Stderr
	} else {
		stderr, err := c.cmd.StderrPipe()
		if err != nil {
			return nil, fmt.Errorf("%s stderr pipe: %w", spec.Name, err)
		}
		streams = append(streams, outputStream{stderr, "stderr"})
	}

	if err := c.cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", spec.Name, err)
	}
	c.pid = c.cmd.Process.Pid
	logger.Info("Process started", "name", spec.Name, "pid", c.pid, "command", spec.Args)

	for _, s := range streams {
		c.outputDone.Add(1)
		go func() {
			defer c.outputDone.Done()
			c.streamOutput(s.reader, s.source)
		}()
	}

	go func() {
		// Output must be drained before Wait closes the pipes.
		c.outputDone.Wait()
		c.waitErr = c.cmd.Wait()
		c.exitCode.Store(int32(exitCodeFromError(c.waitErr)))
		close(c.done)
	}()

	return c, nil
}

// Name returns the child's label.
func (c *Child) Name() string { return c.name }

// PID returns the process id.
func (c *Child) PID() int { return c.pid }

// Done is closed once the process has exited and its output is drained.
func (c *Child) Done() <-chan struct{} { return c.done }

// ExitCode returns the exit status. Only meaningful after Done is closed.
func (c *Child) ExitCode() int { return int(c.exitCode.Load()) }

// Err returns the error from Wait. Only meaningful after Done is closed.
func (c *Child) Err() error {
	select {
	case <-c.done:
		return c.waitErr
	default:
		return nil
	}
}

// SetTimeouts overrides the graceful stop and post-kill timeouts.
func (c *Child) SetTimeouts(graceful, kill time.Duration) {
	c.gracefulTimeout = graceful
	c.killTimeout = kill
}

// Signal sends sig to the child's process group, so helpers it spawned
// and that still hold its output pipes are stopped with it. Signalling an
// exited child is a no-op.
func (c *Child) Signal(sig syscall.Signal) error {
	select {
	case <-c.done:
		return nil
	default:
	}
	if err := syscall.Kill(-c.pid, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
		return err
	}
	return nil
}

// Stop sends sig and waits for exit, force-killing after the graceful
// timeout. A child that is already gone is not signalled again.
func (c *Child) Stop(sig syscall.Signal) int {
	select {
	case <-c.done:
		return c.ExitCode()
	default:
	}

	c.logger.Info("Stopping process", "name", c.name, "pid", c.pid, "signal", sig.String())
	if err := c.Signal(sig); err != nil {
		c.logger.Warn("Failed to signal process", "name", c.name, "error", err)
	}
	return c.WaitTimeout(c.gracefulTimeout)
}

// WaitTimeout waits for exit, force-killing the child if it is still
// running after timeout.
func (c *Child) WaitTimeout(timeout time.Duration) int {
	select {
	case <-c.done:
		return c.ExitCode()
	case <-time.After(timeout):
		c.logger.Warn("Graceful shutdown timeout, forcing kill", "name", c.name, "timeout", timeout)
		if err := c.Signal(syscall.SIGKILL); err != nil {
			c.logger.Error("Failed to kill process", "name", c.name, "error", err)
		}
		select {
		case <-c.done:
		case <-time.After(c.killTimeout):
			c.logger.Error("Process did not exit after kill signal", "name", c.name)
		}
		return ExitCodeKilled
	}
}

// exitCodeFromError extracts exit code from process error.
// Returns 0 for nil error, the exit code for ExitError, or 1 for other errors.
// A child terminated by a signal reports 128+signal.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return exitErr.ExitCode()
	}
	return 1
}

// streamOutput logs each line through the configured parser.
func (c *Child) streamOutput(reader io.Reader, source string) {
	scanner := bufio.NewScanner(reader)
	scanner.Split(scanLines)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		logger, parser := c.processLogger, c.logParser
		if logger == nil {
			logger = c.logger
		}

		level, msg := "info", line
		if parser != nil {
			level, msg = parser(line)
		}

		switch level {
		case "panic", "fatal", "error":
			logger.Error(msg, "process", c.name)
		case "warning":
			logger.Warn(msg, "process", c.name)
		case "verbose", "debug", "trace":
			logger.Debug(msg, "process", c.name)
		default:
			logger.Info(msg, "process", c.name)
		}
	}

	if err := scanner.Err(); err != nil {
		c.logger.Warn("Error reading output", "name", c.name, "source", source, "error", err)
	}
}

// scanLines splits on '\n' or '\r' so in-place progress updates are
// emitted as separate lines instead of growing one unbounded token.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
