// Package session supervises one benchmark run: it creates the working
// directory and FIFO, starts the consumer and producer, runs the telemetry
// goroutines and tears everything down on exit or interrupt.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/smazurov/picambench/internal/events"
	"github.com/smazurov/picambench/internal/ffmpeg"
	"github.com/smazurov/picambench/internal/logging"
	"github.com/smazurov/picambench/internal/pipeline"
	"github.com/smazurov/picambench/internal/source"
	"github.com/smazurov/picambench/internal/telemetry"
)

// Artifact names inside the session directory.
const (
	FIFOName   = "video.h264"
	StatusName = "stats.txt"
	dirPattern = "picambench."
)

// DefaultGracefulTimeout bounds how long a child may take to exit after
// SIGTERM before it is killed.
const DefaultGracefulTimeout = 3 * time.Second

// Setup errors.
var (
	ErrWorkDir      = errors.New("create session directory")
	ErrFIFO         = errors.New("create fifo")
	ErrSpawn        = errors.New("spawn process")
	ErrInterrupted  = errors.New("interrupted during setup")
	ErrSetupAborted = errors.New("consumer exited during setup")
)

// BuildFunc resolves the pipeline once the session paths are known.
type BuildFunc func(paths ffmpeg.Paths) (ffmpeg.Pipeline, error)

// Options configures a Session.
type Options struct {
	Config          pipeline.Config
	Source          source.Resolved
	Build           BuildFunc
	WorkDir         string // parent of the session directory, "" for os.TempDir
	Bus             *events.Bus
	Procs           telemetry.ProcSource
	GracefulTimeout time.Duration
	PublishInterval time.Duration
	SampleWindow    time.Duration
}

// Session is the run context. Only Interrupt may be called concurrently
// with Run; it touches nothing but the atomic fields and the interrupt
// channel.
type Session struct {
	opts   Options
	label  string
	logger *slog.Logger

	producerPID atomic.Int64
	consumerPID atomic.Int64
	live        atomic.Bool
	interrupted atomic.Bool

	interruptOnce sync.Once
	interruptCh   chan struct{}

	mu     sync.RWMutex
	state  State
	dir    string
	latest *telemetry.Status
}

// New creates an idle session.
func New(opts Options) *Session {
	if opts.GracefulTimeout <= 0 {
		opts.GracefulTimeout = DefaultGracefulTimeout
	}
	return &Session{
		opts:        opts,
		label:       SourceLabel(opts.Source),
		logger:      logging.GetLogger("session"),
		state:       StateIdle,
		interruptCh: make(chan struct{}),
	}
}

// SourceLabel identifies a resolved source in metrics and events.
func SourceLabel(src source.Resolved) string {
	if src.Kind == source.KindOnboard {
		return string(source.KindOnboard)
	}
	return fmt.Sprintf("%s:%s", src.Kind, src.DevicePath)
}

// Label returns the source label.
func (s *Session) Label() string { return s.label }

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dir returns the session directory while the session is active.
func (s *Session) Dir() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dir
}

// Latest returns the most recently published status.
func (s *Session) Latest() (telemetry.Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return telemetry.Status{}, false
	}
	return *s.latest, true
}

// PIDs returns the producer and consumer pids; 0 means not running or
// already signalled.
func (s *Session) PIDs() []int {
	return []int{int(s.producerPID.Load()), int(s.consumerPID.Load())}
}

// Live reports whether the session is running and not yet draining.
func (s *Session) Live() bool {
	return s.live.Load()
}

// Interrupt begins a graceful shutdown. It clears the liveness flag and
// sends SIGTERM to the process group of each recorded child exactly once.
// Safe to call from any goroutine, any number of times, including before
// Run; a session interrupted during setup starts no further children.
func (s *Session) Interrupt() {
	s.interrupted.Store(true)
	s.live.Store(false)
	for _, pid := range []*atomic.Int64{&s.producerPID, &s.consumerPID} {
		if p := pid.Swap(0); p > 0 {
			// Children lead their own process group.
			_ = syscall.Kill(-int(p), syscall.SIGTERM)
		}
	}
	s.interruptOnce.Do(func() { close(s.interruptCh) })
}

func (s *Session) setState(next State, reason string) {
	s.mu.Lock()
	prev := s.state
	s.state = next
	s.mu.Unlock()

	s.logger.Debug("Session state changed", "from", prev, "to", next, "reason", reason)
	if s.opts.Bus != nil {
		s.opts.Bus.Publish(events.SessionStateChangedEvent{
			State:     string(next),
			Previous:  string(prev),
			Source:    s.label,
			Reason:    reason,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func (s *Session) setLatest(st telemetry.Status) {
	s.mu.Lock()
	s.latest = &st
	s.mu.Unlock()
}

// Run executes the session to completion. Setup failures are returned as
// errors after any started child is stopped and the directory removed.
// Child exits are reported in Result, never as errors.
func (s *Session) Run(ctx context.Context) (Result, error) {
	res := Result{ProducerExit: -1, ConsumerExit: -1}

	s.setState(StateStarting, "")
	defer s.setState(StateTerminated, "")

	dir, err := os.MkdirTemp(s.opts.WorkDir, dirPattern)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrWorkDir, err)
	}
	s.mu.Lock()
	s.dir = dir
	s.mu.Unlock()
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("Failed to remove session directory", "dir", dir, "error", err)
		}
		s.mu.Lock()
		s.dir = ""
		s.mu.Unlock()
	}()

	paths := ffmpeg.Paths{
		FIFO:   filepath.Join(dir, FIFOName),
		Status: filepath.Join(dir, StatusName),
	}
	if err := unix.Mkfifo(paths.FIFO, 0o600); err != nil {
		return res, fmt.Errorf("%w: %s: %w", ErrFIFO, paths.FIFO, err)
	}

	cfg := s.opts.Config
	if err := telemetry.WriteStatusFile(paths.Status, telemetry.Placeholder(cfg.Width, cfg.Height)); err != nil {
		s.logger.Warn("Placeholder status write failed", "error", err)
	}

	pl, err := s.opts.Build(paths)
	if err != nil {
		return res, err
	}

	// interrupted is set before live is cleared, so checking it after the
	// store cannot miss an Interrupt that raced with setup.
	s.live.Store(true)
	if s.interrupted.Load() {
		s.live.Store(false)
		return res, ErrInterrupted
	}
	r := &run{s: s, paths: paths, pipeline: pl}
	defer r.closeLogPipe()

	if err := r.startConsumer(); err != nil {
		s.live.Store(false)
		return res, err
	}
	if err := r.startProducer(ctx); err != nil {
		s.live.Store(false)
		res.ConsumerExit = r.stop(r.consumer, &s.consumerPID)
		return res, err
	}

	s.setState(StateRunning, "")
	s.logger.Info("Pipeline running",
		"source", s.label,
		"dir", dir,
		"producer_pid", r.producer.PID(),
		"consumer_pid", r.consumer.PID())

	stopTelemetry := r.startTelemetry(ctx)

	select {
	case <-r.consumer.Done():
		res.EndedBy = EndedByConsumer
	case <-r.producer.Done():
		res.EndedBy = EndedByProducer
	case <-s.interruptCh:
		res.EndedBy = EndedByInterrupt
	case <-ctx.Done():
		s.Interrupt()
		res.EndedBy = EndedByInterrupt
	}

	s.live.Store(false)
	s.setState(StateDraining, string(res.EndedBy))

	res.ProducerExit = r.stop(r.producer, &s.producerPID)
	res.ConsumerExit = r.stop(r.consumer, &s.consumerPID)
	stopTelemetry()

	res.Interrupted = s.interrupted.Load()
	if res.Interrupted {
		res.EndedBy = EndedByInterrupt
	}
	s.logger.Info("Pipeline finished",
		"ended_by", res.EndedBy,
		"producer_exit", res.ProducerExit,
		"consumer_exit", res.ConsumerExit)
	return res, nil
}
