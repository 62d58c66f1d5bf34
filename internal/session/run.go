package session

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/smazurov/picambench/internal/events"
	"github.com/smazurov/picambench/internal/ffmpeg"
	"github.com/smazurov/picambench/internal/logging"
	"github.com/smazurov/picambench/internal/process"
	"github.com/smazurov/picambench/internal/telemetry"
)

// run holds the per-Run resources of a session.
type run struct {
	s        *Session
	paths    ffmpeg.Paths
	pipeline ffmpeg.Pipeline

	consumer *process.Child
	producer *process.Child

	logRead  *os.File // consumer stderr, read by the log reader
	closeLog sync.Once
}

func (r *run) startConsumer() error {
	if !r.s.live.Load() {
		return ErrInterrupted
	}

	spec := process.Spec{
		Name: "consumer",
		Args: r.pipeline.Consumer,
	}

	if r.s.opts.Config.Overlay {
		rd, wr, err := os.Pipe()
		if err != nil {
			return fmt.Errorf("%w: consumer stderr pipe: %w", ErrSpawn, err)
		}
		r.logRead = rd
		spec.Stderr = wr
		defer wr.Close()
	} else {
		spec.Stderr = os.Stderr
	}

	child, err := process.Start(spec, r.s.logger)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSpawn, err)
	}
	child.SetTimeouts(r.s.opts.GracefulTimeout, r.s.opts.GracefulTimeout)
	r.consumer = child
	r.track(child, &r.s.consumerPID)
	return nil
}

func (r *run) startProducer(ctx context.Context) error {
	spec := process.Spec{
		Name:         "producer",
		Args:         r.pipeline.Producer,
		OutputLogger: logging.GetLogger("ffmpeg"),
		Parser:       ffmpeg.ParseLogLevel,
	}

	if r.pipeline.ProducerToFIFO {
		fifo, err := r.openFIFOWriter(ctx)
		if err != nil {
			return err
		}
		defer fifo.Close()
		spec.Stdout = fifo
	}

	if !r.s.live.Load() {
		return ErrInterrupted
	}

	child, err := process.Start(spec, r.s.logger)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSpawn, err)
	}
	child.SetTimeouts(r.s.opts.GracefulTimeout, r.s.opts.GracefulTimeout)
	r.producer = child
	r.track(child, &r.s.producerPID)
	return nil
}

// track records child's pid and clears it once the child has been reaped,
// so neither Interrupt nor the sampler can reach a recycled pid.
func (r *run) track(child *process.Child, pid *atomic.Int64) {
	p := int64(child.PID())
	pid.Store(p)
	go func() {
		<-child.Done()
		pid.CompareAndSwap(p, 0)
	}()
}

// openFIFOWriter opens the FIFO write end for a producer that writes to
// stdout. The open blocks until the consumer opens the read end; if the
// consumer exits or the run is interrupted first, a non-blocking reader is
// opened to release the pending open.
func (r *run) openFIFOWriter(ctx context.Context) (*os.File, error) {
	type result struct {
		f   *os.File
		err error
	}
	opened := make(chan result, 1)
	go func() {
		f, err := os.OpenFile(r.paths.FIFO, os.O_WRONLY, 0)
		opened <- result{f, err}
	}()

	var abortErr error
	select {
	case res := <-opened:
		if res.err != nil {
			return nil, fmt.Errorf("%w: open %s: %w", ErrFIFO, r.paths.FIFO, res.err)
		}
		return res.f, nil
	case <-r.consumer.Done():
		abortErr = ErrSetupAborted
	case <-r.s.interruptCh:
		abortErr = ErrInterrupted
	case <-ctx.Done():
		abortErr = ErrInterrupted
	}

	unblock, err := os.OpenFile(r.paths.FIFO, os.O_RDONLY|syscall.O_NONBLOCK, 0)
	if err == nil {
		defer unblock.Close()
	}
	if res := <-opened; res.f != nil {
		res.f.Close()
	}
	return nil, abortErr
}

// startTelemetry launches the log reader and the sampler/publisher when the
// overlay is enabled. The returned func cancels and joins them.
func (r *run) startTelemetry(ctx context.Context) func() {
	if !r.s.opts.Config.Overlay {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	shared := &telemetry.Shared{}
	ffmpegLogger := logging.GetLogger("ffmpeg")

	wg.Add(1)
	go func() {
		defer wg.Done()
		reader := telemetry.NewLogReader(r.logRead, shared, r.s.Live, func(line string) {
			if strings.Contains(line, "fps=") {
				return
			}
			level, msg := ffmpeg.ParseLogLevel(line)
			ffmpegLogger.Log(ctx, ffmpeg.SlogLevel(level), msg, "process", "consumer")
		})
		reader.Run(ctx)
	}()

	procs := r.s.opts.Procs
	if procs == nil {
		fs, err := telemetry.NewProcFS("/proc")
		if err != nil {
			r.s.logger.Warn("procfs unavailable, CPU and memory will read zero", "error", err)
			procs = zeroProcs{}
		} else {
			procs = fs
		}
	}
	sampler := telemetry.NewSampler(procs)
	if r.s.opts.SampleWindow > 0 {
		sampler.SetWindow(r.s.opts.SampleWindow)
	}

	cfg := r.s.opts.Config
	publisher := telemetry.NewPublisher(telemetry.PublisherConfig{
		Sampler:    sampler,
		Shared:     shared,
		StatusPath: r.paths.Status,
		Width:      cfg.Width,
		Height:     cfg.Height,
		Source:     r.s.label,
		PIDs:       r.s.PIDs,
		Live:       r.s.Live,
		OnPublish:  r.onPublish,
	})
	if r.s.opts.PublishInterval > 0 {
		publisher.SetInterval(r.s.opts.PublishInterval)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		publisher.Run(ctx)
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}

func (r *run) onPublish(st telemetry.Status) {
	r.s.setLatest(st)
	if r.s.opts.Bus == nil {
		return
	}
	r.s.opts.Bus.Publish(events.TelemetryEvent{
		Source:     r.s.label,
		FPS:        st.FPS,
		Resolution: fmt.Sprintf("%dx%d", st.Width, st.Height),
		Bitrate:    st.Bitrate,
		CPUPercent: st.CPUPercent,
		MemoryMB:   st.MemoryMB,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
}

// stop terminates child if its pid has not already been claimed by
// Interrupt, then waits for it with the graceful timeout.
func (r *run) stop(child *process.Child, pid *atomic.Int64) int {
	if child == nil {
		return -1
	}
	var code int
	if pid.Swap(0) > 0 {
		code = child.Stop(syscall.SIGTERM)
	} else {
		code = child.WaitTimeout(r.s.opts.GracefulTimeout)
	}
	if err := child.Err(); err != nil {
		r.s.logger.Debug("Process exited with error", "name", child.Name(), "exit_code", code, "error", err)
	}
	return code
}

func (r *run) closeLogPipe() {
	r.closeLog.Do(func() {
		if r.logRead != nil {
			r.logRead.Close()
		}
	})
}

// zeroProcs reports no usage when /proc cannot be opened.
type zeroProcs struct{}

func (zeroProcs) SystemCPU() (float64, error)     { return 0, os.ErrNotExist }
func (zeroProcs) ProcessCPU(int) (float64, error) { return 0, os.ErrNotExist }
func (zeroProcs) ProcessRSS(int) (uint64, error)  { return 0, os.ErrNotExist }
