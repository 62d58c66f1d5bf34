package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/procfs"

	"github.com/smazurov/picambench/internal/logging"
)

// SampleWindow is the interval between the two CPU counter reads.
const SampleWindow = 250 * time.Millisecond

// bytesPerMB converts resident bytes to the reported megabytes.
const bytesPerMB = 1024 * 1024

// ProcSource reads process accounting. Times are in seconds.
type ProcSource interface {
	// SystemCPU returns the sum of user, nice, system, idle, iowait, irq
	// and softirq time across all CPUs.
	SystemCPU() (float64, error)
	// ProcessCPU returns utime+stime of pid.
	ProcessCPU(pid int) (float64, error)
	// ProcessRSS returns the resident set size of pid in bytes.
	ProcessRSS(pid int) (uint64, error)
}

// ProcFS reads accounting from a procfs mount.
type ProcFS struct {
	fs procfs.FS
}

// NewProcFS opens the procfs mount at mountPoint.
func NewProcFS(mountPoint string) (*ProcFS, error) {
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("open procfs %s: %w", mountPoint, err)
	}
	return &ProcFS{fs: fs}, nil
}

// SystemCPU implements ProcSource.
func (p *ProcFS) SystemCPU() (float64, error) {
	stat, err := p.fs.Stat()
	if err != nil {
		return 0, err
	}
	c := stat.CPUTotal
	return c.User + c.Nice + c.System + c.Idle + c.Iowait + c.IRQ + c.SoftIRQ, nil
}

// ProcessCPU implements ProcSource.
func (p *ProcFS) ProcessCPU(pid int) (float64, error) {
	proc, err := p.fs.Proc(pid)
	if err != nil {
		return 0, err
	}
	stat, err := proc.Stat()
	if err != nil {
		return 0, err
	}
	return stat.CPUTime(), nil
}

// ProcessRSS implements ProcSource.
func (p *ProcFS) ProcessRSS(pid int) (uint64, error) {
	proc, err := p.fs.Proc(pid)
	if err != nil {
		return 0, err
	}
	status, err := proc.NewStatus()
	if err != nil {
		return 0, err
	}
	return status.VmRSS, nil
}

// Usage is one CPU and memory measurement.
type Usage struct {
	CPUPercent float64
	MemoryMB   float64
}

// Sampler computes aggregate usage of a set of processes.
type Sampler struct {
	src    ProcSource
	window time.Duration
	logger *slog.Logger
}

// NewSampler creates a Sampler over src.
func NewSampler(src ProcSource) *Sampler {
	return &Sampler{
		src:    src,
		window: SampleWindow,
		logger: logging.GetLogger("telemetry"),
	}
}

// SetWindow overrides the CPU sample window.
func (s *Sampler) SetWindow(d time.Duration) {
	s.window = d
}

// Sample measures CPU over one window and resident memory at the end of it.
// pids is called at both ends of the window so a process that exits or is
// signalled mid-sample stops contributing. A pid of 0, or one whose
// accounting cannot be read at either end, contributes nothing.
// Only ctx cancellation returns an error.
func (s *Sampler) Sample(ctx context.Context, pids func() []int) (Usage, error) {
	sys0, sysErr0 := s.src.SystemCPU()
	before := s.processTimes(pids())

	timer := time.NewTimer(s.window)
	select {
	case <-ctx.Done():
		timer.Stop()
		return Usage{}, ctx.Err()
	case <-timer.C:
	}

	sys1, sysErr1 := s.src.SystemCPU()
	current := pids()
	after := s.processTimes(current)

	var u Usage
	if sysErr0 != nil || sysErr1 != nil {
		s.logger.Debug("System CPU counters unreadable", "error0", sysErr0, "error1", sysErr1)
	} else {
		var procDelta float64
		for pid, t1 := range after {
			if t0, ok := before[pid]; ok && t1 >= t0 {
				procDelta += t1 - t0
			}
		}
		u.CPUPercent = CPUPercent(procDelta, sys1-sys0)
	}

	var rss uint64
	for _, pid := range current {
		if pid <= 0 {
			continue
		}
		b, err := s.src.ProcessRSS(pid)
		if err != nil {
			s.logger.Debug("RSS unreadable", "pid", pid, "error", err)
			continue
		}
		rss += b
	}
	u.MemoryMB = float64(rss) / bytesPerMB
	return u, nil
}

func (s *Sampler) processTimes(pids []int) map[int]float64 {
	times := make(map[int]float64, len(pids))
	for _, pid := range pids {
		if pid <= 0 {
			continue
		}
		t, err := s.src.ProcessCPU(pid)
		if err != nil {
			s.logger.Debug("Process CPU time unreadable", "pid", pid, "error", err)
			continue
		}
		times[pid] = t
	}
	return times
}

// CPUPercent converts a process time delta into a percentage of the
// system-wide delta. A non-positive system delta yields 0.
func CPUPercent(procDelta, sysDelta float64) float64 {
	if sysDelta <= 0 {
		return 0
	}
	return 100 * procDelta / sysDelta
}
