package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/smazurov/picambench/internal/logging"
	"github.com/smazurov/picambench/internal/metrics"
)

// PublishInterval is the status file refresh cadence.
const PublishInterval = time.Second

// Publisher samples usage, merges it with the parsed progress values and
// rewrites the status file once per interval.
type Publisher struct {
	sampler    *Sampler
	shared     *Shared
	statusPath string
	width      int
	height     int
	source     string
	pids       func() []int
	live       func() bool
	onPublish  func(Status)
	interval   time.Duration
	logger     *slog.Logger
}

// PublisherConfig wires a Publisher.
type PublisherConfig struct {
	Sampler    *Sampler
	Shared     *Shared
	StatusPath string
	Width      int
	Height     int
	Source     string // metrics label
	PIDs       func() []int
	Live       func() bool
	OnPublish  func(Status)
}

// NewPublisher creates a Publisher.
func NewPublisher(cfg PublisherConfig) *Publisher {
	return &Publisher{
		sampler:    cfg.Sampler,
		shared:     cfg.Shared,
		statusPath: cfg.StatusPath,
		width:      cfg.Width,
		height:     cfg.Height,
		source:     cfg.Source,
		pids:       cfg.PIDs,
		live:       cfg.Live,
		onPublish:  cfg.OnPublish,
		interval:   PublishInterval,
		logger:     logging.GetLogger("telemetry"),
	}
}

// SetInterval overrides the publish cadence.
func (p *Publisher) SetInterval(d time.Duration) {
	p.interval = d
}

// Run publishes until ctx is done or the session is no longer live.
func (p *Publisher) Run(ctx context.Context) {
	defer metrics.DeletePipelineMetrics(p.source)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil || !p.isLive() {
			return
		}
		if _, err := p.PublishOnce(ctx); errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// PublishOnce runs one sample and publish cycle. Status file write failures
// are logged and do not stop publishing.
func (p *Publisher) PublishOnce(ctx context.Context) (Status, error) {
	usage, err := p.sampler.Sample(ctx, p.pids)
	if err != nil {
		return Status{}, err
	}
	if !p.isLive() {
		return Status{}, context.Canceled
	}
	p.shared.SetUsage(usage.CPUPercent, usage.MemoryMB)

	status := NewStatus(p.shared.Snapshot(), p.width, p.height)
	if err := WriteStatusFile(p.statusPath, status); err != nil {
		p.logger.Warn("Status write failed", "path", p.statusPath, "error", err)
	}

	metrics.SetPipelineMetrics(p.source, metrics.PipelineMetrics{
		FPS:         status.FPS,
		BitrateKbps: BitrateKbps(status.Bitrate),
		CPUPercent:  status.CPUPercent,
		MemoryMB:    status.MemoryMB,
	})
	if p.onPublish != nil {
		p.onPublish(status)
	}
	return status, nil
}

func (p *Publisher) isLive() bool {
	return p.live == nil || p.live()
}
