package telemetry

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smazurov/picambench/internal/metrics"
)

func TestPublishOnce(t *testing.T) {
	dir := t.TempDir()
	statusPath := filepath.Join(dir, "stats.txt")

	src := &fakeProc{
		system: []float64{100, 104},
		cpu:    map[int][]float64{10: {1, 2}},
		rss:    map[int]uint64{10: 16 * bytesPerMB},
	}
	shared := &Shared{}
	shared.ApplyProgress("frame=60 fps=30 bitrate=750.0kbits/s")

	var published []Status
	p := NewPublisher(PublisherConfig{
		Sampler:    newTestSampler(src),
		Shared:     shared,
		StatusPath: statusPath,
		Width:      1280,
		Height:     720,
		Source:     "test-publish-once",
		PIDs:       pidList(10),
		OnPublish:  func(s Status) { published = append(published, s) },
	})
	defer metrics.DeletePipelineMetrics("test-publish-once")

	status, err := p.PublishOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	want := Status{FPS: 30, Width: 1280, Height: 720, Bitrate: "750.0kbits/s", CPUPercent: 25, MemoryMB: 16}
	if status != want {
		t.Errorf("status = %+v, want %+v", status, want)
	}
	onDisk, err := ReadStatusFile(statusPath)
	if err != nil {
		t.Fatal(err)
	}
	if onDisk != want {
		t.Errorf("status file = %+v, want %+v", onDisk, want)
	}
	if len(published) != 1 {
		t.Errorf("OnPublish called %d times", len(published))
	}
	m := metrics.GetPipelineMetrics("test-publish-once")
	if m == nil || m.BitrateKbps != 750 || m.CPUPercent != 25 {
		t.Errorf("gauges not updated: %+v", m)
	}
}

func TestPublishWriteFailureIsNotFatal(t *testing.T) {
	src := &fakeProc{system: []float64{0, 1}, cpu: map[int][]float64{}}
	p := NewPublisher(PublisherConfig{
		Sampler:    newTestSampler(src),
		Shared:     &Shared{},
		StatusPath: filepath.Join(t.TempDir(), "missing", "stats.txt"),
		Width:      640,
		Height:     480,
		Source:     "test-write-failure",
		PIDs:       pidList(),
	})
	defer metrics.DeletePipelineMetrics("test-write-failure")

	if _, err := p.PublishOnce(context.Background()); err != nil {
		t.Errorf("PublishOnce() error = %v, want nil", err)
	}
}

func TestPublisherRunStopsWhenNotLive(t *testing.T) {
	src := &fakeProc{system: []float64{0, 1}, cpu: map[int][]float64{}}
	var live atomic.Bool
	live.Store(true)

	var mu sync.Mutex
	count := 0
	p := NewPublisher(PublisherConfig{
		Sampler:    newTestSampler(src),
		Shared:     &Shared{},
		StatusPath: filepath.Join(t.TempDir(), "stats.txt"),
		Width:      640,
		Height:     480,
		Source:     "test-run",
		PIDs:       pidList(),
		Live:       live.Load,
		OnPublish: func(Status) {
			mu.Lock()
			count++
			mu.Unlock()
		},
	})
	p.SetInterval(20 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()

	time.Sleep(150 * time.Millisecond)
	live.Store(false)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher ignored liveness flag")
	}

	mu.Lock()
	defer mu.Unlock()
	if count < 2 {
		t.Errorf("expected several publishes, got %d", count)
	}
	if metrics.GetPipelineMetrics("test-run") != nil {
		t.Error("metrics not cleared after run")
	}
}
