package telemetry

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func TestLogReaderUpdatesShared(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	var shared Shared
	var live atomic.Bool
	live.Store(true)

	done := make(chan struct{})
	go func() {
		NewLogReader(r, &shared, live.Load, nil).Run(context.Background())
		close(done)
	}()

	if _, err := w.WriteString("frame=   10 fps= 25 q=-0.0 size=N/A time=00:00:00.40 bitrate=N/A speed=1x\r"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return shared.Snapshot().FPS == 25 })

	if _, err := w.WriteString("frame=   20 fps=24.5 q=-0.0 size=N/A time=00:00:00.80 bitrate= 512.0kbits/s speed=1x\r"); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return shared.Snapshot().Bitrate == "512.0kbits/s" })

	if got := shared.Snapshot().FPS; got != 24.5 {
		t.Errorf("FPS = %v, want 24.5", got)
	}

	w.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("log reader did not stop at EOF")
	}
}

func TestLogReaderStopsWhenNotLive(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	var live atomic.Bool
	live.Store(true)

	done := make(chan struct{})
	go func() {
		NewLogReader(r, &Shared{}, live.Load, nil).Run(context.Background())
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	live.Store(false)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("log reader ignored liveness flag")
	}
}

func TestLogReaderStopsOnCancel(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewLogReader(r, &Shared{}, nil, nil).Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("log reader ignored cancellation")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
