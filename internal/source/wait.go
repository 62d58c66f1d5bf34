package source

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/smazurov/picambench/internal/pipeline"
)

// settleDelay lets udev finish creating and permissioning a new node
// before it is probed.
const settleDelay = 500 * time.Millisecond

// SelectWithWait retries an auto selection whenever a video node appears in
// devDir, until timeout elapses. A timeout of zero selects once.
func (s *Selector) SelectWithWait(ctx context.Context, devDir string, timeout time.Duration) (Resolved, error) {
	res, err := s.Select(ctx, pipeline.SourceAuto, "")
	if err == nil || timeout <= 0 || !errors.Is(err, ErrNoCameraFound) {
		return res, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return Resolved{}, fmt.Errorf("create device watcher: %w", err)
	}
	defer watcher.Close()

	if addErr := watcher.Add(devDir); addErr != nil {
		return Resolved{}, fmt.Errorf("watch %s: %w", devDir, addErr)
	}

	s.logger.Info("Waiting for camera", "dir", devDir, "timeout", timeout)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var settle *time.Timer
	var settleC <-chan time.Time
	defer func() {
		if settle != nil {
			settle.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return Resolved{}, ErrNoCameraFound

		case event, ok := <-watcher.Events:
			if !ok {
				return Resolved{}, ErrNoCameraFound
			}
			if event.Op&fsnotify.Create == 0 || !strings.HasPrefix(filepath.Base(event.Name), "video") {
				continue
			}
			s.logger.Debug("Video node appeared", "path", event.Name)
			if settle != nil {
				settle.Stop()
			}
			settle = time.NewTimer(settleDelay)
			settleC = settle.C

		case <-settleC:
			settleC = nil
			if res, err := s.Select(ctx, pipeline.SourceAuto, ""); err == nil {
				return res, nil
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return Resolved{}, ErrNoCameraFound
			}
			s.logger.Warn("Device watcher error", "error", err)
		}
	}
}
