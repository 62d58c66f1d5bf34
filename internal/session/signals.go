package session

import (
	"os"
	"os/signal"
	"syscall"
)

// HandleSignals routes SIGINT and SIGTERM to Interrupt until the returned
// stop func is called.
func (s *Session) HandleSignals() (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case sig := <-sigCh:
				s.logger.Info("Received signal, shutting down", "signal", sig)
				s.Interrupt()
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}
