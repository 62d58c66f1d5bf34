package telemetry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/smazurov/picambench/internal/logging"
)

// ReadTimeout bounds each read of the consumer's stderr.
const ReadTimeout = 100 * time.Millisecond

// DeadlineReader is a reader whose reads can be bounded. *os.File pipes
// satisfy it.
type DeadlineReader interface {
	io.Reader
	SetReadDeadline(t time.Time) error
}

// LogReader feeds the consumer's diagnostic stream into the shared record.
type LogReader struct {
	src     DeadlineReader
	shared  *Shared
	live    func() bool
	onLine  func(line string)
	timeout time.Duration
	logger  *slog.Logger
}

// NewLogReader creates a reader over src. live is polled after every
// timed-out read; onLine, if set, sees every reassembled line.
func NewLogReader(src DeadlineReader, shared *Shared, live func() bool, onLine func(string)) *LogReader {
	return &LogReader{
		src:     src,
		shared:  shared,
		live:    live,
		onLine:  onLine,
		timeout: ReadTimeout,
		logger:  logging.GetLogger("telemetry"),
	}
}

// Run reads until ctx is done, the session is no longer live, or the
// stream ends. No read blocks longer than the read timeout.
func (r *LogReader) Run(ctx context.Context) {
	splitter := &LineSplitter{OnLine: func(line string) {
		r.shared.ApplyProgress(line)
		if r.onLine != nil {
			r.onLine(line)
		}
	}}
	defer splitter.Flush()

	buf := make([]byte, 4096)
	for {
		if ctx.Err() != nil || (r.live != nil && !r.live()) {
			return
		}
		if err := r.src.SetReadDeadline(time.Now().Add(r.timeout)); err != nil {
			r.logger.Warn("Read deadline unsupported, stopping log reader", "error", err)
			return
		}
		n, err := r.src.Read(buf)
		if n > 0 {
			_, _ = splitter.Write(buf[:n])
		}
		switch {
		case err == nil:
		case errors.Is(err, os.ErrDeadlineExceeded):
		case errors.Is(err, io.EOF), errors.Is(err, os.ErrClosed):
			return
		default:
			r.logger.Debug("Consumer log read failed", "error", err)
			return
		}
	}
}
