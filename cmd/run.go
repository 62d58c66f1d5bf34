package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"

	"github.com/smazurov/picambench/internal/api"
	"github.com/smazurov/picambench/internal/devices"
	"github.com/smazurov/picambench/internal/events"
	"github.com/smazurov/picambench/internal/ffmpeg"
	"github.com/smazurov/picambench/internal/logging"
	"github.com/smazurov/picambench/internal/metrics/exporters"
	"github.com/smazurov/picambench/internal/pipeline"
	"github.com/smazurov/picambench/internal/session"
	"github.com/smazurov/picambench/internal/source"
)

// ExitSetupFailure is returned when the pipeline could not be started.
const ExitSetupFailure = 1

// RunBenchmarkCmd adapts RunBenchmark to a cobra Run func. The process
// exits with the code RunBenchmark returns.
func RunBenchmarkCmd() func(*cobra.Command, []string) {
	return humacli.WithOptions(func(cmd *cobra.Command, _ []string, opts *Options) {
		os.Exit(RunBenchmark(cmd.Context(), opts))
	})
}

// CreateRunCmd creates the run command. The root command runs the same
// benchmark when invoked without a subcommand.
func CreateRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the camera-to-display benchmark",
		Long: `Selects a camera, starts the capture producer and the display consumer, ` +
			`and overlays live FPS, bitrate, CPU and memory figures until either process exits ` +
			`or the run is interrupted.`,
		Args: cobra.NoArgs,
		Run:  RunBenchmarkCmd(),
	}
}

// RunBenchmark runs one session and returns the process exit code: the
// code of the child that ended the run, 0 when interrupted, or
// ExitSetupFailure.
func RunBenchmark(ctx context.Context, opts *Options) int {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := logging.GetLogger("main")

	cfg, err := opts.PipelineConfig()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		return ExitSetupFailure
	}
	wait, graceful, err := opts.Durations()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		return ExitSetupFailure
	}

	logHostSummary(logger)

	selector := source.NewSelector(devices.NewProber(), source.OnboardChecker{Timeout: source.ListTimeout})
	var src source.Resolved
	if cfg.Source == pipeline.SourceAuto && wait > 0 {
		src, err = selector.SelectWithWait(ctx, "/dev", wait)
	} else {
		src, err = selector.Select(ctx, cfg.Source, cfg.DevicePath)
	}
	if err != nil {
		logger.Error("No usable capture source", "error", err)
		return ExitSetupFailure
	}
	logger.Info("Capture source selected", "source", src.Describe())

	bus := events.New()
	builder := ffmpeg.Builder{}
	sess := session.New(session.Options{
		Config: cfg,
		Source: src,
		Build: func(paths ffmpeg.Paths) (ffmpeg.Pipeline, error) {
			pl, err := builder.Build(cfg, src, paths)
			if err == nil {
				logger.Info("Pipeline resolved",
					"encoder", pl.Encoder,
					"input_format", pl.InputFormat,
					"overlay", cfg.Overlay)
			}
			return pl, err
		},
		WorkDir:         opts.WorkDir,
		Bus:             bus,
		GracefulTimeout: graceful,
	})

	if opts.Listen != "" {
		stopAPI, err := startStatusAPI(opts, cfg, sess, bus, logger)
		if err != nil {
			logger.Error("Failed to start status API", "addr", opts.Listen, "error", err)
			return ExitSetupFailure
		}
		defer stopAPI()
	}

	stopNotify := notifySystemd(bus, logger)
	defer stopNotify()

	unsubTelemetry := bus.Subscribe(func(e events.TelemetryEvent) {
		logger.Debug("Telemetry",
			"fps", e.FPS,
			"bitrate", e.Bitrate,
			"cpu_percent", e.CPUPercent,
			"memory_mb", e.MemoryMB)
	})
	defer unsubTelemetry()

	stopSignals := sess.HandleSignals()
	defer stopSignals()

	res, err := sess.Run(ctx)
	if err != nil {
		if errors.Is(err, session.ErrInterrupted) {
			logger.Info("Interrupted before the pipeline started")
			return 0
		}
		logger.Error("Session setup failed", "error", err)
		return ExitSetupFailure
	}

	code := res.ExitCode()
	logger.Info("Benchmark finished", "ended_by", res.EndedBy, "exit_code", code)
	return code
}

func startStatusAPI(opts *Options, cfg pipeline.Config, sess *session.Session, bus *events.Bus, logger *slog.Logger) (func(), error) {
	server := api.NewServer(&api.Options{
		AuthUsername:      opts.AuthUsername,
		AuthPassword:      opts.AuthPassword,
		Session:           sess,
		Config:            cfg,
		EventBus:          bus,
		PrometheusHandler: exporters.HTTPHandler(),
	})
	ln, err := server.Listen(opts.Listen)
	if err != nil {
		return nil, err
	}

	logging.SetLogCallback(func(entry logging.LogEntry) {
		bus.Publish(api.LogEvent(entry))
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := server.Serve(ln); err != nil {
			logger.Error("Status API stopped", "error", err)
		}
	}()

	return func() {
		logging.SetLogCallback(nil)
		if err := server.Stop(); err != nil {
			logger.Warn("Error stopping status API", "error", err)
		}
		<-done
	}, nil
}
