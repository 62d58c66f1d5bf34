package main

import (
	"log/slog"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/smazurov/picambench/cmd"
	"github.com/smazurov/picambench/internal/config"
	"github.com/smazurov/picambench/internal/logging"
)

func main() {
	var cli humacli.CLI
	cli = humacli.New(func(hooks humacli.Hooks, opts *cmd.Options) {
		// CLI flags > env > TOML file
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Error("Failed to load config", "error", loadErr)
			os.Exit(cmd.ExitSetupFailure)
		}

		logging.Initialize(opts.LoggingConfig())
	})

	root := cli.Root()
	root.Use = "picambench"
	root.Short = "Camera-to-display pipeline benchmark"
	root.Long = `picambench previews an onboard or USB camera through ffmpeg with a live ` +
		`FPS, bitrate, CPU and memory overlay. Without a subcommand it runs the benchmark.`
	root.Run = cmd.RunBenchmarkCmd()

	root.AddCommand(cmd.CreateRunCmd())
	root.AddCommand(cmd.CreateListCamerasCmd())
	root.AddCommand(cmd.CreateInfoCmd())
	root.AddCommand(cmd.CreateTopCmd())
	root.AddCommand(cmd.CreateVersionCmd())

	cli.Run()
}
