package cmd

import (
	"fmt"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
	"github.com/spf13/cobra"

	"github.com/smazurov/picambench/internal/telemetry"
)

const (
	topRefresh    = 500 * time.Millisecond
	topHistoryLen = 120
)

// CreateTopCmd creates the top command.
func CreateTopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "top STATUS_FILE",
		Short: "Watch a running benchmark's status file in the terminal",
		Long: `Re-reads the status file written by a running benchmark every 500 ms and shows ` +
			`the current values with FPS and CPU history. Press q to quit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runTop(args[0])
		},
	}
}

func runTop(path string) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("failed to init termui: %w", err)
	}
	defer ui.Close()

	table := widgets.NewTable()
	table.Title = " " + path + " "
	table.RowSeparator = false
	table.TextStyle = ui.NewStyle(ui.ColorWhite)
	table.BorderStyle.Fg = ui.ColorGreen

	fpsLine := widgets.NewSparkline()
	fpsLine.LineColor = ui.ColorGreen
	fpsGroup := widgets.NewSparklineGroup(fpsLine)
	fpsGroup.Title = " FPS "

	cpuLine := widgets.NewSparkline()
	cpuLine.LineColor = ui.ColorYellow
	cpuGroup := widgets.NewSparklineGroup(cpuLine)
	cpuGroup.Title = " CPU % "

	grid := ui.NewGrid()
	w, h := ui.TerminalDimensions()
	grid.SetRect(0, 0, w, h)
	grid.Set(
		ui.NewRow(0.4, ui.NewCol(1.0, table)),
		ui.NewRow(0.3, ui.NewCol(1.0, fpsGroup)),
		ui.NewRow(0.3, ui.NewCol(1.0, cpuGroup)),
	)

	var fpsHistory, cpuHistory []float64
	refresh := func() {
		st, err := telemetry.ReadStatusFile(path)
		table.Rows = statusRows(st, err)
		if err == nil {
			fpsHistory = pushHistory(fpsHistory, st.FPS, topHistoryLen)
			cpuHistory = pushHistory(cpuHistory, st.CPUPercent, topHistoryLen)
			fpsLine.Data = fpsHistory
			cpuLine.Data = cpuHistory
			fpsGroup.Title = fmt.Sprintf(" FPS %.1f ", st.FPS)
			cpuGroup.Title = fmt.Sprintf(" CPU %.1f%% ", st.CPUPercent)
		}
		ui.Render(grid)
	}
	refresh()

	uiEvents := ui.PollEvents()
	ticker := time.NewTicker(topRefresh)
	defer ticker.Stop()

	for {
		select {
		case e := <-uiEvents:
			if e.Type == ui.KeyboardEvent && (e.ID == "q" || e.ID == "<C-c>") {
				return nil
			}
			if e.Type == ui.ResizeEvent {
				payload := e.Payload.(ui.Resize)
				grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				ui.Render(grid)
			}
		case <-ticker.C:
			refresh()
		}
	}
}

// statusRows renders a status sample, or the read error, as table rows.
func statusRows(st telemetry.Status, err error) [][]string {
	if err != nil {
		return [][]string{{"status", "unavailable"}, {"error", err.Error()}}
	}
	return [][]string{
		{"FPS", fmt.Sprintf("%.1f", st.FPS)},
		{"RES", fmt.Sprintf("%dx%d", st.Width, st.Height)},
		{"BitRate", st.Bitrate},
		{"CPU", fmt.Sprintf("%.1f%%", st.CPUPercent)},
		{"MEM_MB", fmt.Sprintf("%.1f", st.MemoryMB)},
	}
}

// pushHistory appends v, keeping at most limit newest values.
func pushHistory(history []float64, v float64, limit int) []float64 {
	history = append(history, v)
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	return history
}
