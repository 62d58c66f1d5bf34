package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/spf13/cobra"
)

// helperBinaries are the external programs a run may need.
var helperBinaries = []string{"ffmpeg", "rpicam-vid", "libcamera-vid"}

// HostReport describes the machine a benchmark runs on.
type HostReport struct {
	Platform      string
	Kernel        string
	Arch          string
	CPUModel      string
	LogicalCPUs   int
	MemoryTotalMB float64
	Helpers       map[string]string // binary -> resolved path, "" when missing
}

// CreateInfoCmd creates the info command.
func CreateInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show host platform and helper availability",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			writeHostReport(os.Stdout, collectHostReport(exec.LookPath))
		},
	}
}

// collectHostReport gathers what it can; unreadable fields stay empty.
func collectHostReport(lookPath func(string) (string, error)) HostReport {
	var r HostReport

	if hi, err := host.Info(); err == nil {
		r.Platform = fmt.Sprintf("%s %s", hi.Platform, hi.PlatformVersion)
		r.Kernel = hi.KernelVersion
		r.Arch = hi.KernelArch
	}
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		r.CPUModel = infos[0].ModelName
	}
	if n, err := cpu.Counts(true); err == nil {
		r.LogicalCPUs = n
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		r.MemoryTotalMB = float64(vm.Total) / (1024 * 1024)
	}

	r.Helpers = make(map[string]string, len(helperBinaries))
	for _, name := range helperBinaries {
		path, err := lookPath(name)
		if err != nil {
			path = ""
		}
		r.Helpers[name] = path
	}
	return r
}

func writeHostReport(w io.Writer, r HostReport) {
	fmt.Fprintf(w, "Platform: %s\n", orUnknown(r.Platform))
	fmt.Fprintf(w, "Kernel:   %s (%s)\n", orUnknown(r.Kernel), orUnknown(r.Arch))
	fmt.Fprintf(w, "CPU:      %s x%d\n", orUnknown(r.CPUModel), r.LogicalCPUs)
	fmt.Fprintf(w, "Memory:   %.0f MB\n", r.MemoryTotalMB)
	for _, name := range helperBinaries {
		path := r.Helpers[name]
		if path == "" {
			path = "not found"
		}
		fmt.Fprintf(w, "%-14s %s\n", name+":", path)
	}
}

// logHostSummary records the host at the start of a run so benchmark logs
// can be compared across machines.
func logHostSummary(logger *slog.Logger) {
	r := collectHostReport(exec.LookPath)
	logger.Info("Host",
		"platform", r.Platform,
		"kernel", r.Kernel,
		"arch", r.Arch,
		"cpu", r.CPUModel,
		"cpus", r.LogicalCPUs,
		"memory_mb", int(r.MemoryTotalMB))
}

func orUnknown(s string) string {
	if s == "" || s == " " {
		return "unknown"
	}
	return s
}
