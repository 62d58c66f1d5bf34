package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/smazurov/picambench/internal/devices"
	"github.com/smazurov/picambench/internal/source"
)

// CreateListCamerasCmd creates the list-cameras command.
func CreateListCamerasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-cameras",
		Short: "List usable cameras",
		Long:  `Reports whether an onboard (CSI) camera is available and every USB capture device with the formats it delivers.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			helper, ok := source.OnboardChecker{Timeout: source.ListTimeout}.Available(ctx)
			writeCameraList(os.Stdout, helper, ok, devices.NewProber().ScanAll())
		},
	}
}

func writeCameraList(w io.Writer, helper string, onboard bool, devs []devices.CaptureDevice) {
	if onboard {
		fmt.Fprintf(w, "CSI available: yes (%s)\n", helper)
	} else {
		fmt.Fprintln(w, "CSI available: no")
	}

	if len(devs) == 0 {
		fmt.Fprintln(w, "USB capture: none")
		return
	}
	for _, d := range devs {
		formats := d.Formats.String()
		if formats == "" {
			formats = "none"
		}
		fmt.Fprintf(w, "USB capture: %s %q (formats: %s)\n", d.DevicePath, d.Card, formats)
	}
}
