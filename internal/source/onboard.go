package source

import (
	"bufio"
	"context"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

// Onboard capture helpers in preference order.
var onboardHelpers = []string{"rpicam-vid", "libcamera-vid"}

// ListTimeout bounds the helper's --list-cameras invocation.
const ListTimeout = 10 * time.Second

var cameraEntry = regexp.MustCompile(`^\s*\d+\s*:`)

// Runner executes a helper and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// LookPathFunc resolves a binary on PATH.
type LookPathFunc func(file string) (string, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// FindOnboardHelper returns the first onboard capture helper on PATH.
func FindOnboardHelper(lookPath LookPathFunc) (string, bool) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	for _, name := range onboardHelpers {
		if _, err := lookPath(name); err == nil {
			return name, true
		}
	}
	return "", false
}

// ParseCameraListing reports whether a --list-cameras report names at least
// one sensor that is not a USB camera surfaced through libcamera.
// Unrecognised text yields false.
func ParseCameraListing(output string) bool {
	if !strings.Contains(output, "Available cameras") {
		return false
	}
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		line := sc.Text()
		if !cameraEntry.MatchString(line) {
			continue
		}
		if !strings.Contains(line, "usb@") {
			return true
		}
	}
	return false
}

// OnboardChecker decides whether an onboard sensor is present.
type OnboardChecker struct {
	LookPath LookPathFunc
	Run      Runner
	Timeout  time.Duration
}

// Available runs the helper's camera listing. Any failure means the sensor
// is treated as absent.
func (c OnboardChecker) Available(ctx context.Context) (helper string, ok bool) {
	helper, found := FindOnboardHelper(c.LookPath)
	if !found {
		return "", false
	}

	run := c.Run
	if run == nil {
		run = execRunner
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = ListTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := run(ctx, helper, "--list-cameras")
	if err != nil {
		return helper, false
	}
	return helper, ParseCameraListing(string(out))
}
