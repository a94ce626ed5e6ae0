// Package metadata collects a handful of ambient environment facts to stamp
// onto the final build report, mirroring the provenance metadata a build
// system attaches to its event stream.
package metadata

import (
	"os"
	"runtime"
	"strconv"
	"time"
)

var processStart = time.Now()

// Collect gathers hostname, Go runtime version, and process start time into
// a flat string map suitable for the wire report's Metadata field.
func Collect() map[string]string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return map[string]string{
		"hostname":      host,
		"go_version":    runtime.Version(),
		"process_start": strconv.FormatInt(processStart.Unix(), 10),
	}
}
