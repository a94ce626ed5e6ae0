// Package config resolves the one environment-driven toggle this subsystem
// reads: which backend Scope should use. Kept as a narrow, local helper
// rather than routed through a global config object, since one flag
// doesn't warrant a config file of its own.
package config

import (
	"os"
	"strconv"
	"strings"
)

// EnvUseLongestPathGraph is the environment variable that selects the
// longest-path backend when truthy.
const EnvUseLongestPathGraph = "BUCK2_USE_LONGEST_PATH_GRAPH"

// UseLongestPathGraph reports whether BUCK2_USE_LONGEST_PATH_GRAPH is set to
// a recognized truthy value ("true" or "1", case-insensitive, or any other
// spelling strconv.ParseBool accepts as true, such as "t"). It also
// returns whether the variable was present but unparseable, so the caller
// can log a warning without failing the build: an absent or unparseable
// value falls back to the default backend.
func UseLongestPathGraph() (use bool, present bool, parseable bool) {
	raw, present := os.LookupEnv(EnvUseLongestPathGraph)
	if !present {
		return false, false, true
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1":
		return true, true, true
	case "false", "0":
		return false, true, true
	default:
		// Fall back to strconv for any other boolean spelling Go itself
		// would accept (e.g. "t"/"f"), before giving up.
		if b, err := strconv.ParseBool(raw); err == nil {
			return b, true, true
		}
		return false, true, false
	}
}
