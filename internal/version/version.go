// Package version exposes build-time version information.
package version

var (
	// Version is overridden at build time via -ldflags.
	Version = "dev"

	// BuildTime is injected via -ldflags.
	BuildTime = ""

	// GitCommit is injected via -ldflags.
	GitCommit = ""
)

// GetVersion returns the full version string.
func GetVersion() string {
	v := "v" + Version
	if BuildTime != "" {
		v += " (built " + BuildTime + ")"
	}
	if GitCommit != "" {
		short := GitCommit
		if len(short) > 8 {
			short = short[:8]
		}
		v += " commit " + short
	}
	return v
}
