package buildinfo

import (
	"fmt"
	"runtime"
)

// Set at link time with -ldflags "-X .../internal/buildinfo.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func GoVersion() string {
	return runtime.Version()
}

func String() string {
	return fmt.Sprintf("backend %s (commit=%s, date=%s, %s)", Version, Commit, Date, GoVersion())
}
