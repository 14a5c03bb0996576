// Package version is used by the release process to add an
// informative version string to some commands.
package version

import (
	"fmt"
	"runtime"
	"time"
)

// These strings will be overwritten via -ldflags during the release process
var (
	BuildTime = ""
	GitSHA    = ""
	SemVer    = "devel"
)

const shortSHALen = 8

// Short returns the version and the abbreviated git hash, e.g. "v1.2.0-1a2b3c4d"
func Short() string {
	if GitSHA == "" {
		return SemVer
	}
	sha := GitSHA
	if len(sha) > shortSHALen {
		sha = sha[:shortSHALen]
	}
	return SemVer + "-" + sha
}

// Version returns a newline-terminated string describing the current
// version of the build.
func Version() string {
	if GitSHA == "" {
		return fmt.Sprintf("%s (%s)\n", SemVer, runtime.Version())
	}

	buildTime := BuildTime
	if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
		buildTime = t.In(time.UTC).Format(time.Stamp + " 2006 UTC")
	}

	str := fmt.Sprintf(`    Version:        %s
    Build time:     %s
    Git hash:       %s
    Go versions:    %s
`, SemVer,
		buildTime,
		GitSHA,
		runtime.Version(),
	)
	return str
}
