// Package version reports the swarm release and build details.
package version

import (
	_ "embed"
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

//go:embed VERSION
var versionContent string

// Get returns the release version from the embedded VERSION file.
func Get() string {
	return strings.TrimSpace(versionContent)
}

// Commit returns the VCS revision the binary was built from, shortened to
// 12 characters, or "" when the build carries no VCS stamp.
func Commit() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return ""
}

// Long returns the version with commit and platform, for `swarm version`.
func Long() string {
	v := Get()
	if c := Commit(); c != "" {
		v += " (" + c + ")"
	}
	return fmt.Sprintf("%s %s %s/%s", v, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
