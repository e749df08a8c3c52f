// Package version holds build metadata of the digitalcc binary.
package version

import "fmt"

// Set with -ldflags "-X github.com/coloradocollege/digitalcc/internal/version.Version=...".
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String formats the build metadata for the version command and logs.
func String() string {
	return fmt.Sprintf("digitalcc %s (commit %s, built %s)", Version, Commit, Date)
}
