package version

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is the current released version.
// This value can be overridden at build time using ldflags:
//
//	go build -ldflags "-X github.com/hrygo/switchboard/internal/version.Version=0.4.0"
//
// Semantic versioning: https://semver.org/
var Version = "0.0.0-dev"

// GitCommit is the git commit hash at build time.
// Set via ldflags: -X github.com/hrygo/switchboard/internal/version.GitCommit=$(git rev-parse HEAD)
var GitCommit = "unknown"

// BuildTime is the build timestamp in RFC3339 format.
// Set via ldflags: -X github.com/hrygo/switchboard/internal/version.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)
var BuildTime = "unknown"

// Canonical returns v with a leading "v" as required by x/mod/semver.
func Canonical(v string) string {
	v = strings.TrimSpace(v)
	if v == "" || strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// IsVersionGreaterOrEqualThan returns true if version is greater than or equal to target.
// Invalid versions compare lower than any valid one.
func IsVersionGreaterOrEqualThan(version, target string) bool {
	return semver.Compare(Canonical(version), Canonical(target)) > -1
}

// CompatibleServer reports whether a backend server advertising serverVersion
// satisfies minVersion. Servers that report no parseable version are accepted
// since many MCP servers leave it unset.
func CompatibleServer(serverVersion, minVersion string) bool {
	if minVersion == "" || !semver.IsValid(Canonical(serverVersion)) {
		return true
	}
	return IsVersionGreaterOrEqualThan(serverVersion, minVersion)
}

// String returns the version string with optional commit hash.
func String() string {
	v := Version
	if GitCommit != "" && GitCommit != "unknown" {
		v = fmt.Sprintf("%s-%s", v, shortCommit())
	}
	return v
}

// StringFull returns the complete version information including build metadata.
func StringFull() string {
	parts := []string{fmt.Sprintf("Version=%s", Version)}
	if GitCommit != "" && GitCommit != "unknown" {
		parts = append(parts, fmt.Sprintf("Commit=%s", shortCommit()))
	}
	if BuildTime != "" && BuildTime != "unknown" {
		parts = append(parts, fmt.Sprintf("BuildTime=%s", BuildTime))
	}
	return strings.Join(parts, " ")
}

func shortCommit() string {
	if len(GitCommit) > 8 {
		return GitCommit[:8]
	}
	return GitCommit
}
