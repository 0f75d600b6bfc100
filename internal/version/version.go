package version

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is the service version.
// Set at build time with -ldflags "-X github.com/Drgblack/timemeaning/internal/version.Version=x.y.z".
var Version = "0.3.0"

// DevVersion is the service version of development.
var DevVersion = "0.3.0"

func GetCurrentVersion(mode string) string {
	if mode == "dev" || mode == "demo" {
		return DevVersion
	}
	return Version
}

// GetMinorVersion extracts the minor version (e.g., "0.3") from a full version string (e.g., "0.3.1").
func GetMinorVersion(version string) string {
	versionList := strings.Split(version, ".")
	if len(versionList) < 2 {
		return ""
	}
	return versionList[0] + "." + versionList[1]
}

// canonical prefixes the "v" semver requires.
func canonical(version string) string {
	if strings.HasPrefix(version, "v") {
		return version
	}
	return "v" + version
}

// IsValid reports whether version is a semantic version, with or without the leading "v".
func IsValid(version string) bool {
	return semver.IsValid(canonical(version))
}

// IsVersionGreaterOrEqualThan checks if the version is greater or equal than the target.
func IsVersionGreaterOrEqualThan(version, target string) bool {
	return semver.Compare(canonical(version), canonical(target)) > -1
}

// IsVersionGreaterThan checks if the version is greater than the target.
func IsVersionGreaterThan(version, target string) bool {
	return semver.Compare(canonical(version), canonical(target)) > 0
}

// Describe renders the service and table versions for logs and the CLI.
func Describe(mode, tableVersion, ghostVersion string) string {
	return fmt.Sprintf("timemeaning %s (abbreviations %s, ghost rules %s)", GetCurrentVersion(mode), tableVersion, ghostVersion)
}

type SortVersion []string

func (s SortVersion) Len() int {
	return len(s)
}

func (s SortVersion) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

func (s SortVersion) Less(i, j int) bool {
	return semver.Compare(canonical(s[i]), canonical(s[j])) == -1
}
