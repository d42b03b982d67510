// Package version models release versions as major.minor.patch triples.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is a parsed major.minor.patch triple. Pre-release and build
// metadata are not modeled; releases of the tool never carry them.
type Version struct {
	Major int
	Minor int
	Patch int
}

var versionRE = regexp.MustCompile(`^v?(\d+)(?:\.(\d+))?(?:\.(\d+))?$`)

// Parse parses a version string with an optional "v" prefix. Missing minor
// and patch components default to zero.
func Parse(s string) (Version, error) {
	m := versionRE.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}

	var v Version
	var err error
	if v.Major, err = strconv.Atoi(m[1]); err != nil {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	if m[2] != "" {
		if v.Minor, err = strconv.Atoi(m[2]); err != nil {
			return Version{}, fmt.Errorf("invalid version %q", s)
		}
	}
	if m[3] != "" {
		if v.Patch, err = strconv.Atoi(m[3]); err != nil {
			return Version{}, fmt.Errorf("invalid version %q", s)
		}
	}
	return v, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// canonical returns the tagged form understood by the semver package.
func (v Version) canonical() string { return "v" + v.String() }

// Less reports whether a precedes b. Comparison is field-wise over
// (major, minor, patch); equal versions are not less.
func Less(a, b Version) bool {
	return semver.Compare(a.canonical(), b.canonical()) < 0
}
