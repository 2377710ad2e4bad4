// Package version implements semantic version parsing and the specifier
// matching rules used by package descriptors.
package version

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Current is the jvcli release version. Releases track the JIVAS platform
// version they are built against, so this is also the value checked against
// a descriptor's pinned "jivas" dependency.
const Current = "2.1.0"

// SupportedJivasVersions lists the platform versions scaffolded packages may
// declare in their descriptor.
var SupportedJivasVersions = []string{"2.0.0", "2.1.0"}

// Version is a parsed semantic version.
type Version struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string // without the leading hyphen, empty if none

	canonical string // semver canonical form with "v" prefix
}

// Parse parses a semantic version string. Missing minor or patch components
// default to zero, so "1.2" parses as 1.2.0. Build metadata is dropped.
func Parse(s string) (Version, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Version{}, fmt.Errorf("empty version")
	}
	v := raw
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return Version{}, fmt.Errorf("invalid version %q", raw)
	}
	canon := semver.Canonical(v)

	core := strings.TrimPrefix(canon, "v")
	if i := strings.IndexAny(core, "-+"); i >= 0 {
		core = core[:i]
	}
	parts := strings.Split(core, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("invalid version %q", raw)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: %w", raw, err)
		}
		nums[i] = n
	}

	return Version{
		Major:      nums[0],
		Minor:      nums[1],
		Patch:      nums[2],
		Prerelease: strings.TrimPrefix(semver.Prerelease(canon), "-"),
		canonical:  canon,
	}, nil
}

// MustParse is Parse for trusted constants. It panics on invalid input.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version without a "v" prefix, e.g. "1.2.3-beta".
func (v Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	return s
}

// Compare returns -1, 0 or +1 depending on whether v is less than, equal to
// or greater than o under semantic version precedence.
func (v Version) Compare(o Version) int {
	return semver.Compare(v.canonical, o.canonical)
}

// IsPrerelease reports whether the version carries a prerelease tag.
func (v Version) IsPrerelease() bool {
	return v.Prerelease != ""
}
