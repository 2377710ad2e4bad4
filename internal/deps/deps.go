// Package deps validates descriptor dependency maps against the running
// platform version and the package registry.
package deps

import (
	"fmt"
	"sort"
	"strings"

	"github.com/TrueSelph/jvcli/internal/version"
)

// Lookup reports whether the registry can satisfy name at the given
// specifier. Implementations suppress transport errors and answer found or
// not found.
type Lookup func(name, specifier string) bool

// Error aggregates every dependency the registry could not satisfy.
type Error struct {
	Missing []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("dependencies not found in registry: [%s]", strings.Join(e.Missing, ", "))
}

// Validate checks a descriptor dependency map. The "jivas" entry is a
// specifier checked against the platform version this build tracks. The
// "actions" and "pip" entries hold nested name-to-specifier maps resolved
// through lookup; a plain string under "pip" is left to the platform's own
// installer. Any other top-level key fails immediately as an unknown
// dependency type. All resolution failures across the map are collected
// into a single *Error. An empty map validates.
//
// lookup must be non-nil whenever the map contains grouped entries.
func Validate(dependencies map[string]any, lookup Lookup) error {
	if len(dependencies) == 0 {
		return nil
	}

	keys := make([]string, 0, len(dependencies))
	for k := range dependencies {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var missing []string
	for _, key := range keys {
		value := dependencies[key]
		switch key {
		case "jivas":
			spec := fmt.Sprint(value)
			if !version.Satisfies(version.Current, spec) {
				missing = append(missing, "jivas "+spec)
			}
		case "actions":
			nested, ok := value.(map[string]any)
			if !ok || !groupSatisfied(nested, lookup) {
				missing = append(missing, fmt.Sprintf("%s %v", key, value))
			}
		case "pip":
			nested, ok := value.(map[string]any)
			if !ok {
				// plain pip constraints are installed by the platform itself
				continue
			}
			if !groupSatisfied(nested, lookup) {
				missing = append(missing, fmt.Sprintf("%s %v", key, value))
			}
		default:
			return fmt.Errorf("unknown dependency type: %s", key)
		}
	}

	if len(missing) > 0 {
		return &Error{Missing: missing}
	}
	return nil
}

// groupSatisfied resolves every entry in a dependency group, in name order,
// and reports whether all of them were found. The whole group is resolved
// even after a miss so callers see every failure in one pass.
func groupSatisfied(entries map[string]any, lookup Lookup) bool {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	ok := true
	for _, name := range names {
		if !lookup(name, fmt.Sprint(entries[name])) {
			ok = false
		}
	}
	return ok
}
