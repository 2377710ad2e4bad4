package version

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

// Satisfies reports whether version satisfies specifier. The specifier is
// interpreted, in order, as: an exact version (structural equality including
// prerelease tag), a "~" shorthand (patch drift within the same minor), a "^"
// shorthand (drift within the leading nonzero component), or a
// comma-separated set of comparator clauses that must all hold.
//
// Malformed input of any kind yields false, never an error: descriptor
// authors get an incompatibility, not a crash.
func Satisfies(version, specifier string) bool {
	v, err := Parse(version)
	if err != nil {
		log.Debug("version check skipped", "version", version, "err", err)
		return false
	}

	spec := strings.TrimSpace(specifier)
	if spec == "" {
		log.Debug("version check skipped", "version", version, "err", "empty specifier")
		return false
	}

	if exact, err := Parse(spec); err == nil {
		return v.Compare(exact) == 0
	}

	set, err := rewriteShorthand(spec)
	if err != nil {
		log.Debug("version check skipped", "specifier", specifier, "err", err)
		return false
	}

	ok, err := matchSet(v, set)
	if err != nil {
		log.Debug("version check skipped", "specifier", specifier, "err", err)
		return false
	}
	return ok
}

// rewriteShorthand expands "~" and "^" prefixes into comparator sets and
// passes anything else through untouched.
func rewriteShorthand(spec string) (string, error) {
	switch {
	case strings.HasPrefix(spec, "~"):
		base, err := Parse(strings.TrimPrefix(spec, "~"))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(">=%s,<%d.%d.0", base, base.Major, base.Minor+1), nil

	case strings.HasPrefix(spec, "^"):
		base, err := Parse(strings.TrimPrefix(spec, "^"))
		if err != nil {
			return "", err
		}
		var upper string
		switch {
		case base.Major > 0:
			upper = fmt.Sprintf("%d.0.0", base.Major+1)
		case base.Minor > 0:
			upper = fmt.Sprintf("0.%d.0", base.Minor+1)
		default:
			upper = fmt.Sprintf("0.0.%d", base.Patch+1)
		}
		return fmt.Sprintf(">=%s,<%s", base, upper), nil
	}
	return spec, nil
}

// matchSet evaluates a comma-separated comparator set against v. Prerelease
// versions are only admitted when at least one clause bound names a
// prerelease itself; a set written purely in release terms never matches a
// prerelease candidate.
func matchSet(v Version, set string) (bool, error) {
	type clause struct {
		op    string
		bound Version
	}

	var clauses []clause
	allowPrerelease := false
	for _, raw := range strings.Split(set, ",") {
		s := strings.TrimSpace(raw)
		if s == "" {
			return false, fmt.Errorf("empty clause in %q", set)
		}
		op, rest := splitOperator(s)
		if op == "" {
			return false, fmt.Errorf("missing comparator in %q", s)
		}
		bound, err := Parse(rest)
		if err != nil {
			return false, err
		}
		if bound.IsPrerelease() {
			allowPrerelease = true
		}
		clauses = append(clauses, clause{op, bound})
	}

	if v.IsPrerelease() && !allowPrerelease {
		return false, nil
	}

	for _, c := range clauses {
		cmp := v.Compare(c.bound)
		var ok bool
		switch c.op {
		case ">=":
			ok = cmp >= 0
		case "<=":
			ok = cmp <= 0
		case ">":
			ok = cmp > 0
		case "<":
			ok = cmp < 0
		case "==", "=":
			ok = cmp == 0
		case "!=":
			ok = cmp != 0
		default:
			return false, fmt.Errorf("unsupported comparator %q", c.op)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// splitOperator splits a clause like ">=1.2.0" into its comparator and
// version text. Two-character comparators are matched first.
func splitOperator(clause string) (op, rest string) {
	for _, candidate := range []string{">=", "<=", "==", "!=", ">", "<", "="} {
		if strings.HasPrefix(clause, candidate) {
			return candidate, strings.TrimSpace(clause[len(candidate):])
		}
	}
	return "", clause
}
