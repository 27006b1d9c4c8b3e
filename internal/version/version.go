// Package version parses and orders dotted numeric driver versions such as
// "3.13.30". Components are compared numerically, never lexically, and a
// shorter version is padded with zero components before comparison.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is returned when a version string has an empty or
// non-numeric component.
var ErrMalformed = errors.New("malformed version")

// Version is a parsed dotted numeric version.
type Version []uint64

// Parse parses s into its numeric components.
func Parse(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty string", ErrMalformed)
	}

	parts := strings.Split(s, ".")
	v := make(Version, 0, len(parts))
	for i, part := range parts {
		if part == "" || !isDigits(part) {
			return nil, fmt.Errorf("%w: %q has non-numeric component %d (%q)", ErrMalformed, s, i+1, part)
		}
		n, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q component %d out of range", ErrMalformed, s, i+1)
		}
		v = append(v, n)
	}
	return v, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level constants.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Compare returns -1, 0 or +1 depending on whether a sorts before, equal to,
// or after b. Missing trailing components count as zero.
func Compare(a, b Version) int {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		x, y := a.at(i), b.at(i)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	}
	return 0
}

func (v Version) at(i int) uint64 {
	if i < len(v) {
		return v[i]
	}
	return 0
}

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool { return Compare(v, o) < 0 }

// String renders the version in dotted form.
func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.FormatUint(n, 10)
	}
	return strings.Join(parts, ".")
}

// NearWindowStart returns the inclusive lower bound of the window of
// versions that sit within one minor-version step below eos. For eos
// "2.26.0" that is "2.25". The bool is false when eos has no minor
// component or its minor is zero: there is no lower minor in the same major
// line, so the window is empty.
func NearWindowStart(eos Version) (Version, bool) {
	if len(eos) < 2 || eos[1] == 0 {
		return nil, false
	}
	return Version{eos[0], eos[1] - 1}, true
}

// InNearWindow reports whether v lies in [NearWindowStart(eos), eos).
func InNearWindow(v, eos Version) bool {
	start, ok := NearWindowStart(eos)
	if !ok {
		return false
	}
	return Compare(v, start) >= 0 && Compare(v, eos) < 0
}
