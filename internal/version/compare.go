package version

import (
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Compare orders two version strings the way humans read them: 1.10.0 is
// newer than 1.9.0. It returns -1, 0 or 1.
//
// Versions that parse as semver are compared with semver precedence.
// Anything else (four-part versions, letter suffixes such as "3.3a") falls
// back to a segment-wise comparison where digit runs compare numerically.
func Compare(a, b string) int {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		if c := va.Compare(vb); c != 0 {
			return c
		}
		// "1.2" and "1.2.0" are equal in semver; keep the order total.
		return strings.Compare(a, b)
	}
	return compareSegments(a, b)
}

// Sort orders tags ascending by the version that follows prefix.
func Sort(tags []string, prefix string) {
	slices.SortStableFunc(tags, func(x, y string) int {
		return Compare(trim(x, prefix), trim(y, prefix))
	})
}

func compareSegments(a, b string) int {
	sa, sb := segments(a), segments(b)
	for i := 0; i < len(sa) && i < len(sb); i++ {
		if c := compareSegment(sa[i], sb[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(sa) == len(sb):
		return 0
	case len(sa) > len(sb):
		// Trailing letters mark a pre-release ("1.0rc1" < "1.0").
		if isNumeric(sa[len(sb)]) {
			return 1
		}
		return -1
	default:
		if isNumeric(sb[len(sa)]) {
			return -1
		}
		return 1
	}
}

func compareSegment(x, y string) int {
	nx, ny := isNumeric(x), isNumeric(y)
	switch {
	case nx && ny:
		x, y = strings.TrimLeft(x, "0"), strings.TrimLeft(y, "0")
		if len(x) != len(y) {
			if len(x) > len(y) {
				return 1
			}
			return -1
		}
		return strings.Compare(x, y)
	case nx:
		return 1
	case ny:
		return -1
	default:
		return strings.Compare(x, y)
	}
}

// segments splits s into runs of digits and runs of letters, dropping separators.
func segments(s string) []string {
	var out []string
	start := -1
	kind := 0
	for i, r := range s {
		k := runeKind(r)
		if k != kind {
			if kind != 0 {
				out = append(out, s[start:i])
			}
			start, kind = i, k
		}
	}
	if kind != 0 {
		out = append(out, s[start:])
	}
	return out
}

func runeKind(r rune) int {
	switch {
	case r >= '0' && r <= '9':
		return 1
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return 2
	default:
		return 0
	}
}

func isNumeric(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}
