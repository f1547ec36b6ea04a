// Package version compares extension version strings. Semantic versions are
// compared with semver precedence; anything that does not parse falls back
// to case-insensitive string comparison so that odd feed data never aborts
// a listing.
package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Compare returns -1 if a < b, 0 if equal, 1 if a > b.
// A leading "v" is tolerated on either side.
func Compare(a, b string) int {
	av, aerr := parse(a)
	bv, berr := parse(b)
	if aerr == nil && berr == nil {
		return av.Compare(bv)
	}
	// Parseable versions sort above unparseable ones.
	switch {
	case aerr == nil:
		return 1
	case berr == nil:
		return -1
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// Equal reports whether a and b denote the same version.
func Equal(a, b string) bool {
	return Compare(a, b) == 0
}

// IsNewer returns true if candidate is newer than current.
func IsNewer(current, candidate string) bool {
	return Compare(current, candidate) == -1
}

// IsPrerelease reports whether v carries a prerelease tag.
// Unparseable versions are treated as stable.
func IsPrerelease(v string) bool {
	sv, err := parse(v)
	if err != nil {
		return false
	}
	return sv.Prerelease() != ""
}

// Latest returns the highest version in versions. When stableOnly is set,
// prerelease versions are ignored. The second return is false when nothing
// qualifies.
func Latest(versions []string, stableOnly bool) (string, bool) {
	var best string
	found := false
	for _, v := range versions {
		if v == "" {
			continue
		}
		if stableOnly && IsPrerelease(v) {
			continue
		}
		if !found || Compare(best, v) < 0 {
			best = v
			found = true
		}
	}
	return best, found
}

// Normalize returns the canonical lowercase form used in feed URLs and
// manifest file names.
func Normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

// parse normalizes v, strips a leading "v" and parses it. Prerelease tags
// are compared case-insensitively.
func parse(v string) (*semver.Version, error) {
	v = strings.TrimPrefix(Normalize(v), "v")
	return semver.NewVersion(v)
}
