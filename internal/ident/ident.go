// Package ident validates and compares extension identifiers.
//
// Identifiers become directory names under the extensions root, so
// validation rejects anything that could change the shape of a path.
package ident

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

// MaxLength is the longest identifier accepted.
const MaxLength = 100

// ErrInvalid is returned for identifiers that cannot be used as a directory name.
var ErrInvalid = errors.New("invalid extension id")

var pattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// Validate checks that id is safe to join onto the extensions root:
// alphanumerics plus '.', '_' and '-', starting with an alphanumeric,
// no ".." sequence and no trailing dot.
func Validate(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("%w: empty", ErrInvalid)
	case len(id) > MaxLength:
		return fmt.Errorf("%w: longer than %d characters", ErrInvalid, MaxLength)
	case strings.Contains(id, ".."):
		return fmt.Errorf("%w %q: contains '..'", ErrInvalid, id)
	case strings.HasSuffix(id, "."):
		return fmt.Errorf("%w %q: ends with '.'", ErrInvalid, id)
	case !pattern.MatchString(id):
		return fmt.Errorf("%w %q: only letters, digits, '.', '_' and '-' are allowed", ErrInvalid, id)
	}
	return nil
}

// Fold returns the case-folded form of s used for comparisons.
func Fold(s string) string {
	// Casers are stateful; one per call keeps this safe for concurrent use.
	return cases.Fold().String(s)
}

// Equal reports whether two identifiers are the same ignoring case.
func Equal(a, b string) bool {
	return Fold(a) == Fold(b)
}

// Matches reports whether filter occurs, ignoring case, in any of fields.
// An empty filter matches everything.
func Matches(filter string, fields ...string) bool {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return true
	}
	needle := Fold(filter)
	for _, f := range fields {
		if strings.Contains(Fold(f), needle) {
			return true
		}
	}
	return false
}
