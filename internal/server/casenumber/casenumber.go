// Package casenumber formats and parses accident case numbers of the form
// ACC-<year>-<seq>, where seq is zero-padded to three digits and widens
// beyond 999 without truncation.
package casenumber

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	Prefix         = "ACC"
	FallbackPrefix = "TMP"

	// MinYear and MaxYear bound the years that fit the four-digit field.
	MinYear = 1
	MaxYear = 9999
)

// ErrMalformed is returned by Parse for anything Format could not have produced.
var ErrMalformed = errors.New("malformed case number")

// Format renders year and seq as ACC-YYYY-NNN.
func Format(year, seq int) string {
	return fmt.Sprintf("%s-%04d-%03d", Prefix, year, seq)
}

// LikePattern is the SQL LIKE pattern matching every number of year.
func LikePattern(year int) string {
	return fmt.Sprintf("%s-%04d-%%", Prefix, year)
}

// Parse is the inverse of Format. Fallback numbers and corrupt values yield
// ErrMalformed.
func Parse(s string) (year, seq int, err error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 || parts[0] != Prefix {
		return 0, 0, ErrMalformed
	}
	if len(parts[1]) != 4 || len(parts[2]) < 3 {
		return 0, 0, ErrMalformed
	}
	if !digits(parts[1]) || !digits(parts[2]) {
		return 0, 0, ErrMalformed
	}

	year, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, ErrMalformed
	}
	seq, err = strconv.Atoi(parts[2])
	if err != nil || seq < 1 {
		return 0, 0, ErrMalformed
	}
	// Reject non-canonical padding such as ACC-2025-0007.
	if Format(year, seq) != s {
		return 0, 0, ErrMalformed
	}
	return year, seq, nil
}

// Fallback builds a number that is unique with high probability and can never
// be mistaken for a sequenced one: TMP-YYYYMMDD-HHMMSS-<8 hex>.
func Fallback(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%s-%s", FallbackPrefix, now.UTC().Format("20060102-150405"), suffix)
}

// IsFallback reports whether s was produced by Fallback.
func IsFallback(s string) bool {
	return strings.HasPrefix(s, FallbackPrefix+"-")
}

func digits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
