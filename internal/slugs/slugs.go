// Package slugs derives URL-safe identifiers from display names. It does no I/O;
// uniqueness against storage is the caller's job.
package slugs

import (
	"strconv"

	"github.com/gosimple/slug"
)

// Slugify returns the base slug for text. It may be empty when text has no
// sluggable characters.
func Slugify(text string) string {
	return slug.Make(text)
}

// WithSuffix disambiguates base with a numeric suffix; n == 0 yields base itself.
func WithSuffix(base string, n int) string {
	if n <= 0 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}
