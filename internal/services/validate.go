package services

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const dateLayout = "2006-01-02"

var timeNow = time.Now

// today is the current UTC calendar date at midnight.
func today() time.Time {
	y, m, d := timeNow().UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate reads a YYYY-MM-DD value for field.
func ParseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, Validation(field, "This field is required.")
	}

	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, Validation(field, "Date has wrong format. Use YYYY-MM-DD.")
	}

	return t, nil
}

// notInPast accepts today and any later date.
func notInPast(field string, d time.Time) error {
	if d.IsZero() {
		return Validation(field, "This field is required.")
	}
	if dateOf(d).Before(today()) {
		return Validation(field, "The deadline cannot be in the past.")
	}
	return nil
}

// requiredText trims value and checks its length in characters.
func requiredText(field, value string, min, max int) (string, error) {
	value = strings.TrimSpace(value)

	if value == "" {
		return "", Validation(field, "This field is required.")
	}

	n := utf8.RuneCountInString(value)
	if min > 0 && n < min {
		return "", Validation(field, "Ensure this field has at least "+strconv.Itoa(min)+" characters.")
	}
	if max > 0 && n > max {
		return "", Validation(field, "Ensure this field has no more than "+strconv.Itoa(max)+" characters.")
	}

	return value, nil
}

func maxLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return Validation(field, "Ensure this field has no more than "+strconv.Itoa(max)+" characters.")
	}
	return nil
}

// cleanNames trims every entry and drops blanks and repeats, keeping order.
func cleanNames(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))

	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}

	return out
}
