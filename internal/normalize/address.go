package normalize

import (
	"regexp"
	"strings"
)

var stateZipRe = regexp.MustCompile(`^([A-Za-z]{2})\.?\s+(\d{5}(?:-\d{4})?)$`)

// SplitAddress derives street/city/state/zip from a combined US address
// string by splitting on commas: the last segment is matched against a
// "STATE ZIP" shape, the segment before it is the city, and any leading
// segments are rejoined as the street address. Segments that don't match are
// left in the street portion rather than guessed at.
func SplitAddress(full string) (street, city, state, zip string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", "", "", ""
	}

	parts := strings.Split(full, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	last := parts[len(parts)-1]
	m := stateZipRe.FindStringSubmatch(last)
	if m == nil {
		return full, "", "", ""
	}
	state = strings.ToUpper(m[1])
	zip = m[2]
	parts = parts[:len(parts)-1]

	if len(parts) > 0 {
		city = parts[len(parts)-1]
		parts = parts[:len(parts)-1]
	}
	street = strings.Join(parts, ", ")
	return street, city, state, zip
}
