// Package numparse converts human-readable count strings to integers.
package numparse

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	strictRe = regexp.MustCompile(`^(\d+(\.\d+)?)([km])?$`)
	looseRe  = regexp.MustCompile(`\d[\d.]*`)
)

// Parse converts strings like "1.2K", "846K", "3M" or "52,345" to an
// integer count, truncating toward zero. When the input does not match
// the suffix grammar, the first embedded digit run is parsed instead.
// ok is false when no digits can be extracted.
func Parse(s string) (n int64, ok bool) {
	s = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, ",", "")))
	if m := strictRe.FindStringSubmatch(s); m != nil {
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, false
		}
		switch m[3] {
		case "k":
			f *= 1_000
		case "m":
			f *= 1_000_000
		}
		return int64(f), true
	}
	digits := strings.TrimRight(looseRe.FindString(s), ".")
	if digits == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, false
	}
	return int64(f), true
}

// ParsePtr is Parse with a pointer result for nullable metric columns.
func ParsePtr(s string) *int64 {
	n, ok := Parse(s)
	if !ok {
		return nil
	}
	return &n
}
