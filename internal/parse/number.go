// Package parse handles battery display numbers. Numbers are
// human-assigned labels like "12", "B7" or "BAT-104": an optional prefix
// followed by a numeric sequence. Plain string order would put "10" before
// "2", so ordering compares the numeric part as a number.
package parse

import "strconv"

// SplitNumber splits a display number into its prefix and trailing numeric
// sequence, e.g. "BAT-104" -> ("BAT-", 104, true). ok is false when the
// number carries no trailing digits.
func SplitNumber(s string) (prefix string, seq int, ok bool) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return s, 0, false
	}
	n, err := strconv.Atoi(s[i:])
	if err != nil {
		// Longer than an int; treat as non-numeric.
		return s, 0, false
	}
	return s[:i], n, true
}

// LessNumber orders display numbers numerically when both share a prefix
// and carry a numeric sequence, falling back to plain string order.
func LessNumber(a, b string) bool {
	ap, an, aok := SplitNumber(a)
	bp, bn, bok := SplitNumber(b)
	if aok && bok && ap == bp {
		if an != bn {
			return an < bn
		}
		return a < b
	}
	return a < b
}
