package viewhelpers

import "strings"

// NormalizeNumberInput keeps digits and a single decimal point with at most
// two digits after it: "₹1,2a3.456" becomes "123.45".
func NormalizeNumberInput(s string) string {
	var intPart, frac strings.Builder
	seenDot := false
	for _, r := range s {
		switch {
		case r == '.' && !seenDot:
			seenDot = true
		case r >= '0' && r <= '9':
			if !seenDot {
				intPart.WriteRune(r)
			} else if frac.Len() < 2 {
				frac.WriteRune(r)
			}
		}
	}
	if !seenDot {
		return intPart.String()
	}
	return intPart.String() + "." + frac.String()
}

// MatchesSearch reports whether term occurs, ignoring case, in any of the
// given fields. An empty term matches everything.
func MatchesSearch(term string, fields ...string) bool {
	term = strings.ToLower(term)
	if term == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}
