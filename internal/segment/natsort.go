package segment

import (
	"strings"
	"unicode"
)

// CompareNumbers compares two fragment number tokens in natural order.
// Tokens are split into numeric and non-numeric runs; numeric runs are
// compared as integers, everything else lexicographically. "10" sorts
// after "9", and "7-а" after "7".
func CompareNumbers(a, b string) int {
	ra, rb := splitRuns(a), splitRuns(b)

	for i := 0; i < len(ra) && i < len(rb); i++ {
		x, y := ra[i], rb[i]

		xNum, yNum := isNumericRun(x), isNumericRun(y)
		switch {
		case xNum && yNum:
			if c := compareNumericRuns(x, y); c != 0 {
				return c
			}
		case xNum != yNum:
			// Numeric runs sort before alphabetic remainders.
			if xNum {
				return -1
			}
			return 1
		default:
			if c := strings.Compare(x, y); c != 0 {
				return c
			}
		}
	}

	switch {
	case len(ra) < len(rb):
		return -1
	case len(ra) > len(rb):
		return 1
	default:
		return 0
	}
}

// splitRuns splits a token into maximal runs of digits and non-digits.
func splitRuns(s string) []string {
	var runs []string
	var cur strings.Builder
	var curNumeric bool

	for _, r := range s {
		numeric := unicode.IsDigit(r)
		if cur.Len() > 0 && numeric != curNumeric {
			runs = append(runs, cur.String())
			cur.Reset()
		}
		curNumeric = numeric
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		runs = append(runs, cur.String())
	}
	return runs
}

func isNumericRun(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}

// compareNumericRuns compares two digit runs as integers without
// overflowing on absurdly long tokens: strip leading zeros, compare by
// length, then lexicographically.
func compareNumericRuns(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")

	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
