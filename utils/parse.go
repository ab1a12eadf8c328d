package utils

import "strconv"

// Atoi parses an integer query parameter, yielding 0 for missing or
// malformed input.
func Atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// ParseAmount parses a decimal amount parameter, yielding 0 for missing or
// malformed input.
func ParseAmount(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
