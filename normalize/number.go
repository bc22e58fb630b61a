package normalize

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// ParseNumber accepts finite numbers and numeric strings.
func ParseNumber(input any) (float64, bool) {
	var n float64
	switch v := input.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func IsPositiveNumber(input any) bool {
	n, ok := ParseNumber(input)
	return ok && n > 0
}

func IsIntegerNumber(input any) bool {
	n, ok := ParseNumber(input)
	return ok && n == math.Trunc(n)
}

func InRange(n, min, max float64) bool {
	return n >= min && n <= max
}

// CanonicalKey lower-cases text and drops everything but letters and digits,
// so "U.S.A." and "u s a" both become "usa".
func CanonicalKey(text string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
