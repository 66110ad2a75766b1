package norms

import (
	"strconv"
	"strings"
)

// AgeBracket is an inclusive age range parsed from a criterion value such as
// "18-29", "18 a 29" or "60+".
type AgeBracket struct {
	Min, Max int // Max < 0 means open-ended
}

// ParseAgeBracket parses s; ok is false when s is not an age bracket.
func ParseAgeBracket(s string) (AgeBracket, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	s = strings.TrimSuffix(s, " anos")
	if s == "" {
		return AgeBracket{}, false
	}
	if strings.HasSuffix(s, "+") {
		n, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(s, "+")))
		if err != nil {
			return AgeBracket{}, false
		}
		return AgeBracket{Min: n, Max: -1}, true
	}
	var lo, hi string
	switch {
	case strings.Contains(s, "-"):
		lo, hi, _ = strings.Cut(s, "-")
	case strings.Contains(s, " a "):
		lo, hi, _ = strings.Cut(s, " a ")
	default:
		return AgeBracket{}, false
	}
	a, err1 := strconv.Atoi(strings.TrimSpace(lo))
	b, err2 := strconv.Atoi(strings.TrimSpace(hi))
	if err1 != nil || err2 != nil || b < a {
		return AgeBracket{}, false
	}
	return AgeBracket{Min: a, Max: b}, true
}

// Contains reports whether age is inside the bracket.
func (b AgeBracket) Contains(age int) bool {
	if age < b.Min {
		return false
	}
	return b.Max < 0 || age <= b.Max
}

// criterionMatches reports whether a table or row criterion value matches the
// caller's value on dim. Age matches by bracket containment, everything else
// by case-insensitive equality.
func criterionMatches(dim Dimension, value string, c Criteria) bool {
	if dim == DimAge {
		b, ok := ParseAgeBracket(value)
		return ok && c.Age > 0 && b.Contains(c.Age)
	}
	want := c.Value(dim)
	return want != "" && strings.EqualFold(strings.TrimSpace(value), strings.TrimSpace(want))
}
