package subst

import "strings"

// ParseBool accepts true, false, 1 and 0 in any case. Anything else is
// reported as not a boolean rather than coerced.
func ParseBool(s string) (value bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	}
	return false, false
}

func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
