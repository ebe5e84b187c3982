package parsing

import (
	"strconv"
	"strings"
)

const maxPositionLen = 9

// ParsePosition parses a 1-based queue position typed by a user.
func ParsePosition(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxPositionLen {
		return 0, false
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}

	return n, true
}
