package parsing

import (
	"regexp"
	"strconv"
	"time"
)

var retryRe = regexp.MustCompile(`(?i)retry in (\d+) seconds`)

// ParseRetryAfter extracts the wait from a server hint such as
// "you may retry in 42 seconds".
func ParseRetryAfter(reason string) (time.Duration, bool) {
	m := retryRe.FindStringSubmatch(reason)
	if len(m) != 2 {
		return 0, false
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}

	return time.Duration(n) * time.Second, true
}
