package common

import "strconv"

// AtoiDefault parses value as an integer, returning def when it is empty
// or malformed. Used for query parameters like page and limit.
func AtoiDefault(value string, def int) int {
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
