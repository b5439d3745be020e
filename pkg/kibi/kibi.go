package kibi

import (
	"fmt"
	"strconv"
	"strings"
)

// Human-readable byte sizes, for config values and log messages.

var suffixes = []string{"", "k", "m", "g", "t", "p"}

// Bytes formats b with a binary suffix, eg 8388608 -> "8 MB"
func Bytes(b int64) string {
	unit := int64(1)
	i := 0
	for i < len(suffixes)-1 && b >= unit*1024 {
		unit *= 1024
		i++
	}
	if i == 0 {
		return fmt.Sprintf("%v bytes", b)
	}
	return fmt.Sprintf("%v %vB", b/unit, strings.ToUpper(suffixes[i]))
}

// Parse reads a size such as "8m", "8mb", "8 MB", or a plain number of bytes.
func Parse(v string) (int64, error) {
	v = strings.TrimSpace(strings.ToLower(v))
	v = strings.TrimSuffix(v, "b")
	if v == "" {
		return 0, fmt.Errorf("invalid byte size ''")
	}
	mult := int64(1)
	for i := 1; i < len(suffixes); i++ {
		if strings.HasSuffix(v, suffixes[i]) {
			for j := 0; j < i; j++ {
				mult *= 1024
			}
			v = strings.TrimSpace(strings.TrimSuffix(v, suffixes[i]))
			break
		}
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size '%v'", v)
	}
	return n * mult, nil
}
