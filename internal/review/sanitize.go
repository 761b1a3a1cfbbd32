package review

import (
	"regexp"
	"strings"
)

// fenceMarker matches a code fence with an optional language tag.
var fenceMarker = regexp.MustCompile("```[A-Za-z0-9_+-]*")

// Sanitize removes every code-fence marker from raw provider text and
// trims surrounding whitespace. It never fails.
func Sanitize(raw string) string {
	return strings.TrimSpace(fenceMarker.ReplaceAllString(raw, ""))
}
