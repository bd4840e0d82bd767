package eventlog

import (
	"strconv"
	"strings"
)

// Event levels as recorded in the System/Level element.
const (
	LevelCritical = 1
	LevelError    = 2
	LevelWarning  = 3
)

// BuildQuery returns an XPath filter selecting events of provider at any of
// the given levels.
func BuildQuery(provider string, levels ...int) string {
	var b strings.Builder
	b.WriteString("*[System[Provider[@Name='")
	b.WriteString(provider)
	b.WriteString("']")
	if len(levels) > 0 {
		b.WriteString(" and (")
		for i, level := range levels {
			if i > 0 {
				b.WriteString(" or ")
			}
			b.WriteString("Level=")
			b.WriteString(strconv.Itoa(level))
		}
		b.WriteString(")")
	}
	b.WriteString("]]")
	return b.String()
}
