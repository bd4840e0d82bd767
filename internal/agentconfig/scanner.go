package agentconfig

import "strings"

// ExtractValue returns the value of the first `"key":` occurrence in text.
//
// It is a minimal scanner, not a JSON parser. After the colon it skips spaces
// and tabs, then reads either a quoted string up to the next double quote or
// a bare token up to a comma, closing brace or newline, with trailing
// whitespace (including the CR of a CRLF line end) dropped. Known limitations:
//   - escaped quotes end a quoted value early (`"a\"b"` yields `a\`);
//   - the first occurrence wins, even inside a nested object or array;
//   - object and array values are not understood.
//
// An absent key yields "".
func ExtractValue(text, key string) string {
	needle := `"` + key + `":`
	pos := strings.Index(text, needle)
	if pos < 0 {
		return ""
	}
	pos += len(needle)

	for pos < len(text) && (text[pos] == ' ' || text[pos] == '\t') {
		pos++
	}
	if pos >= len(text) {
		return ""
	}

	if text[pos] == '"' {
		rest := text[pos+1:]
		if end := strings.IndexByte(rest, '"'); end >= 0 {
			return rest[:end]
		}
		return rest
	}

	rest := text[pos:]
	if end := strings.IndexAny(rest, ",}\n"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimRight(rest, " \t\r")
}
