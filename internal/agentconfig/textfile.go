package agentconfig

import (
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// readText reads path and decodes it to UTF-8. A UTF-8 or UTF-16 byte-order
// mark selects the encoding; without one the content is taken as UTF-8.
func readText(path string) (string, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // G304: well-known agent paths
	if err != nil {
		return "", err
	}

	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	decoded, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
