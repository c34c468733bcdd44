package recording

import (
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ReadTextFile reads a transcript or chat file as UTF-8 text. Files exported
// by older desktop clients arrive in Windows-1252; those are transparently
// decoded so the evidence extractors always see valid UTF-8.
func ReadTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	// Strip a UTF-8 BOM if present.
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		data = data[3:]
	}

	if utf8.Valid(data) {
		return string(data), nil
	}

	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		// Windows-1252 decoding never fails for arbitrary bytes, but keep
		// the original content on the off chance it does.
		return string(data), nil
	}

	return string(decoded), nil
}
