package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/flushfinder/flushfinder/internal/facilities"
)

// WriteRoomsJSON writes rooms to path as an indented JSON array, replacing
// any existing file. A nil slice is written as []. Strings are not
// HTML-escaped, so rooms decoded from the API keep their original text.
func WriteRoomsJSON(path string, rooms []facilities.Room) error {
	if rooms == nil {
		rooms = []facilities.Room{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	// Encode appends the trailing newline
	if err := enc.Encode(rooms); err != nil {
		return fmt.Errorf("failed to encode rooms: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
