package export

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sourcingdenis/devfinder/pkg/search"
)

// WriteJSON encodes an enriched result page as indented JSON and writes
// it to w. The output round-trips through [search.Page]'s JSON tags.
func WriteJSON(page *search.Page, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(page); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes a result page to a JSON file at path.
// This is a convenience wrapper around [WriteJSON] for file-based output.
func ExportJSON(page *search.Page, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(page, f)
}
