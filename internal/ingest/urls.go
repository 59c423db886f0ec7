// Package ingest loads the note URLs to capture and derives note ids
// from them.
package ingest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Note ids are lowercase hex, either in the /explore/ path segment or a
// note_id query parameter. The response filter extracts ids the same way.
var (
	explorePattern = regexp.MustCompile(`/explore/([a-f0-9]+)`)
	noteIDPattern  = regexp.MustCompile(`note_id=([a-f0-9]+)`)
)

// NoteIDFromURL extracts the note id from a note URL, or "" when the
// URL carries none.
func NoteIDFromURL(url string) string {
	if m := explorePattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	if m := noteIDPattern.FindStringSubmatch(url); m != nil {
		return m[1]
	}
	return ""
}

// ReadExcel reads note URLs from the template workbook. The first row
// is a header and skipped; any cell holding an http(s) URL counts.
func ReadExcel(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("reading sheet: %w", err)
	}

	var urls []string
	for i, row := range rows {
		if i == 0 {
			continue
		}
		for _, cell := range row {
			u := strings.TrimSpace(cell)
			if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
				urls = append(urls, u)
			}
		}
	}
	return urls, nil
}

// Dedupe removes repeated URLs, keeping first-seen order.
func Dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	var out []string
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
