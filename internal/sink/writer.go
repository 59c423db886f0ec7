// Package sink serializes accumulated comment state to the per-note and
// aggregate JSON/CSV files under the output directory.
package sink

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/ycwu/xhswatch/internal/comment"
	"github.com/ycwu/xhswatch/internal/store"
)

const (
	// Aggregate filenames are fixed; the per-note pair is derived from
	// ordinal, sanitized title and note id.
	AggregateJSONName = "All CommentData.json"
	AggregateCSVName  = "All CommentData.csv"

	maxFilenameRunes = 200
)

var illegalPathChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// Writer owns the output directory. Every write replaces the previous
// file of the same name; there is no versioning.
type Writer struct {
	dir string
}

// New creates a writer rooted at dir. The directory is created on the
// first write, not here.
func New(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the output directory path.
func (w *Writer) Dir() string { return w.dir }

// SanitizeFilename strips characters that are illegal in file paths and
// bounds the result's length.
func SanitizeFilename(name string) string {
	name = illegalPathChars.ReplaceAllString(name, "_")
	runes := []rune(name)
	if len(runes) > maxFilenameRunes {
		name = string(runes[:maxFilenameRunes])
	}
	return name
}

// NoteFileBase builds the shared base name for a note's JSON/CSV pair.
func NoteFileBase(ordinal int, title, noteID string) string {
	if title == "" {
		title = "note_" + noteID
	}
	return fmt.Sprintf("%d 标题:%s note_id值:%s", ordinal, SanitizeFilename(title), noteID)
}

// WriteNote writes one note's nested JSON and flat CSV pair. A note with
// no records is a no-op.
func (w *Writer) WriteNote(st store.NoteState, meta store.NoteMeta) error {
	if len(st.Threads) == 0 && len(st.Rows) == 0 {
		return nil
	}
	if err := w.ensureDir(); err != nil {
		return err
	}

	base := NoteFileBase(meta.Ordinal, meta.Title, st.NoteID)
	if err := w.writeJSON(base+".json", st.Threads); err != nil {
		return err
	}
	return w.writeCSV(base+".csv", st.Rows)
}

// WriteAggregate concatenates every note's sequences, in registration
// order, into the fixed-name aggregate pair. Called with no data at all
// it is a no-op; an empty note still contributes nothing while the rest
// of the union is written.
func (w *Writer) WriteAggregate(states []store.NoteState) error {
	var threads []comment.Thread
	var rows []comment.Row
	for _, st := range states {
		threads = append(threads, st.Threads...)
		rows = append(rows, st.Rows...)
	}
	if len(threads) == 0 && len(rows) == 0 {
		return nil
	}
	if err := w.ensureDir(); err != nil {
		return err
	}

	if err := w.writeJSON(AggregateJSONName, threads); err != nil {
		return err
	}
	return w.writeCSV(AggregateCSVName, rows)
}

func (w *Writer) ensureDir() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	return nil
}

func (w *Writer) writeJSON(name string, threads []comment.Thread) error {
	f, err := os.Create(filepath.Join(w.dir, name))
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if threads == nil {
		threads = []comment.Thread{}
	}
	if err := enc.Encode(threads); err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	return nil
}

func (w *Writer) writeCSV(name string, rows []comment.Row) error {
	f, err := os.Create(filepath.Join(w.dir, name))
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(comment.Columns); err != nil {
		return fmt.Errorf("writing %s header: %w", name, err)
	}
	for _, r := range rows {
		if err := cw.Write(r.Record()); err != nil {
			return fmt.Errorf("writing %s row: %w", name, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", name, err)
	}
	return nil
}
