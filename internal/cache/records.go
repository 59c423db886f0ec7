package cache

import (
	"time"

	"github.com/ycwu/xhswatch/internal/comment"
)

// SavedNote is a note row loaded back from a previous run.
type SavedNote struct {
	NoteID     string
	Title      string
	Ordinal    int
	TotalCount int
}

// UpsertNote records or refreshes a note's metadata.
func (d *DB) UpsertNote(noteID, title string, ordinal, totalCount int) error {
	_, err := d.db.Exec(`INSERT INTO notes (note_id, title, ordinal, total_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(note_id) DO UPDATE SET
			title = CASE WHEN excluded.title != '' THEN excluded.title ELSE notes.title END,
			ordinal = excluded.ordinal,
			total_count = CASE WHEN excluded.total_count > 0 THEN excluded.total_count ELSE notes.total_count END,
			updated_at = excluded.updated_at`,
		noteID, title, ordinal, totalCount, time.Now().Unix())
	return err
}

// InsertRows stores newly accepted flat records. Comment ids already
// present are left untouched.
func (d *DB) InsertRows(rows []comment.Row) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	for _, r := range rows {
		var isSub int
		if r.IsSubComment {
			isSub = 1
		}
		if _, err := tx.Exec(`INSERT OR IGNORE INTO comments
			(comment_id, note_id, parent_comment_id, content, like_count, ip_location, nickname, is_sub_comment, captured_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.CommentID, r.NoteID, r.ParentCommentID, r.Content,
			r.LikeCount, r.IPLocation, r.Nickname, isSub, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Notes returns every saved note in ordinal order.
func (d *DB) Notes() ([]SavedNote, error) {
	rows, err := d.db.Query(`SELECT note_id, title, ordinal, total_count
		FROM notes ORDER BY ordinal ASC, note_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SavedNote
	for rows.Next() {
		var n SavedNote
		if err := rows.Scan(&n.NoteID, &n.Title, &n.Ordinal, &n.TotalCount); err != nil {
			continue
		}
		result = append(result, n)
	}
	return result, rows.Err()
}

// RowsForNote returns a note's flat records in their original insertion
// order, for rebuilding in-memory state on startup.
func (d *DB) RowsForNote(noteID string) ([]comment.Row, error) {
	rows, err := d.db.Query(`SELECT comment_id, note_id, parent_comment_id, content,
		like_count, ip_location, nickname, is_sub_comment
		FROM comments WHERE note_id = ? ORDER BY rowid ASC`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []comment.Row
	for rows.Next() {
		var r comment.Row
		var isSub int
		if err := rows.Scan(&r.CommentID, &r.NoteID, &r.ParentCommentID, &r.Content,
			&r.LikeCount, &r.IPLocation, &r.Nickname, &isSub); err != nil {
			continue
		}
		r.IsSubComment = isSub != 0
		result = append(result, r)
	}
	return result, rows.Err()
}
