// Package comment defines the data model for captured note comments and
// the parser for comment-page API response bodies.
package comment

import "strconv"

// Thread is a top-level comment together with its replies. This is the
// shape written to the per-note and aggregate JSON files.
type Thread struct {
	Content     string  `json:"content"`
	LikeCount   string  `json:"like_count"`
	IPLocation  string  `json:"ip_location"`
	Nickname    string  `json:"nickname"`
	CommentID   string  `json:"comment_id"`
	SubComments []Reply `json:"sub_comments"`
}

// Reply is a second-level comment nested inside a Thread. The upstream
// API does not nest any deeper.
type Reply struct {
	Content    string `json:"content"`
	LikeCount  string `json:"like_count"`
	IPLocation string `json:"ip_location"`
	Nickname   string `json:"nickname"`
	CommentID  string `json:"comment_id"`
}

// Row is the flat representation used for CSV output: every comment and
// reply is an independent record with explicit parent linkage.
type Row struct {
	Content         string `json:"content"`
	LikeCount       string `json:"like_count"`
	IPLocation      string `json:"ip_location"`
	Nickname        string `json:"nickname"`
	NoteID          string `json:"note_id"`
	CommentID       string `json:"comment_id"`
	ParentCommentID string `json:"parent_comment_id"`
	IsSubComment    bool   `json:"is_sub_comment"`
}

// Columns is the fixed CSV column order for flat output.
var Columns = []string{
	"content", "like_count", "ip_location", "nickname",
	"note_id", "comment_id", "parent_comment_id", "is_sub_comment",
}

// Record returns the row's fields in Columns order.
func (r Row) Record() []string {
	return []string{
		r.Content, r.LikeCount, r.IPLocation, r.Nickname,
		r.NoteID, r.CommentID, r.ParentCommentID, strconv.FormatBool(r.IsSubComment),
	}
}
