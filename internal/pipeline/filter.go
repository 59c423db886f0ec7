package pipeline

import (
	"regexp"
	"strings"
)

// commentAPIPath is the comment-page listing endpoint; pagination calls
// for a note all share it, with the note id in the query string.
const commentAPIPath = "/api/sns/web/v2/comment/page"

// Note ids are lowercase hex. The same extraction rule is used when
// deriving ids from the note URLs themselves (see internal/ingest).
var noteIDParam = regexp.MustCompile(`note_id=([a-f0-9]+)`)

// MatchCommentAPI reports whether url is a comment-page API call and, if
// so, which note it belongs to. Pure classification; note ids that are
// not yet tracked still match and begin their state lazily downstream.
func MatchCommentAPI(url string) (noteID string, ok bool) {
	if !strings.Contains(url, commentAPIPath) {
		return "", false
	}
	m := noteIDParam.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}
