package store_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ycwu/xhswatch/internal/comment"
	"github.com/ycwu/xhswatch/internal/store"
)

const noteID = "abc123"

func parseBody(t *testing.T, body string) ([]comment.Thread, []comment.Row) {
	t.Helper()
	threads, rows := comment.Parse([]byte(body), noteID)
	require.NotEmpty(t, threads)
	return threads, rows
}

// nestedIDs collects every comment id in the nested view, replies included.
func nestedIDs(st store.NoteState) map[string]bool {
	ids := make(map[string]bool)
	for _, th := range st.Threads {
		ids[th.CommentID] = true
		for _, sc := range th.SubComments {
			ids[sc.CommentID] = true
		}
	}
	return ids
}

func flatIDs(st store.NoteState) map[string]bool {
	ids := make(map[string]bool)
	for _, r := range st.Rows {
		ids[r.CommentID] = true
	}
	return ids
}

func requireConsistent(t *testing.T, st store.NoteState) {
	t.Helper()
	require.Equal(t, nestedIDs(st), flatIDs(st), "nested and flat id sets must match")
}

func TestMergeIsIdempotent(t *testing.T) {
	body := `{"success": true, "code": 0, "data": {"comments": [
		{"id": "c1", "content": "hi", "sub_comments": [{"id": "c1a", "content": "reply"}]}
	]}}`

	s := store.New()
	threads, rows := parseBody(t, body)

	first := s.Upsert(noteID, threads, rows)
	assert.Equal(t, 1, first.NewThreads)
	assert.Equal(t, 2, first.NewComments)

	second := s.Upsert(noteID, threads, rows)
	assert.False(t, second.Added())

	st, ok := s.Get(noteID)
	require.True(t, ok)
	assert.Len(t, st.Threads, 1)
	assert.Len(t, st.Rows, 2)
	requireConsistent(t, st)
}

func TestMergePreservesArrivalOrder(t *testing.T) {
	s := store.New()

	r1 := `{"success": true, "code": 0, "data": {"comments": [{"id": "c1"}, {"id": "c2"}]}}`
	r2 := `{"success": true, "code": 0, "data": {"comments": [{"id": "c2"}, {"id": "c3"}]}}`

	th1, rw1 := parseBody(t, r1)
	s.Upsert(noteID, th1, rw1)
	th2, rw2 := parseBody(t, r2)
	s.Upsert(noteID, th2, rw2)

	st, _ := s.Get(noteID)
	var order []string
	for _, th := range st.Threads {
		order = append(order, th.CommentID)
	}
	assert.Equal(t, []string{"c1", "c2", "c3"}, order)

	order = order[:0]
	for _, r := range st.Rows {
		order = append(order, r.CommentID)
	}
	assert.Equal(t, []string{"c1", "c2", "c3"}, order)
	requireConsistent(t, st)
}

// A reply that shows up only after its parent was accepted in an earlier
// batch must still be merged, attached to the existing parent.
func TestMergeAcceptsLateReplyUnderKnownParent(t *testing.T) {
	s := store.New()

	r1 := `{"success": true, "code": 0, "data": {"comments": [
		{"id": "c1", "sub_comments": [{"id": "c1a"}]}
	]}}`
	r2 := `{"success": true, "code": 0, "data": {"comments": [
		{"id": "c1", "sub_comments": [{"id": "c1a"}, {"id": "c1b", "content": "late reply"}]}
	]}}`

	th1, rw1 := parseBody(t, r1)
	s.Upsert(noteID, th1, rw1)
	th2, rw2 := parseBody(t, r2)
	res := s.Upsert(noteID, th2, rw2)

	assert.Equal(t, 0, res.NewThreads)
	assert.Equal(t, 1, res.NewComments)

	st, _ := s.Get(noteID)
	require.Len(t, st.Threads, 1)
	require.Len(t, st.Threads[0].SubComments, 2)
	assert.Equal(t, "c1b", st.Threads[0].SubComments[1].CommentID)

	last := st.Rows[len(st.Rows)-1]
	assert.Equal(t, "c1b", last.CommentID)
	assert.Equal(t, "c1", last.ParentCommentID)
	assert.True(t, last.IsSubComment)
	requireConsistent(t, st)
}

func TestMergeFirstOccurrenceWinsWithinBatch(t *testing.T) {
	s := store.New()

	body := `{"success": true, "code": 0, "data": {"comments": [
		{"id": "c1", "content": "first"},
		{"id": "c1", "content": "second"}
	]}}`

	th, rw := parseBody(t, body)
	res := s.Upsert(noteID, th, rw)
	assert.Equal(t, 1, res.NewThreads)

	st, _ := s.Get(noteID)
	require.Len(t, st.Threads, 1)
	assert.Equal(t, "first", st.Threads[0].Content)
	require.Len(t, st.Rows, 1)
	assert.Equal(t, "first", st.Rows[0].Content)
}

func TestMergeSkipsBlankIDs(t *testing.T) {
	s := store.New()

	threads := []comment.Thread{{CommentID: "", Content: "ghost"}}
	rows := []comment.Row{{CommentID: "", Content: "ghost", NoteID: noteID}}

	res := s.Upsert(noteID, threads, rows)
	assert.False(t, res.Added())
}

func TestMergeSynthesizesMissingFlatRows(t *testing.T) {
	s := store.New()

	// Nested batch with no matching flat batch at all; the merge must
	// still keep both views in lockstep.
	threads := []comment.Thread{{
		CommentID:   "c1",
		Content:     "hi",
		SubComments: []comment.Reply{{CommentID: "c1a", Content: "reply"}},
	}}

	res := s.Upsert(noteID, threads, nil)
	assert.Equal(t, 2, res.NewComments)

	st, _ := s.Get(noteID)
	requireConsistent(t, st)
	assert.Equal(t, noteID, st.Rows[0].NoteID)
	assert.Equal(t, "c1", st.Rows[1].ParentCommentID)
}

func TestUpsertTracksNotesIndependently(t *testing.T) {
	s := store.New()

	for i, id := range []string{"note1", "note2"} {
		body := fmt.Sprintf(`{"success": true, "code": 0, "data": {"comments": [{"id": "n%d-c1"}]}}`, i)
		threads, rows := comment.Parse([]byte(body), id)
		s.Upsert(id, threads, rows)
	}

	notes, comments := s.Totals()
	assert.Equal(t, 2, notes)
	assert.Equal(t, 2, comments)

	snaps := s.Dashboard()
	require.Len(t, snaps, 2)
	assert.Equal(t, 1, snaps[0].Ordinal)
	assert.Equal(t, "note1", snaps[0].NoteID)
	assert.Equal(t, 2, snaps[1].Ordinal)
}

func TestRestoreRebuildsNestedViewAndDedupsAcrossRuns(t *testing.T) {
	s := store.New()

	rows := []comment.Row{
		{CommentID: "c1", Content: "hi", NoteID: noteID},
		{CommentID: "c1a", Content: "reply", NoteID: noteID, ParentCommentID: "c1", IsSubComment: true},
	}
	s.Restore(noteID, "旧标题", 92, rows)

	st, ok := s.Get(noteID)
	require.True(t, ok)
	require.Len(t, st.Threads, 1)
	require.Len(t, st.Threads[0].SubComments, 1)
	requireConsistent(t, st)

	meta, _ := s.Meta(noteID)
	assert.Equal(t, "旧标题", meta.Title)
	assert.Equal(t, 92, meta.TotalCount)

	// Re-sending the same comments after a restart adds nothing.
	body := `{"success": true, "code": 0, "data": {"comments": [
		{"id": "c1", "content": "hi", "sub_comments": [{"id": "c1a", "content": "reply"}]}
	]}}`
	th, rw := parseBody(t, body)
	res := s.Upsert(noteID, th, rw)
	assert.False(t, res.Added())
}
