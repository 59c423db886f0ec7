package comment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ycwu/xhswatch/internal/comment"
)

func TestParseNestedAndFlat(t *testing.T) {
	body := []byte(`{
		"success": true,
		"code": 0,
		"data": {
			"comments": [
				{
					"id": "c1",
					"content": "hi",
					"like_count": "12",
					"ip_location": "上海",
					"user_info": {"nickname": "阿北"},
					"sub_comments": [
						{"id": "c1a", "content": "reply", "like_count": "1", "user_info": {"nickname": "小南"}}
					]
				}
			]
		}
	}`)

	threads, rows := comment.Parse(body, "abc123")

	require.Len(t, threads, 1)
	require.Len(t, rows, 2)

	th := threads[0]
	assert.Equal(t, "c1", th.CommentID)
	assert.Equal(t, "hi", th.Content)
	assert.Equal(t, "12", th.LikeCount)
	assert.Equal(t, "上海", th.IPLocation)
	assert.Equal(t, "阿北", th.Nickname)
	require.Len(t, th.SubComments, 1)
	assert.Equal(t, "c1a", th.SubComments[0].CommentID)
	assert.Equal(t, "reply", th.SubComments[0].Content)

	top := rows[0]
	assert.Equal(t, "c1", top.CommentID)
	assert.Equal(t, "abc123", top.NoteID)
	assert.Equal(t, "", top.ParentCommentID)
	assert.False(t, top.IsSubComment)

	sub := rows[1]
	assert.Equal(t, "c1a", sub.CommentID)
	assert.Equal(t, "abc123", sub.NoteID)
	assert.Equal(t, "c1", sub.ParentCommentID)
	assert.True(t, sub.IsSubComment)
}

func TestParseRejectsUnsuccessfulBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"success false", `{"success": false, "code": 0, "data": {"comments": [{"id": "c1"}]}}`},
		{"nonzero code", `{"success": true, "code": -100, "data": {"comments": [{"id": "c1"}]}}`},
		{"missing success", `{"code": 0, "data": {"comments": [{"id": "c1"}]}}`},
		{"not json", `<html>rate limited</html>`},
		{"empty body", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			threads, rows := comment.Parse([]byte(tt.body), "abc123")
			assert.Empty(t, threads)
			assert.Empty(t, rows)
		})
	}
}

func TestParseDefaultsMissingFields(t *testing.T) {
	body := []byte(`{"success": true, "code": 0, "data": {"comments": [{"id": "c9"}]}}`)

	threads, rows := comment.Parse(body, "abc123")

	require.Len(t, threads, 1)
	th := threads[0]
	assert.Equal(t, "", th.Content)
	assert.Equal(t, "0", th.LikeCount)
	assert.Equal(t, "", th.IPLocation)
	assert.Equal(t, "", th.Nickname)
	assert.NotNil(t, th.SubComments)
	assert.Empty(t, th.SubComments)

	require.Len(t, rows, 1)
	assert.Equal(t, "c9", rows[0].CommentID)
	assert.Equal(t, "0", rows[0].LikeCount)
}

func TestParseNumericLikeCount(t *testing.T) {
	body := []byte(`{"success": true, "code": 0, "data": {"comments": [{"id": "c1", "like_count": 37}]}}`)

	threads, _ := comment.Parse(body, "abc123")

	require.Len(t, threads, 1)
	assert.Equal(t, "37", threads[0].LikeCount)
}

func TestParsePreservesBodyOrder(t *testing.T) {
	body := []byte(`{"success": true, "code": 0, "data": {"comments": [
		{"id": "c2", "sub_comments": [{"id": "c2b"}, {"id": "c2a"}]},
		{"id": "c1"}
	]}}`)

	threads, rows := comment.Parse(body, "abc123")

	require.Len(t, threads, 2)
	assert.Equal(t, "c2", threads[0].CommentID)
	assert.Equal(t, "c1", threads[1].CommentID)

	var ids []string
	for _, r := range rows {
		ids = append(ids, r.CommentID)
	}
	assert.Equal(t, []string{"c2", "c2b", "c2a", "c1"}, ids)
}
