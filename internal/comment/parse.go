package comment

import (
	"encoding/json"
	"strconv"
)

// Parse converts one comment-page API response body into the nested and
// flat representations, preserving the order comments and replies appear
// in the body. Bodies that are not valid JSON, or that do not report
// success with a zero code, yield empty results; missing fields inside a
// comment degrade to "" ("0" for like_count) rather than failing the
// batch.
func Parse(body []byte, noteID string) ([]Thread, []Row) {
	var resp map[string]any
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil
	}
	if ok, _ := resp["success"].(bool); !ok {
		return nil, nil
	}
	if intField(resp, "code") != 0 {
		return nil, nil
	}

	data, _ := resp["data"].(map[string]any)
	list, _ := data["comments"].([]any)

	var threads []Thread
	var rows []Row
	for _, raw := range list {
		c, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		th := Thread{
			Content:     strField(c, "content"),
			LikeCount:   countField(c, "like_count"),
			IPLocation:  strField(c, "ip_location"),
			Nickname:    nickname(c),
			CommentID:   strField(c, "id"),
			SubComments: []Reply{},
		}
		rows = append(rows, Row{
			Content:      th.Content,
			LikeCount:    th.LikeCount,
			IPLocation:   th.IPLocation,
			Nickname:     th.Nickname,
			NoteID:       noteID,
			CommentID:    th.CommentID,
			IsSubComment: false,
		})

		subs, _ := c["sub_comments"].([]any)
		for _, rawSub := range subs {
			sc, ok := rawSub.(map[string]any)
			if !ok {
				continue
			}
			reply := Reply{
				Content:    strField(sc, "content"),
				LikeCount:  countField(sc, "like_count"),
				IPLocation: strField(sc, "ip_location"),
				Nickname:   nickname(sc),
				CommentID:  strField(sc, "id"),
			}
			th.SubComments = append(th.SubComments, reply)
			rows = append(rows, Row{
				Content:         reply.Content,
				LikeCount:       reply.LikeCount,
				IPLocation:      reply.IPLocation,
				Nickname:        reply.Nickname,
				NoteID:          noteID,
				CommentID:       reply.CommentID,
				ParentCommentID: th.CommentID,
				IsSubComment:    true,
			})
		}
		threads = append(threads, th)
	}
	return threads, rows
}

func strField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// countField tolerates like_count arriving as either a string or a number.
func countField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return "0"
	}
}

func intField(m map[string]any, key string) int {
	f, _ := m[key].(float64)
	return int(f)
}

func nickname(m map[string]any) string {
	u, _ := m["user_info"].(map[string]any)
	if u == nil {
		return ""
	}
	return strField(u, "nickname")
}
