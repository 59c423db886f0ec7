package store

import "github.com/ycwu/xhswatch/internal/comment"

// MergeResult reports what a merge actually added.
type MergeResult struct {
	NewThreads  int           // newly accepted top-level comments
	NewComments int           // flat records added, replies included
	AddedRows   []comment.Row // the appended flat records, in order
}

// Added reports whether the merge changed the state.
func (r MergeResult) Added() bool { return r.NewComments > 0 || r.NewThreads > 0 }

// merge appends the genuinely new records from a parsed batch to the
// note's state. Dedup is purely by comment identifier: overlapping and
// out-of-order responses are expected, and the first occurrence of an id
// wins, within a batch and across batches. A reply arriving under an
// already-known parent is still merged, appended to that parent's reply
// list, so late reply-only pages are not lost.
func merge(st *NoteState, threads []comment.Thread, rows []comment.Row) MergeResult {
	seen := make(map[string]bool)
	for i := range st.Threads {
		seen[st.Threads[i].CommentID] = true
		for _, sc := range st.Threads[i].SubComments {
			seen[sc.CommentID] = true
		}
	}
	seenRows := make(map[string]bool, len(st.Rows))
	for _, r := range st.Rows {
		seenRows[r.CommentID] = true
	}

	threadIdx := make(map[string]int, len(st.Threads))
	for i := range st.Threads {
		threadIdx[st.Threads[i].CommentID] = i
	}

	var res MergeResult
	acceptRow := func(id string, isSub bool, fallback comment.Row) {
		if seenRows[id] {
			return
		}
		row, ok := findRow(rows, id, isSub)
		if !ok {
			// The parser emits nested and flat in lockstep, so this
			// only happens with hand-built batches; synthesize the row
			// to keep the id-set invariant.
			row = fallback
		}
		st.Rows = append(st.Rows, row)
		seenRows[id] = true
		res.AddedRows = append(res.AddedRows, row)
		res.NewComments++
	}

	for _, th := range threads {
		if th.CommentID == "" {
			continue
		}
		if !seen[th.CommentID] {
			accepted := th
			accepted.SubComments = []comment.Reply{}
			seen[th.CommentID] = true
			acceptRow(th.CommentID, false, comment.Row{
				Content:    th.Content,
				LikeCount:  th.LikeCount,
				IPLocation: th.IPLocation,
				Nickname:   th.Nickname,
				NoteID:     st.NoteID,
				CommentID:  th.CommentID,
			})
			for _, sc := range th.SubComments {
				if sc.CommentID == "" || seen[sc.CommentID] {
					continue
				}
				seen[sc.CommentID] = true
				accepted.SubComments = append(accepted.SubComments, sc)
				acceptRow(sc.CommentID, true, replyRow(st.NoteID, th.CommentID, sc))
			}
			st.Threads = append(st.Threads, accepted)
			threadIdx[accepted.CommentID] = len(st.Threads) - 1
			res.NewThreads++
			continue
		}

		// Parent already accepted, possibly in a prior batch: take any
		// replies we have not seen yet.
		i, ok := threadIdx[th.CommentID]
		if !ok {
			continue
		}
		for _, sc := range th.SubComments {
			if sc.CommentID == "" || seen[sc.CommentID] {
				continue
			}
			seen[sc.CommentID] = true
			st.Threads[i].SubComments = append(st.Threads[i].SubComments, sc)
			acceptRow(sc.CommentID, true, replyRow(st.NoteID, th.CommentID, sc))
		}
	}
	return res
}

func findRow(rows []comment.Row, id string, isSub bool) (comment.Row, bool) {
	for _, r := range rows {
		if r.CommentID == id && r.IsSubComment == isSub {
			return r, true
		}
	}
	return comment.Row{}, false
}

func replyRow(noteID, parentID string, sc comment.Reply) comment.Row {
	return comment.Row{
		Content:         sc.Content,
		LikeCount:       sc.LikeCount,
		IPLocation:      sc.IPLocation,
		Nickname:        sc.Nickname,
		NoteID:          noteID,
		CommentID:       sc.CommentID,
		ParentCommentID: parentID,
		IsSubComment:    true,
	}
}
