// Package store holds the accumulated comment state for every tracked
// note and implements the identifier-based merge that keeps the nested
// and flat views consistent under repeated, overlapping API responses.
package store

import (
	"sync"

	"github.com/ycwu/xhswatch/internal/comment"
)

// NoteState is the accumulated data for one note. Both sequences are
// append-only and grow in the order records are first seen.
type NoteState struct {
	NoteID  string
	Threads []comment.Thread
	Rows    []comment.Row
}

// NoteMeta is display metadata attached to a note as it becomes known.
type NoteMeta struct {
	Title      string
	Ordinal    int
	TotalCount int
}

// NoteSnapshot is a read-only view for the dashboard.
type NoteSnapshot struct {
	NoteID   string
	Title    string
	Ordinal  int
	Captured int
	Total    int
}

// Store owns all NoteState values for the process lifetime. A mutex
// guards the maps because the browser delivers response events from its
// own goroutines.
type Store struct {
	mu    sync.Mutex
	notes map[string]*NoteState
	meta  map[string]*NoteMeta
	order []string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		notes: make(map[string]*NoteState),
		meta:  make(map[string]*NoteMeta),
	}
}

// ensure registers the note if it is not yet tracked, assigning the next
// ordinal. Unknown note ids arriving straight from a response begin a
// state lazily.
func (s *Store) ensure(noteID string) *NoteState {
	st, ok := s.notes[noteID]
	if !ok {
		st = &NoteState{NoteID: noteID}
		s.notes[noteID] = st
		s.meta[noteID] = &NoteMeta{Ordinal: len(s.order) + 1}
		s.order = append(s.order, noteID)
	}
	return st
}

// Register makes a note known ahead of its first response, in URL-open
// order, so its ordinal matches the order the operator listed it.
func (s *Store) Register(noteID string) {
	if noteID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(noteID)
}

// Upsert merges a freshly parsed batch into the note's state and reports
// how much of it was genuinely new.
func (s *Store) Upsert(noteID string, threads []comment.Thread, rows []comment.Row) MergeResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return merge(s.ensure(noteID), threads, rows)
}

// Restore seeds a note's state from a previous run. Rows must be in
// their original insertion order; the nested view is rebuilt from the
// parent linkage.
func (s *Store) Restore(noteID, title string, totalCount int, rows []comment.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.ensure(noteID)
	m := s.meta[noteID]
	if title != "" {
		m.Title = title
	}
	if totalCount > 0 {
		m.TotalCount = totalCount
	}

	byID := make(map[string]int)
	for _, r := range rows {
		if !r.IsSubComment {
			st.Threads = append(st.Threads, comment.Thread{
				Content:     r.Content,
				LikeCount:   r.LikeCount,
				IPLocation:  r.IPLocation,
				Nickname:    r.Nickname,
				CommentID:   r.CommentID,
				SubComments: []comment.Reply{},
			})
			byID[r.CommentID] = len(st.Threads) - 1
		} else if i, ok := byID[r.ParentCommentID]; ok {
			st.Threads[i].SubComments = append(st.Threads[i].SubComments, comment.Reply{
				Content:    r.Content,
				LikeCount:  r.LikeCount,
				IPLocation: r.IPLocation,
				Nickname:   r.Nickname,
				CommentID:  r.CommentID,
			})
		} else {
			// Reply without its parent in the cache; drop it rather
			// than break the nested/flat id-set invariant.
			continue
		}
		st.Rows = append(st.Rows, r)
	}
}

// SetTitle records the page title for a note, once known.
func (s *Store) SetTitle(noteID, title string) {
	if title == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(noteID)
	s.meta[noteID].Title = title
}

// SetTotalCount records the target comment count scraped off the page.
func (s *Store) SetTotalCount(noteID string, total int) {
	if total <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensure(noteID)
	s.meta[noteID].TotalCount = total
}

// Get returns a copy of the note's state.
func (s *Store) Get(noteID string) (NoteState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.notes[noteID]
	if !ok {
		return NoteState{}, false
	}
	return copyState(st), true
}

// Meta returns the note's metadata.
func (s *Store) Meta(noteID string) (NoteMeta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meta[noteID]
	if !ok {
		return NoteMeta{}, false
	}
	return *m, true
}

// Snapshot returns copies of every note's state in registration order.
func (s *Store) Snapshot() []NoteState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]NoteState, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, copyState(s.notes[id]))
	}
	return out
}

// Dashboard returns the per-note rows shown in the TUI, in registration
// order.
func (s *Store) Dashboard() []NoteSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]NoteSnapshot, 0, len(s.order))
	for _, id := range s.order {
		m := s.meta[id]
		out = append(out, NoteSnapshot{
			NoteID:   id,
			Title:    m.Title,
			Ordinal:  m.Ordinal,
			Captured: len(s.notes[id].Rows),
			Total:    m.TotalCount,
		})
	}
	return out
}

// Totals returns the number of tracked notes and the total flat-record
// count across all of them.
func (s *Store) Totals() (notes, comments int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.notes {
		comments += len(st.Rows)
	}
	return len(s.notes), comments
}

func copyState(st *NoteState) NoteState {
	cp := NoteState{
		NoteID:  st.NoteID,
		Threads: make([]comment.Thread, len(st.Threads)),
		Rows:    append([]comment.Row(nil), st.Rows...),
	}
	for i, th := range st.Threads {
		subs := make([]comment.Reply, len(th.SubComments))
		copy(subs, th.SubComments)
		th.SubComments = subs
		cp.Threads[i] = th
	}
	return cp
}
