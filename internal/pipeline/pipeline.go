// Package pipeline chains the response filter, the comment parser, the
// dedup merge and the persistence sink. A single goroutine drains the
// event channel, so merges for a note are applied in the order their
// responses arrived; the browser side only submits events.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/ycwu/xhswatch/internal/cache"
	"github.com/ycwu/xhswatch/internal/comment"
	"github.com/ycwu/xhswatch/internal/config"
	"github.com/ycwu/xhswatch/internal/sink"
	"github.com/ycwu/xhswatch/internal/store"
)

// Event is one intercepted network response.
type Event struct {
	URL  string
	Body []byte
}

// Pipeline consumes response events and keeps the store, the capture
// history and the output files in sync.
type Pipeline struct {
	cfg    config.Config
	store  *store.Store
	sink   *sink.Writer
	cache  *cache.DB // nil disables capture history
	events chan Event
	notify func() // set before Run; called after each successful merge
}

// New wires a pipeline. db may be nil when no capture history is wanted.
func New(cfg config.Config, st *store.Store, w *sink.Writer, db *cache.DB) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		store:  st,
		sink:   w,
		cache:  db,
		events: make(chan Event, cfg.EventBuffer),
	}
}

// SetNotify registers a callback invoked after every merge that added
// data, typically to refresh the dashboard. Must be set before Run.
func (p *Pipeline) SetNotify(fn func()) { p.notify = fn }

// Matches is the subscription predicate form of MatchCommentAPI.
func Matches(url string) bool {
	_, ok := MatchCommentAPI(url)
	return ok
}

// Submit queues a response event. Submissions never block the browser
// callback: if the buffer is full the event is dropped with a warning,
// and the page will be re-fetched by the user scrolling anyway.
func (p *Pipeline) Submit(url string, body []byte) {
	select {
	case p.events <- Event{URL: url, Body: body}:
	default:
		slog.Warn("event buffer full, dropping response", "url", url)
	}
}

// Run drains the event channel until ctx is cancelled. A failure while
// handling one event never stops the loop.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-p.events:
			p.handle(ev)
		}
	}
}

// RunFlushLoop rewrites the aggregate files on a fixed cadence,
// independent of event activity.
func (p *Pipeline) RunFlushLoop(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.FlushAggregate()
		}
	}
}

func (p *Pipeline) handle(ev Event) {
	noteID, ok := MatchCommentAPI(ev.URL)
	if !ok {
		return
	}

	threads, rows := comment.Parse(ev.Body, noteID)
	if len(threads) == 0 && len(rows) == 0 {
		// Unsuccessful or malformed body: absence of data, not an error.
		return
	}

	res := p.store.Upsert(noteID, threads, rows)
	if !res.Added() {
		return
	}
	slog.Info("merged comments", "note_id", noteID,
		"new_threads", res.NewThreads, "new_comments", res.NewComments)

	if p.cache != nil {
		if err := p.cache.InsertRows(res.AddedRows); err != nil {
			slog.Warn("recording capture history", "note_id", noteID, "error", err)
		}
		if meta, ok := p.store.Meta(noteID); ok {
			if err := p.cache.UpsertNote(noteID, meta.Title, meta.Ordinal, meta.TotalCount); err != nil {
				slog.Warn("recording note metadata", "note_id", noteID, "error", err)
			}
		}
	}

	p.FlushNote(noteID)
	p.FlushAggregate()

	if p.notify != nil {
		p.notify()
	}
}

// FlushNote writes one note's JSON/CSV pair. Write failures are logged
// and never block other notes or future merges.
func (p *Pipeline) FlushNote(noteID string) {
	st, ok := p.store.Get(noteID)
	if !ok {
		return
	}
	meta, _ := p.store.Meta(noteID)
	if err := p.sink.WriteNote(st, meta); err != nil {
		slog.Error("writing note files", "note_id", noteID, "error", err)
	}
}

// FlushAggregate rewrites the aggregate pair from the current union.
func (p *Pipeline) FlushAggregate() {
	if err := p.sink.WriteAggregate(p.store.Snapshot()); err != nil {
		slog.Error("writing aggregate files", "error", err)
	}
}

// FlushAll performs the best-effort shutdown flush: every note's pair
// plus the aggregate. Errors are logged per file and swallowed.
func (p *Pipeline) FlushAll() {
	for _, st := range p.store.Snapshot() {
		p.FlushNote(st.NoteID)
	}
	p.FlushAggregate()
}
