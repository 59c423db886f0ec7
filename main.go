package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/ycwu/xhswatch/internal/cache"
	"github.com/ycwu/xhswatch/internal/config"
	"github.com/ycwu/xhswatch/internal/driver"
	"github.com/ycwu/xhswatch/internal/ingest"
	"github.com/ycwu/xhswatch/internal/pipeline"
	"github.com/ycwu/xhswatch/internal/sink"
	"github.com/ycwu/xhswatch/internal/store"
	"github.com/ycwu/xhswatch/internal/ui/dashboard"
	"github.com/ycwu/xhswatch/internal/ui/messages"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			"Usage: %s [note-url ...]\n\nNote URLs may also be listed in the workbook next to the binary.\n",
			os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := config.Default()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("creating data dir: %v", err)
	}

	// The TUI owns stdout, so logs go to a file.
	logFile, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Fatalf("opening log file: %v", err)
	}
	defer logFile.Close()
	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, nil)))

	urls := gatherURLs(cfg, flag.Args())
	if len(urls) == 0 {
		log.Fatalf("no note URLs: pass them as arguments or fill in %s", cfg.ExcelPath)
	}

	db, err := cache.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("opening capture history: %v", err)
	}
	defer db.Close()

	st := store.New()
	restoreHistory(st, db)

	writer := sink.New(cfg.OutputDir)
	pipe := pipeline.New(cfg, st, writer, db)

	sess, err := driver.Launch(cfg, pipeline.Matches, pipe.Submit)
	if err != nil {
		log.Fatalf("launching browser: %v", err)
	}
	defer sess.Close()

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(signalCtx)
	defer cancel()

	program := tea.NewProgram(dashboard.New(st), tea.WithAltScreen())
	pipe.SetNotify(func() {
		program.Send(messages.StatsUpdatedMsg{})
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pipe.Run(gctx) })
	g.Go(func() error { return pipe.RunFlushLoop(gctx) })
	g.Go(func() error { return capture(gctx, cfg, sess, st, db, program, urls) })
	g.Go(func() error {
		// Interrupt or any background failure tears the TUI down.
		<-gctx.Done()
		program.Quit()
		return nil
	})

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	cancel()
	g.Wait()

	// Final best-effort flush before the browser goes away.
	pipe.FlushAll()
	notes, comments := st.Totals()
	fmt.Printf("已保存 %d 条评论，覆盖 %d 个笔记\n", comments, notes)
	fmt.Printf("数据目录: %s\n", writer.Dir())
}

// gatherURLs merges CLI arguments with the workbook, dropping repeats.
// A missing workbook is fine; anything else about it is worth a log line.
func gatherURLs(cfg config.Config, args []string) []string {
	urls := append([]string(nil), args...)
	fromExcel, err := ingest.ReadExcel(cfg.ExcelPath)
	if err != nil {
		if _, statErr := os.Stat(cfg.ExcelPath); statErr == nil {
			slog.Warn("reading workbook", "path", cfg.ExcelPath, "error", err)
		}
	} else {
		slog.Info("workbook loaded", "path", cfg.ExcelPath, "urls", len(fromExcel))
		urls = append(urls, fromExcel...)
	}
	return ingest.Dedupe(urls)
}

// restoreHistory seeds the store from previous runs so dedup and the
// dashboard counts carry over.
func restoreHistory(st *store.Store, db *cache.DB) {
	notes, err := db.Notes()
	if err != nil {
		slog.Warn("loading capture history", "error", err)
		return
	}
	for _, n := range notes {
		rows, err := db.RowsForNote(n.NoteID)
		if err != nil {
			slog.Warn("loading note history", "note_id", n.NoteID, "error", err)
			continue
		}
		st.Restore(n.NoteID, n.Title, n.TotalCount, rows)
	}
	if len(notes) > 0 {
		_, comments := st.Totals()
		slog.Info("capture history restored", "notes", len(notes), "comments", comments)
	}
}

// capture drives the browser: wait for login, open every note in its
// own tab, then keep the displayed totals fresh until shutdown.
func capture(ctx context.Context, cfg config.Config, sess *driver.Session, st *store.Store, db *cache.DB, program *tea.Program, urls []string) error {
	home, err := sess.OpenHome()
	if err != nil {
		return err
	}

	program.Send(messages.StatusMsg{Text: "等待扫码登录（首次运行需要登录，之后会记住会话）..."})
	sess.WaitForLogin(ctx, home)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	program.Send(messages.StatusMsg{Text: "打开笔记链接中..."})
	for i, url := range urls {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		info, err := sess.OpenNote(url)
		if err != nil {
			slog.Error("opening note", "url", url, "error", err)
			continue
		}
		if info.NoteID == "" {
			slog.Warn("no note id in url", "url", url)
			continue
		}
		st.Register(info.NoteID)
		st.SetTitle(info.NoteID, info.Title)
		st.SetTotalCount(info.NoteID, info.Total)
		if meta, ok := st.Meta(info.NoteID); ok {
			if err := db.UpsertNote(info.NoteID, meta.Title, meta.Ordinal, meta.TotalCount); err != nil {
				slog.Warn("recording note metadata", "note_id", info.NoteID, "error", err)
			}
		}
		program.Send(messages.StatsUpdatedMsg{})

		if i < len(urls)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(cfg.OpenDelay):
			}
		}
	}

	program.Send(messages.StatusMsg{Text: "监听评论数据中，在浏览器里翻页浏览评论即可抓取"})

	ticker := time.NewTicker(cfg.TotalsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			sess.RefreshTotals(st.SetTotalCount)
			program.Send(messages.StatsUpdatedMsg{})
		}
	}
}
