// Package driver runs the headed Chromium session that supplies comment
// API response events: one persistent context holding the login session,
// one tab per note, and a context-wide response listener feeding the
// pipeline.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/ycwu/xhswatch/internal/config"
	"github.com/ycwu/xhswatch/internal/ingest"
)

// Predicate decides whether a response URL is worth fetching the body
// for; Handler receives the matching URL/body pairs.
type (
	Predicate func(url string) bool
	Handler   func(url string, body []byte)
)

// NoteInfo is what opening a note tab learned about it.
type NoteInfo struct {
	NoteID string
	Title  string
	Total  int
}

// Session wraps the persistent browser context. The profile directory
// keeps cookies, so a scan login is only needed on the first run.
type Session struct {
	cfg     config.Config
	pw      *playwright.Playwright
	browser playwright.BrowserContext

	mu    sync.Mutex
	pages map[string]playwright.Page // note id -> tab
}

var totalPattern = regexp.MustCompile(`共\s*(\d+)\s*条评论`)

// Launch starts Chromium with a persistent profile and subscribes the
// handler to matching responses across every tab.
func Launch(cfg config.Config, match Predicate, handle Handler) (*Session, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("starting playwright: %w", err)
	}

	browser, err := pw.Chromium.LaunchPersistentContext(cfg.ProfileDir,
		playwright.BrowserTypeLaunchPersistentContextOptions{
			Headless: playwright.Bool(false),
			Channel:  playwright.String("chrome"),
			Args:     []string{"--disable-blink-features=AutomationControlled"},
		})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	s := &Session{
		cfg:     cfg,
		pw:      pw,
		browser: browser,
		pages:   make(map[string]playwright.Page),
	}

	browser.OnResponse(func(resp playwright.Response) {
		url := resp.URL()
		if !match(url) {
			return
		}
		// Body blocks until the response finishes; keep the event
		// goroutine free.
		go func() {
			body, err := resp.Body()
			if err != nil {
				slog.Debug("reading response body", "url", url, "error", err)
				return
			}
			handle(url, body)
		}()
	})

	return s, nil
}

// OpenHome navigates a fresh tab to the site home page, where the login
// QR code appears when the session is stale.
func (s *Session) OpenHome() (playwright.Page, error) {
	page, err := s.browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("opening home tab: %w", err)
	}
	if _, err := page.Goto(s.cfg.HomeURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.cfg.NavTimeout.Milliseconds())),
	}); err != nil {
		return nil, fmt.Errorf("opening home page: %w", err)
	}
	page.WaitForTimeout(float64(s.cfg.SettleDelay.Milliseconds()))
	return page, nil
}

// WaitForLogin polls the home page until the login prompts disappear or
// the timeout passes. Timing out is not an error: capture proceeds and
// simply sees whatever an anonymous session sees.
func (s *Session) WaitForLogin(ctx context.Context, page playwright.Page) bool {
	deadline := time.Now().Add(s.cfg.LoginTimeout)
	ticker := time.NewTicker(s.cfg.LoginPoll)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}

		result, err := page.Evaluate(`() => {
			const text = document.body.innerText || '';
			return !text.includes('登录') &&
			       !text.includes('立即登录') &&
			       !text.includes('请登录') &&
			       !text.includes('扫码登录');
		}`)
		if err != nil {
			slog.Debug("login check failed", "error", err)
			continue
		}
		if loggedIn, ok := result.(bool); ok && loggedIn {
			slog.Info("login detected")
			return true
		}
	}
	slog.Warn("timed out waiting for login, continuing anyway")
	return false
}

// OpenNote opens a note URL in its own tab and scrapes the page title
// and the displayed total comment count.
func (s *Session) OpenNote(url string) (NoteInfo, error) {
	page, err := s.browser.NewPage()
	if err != nil {
		return NoteInfo{}, fmt.Errorf("opening tab: %w", err)
	}
	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(s.cfg.NavTimeout.Milliseconds())),
	}); err != nil {
		page.Close()
		return NoteInfo{}, fmt.Errorf("opening %s: %w", url, err)
	}
	page.WaitForTimeout(float64(s.cfg.SettleDelay.Milliseconds()))

	info := NoteInfo{NoteID: ingest.NoteIDFromURL(url)}
	if info.NoteID == "" {
		// Short links redirect; the final URL carries the id.
		info.NoteID = ingest.NoteIDFromURL(page.URL())
	}
	if title, err := page.Title(); err == nil {
		info.Title = title
	}
	info.Total = totalCount(page)

	if info.NoteID != "" {
		s.mu.Lock()
		s.pages[info.NoteID] = page
		s.mu.Unlock()
	}
	return info, nil
}

// RefreshTotals re-reads the total comment count from every open note
// tab, reporting each via fn. Counts render only after comments load,
// so early reads often come back zero.
func (s *Session) RefreshTotals(fn func(noteID string, total int)) {
	s.mu.Lock()
	pages := make(map[string]playwright.Page, len(s.pages))
	for id, p := range s.pages {
		pages[id] = p
	}
	s.mu.Unlock()

	for id, page := range pages {
		if page.IsClosed() {
			continue
		}
		if total := totalCount(page); total > 0 {
			fn(id, total)
		}
	}
}

// totalCount scrapes the "共 N 条评论" element off a note page.
func totalCount(page playwright.Page) int {
	el, err := page.QuerySelector(".total")
	if err != nil || el == nil {
		return 0
	}
	text, err := el.InnerText()
	if err != nil {
		return 0
	}
	m := totalPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// Close shuts the browser and the playwright driver down. Errors are
// swallowed; at this point the data has already been flushed.
func (s *Session) Close() {
	if err := s.browser.Close(); err != nil {
		slog.Debug("closing browser", "error", err)
	}
	if err := s.pw.Stop(); err != nil {
		slog.Debug("stopping playwright", "error", err)
	}
}
