// Package dashboard renders the live capture monitor: one row per note
// with its captured/target counts and progress.
package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ycwu/xhswatch/internal/render"
	"github.com/ycwu/xhswatch/internal/store"
	"github.com/ycwu/xhswatch/internal/ui/messages"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF2442")).
			Padding(0, 1)

	statLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))

	statValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FF87"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#888888"))

	noteIDStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD75F"))

	doneStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FF87"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#777777")).
			Padding(0, 1)
)

// Model is the single-view dashboard.
type Model struct {
	store  *store.Store
	spin   spinner.Model
	prog   progress.Model
	status string
	width  int
	height int
}

// New creates the dashboard bound to the shared store.
func New(st *store.Store) Model {
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	pr := progress.New(progress.WithDefaultGradient(), progress.WithWidth(16), progress.WithoutPercentage())
	return Model{
		store:  st,
		spin:   sp,
		prog:   pr,
		status: "启动中...",
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spin.Tick
}

// Update handles input, spinner ticks and store-change notifications.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case messages.StatsUpdatedMsg:
		// View reads the store directly; nothing to carry over.

	case messages.StatusMsg:
		m.status = msg.Text
	}
	return m, nil
}

// View renders the totals, the per-note table and the status line.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("小红书评论抓取实时监控"))
	b.WriteString("\n\n")

	notes, comments := m.store.Totals()
	b.WriteString(fmt.Sprintf(" %s %s    %s %s\n\n",
		statLabelStyle.Render("总评论数:"),
		statValueStyle.Render(fmt.Sprintf("%d", comments)),
		statLabelStyle.Render("处理笔记数:"),
		statValueStyle.Render(fmt.Sprintf("%d", notes)),
	))

	snaps := m.store.Dashboard()
	if len(snaps) == 0 {
		b.WriteString(fmt.Sprintf(" %s 等待数据...\n", m.spin.View()))
	} else {
		b.WriteString(headerStyle.Render(fmt.Sprintf(" %-4s %-26s %-30s %12s  %s",
			"序号", "Note ID", "标题", "评论数", "进度")))
		b.WriteString("\n")
		for _, n := range snaps {
			b.WriteString(m.noteRow(n))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.status))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render("q 退出（退出时自动保存全部数据）"))
	return b.String()
}

func (m Model) noteRow(n store.NoteSnapshot) string {
	title := render.Plain(n.Title, 28)
	if title == "" {
		title = "未知标题"
	}

	count := fmt.Sprintf("%d", n.Captured)
	bar := m.spin.View() + " 等待中..."
	if n.Total > 0 {
		count = fmt.Sprintf("%d/%d", n.Captured, n.Total)
		pct := float64(n.Captured) / float64(n.Total)
		if pct >= 1 {
			bar = doneStyle.Render("✓ 100%")
		} else {
			bar = fmt.Sprintf("%s %4.1f%%", m.prog.ViewAs(pct), pct*100)
		}
	}

	return fmt.Sprintf(" %-4d %s %-30s %12s  %s",
		n.Ordinal,
		noteIDStyle.Render(fmt.Sprintf("%-26s", render.Truncate(n.NoteID, 24))),
		title,
		count,
		bar,
	)
}
