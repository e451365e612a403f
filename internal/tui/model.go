package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"growthline/internal/engine"
)

type boardModel struct {
	ctx context.Context
	svc *engine.Service

	width  int
	height int

	user         engine.User
	tasks        []engine.Task
	unlocked     int
	achievements int

	selected int

	lastLog string
	loading bool
	err     error
}

type loadedMsg struct {
	user         engine.User
	tasks        []engine.Task
	unlocked     int
	achievements int
	err          error
}

type completedMsg struct {
	id     int64
	reward engine.CompletionReward
	err    error
}

func newBoardModel(ctx context.Context, svc *engine.Service) boardModel {
	return boardModel{
		ctx:     ctx,
		svc:     svc,
		loading: true,
		lastLog: "Loaded.",
	}
}

func (m boardModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m boardModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		user, err := m.svc.Ledger.Current()
		if err != nil {
			return loadedMsg{err: err}
		}
		tasks, err := m.svc.Tasks.ListTasks(m.ctx)
		if err != nil {
			return loadedMsg{err: err}
		}
		all := m.svc.Achievements.List()
		unlocked := 0
		for _, a := range all {
			if a.Unlocked {
				unlocked++
			}
		}
		return loadedMsg{user: user, tasks: tasks, unlocked: unlocked, achievements: len(all)}
	}
}

func (m boardModel) completeCmd(id int64) tea.Cmd {
	return func() tea.Msg {
		reward, err := m.svc.Tasks.MarkTaskCompleted(m.ctx, id)
		return completedMsg{id: id, reward: reward, err: err}
	}
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case loadedMsg:
		m.loading = false
		m.err = msg.err
		if msg.err != nil {
			m.lastLog = "Load failed: " + msg.err.Error()
			return m, nil
		}
		m.user = msg.user
		m.tasks = msg.tasks
		m.unlocked = msg.unlocked
		m.achievements = msg.achievements
		if m.selected >= len(m.tasks) {
			m.selected = len(m.tasks) - 1
		}
		if m.selected < 0 {
			m.selected = 0
		}
		m.lastLog = fmt.Sprintf("Refreshed at %s.", time.Now().Format("15:04:05"))
		return m, nil
	case completedMsg:
		if msg.err != nil {
			m.lastLog = "Complete failed: " + msg.err.Error()
			return m, nil
		}
		m.lastLog = fmt.Sprintf("Completed %d: +%d coins, +%d growth", msg.id, msg.reward.Coins, msg.reward.Growth)
		return m, m.loadCmd()
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			m.loading = true
			m.lastLog = "Refreshing…"
			return m, m.loadCmd()
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case "down", "j":
			if m.selected < len(m.tasks)-1 {
				m.selected++
			}
			return m, nil
		case "c", " ":
			if m.selected < 0 || m.selected >= len(m.tasks) {
				return m, nil
			}
			t := m.tasks[m.selected]
			if t.Completed {
				m.lastLog = "Already done."
				return m, nil
			}
			m.lastLog = fmt.Sprintf("Completing %d…", t.ID)
			return m, m.completeCmd(t.ID)
		}
	}
	return m, nil
}

func (m boardModel) View() string {
	if m.err != nil {
		return "Error: " + m.err.Error() + "\n\nPress q to quit.\n"
	}

	header := m.renderHeader()
	sidebar := m.renderSidebar()
	main := m.renderMain()
	footer := m.renderFooter()

	// Simple 2-column layout.
	leftW := 26
	if m.width > 0 {
		maxLeft := m.width / 2
		if maxLeft < leftW {
			leftW = maxLeft
		}
		if leftW < 18 {
			leftW = 18
		}
	}

	linesLeft := strings.Split(sidebar, "\n")
	linesRight := strings.Split(main, "\n")
	max := len(linesLeft)
	if len(linesRight) > max {
		max = len(linesRight)
	}

	var body strings.Builder
	for i := 0; i < max; i++ {
		l := ""
		r := ""
		if i < len(linesLeft) {
			l = linesLeft[i]
		}
		if i < len(linesRight) {
			r = linesRight[i]
		}
		body.WriteString(padRight(l, leftW))
		body.WriteString("  ")
		body.WriteString(r)
		body.WriteString("\n")
	}

	return header + "\n" + body.String() + footer
}

func (m boardModel) renderHeader() string {
	if m.loading && m.user.Username == "" {
		return "Growthline — loading…"
	}
	lvl := m.user.Level
	floor := levelFloorGrowth(lvl)
	next := levelFloorGrowth(lvl + 1)
	bar := progressBar(m.user.Growth-floor, next-floor, 30)
	return fmt.Sprintf("Growthline | Level %d | Growth %d %s | Coins %d", lvl, m.user.Growth, bar, m.user.Coins)
}

// levelFloorGrowth is the minimum growth that yields the given level,
// the inverse of the level curve.
func levelFloorGrowth(level int) int {
	if level <= 1 {
		return 0
	}
	n := level - 1
	return n * n * 100
}

func (m boardModel) renderSidebar() string {
	a := m.user.Attributes
	lines := []string{"Attributes"}
	lines = append(lines, fmt.Sprintf("- EXE %3d", a.Execution))
	lines = append(lines, fmt.Sprintf("- PER %3d", a.Perseverance))
	lines = append(lines, fmt.Sprintf("- DEC %3d", a.Decision))
	lines = append(lines, fmt.Sprintf("- KNO %3d", a.Knowledge))
	lines = append(lines, fmt.Sprintf("- SOC %3d", a.Social))
	lines = append(lines, fmt.Sprintf("- PRI %3d", a.Pride))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("Achievements %d/%d", m.unlocked, m.achievements))
	lines = append(lines, "")
	lines = append(lines, "Keys")
	lines = append(lines, "- ↑/↓ or j/k: move")
	lines = append(lines, "- c/space: complete")
	lines = append(lines, "- r: refresh")
	lines = append(lines, "- q: quit")
	return strings.Join(lines, "\n")
}

func (m boardModel) renderMain() string {
	if m.loading {
		return "Loading…"
	}
	focus := m.focusTasks(3)
	var out []string
	out = append(out, "Focus")
	if len(focus) == 0 {
		out = append(out, "(nothing open)")
	} else {
		for _, t := range focus {
			out = append(out, fmt.Sprintf("- %d %s (%s, %d★)", t.ID, t.Name, t.Type, t.DifficultyStars))
		}
	}
	out = append(out, "")
	out = append(out, "Task List")

	if len(m.tasks) == 0 {
		out = append(out, "(empty)")
		return strings.Join(out, "\n")
	}
	for i, t := range m.tasks {
		cursor := "  "
		if i == m.selected {
			cursor = "> "
		}
		status := "open"
		if t.Completed {
			status = "done"
		}
		streak := ""
		if t.BonusStreak > 0 {
			streak = fmt.Sprintf(" streak=%d", t.BonusStreak)
		}
		out = append(out, fmt.Sprintf("%s%d %s [%s] (%s)%s", cursor, t.ID, t.Name, t.Type, status, streak))
	}
	return strings.Join(out, "\n")
}

func (m boardModel) renderFooter() string {
	return "\n" + m.lastLog
}

// focusTasks surfaces the open tasks with the nearest deadlines.
func (m boardModel) focusTasks(n int) []engine.Task {
	var open []engine.Task
	for _, t := range m.tasks {
		if !t.Completed {
			open = append(open, t)
		}
	}
	sort.Slice(open, func(i, j int) bool {
		ai := open[i].Deadline
		aj := open[j].Deadline
		if ai == nil && aj != nil {
			return false
		}
		if ai != nil && aj == nil {
			return true
		}
		if ai != nil && aj != nil && !ai.Equal(*aj) {
			return ai.Before(*aj)
		}
		return open[i].ID < open[j].ID
	})
	if len(open) > n {
		open = open[:n]
	}
	return open
}

func progressBar(value int, total int, width int) string {
	if total <= 0 {
		total = 1
	}
	if width <= 3 {
		width = 3
	}
	if value < 0 {
		value = 0
	}
	if value > total {
		value = total
	}
	ratio := float64(value) / float64(total)
	filled := int(ratio * float64(width))
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

func padRight(s string, width int) string {
	if width <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) >= width {
		return string(r[:width])
	}
	return s + strings.Repeat(" ", width-len(r))
}
