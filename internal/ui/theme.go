package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Growthline theme (CLI + TUI).
// Kept intentionally small: reusable styles and a few emojis.

const (
	IconSprout   = "🌱"
	IconSparkle  = "✨"
	IconPlus     = "➕"
	IconDone     = "✅"
	IconTrophy   = "🏆"
	IconCoin     = "🪙"
	IconShop     = "🏪"
	IconBag      = "🎁"
	IconInfo     = "ℹ️"
	IconWarn     = "⚠️"
	IconError    = "🧨"
	IconBox      = "📦"
	IconLoop     = "🔁"
	IconCalendar = "📅"
	IconStar     = "⭐"
	IconClover   = "🍀"
)

var (
	cPrimary = lipgloss.Color("63")  // blue
	cAccent  = lipgloss.Color("205") // magenta
	cGood    = lipgloss.Color("42")  // green
	cWarn    = lipgloss.Color("214") // orange
	cBad     = lipgloss.Color("196") // red
	cMuted   = lipgloss.Color("244") // gray
	cGold    = lipgloss.Color("220") // gold
)

var (
	Title = lipgloss.NewStyle().Bold(true).Foreground(cAccent)
	H2    = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Muted = lipgloss.NewStyle().Foreground(cMuted)
	Key   = lipgloss.NewStyle().Bold(true).Foreground(cPrimary)
	Good  = lipgloss.NewStyle().Bold(true).Foreground(cGood)
	Warn  = lipgloss.NewStyle().Bold(true).Foreground(cWarn)
	Bad   = lipgloss.NewStyle().Bold(true).Foreground(cBad)
	Gold  = lipgloss.NewStyle().Bold(true).Foreground(cGold)
	Dim   = lipgloss.NewStyle().Foreground(cMuted)

	Panel       = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(cMuted).Padding(0, 1)
	SelectedRow = lipgloss.NewStyle().Bold(true).Foreground(cGold).Background(cPrimary)

	BadgeLevelUp = lipgloss.NewStyle().Bold(true).Foreground(cGold).Render("LEVEL UP")
)

func Heading(icon string, title string) string {
	icon = strings.TrimSpace(icon)
	if icon != "" {
		icon += " "
	}
	return Title.Render(icon + title)
}

func LabelValue(label string, value any) string {
	return fmt.Sprintf("%s %v", Key.Render(label+":"), value)
}

// Stars renders a task difficulty as filled stars.
func Stars(n int) string {
	if n < 1 {
		n = 1
	}
	if n > 5 {
		n = 5
	}
	return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
}

// TaskStatus renders a completed/open state with color.
func TaskStatus(completed bool) string {
	if completed {
		return Good.Render("done")
	}
	return Warn.Render("open")
}

// TypeIcon picks an icon per task type name.
func TypeIcon(taskType string) string {
	switch taskType {
	case "Daily":
		return IconLoop
	case "Weekly":
		return IconCalendar
	case "Semester":
		return IconBox
	default:
		return IconSprout
	}
}
