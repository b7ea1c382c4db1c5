package utils

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	CriticalColor = lipgloss.Color("#CC3333") // Dark red
	WarningColor  = lipgloss.Color("#FF8800") // Orange
	GoodColor     = lipgloss.Color("#228B22") // Forest green
	InfoColor     = lipgloss.Color("#4682B4") // Steel blue
	TextColor     = lipgloss.Color("#CCCCCC") // Light gray
	MutedColor    = lipgloss.Color("#888888") // Medium gray
	BorderColor   = lipgloss.Color("#666666") // Dark gray

	WarningLightColor = lipgloss.Color("#FFAA44")
	InfoLightColor    = lipgloss.Color("#88AACC")
)

var (
	CriticalStyle = lipgloss.NewStyle().Foreground(CriticalColor).Bold(true)
	WarningStyle  = lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
	GoodStyle     = lipgloss.NewStyle().Foreground(GoodColor).Bold(true)
	InfoStyle     = lipgloss.NewStyle().Foreground(InfoColor)
	MutedStyle    = lipgloss.NewStyle().Foreground(MutedColor)
	TextStyle     = lipgloss.NewStyle().Foreground(TextColor)

	WarningLightStyle = lipgloss.NewStyle().Foreground(WarningLightColor)
	InfoLightStyle    = lipgloss.NewStyle().Foreground(InfoLightColor)
)

var (
	TabActiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(InfoColor).
			Padding(0, 1).
			Bold(true)

	TabInactiveStyle = lipgloss.NewStyle().
				Foreground(MutedColor).
				Padding(0, 1)
)

var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true).
			Padding(0, 1)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#2a4a6a")).
			Bold(true)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Background(lipgloss.Color("#333333")).
			Padding(0, 1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(CriticalColor).
			Bold(true).
			Padding(0, 1)

	HelpBarStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Padding(0, 1)
)

// KindStyle colors a source kind label.
func KindStyle(kind string) lipgloss.Style {
	switch strings.ToLower(kind) {
	case "prefab":
		return InfoLightStyle
	case "scene":
		return WarningLightStyle
	default:
		return TextStyle
	}
}

func unicodeBars() bool {
	// Windows conhost without a modern terminal mangles block characters.
	return os.Getenv("WT_SESSION") != "" || os.PathSeparator == '/'
}

func CreateProgressBar(percentage float64, width int, color lipgloss.Color) string {
	if width < 4 {
		return fmt.Sprintf("%.0f%%", percentage*100)
	}

	fill, empty := "█", "░"
	if !unicodeBars() {
		fill, empty = "#", "-"
	}

	filled := int(math.Round(percentage * float64(width)))
	filled = max(0, min(width, filled))

	bar := strings.Repeat(fill, filled) + strings.Repeat(empty, width-filled)
	if color != "" {
		bar = lipgloss.NewStyle().Foreground(color).Render(bar)
	}
	return bar
}

// TruncateLeft keeps the tail of s, which is the informative end of a path.
func TruncateLeft(s string, maxWidth int) string {
	r := []rune(s)
	if len(r) <= maxWidth {
		return s
	}
	if maxWidth < 4 {
		return strings.Repeat(".", max(0, maxWidth))
	}
	return "..." + string(r[len(r)-maxWidth+3:])
}

func PadRight(s string, width int) string {
	if n := lipgloss.Width(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
