package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"

	"github.com/aisentools/msfix/internal/report"
	"github.com/aisentools/msfix/internal/scene"
	"github.com/aisentools/msfix/utils"
)

const (
	chartMinWidth = 100
	chartWidth    = 40
	// header, tabs, counters, search, status, toggles, help
	chromeHeight = 8
)

func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	header := m.renderHeader()
	body := m.renderList()
	if m.width >= chartMinWidth && m.result != nil {
		chart := m.renderChart(chartWidth, m.listHeight())
		listWidth := m.width - chartWidth - 3
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(listWidth).Render(body),
			" │ ",
			chart)
	}
	body = lipgloss.NewStyle().Height(m.listHeight()).Render(body)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		m.renderStatus(),
		m.renderToggles(),
		utils.HelpBarStyle.Render(m.help.View(m.keys)),
	)
}

func (m *Model) renderHeader() string {
	title := utils.TitleStyle.Render("🧩 " + report.Title)
	if m.opts.Project != "" {
		title += utils.MutedStyle.Render(" " + m.opts.Project)
	}

	var tabs []string
	for f := allKinds; f <= scenesOnly; f++ {
		style, indicator := utils.TabInactiveStyle, " "
		if f == m.filter {
			style, indicator = utils.TabActiveStyle, "●"
		}
		tabs = append(tabs, style.Render(fmt.Sprintf("%s %s (%d)", indicator, f, m.countKind(f))))
	}

	counters := utils.MutedStyle.Render("No scan yet")
	if m.result != nil {
		counters = fmt.Sprintf("Total: %d  |  Shown: %d  |  Prefabs: %d  |  Scenes: %d  |  Time: %s",
			m.result.Set.Len(), len(m.visible),
			m.result.Set.CountBy(scene.Prefab), m.result.Set.CountBy(scene.Scene),
			utils.FormatDuration(m.result.Elapsed))
	}

	search := m.search.View()
	if !m.searching && m.search.Value() == "" {
		search = utils.MutedStyle.Render("press / to search")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		strings.Join(tabs, "  "),
		counters,
		search,
		strings.Repeat("─", max(m.width, 1)),
	)
}

func (m *Model) countKind(f kindFilter) int {
	if m.result == nil {
		return 0
	}
	switch f {
	case prefabsOnly:
		return m.result.Set.CountBy(scene.Prefab)
	case scenesOnly:
		return m.result.Set.CountBy(scene.Scene)
	default:
		return m.result.Set.Len()
	}
}

func (m *Model) renderList() string {
	if m.result == nil {
		return ""
	}
	if len(m.visible) == 0 {
		if m.result.Set.Len() == 0 {
			return utils.GoodStyle.Render("✅ No missing scripts found")
		}
		return utils.MutedStyle.Render("No findings match the current filter")
	}

	height := m.listHeight()
	end := min(m.offset+height, len(m.visible))
	lines := make([]string, 0, height)
	for i := m.offset; i < end; i++ {
		f := m.visible[i]
		line := fmt.Sprintf("%s %s  %s",
			utils.KindStyle(f.Kind.String()).Render(fmt.Sprintf("%-6s", f.Kind)),
			f.SourcePath,
			utils.MutedStyle.Render(f.ObjectPath))
		if i == m.selected {
			line = utils.SelectedStyle.Render(fmt.Sprintf("%-6s %s  %s", f.Kind, f.SourcePath, f.ObjectPath))
		}
		lines = append(lines, line)
	}

	if m.offset > 0 || end < len(m.visible) {
		lines[len(lines)-1] = fmt.Sprintf("%s (Line %d-%d of %d) %s",
			utils.MutedStyle.Render("▲"), m.offset+1, end, len(m.visible), utils.MutedStyle.Render("▼"))
	}
	return strings.Join(lines, "\n")
}

// renderChart draws the findings-per-folder bars for the current view.
func (m *Model) renderChart(width, height int) string {
	folders := report.ByFolder(m.visible)
	if len(folders) == 0 {
		return ""
	}
	folders = folders[:min(len(folders), max(1, height/2))]

	bars := make([]barchart.BarData, 0, len(folders))
	for _, fc := range folders {
		bars = append(bars, barchart.BarData{
			Label: utils.TruncateLeft(fc.Folder, 14),
			Values: []barchart.BarValue{{
				Name:  fc.Folder,
				Value: float64(fc.Count),
				Style: lipgloss.NewStyle().Foreground(utils.WarningColor),
			}},
		})
	}

	chart := barchart.New(width, min(height, len(bars)*2),
		barchart.WithDataSet(bars),
		barchart.WithHorizontalBars(),
		barchart.WithStyles(utils.MutedStyle, utils.TextStyle))
	chart.Draw()
	return lipgloss.JoinVertical(lipgloss.Left, utils.InfoStyle.Render("📂 By folder"), chart.View())
}

func (m *Model) renderStatus() string {
	switch {
	case m.busy:
		text := fmt.Sprintf("%s %s", m.spinner.View(), m.busyText)
		if m.progress.label != "" {
			text += fmt.Sprintf("  %s %s %s",
				m.progress.label,
				utils.CreateProgressBar(m.progress.fraction, 20, utils.InfoColor),
				utils.TruncateLeft(m.progress.path, max(10, m.width-60)))
		}
		return text
	case m.asking:
		what := "the open scenes"
		if m.pending == scene.Prefab {
			what = utils.Plural(len(m.result.Set.SourcePaths(scene.Prefab)), "prefab")
		}
		return utils.WarningStyle.Render(fmt.Sprintf("Remove missing scripts from %s? [y/n]", what))
	case m.err != nil:
		return utils.ErrorStyle.Render("❌ " + m.err.Error())
	default:
		return utils.TextStyle.Render(m.status)
	}
}

func (m *Model) renderToggles() string {
	onOff := func(name string, on bool) string {
		if on {
			return utils.GoodStyle.Render(name + ": on")
		}
		return utils.MutedStyle.Render(name + ": off")
	}
	return utils.StatusBarStyle.Render(onOff("dry run", m.dryRun) + "  " + onOff("backup", m.backup))
}

func (m *Model) listHeight() int {
	return max(m.height-chromeHeight-2, 3)
}

// scrollOffset keeps selected inside a window of height rows.
func scrollOffset(offset, selected, height int) int {
	if selected < offset {
		return selected
	}
	if selected >= offset+height {
		return selected - height + 1
	}
	return max(offset, 0)
}
