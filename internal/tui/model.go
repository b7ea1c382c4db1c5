package tui

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aisentools/msfix/internal/detect"
	"github.com/aisentools/msfix/internal/repair"
	"github.com/aisentools/msfix/internal/report"
	"github.com/aisentools/msfix/internal/scan"
	"github.com/aisentools/msfix/internal/scene"
	"github.com/aisentools/msfix/utils"
)

const PageSize = 10

// Backend runs scans and repairs for the browser. Calls never overlap.
type Backend interface {
	Scan(ctx context.Context, roots []string, progress scan.Progress) (*scan.Result, error)
	Repair(ctx context.Context, kind scene.Kind, set *detect.ResultSet, opts repair.Options, progress scan.Progress) *repair.Report
}

type Options struct {
	Project string
	Roots   []string
	Backup  bool
	Confirm bool
}

type kindFilter int

const (
	allKinds kindFilter = iota
	prefabsOnly
	scenesOnly
)

func (f kindFilter) String() string {
	switch f {
	case prefabsOnly:
		return "Prefabs"
	case scenesOnly:
		return "Scenes"
	default:
		return "All"
	}
}

func (f kindFilter) match(kind scene.Kind) bool {
	switch f {
	case prefabsOnly:
		return kind == scene.Prefab
	case scenesOnly:
		return kind == scene.Scene
	default:
		return true
	}
}

type progressMsg struct {
	label    string
	path     string
	fraction float64
}

type scanDoneMsg struct {
	result *scan.Result
	err    error
}

type repairDoneMsg struct {
	report *repair.Report
}

type copiedMsg struct {
	n   int
	err error
}

type Model struct {
	backend Backend
	opts    Options
	copyLog func([]detect.Finding, time.Time) error
	send    func(tea.Msg)
	now     func() time.Time

	result  *scan.Result
	visible []detect.Finding

	search    textinput.Model
	searching bool
	filter    kindFilter
	selected  int
	offset    int

	dryRun  bool
	backup  bool
	asking  bool
	pending scene.Kind

	busy     bool
	busyText string
	progress progressMsg
	cancel   atomic.Bool
	spinner  spinner.Model

	status string
	err    error

	help help.Model
	keys KeyMap

	width  int
	height int
}

func New(backend Backend, opts Options) *Model {
	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "path, object or kind"
	search.CharLimit = 256

	return &Model{
		backend: backend,
		opts:    opts,
		copyLog: report.CopyLog,
		now:     time.Now,
		search:  search,
		backup:  opts.Backup,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(utils.InfoStyle)),
		help:    help.New(),
		keys:    DefaultKeyMap(),
	}
}

func (m *Model) Init() tea.Cmd {
	return m.startScan()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.clampSelection()

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressMsg:
		m.progress = msg

	case scanDoneMsg:
		m.busy = false
		m.err = msg.err
		if msg.result != nil {
			m.result = msg.result
			m.status = m.scanStatus()
		}
		m.refilter()

	case repairDoneMsg:
		m.busy = false
		m.status = repairStatus(msg.report)
		if !msg.report.DryRun && msg.report.Changed() {
			return m, m.startScan()
		}

	case copiedMsg:
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.status = fmt.Sprintf("📋 Copied %s to clipboard", utils.Plural(msg.n, "finding"))
		}

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.cancel.Store(true)
		return m, tea.Quit
	}

	switch {
	case m.searching:
		return m.handleSearchKey(msg)
	case m.asking:
		return m.handleConfirmKey(msg)
	case m.busy:
		if key.Matches(msg, m.keys.Cancel) {
			m.cancel.Store(true)
			m.busyText = "Cancelling"
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
	case key.Matches(msg, m.keys.PageUp):
		m.moveSelection(-PageSize)
	case key.Matches(msg, m.keys.PageDown):
		m.moveSelection(PageSize)
	case key.Matches(msg, m.keys.NextFilter):
		m.filter = utils.Cycle(m.filter, 1, scenesOnly)
		m.refilter()
	case key.Matches(msg, m.keys.PrevFilter):
		m.filter = utils.Cycle(m.filter, -1, scenesOnly)
		m.refilter()
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.Rescan):
		return m, m.startScan()
	case key.Matches(msg, m.keys.RepairPrefabs):
		return m, m.requestRepair(scene.Prefab)
	case key.Matches(msg, m.keys.RepairScenes):
		return m, m.requestRepair(scene.Scene)
	case key.Matches(msg, m.keys.DryRun):
		m.dryRun = !m.dryRun
	case key.Matches(msg, m.keys.Backup):
		m.backup = !m.backup
	case key.Matches(msg, m.keys.Copy):
		return m, m.copyVisible()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Cancel):
		m.err = nil
	}
	return m, nil
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		return m, nil
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.refilter()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.refilter()
	return m, cmd
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.asking = false
		return m, m.startRepair(m.pending)
	case key.Matches(msg, m.keys.Deny):
		m.asking = false
		m.status = "Repair aborted"
	}
	return m, nil
}

func (m *Model) requestRepair(kind scene.Kind) tea.Cmd {
	if kind == scene.Prefab && (m.result == nil || m.result.Set.CountBy(scene.Prefab) == 0) {
		m.status = "No prefab findings to repair"
		return nil
	}
	if m.opts.Confirm && !m.dryRun {
		m.asking = true
		m.pending = kind
		return nil
	}
	return m.startRepair(kind)
}

// progressFunc forwards progress to the program and reports the cancel flag.
func (m *Model) progressFunc() scan.Progress {
	send := m.send
	return scan.ProgressFunc(func(label, path string, fraction float64) bool {
		if send != nil {
			send(progressMsg{label: label, path: path, fraction: fraction})
		}
		return m.cancel.Load()
	})
}

func (m *Model) begin(text string) {
	m.busy = true
	m.busyText = text
	m.progress = progressMsg{}
	m.cancel.Store(false)
	m.err = nil
}

func (m *Model) startScan() tea.Cmd {
	if m.busy {
		return nil
	}
	m.begin("Scanning")
	backend, roots, progress := m.backend, m.opts.Roots, m.progressFunc()
	run := func() tea.Msg {
		res, err := backend.Scan(context.Background(), roots, progress)
		return scanDoneMsg{result: res, err: err}
	}
	return tea.Batch(m.spinner.Tick, run)
}

func (m *Model) startRepair(kind scene.Kind) tea.Cmd {
	if m.busy {
		return nil
	}
	m.begin("Repairing")
	var set *detect.ResultSet
	if m.result != nil {
		set = m.result.Set
	}
	backend, progress := m.backend, m.progressFunc()
	opts := repair.Options{DryRun: m.dryRun, MakeBackup: m.backup}
	run := func() tea.Msg {
		return repairDoneMsg{report: backend.Repair(context.Background(), kind, set, opts, progress)}
	}
	return tea.Batch(m.spinner.Tick, run)
}

func (m *Model) copyVisible() tea.Cmd {
	findings := append([]detect.Finding(nil), m.visible...)
	copyLog, now := m.copyLog, m.now()
	return func() tea.Msg {
		return copiedMsg{n: len(findings), err: copyLog(findings, now)}
	}
}

func (m *Model) refilter() {
	m.visible = m.visible[:0]
	if m.result != nil {
		for _, f := range m.result.Set.Filter(m.search.Value()) {
			if m.filter.match(f.Kind) {
				m.visible = append(m.visible, f)
			}
		}
	}
	m.clampSelection()
}

func (m *Model) moveSelection(delta int) {
	m.selected += delta
	m.clampSelection()
}

func (m *Model) clampSelection() {
	m.selected = max(0, min(m.selected, len(m.visible)-1))
	m.offset = scrollOffset(m.offset, m.selected, m.listHeight())
}

func (m *Model) scanStatus() string {
	res := m.result
	text := fmt.Sprintf("Scanned %s in %s", utils.Plural(res.Sources, "source"), utils.FormatDuration(res.Elapsed))
	if res.Cancelled {
		text += " (cancelled, partial results)"
	}
	if len(res.Warnings) > 0 {
		text += fmt.Sprintf(", %s", utils.Plural(len(res.Warnings), "warning"))
	}
	return text
}

func repairStatus(rep *repair.Report) string {
	if rep.DryRun {
		return fmt.Sprintf("🔎 Dry run: would remove %s", utils.Plural(rep.Removed(), "component"))
	}
	text := fmt.Sprintf("🔧 Removed %s, repaired %s",
		utils.Plural(rep.Removed(), "component"), utils.Plural(rep.Repaired(), "source"))
	if failed := len(rep.Failed()); failed > 0 {
		text += fmt.Sprintf(", %d failed", failed)
	}
	if rep.Cancelled {
		text += " (cancelled)"
	}
	return text
}

// Run starts the browser and blocks until it quits.
func Run(backend Backend, opts Options) error {
	m := New(backend, opts)
	program := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	m.send = program.Send

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
