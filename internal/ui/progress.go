// Package ui renders live progress of a directory check in a terminal.
package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"borrowck/internal/driver"
)

const statusWidth = 10

type progressModel struct {
	title   string
	root    string
	events  <-chan driver.Event
	spinner spinner.Model
	prog    progress.Model
	items   []fileItem
	index   map[string]int
	width   int
	done    bool
}

type fileItem struct {
	path     string
	status   string
	stage    driver.Stage
	finished bool
}

type eventMsg driver.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that lists files with their
// current stage. Paths are shown relative to root. The model quits once
// events is closed.
func NewProgressModel(title, root string, files []string, events <-chan driver.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	items := make([]fileItem, 0, len(files))
	index := make(map[string]int, len(files))
	for i, file := range files {
		items = append(items, fileItem{path: file, status: "queued"})
		index[key(file)] = i
	}
	return &progressModel{
		title:   title,
		root:    root,
		events:  events,
		spinner: sp,
		prog:    prog,
		items:   items,
		index:   index,
		width:   80,
	}
}

// Run drives the model until events is closed, drawing on out.
func Run(title, root string, files []string, events <-chan driver.Event, out io.Writer) error {
	p := tea.NewProgram(NewProgressModel(title, root, files, events), tea.WithOutput(out), tea.WithInput(nil))
	_, err := p.Run()
	return err
}

func key(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(driver.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = max(msg.Width-4, 10)
		}
		return m, nil
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	if len(m.items) == 0 {
		return ""
	}
	header := m.title
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7")).Render(header))
	b.WriteString("\n\n")

	nameWidth := max(m.width-statusWidth-4, 20)
	for _, item := range m.items {
		status := styleStatus(item.status).Render(fmt.Sprintf("%*s", statusWidth, item.status))
		fmt.Fprintf(&b, "  %s %s\n", status, truncate(m.display(item.path), nameWidth))
	}

	b.WriteString("\n")
	b.WriteString(m.summary())
	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) summary() string {
	var ok, failed, cached int
	for _, item := range m.items {
		switch item.status {
		case "ok":
			ok++
		case "error":
			failed++
		case "cached":
			cached++
		}
	}
	return fmt.Sprintf("%d/%d checked, %d with errors, %d cached", ok+failed+cached, len(m.items), failed, cached)
}

func (m *progressModel) display(path string) string {
	if m.root == "" {
		return path
	}
	if rel, err := filepath.Rel(m.root, path); err == nil && !strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(rel)
	}
	return path
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev driver.Event) tea.Cmd {
	if ev.File == "" {
		return nil
	}
	idx, ok := m.index[key(ev.File)]
	if !ok {
		return nil
	}
	item := &m.items[idx]
	if item.finished {
		return nil
	}
	if label := statusLabel(ev.Stage, ev.Status); label != "" {
		item.status = label
		item.stage = ev.Stage
	}
	// a file is finished when borrowck settles it or an earlier stage fails
	switch {
	case ev.Status == driver.StatusError,
		ev.Status == driver.StatusCached,
		ev.Stage == driver.StageBorrowck && ev.Status == driver.StatusDone:
		item.finished = true
	}
	return m.prog.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	if len(m.items) == 0 {
		return 0
	}
	total := 0.0
	for _, item := range m.items {
		if item.finished {
			total++
			continue
		}
		total += progressFromStage(item.stage)
	}
	return total / float64(len(m.items))
}

func progressFromStage(stage driver.Stage) float64 {
	switch stage {
	case driver.StageLoad:
		return 0.05
	case driver.StageParse:
		return 0.2
	case driver.StageLower:
		return 0.4
	case driver.StageBorrowck:
		return 0.6
	default:
		return 0
	}
}

func statusLabel(stage driver.Stage, status driver.Status) string {
	switch status {
	case driver.StatusQueued:
		return "queued"
	case driver.StatusCached:
		return "cached"
	case driver.StatusError:
		return "error"
	case driver.StatusDone:
		if stage == driver.StageBorrowck {
			return "ok"
		}
		return ""
	case driver.StatusWorking:
		return stageLabel(stage)
	default:
		return ""
	}
}

func stageLabel(stage driver.Stage) string {
	switch stage {
	case driver.StageLoad:
		return "loading"
	case driver.StageParse:
		return "parsing"
	case driver.StageLower:
		return "lowering"
	case driver.StageBorrowck:
		return "checking"
	default:
		return ""
	}
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "ok":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "cached":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	case "error":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case "loading", "parsing", "lowering", "checking":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}
