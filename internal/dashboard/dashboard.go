// Package dashboard is the interactive session list. It renders registry
// views and forwards user commands to the controller; it never classifies
// pane content itself.
package dashboard

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cactusdev/cactus/internal/config"
	"github.com/cactusdev/cactus/internal/controller"
	"github.com/cactusdev/cactus/internal/model"
	"github.com/cactusdev/cactus/internal/registry"
)

// view mode
type viewMode int

const (
	modeList viewMode = iota
	modeNewName
	modeNewPath
	modeRename
)

type tickMsg struct{}

// Dashboard runs the interactive session list.
type Dashboard struct {
	Controller      *controller.Controller
	Registry        *registry.Registry
	RefreshInterval time.Duration // 0 disables auto-refresh
	Theme           Theme
	Version         string
}

// tuiModel implements tea.Model.
type tuiModel struct {
	ctrl            *controller.Controller
	reg             *registry.Registry
	ctx             context.Context
	refreshInterval time.Duration
	styles          styles
	version         string

	views  []model.View
	cursor int
	mode   viewMode

	// text input state
	textInput   textinput.Model
	pendingName string // name collected in modeNewName, used by modeNewPath
	renameID    string

	// dimensions
	width  int
	height int

	message string

	// clock is swappable for tests.
	clock func() time.Time
}

func (d *Dashboard) Run(ctx context.Context) error {
	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 60

	m := &tuiModel{
		ctrl:            d.Controller,
		reg:             d.Registry,
		ctx:             ctx,
		refreshInterval: d.RefreshInterval,
		styles:          newStyles(d.Theme),
		version:         d.Version,
		textInput:       ti,
		clock:           time.Now,
	}
	m.refresh()
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m *tuiModel) Init() tea.Cmd {
	return m.scheduleTick()
}

// scheduleTick returns a tea.Cmd that sends a tickMsg after the refresh
// interval. Returns nil if auto-refresh is disabled.
func (m *tuiModel) scheduleTick() tea.Cmd {
	if m.refreshInterval <= 0 {
		return nil
	}
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// refresh re-reads the registry, keeping the cursor on the same session
// even when rows reorder.
func (m *tuiModel) refresh() {
	var selectedID string
	if m.cursor >= 0 && m.cursor < len(m.views) {
		selectedID = m.views[m.cursor].ID
	}

	m.views = sortViews(m.reg.Views())

	if selectedID != "" {
		for i, v := range m.views {
			if v.ID == selectedID {
				m.cursor = i
				return
			}
		}
	}
	if m.cursor >= len(m.views) {
		m.cursor = len(m.views) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// sortViews orders sessions by how urgently they need the user: status
// priority first, most recently changed next, then name for stability.
func sortViews(views []model.View) []model.View {
	sort.SliceStable(views, func(i, j int) bool {
		pi, pj := views[i].Status.Priority(), views[j].Status.Priority()
		if pi != pj {
			return pi < pj
		}
		if !views[i].LastChangedAt.Equal(views[j].LastChangedAt) {
			return views[i].LastChangedAt.After(views[j].LastChangedAt)
		}
		return views[i].DisplayName < views[j].DisplayName
	})
	return views
}

func (m *tuiModel) selected() *model.View {
	if m.cursor < 0 || m.cursor >= len(m.views) {
		return nil
	}
	return &m.views[m.cursor]
}

func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.refresh()
		return m, m.scheduleTick()
	}

	return m, nil
}

func (m *tuiModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode == modeList {
		return m.handleListKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m *tuiModel) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.views)-1 {
			m.cursor++
		}

	case "enter", "s":
		v := m.selected()
		if v == nil {
			return m, nil
		}
		switched, err := m.ctrl.Switch(m.ctx, v.ID)
		if err != nil {
			m.message = fmt.Sprintf("switch failed: %v", err)
		} else if !switched {
			m.message = fmt.Sprintf("no attached client — run: tmux attach -t %s", v.ID)
		} else {
			m.message = ""
		}
		m.refresh()

	case "n":
		m.mode = modeNewName
		m.textInput.Placeholder = "session name (empty for a random one)"
		m.textInput.SetValue("")
		m.textInput.Focus()
		return m, textinput.Blink

	case "e":
		v := m.selected()
		if v == nil {
			return m, nil
		}
		m.mode = modeRename
		m.renameID = v.ID
		m.textInput.Placeholder = "new name"
		m.textInput.SetValue(v.DisplayName)
		m.textInput.Focus()
		return m, textinput.Blink

	case "d":
		v := m.selected()
		if v == nil {
			return m, nil
		}
		if err := m.ctrl.Delete(m.ctx, v.ID); err != nil {
			m.message = fmt.Sprintf("delete failed: %v", err)
		} else {
			m.message = fmt.Sprintf("deleted %s", v.DisplayName)
		}
		m.refresh()

	case "r":
		m.message = ""
		m.refresh()
	}

	return m, nil
}

func (m *tuiModel) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "escape":
		m.mode = modeList
		m.textInput.Blur()
		return m, nil

	case "enter":
		return m.submitInput()
	}

	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m *tuiModel) submitInput() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.textInput.Value())

	switch m.mode {
	case modeNewName:
		m.pendingName = value
		m.mode = modeNewPath
		m.textInput.Placeholder = "working directory"
		m.textInput.SetValue(m.defaultPath())
		return m, nil

	case modeNewPath:
		dir := value
		if dir == "" {
			dir, _ = os.Getwd()
		}
		res, err := m.ctrl.Create(m.ctx, m.pendingName, dir)
		if err != nil {
			m.message = fmt.Sprintf("create failed: %v", err)
		} else {
			if err := config.RememberPath(dir); err == nil {
				m.message = fmt.Sprintf("created %s", res.ID)
			} else {
				m.message = fmt.Sprintf("created %s (history not saved: %v)", res.ID, err)
			}
		}

	case modeRename:
		if value != "" {
			if err := m.ctrl.Rename(m.renameID, value); err != nil {
				m.message = fmt.Sprintf("rename failed: %v", err)
			}
		}
	}

	m.mode = modeList
	m.textInput.Blur()
	m.refresh()
	return m, nil
}

// defaultPath prefills the directory input with the most recent history
// entry, falling back to the current directory.
func (m *tuiModel) defaultPath() string {
	if recent, err := config.LoadRecentPaths(); err == nil && len(recent) > 0 {
		return recent[0]
	}
	dir, _ := os.Getwd()
	return dir
}

func (m *tuiModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	switch m.mode {
	case modeList:
		return m.viewList()
	default:
		return m.viewInput()
	}
}

func (m *tuiModel) viewList() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render("Cactus"))
	if m.version != "" {
		b.WriteString(" " + m.styles.dim.Render(m.version))
	}
	b.WriteString("  ")
	b.WriteString(m.styles.dim.Render("s/Enter=switch  n=new  e=rename  d=delete  r=refresh  q=quit"))
	b.WriteString("\n")

	if len(m.views) == 0 {
		b.WriteString(m.styles.dim.Render("  No sessions. Press n to create one.\n"))
		return b.String()
	}

	nameWidth := 12
	for _, v := range m.views {
		if len(v.DisplayName)+4 > nameWidth {
			nameWidth = len(v.DisplayName) + 4
		}
	}

	now := m.clock()
	for i, v := range m.views {
		glyph := m.styles.statusStyle(v.Status).Render(statusGlyph(v.Status))
		status := v.Status.String()
		if v.Stale {
			status += " (stale)"
		}
		age := model.TimeAgo(v.LastChangedAt, now)

		line := fmt.Sprintf("%s | %-12s | %s",
			padRight(v.DisplayName, nameWidth), status, age)
		if i == m.cursor {
			b.WriteString("→ " + glyph + " " + m.styles.selected.Render(line))
		} else {
			b.WriteString("  " + glyph + " " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.styles.dim.Render(fmt.Sprintf("  %d session(s)", len(m.views))))
	b.WriteString("\n")

	if m.message != "" {
		b.WriteString(m.styles.dim.Render("  " + m.message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m *tuiModel) viewInput() string {
	var b strings.Builder

	var title string
	switch m.mode {
	case modeNewName:
		title = "New Session — name"
	case modeNewPath:
		title = "New Session — directory"
	case modeRename:
		title = "Rename Session"
	}

	b.WriteString(m.styles.title.Render("  " + title))
	b.WriteString("\n")
	b.WriteString(m.styles.header.Render("  ─────────────────────────────────────────"))
	b.WriteString("\n\n")
	b.WriteString("  " + m.textInput.View())
	b.WriteString("\n\n")
	b.WriteString(m.styles.dim.Render("  Enter=confirm  Escape=cancel"))
	b.WriteString("\n")

	return b.String()
}

// padRight pads a string with spaces to reach the desired width.
func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
