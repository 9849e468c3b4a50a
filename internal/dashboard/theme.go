package dashboard

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/cactusdev/cactus/internal/model"
)

// Theme defines all colors used by the dashboard.
// Use DarkTheme() or LightTheme() to get a pre-built theme.
type Theme struct {
	Primary        lipgloss.Color // title
	Secondary      lipgloss.Color // selected row text
	Error          lipgloss.Color // errors, stale sessions
	Warning        lipgloss.Color // needs-input
	Success        lipgloss.Color // ready
	Info           lipgloss.Color // working
	Text           lipgloss.Color // primary text
	TextMuted      lipgloss.Color // hints, timestamps, seen
	BackgroundElem lipgloss.Color // highlighted row background
	Border         lipgloss.Color // separators
}

// DarkTheme returns the default dark theme.
func DarkTheme() Theme {
	return Theme{
		Primary:        lipgloss.Color("#fab283"),
		Secondary:      lipgloss.Color("#5c9cf5"),
		Error:          lipgloss.Color("#e06c75"),
		Warning:        lipgloss.Color("#f5a742"),
		Success:        lipgloss.Color("#7fd88f"),
		Info:           lipgloss.Color("#56b6c2"),
		Text:           lipgloss.Color("#eeeeee"),
		TextMuted:      lipgloss.Color("#808080"),
		BackgroundElem: lipgloss.Color("#1e1e1e"),
		Border:         lipgloss.Color("#484848"),
	}
}

// LightTheme returns a light theme for bright terminal backgrounds.
func LightTheme() Theme {
	return Theme{
		Primary:        lipgloss.Color("#b35c00"),
		Secondary:      lipgloss.Color("#0550ae"),
		Error:          lipgloss.Color("#cf222e"),
		Warning:        lipgloss.Color("#bf8700"),
		Success:        lipgloss.Color("#116329"),
		Info:           lipgloss.Color("#0969da"),
		Text:           lipgloss.Color("#1f2328"),
		TextMuted:      lipgloss.Color("#656d76"),
		BackgroundElem: lipgloss.Color("#f6f8fa"),
		Border:         lipgloss.Color("#d0d7de"),
	}
}

// ThemeByName returns a theme by name. Defaults to dark.
func ThemeByName(name string) Theme {
	switch name {
	case "light":
		return LightTheme()
	default:
		return DarkTheme()
	}
}

// styles holds all lipgloss styles derived from a Theme.
type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	selected lipgloss.Style
	needs    lipgloss.Style
	working  lipgloss.Style
	ready    lipgloss.Style
	seen     lipgloss.Style
	err      lipgloss.Style
	dim      lipgloss.Style
	text     lipgloss.Style
}

// newStyles builds all styles from a theme.
func newStyles(t Theme) styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		header:   lipgloss.NewStyle().Foreground(t.Border),
		selected: lipgloss.NewStyle().Bold(true).Foreground(t.Secondary).Background(t.BackgroundElem),
		needs:    lipgloss.NewStyle().Foreground(t.Warning).Bold(true),
		working:  lipgloss.NewStyle().Foreground(t.Info),
		ready:    lipgloss.NewStyle().Foreground(t.Success),
		seen:     lipgloss.NewStyle().Foreground(t.TextMuted),
		err:      lipgloss.NewStyle().Foreground(t.Error),
		dim:      lipgloss.NewStyle().Foreground(t.TextMuted),
		text:     lipgloss.NewStyle().Foreground(t.Text),
	}
}

// statusGlyph returns the one-character marker for a status.
func statusGlyph(s model.Status) string {
	switch s {
	case model.StatusNeedsInput:
		return "●"
	case model.StatusWorking:
		return "…"
	case model.StatusReady:
		return "✔"
	case model.StatusSeen:
		return "·"
	}
	return "?"
}

// statusStyle picks the style for a status.
func (st styles) statusStyle(s model.Status) lipgloss.Style {
	switch s {
	case model.StatusNeedsInput:
		return st.needs
	case model.StatusWorking:
		return st.working
	case model.StatusReady:
		return st.ready
	case model.StatusSeen:
		return st.seen
	}
	return st.text
}
