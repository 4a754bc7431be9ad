package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/vovakirdan/match3-arcade/internal/core"
	"github.com/vovakirdan/match3-arcade/internal/registry"
	"github.com/vovakirdan/match3-arcade/internal/storage"
)

// MenuItem is one selectable variant with its recorded history.
type MenuItem struct {
	GameID string
	Title  string
	Stats  *storage.GameStats // nil when nothing is recorded
}

var (
	menuTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	menuItemStyle  = lipgloss.NewStyle().Padding(0, 2)
	menuPickStyle  = menuItemStyle.Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	menuCardStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 2).Width(32)
	menuDimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// MenuModel is the Bubble Tea model for the variant picker.
type MenuModel struct {
	items          []MenuItem
	cursor         int
	config         core.RuntimeConfig
	keyMapper      *KeyMapper
	quitting       bool
	selected       *MenuItem
	openScoreboard bool
}

// NewMenuModel lists the registered variants with their stats.
func NewMenuModel(store *storage.Store, cfg core.RuntimeConfig) MenuModel {
	var all map[string]*storage.GameStats
	if store != nil {
		// The menu works without stats
		all, _ = store.GetAllGamesStats()
	}

	games := registry.List()
	items := make([]MenuItem, len(games))
	for i, g := range games {
		items[i] = MenuItem{GameID: g.ID, Title: g.Title, Stats: all[g.ID]}
	}

	return MenuModel{
		items:     items,
		config:    cfg,
		keyMapper: NewKeyMapper(),
	}
}

// Init initializes the menu model.
func (m MenuModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the menu.
func (m MenuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.config.ScreenW = msg.Width
		m.config.ScreenH = msg.Height
	}
	return m, nil
}

func (m MenuModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.keyMapper.MapKeyToMenuAction(msg) {
	case MenuActionQuit:
		m.quitting = true
		return m, tea.Quit

	case MenuActionUp:
		m.cursor = core.Clamp(m.cursor-1, 0, len(m.items)-1)

	case MenuActionDown:
		m.cursor = core.Clamp(m.cursor+1, 0, len(m.items)-1)

	case MenuActionSelect:
		if len(m.items) > 0 {
			selected := m.items[m.cursor]
			m.selected = &selected
			return m, tea.Quit
		}

	case MenuActionScoreboard:
		m.openScoreboard = true
		return m, tea.Quit
	}
	return m, nil
}

// View renders the variant list next to a card for the highlighted one.
func (m MenuModel) View() string {
	if m.quitting {
		return ""
	}

	lines := make([]string, 0, len(m.items))
	for i, item := range m.items {
		style := menuItemStyle
		if i == m.cursor {
			style = menuPickStyle
		}
		lines = append(lines, style.Render(item.Title))
	}
	list := lipgloss.JoinVertical(lipgloss.Left, lines...)

	body := list
	if len(m.items) > 0 {
		body = lipgloss.JoinHorizontal(lipgloss.Top, list, "   ", menuCardStyle.Render(m.card(m.items[m.cursor])))
	}

	page := lipgloss.JoinVertical(lipgloss.Center,
		"",
		menuTitleStyle.Render("M A T C H - 3"),
		menuDimStyle.Render("swap neighbours, line up three"),
		"",
		body,
		"",
		menuDimStyle.Render("↑/↓ choose  •  enter play  •  tab scores  •  q quit"),
	)
	return lipgloss.PlaceHorizontal(m.config.ScreenW, lipgloss.Center, page)
}

// card summarizes the recorded rounds of one variant.
func (m MenuModel) card(item MenuItem) string {
	s := item.Stats
	if s == nil || s.RoundsCount == 0 {
		return fmt.Sprintf("%s\n\n%s", item.Title, menuDimStyle.Render("No rounds played yet."))
	}
	var b strings.Builder
	b.WriteString(item.Title)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Best     %s\n", humanize.Comma(int64(s.HighScore)))
	fmt.Fprintf(&b, "Rounds   %d (%d won)\n", s.RoundsCount, s.GoalsReached)
	fmt.Fprintf(&b, "Chain    x%d\n", s.LongestChain)
	fmt.Fprintf(&b, "Played   %s", humanize.Time(s.LastPlayed))
	return b.String()
}

// Selected returns the selected menu item, or nil if none selected.
func (m MenuModel) Selected() *MenuItem {
	return m.selected
}

// IsQuitting returns true if user requested to quit.
func (m MenuModel) IsQuitting() bool {
	return m.quitting
}

// WantsScoreboard returns true if user requested scoreboard.
func (m MenuModel) WantsScoreboard() bool {
	return m.openScoreboard
}

// Config returns the current runtime config (may have been updated by resize).
func (m MenuModel) Config() core.RuntimeConfig {
	return m.config
}

// MenuResult holds the result of running the menu.
type MenuResult struct {
	GameID          string
	Config          core.RuntimeConfig
	WantsScoreboard bool
	Quit            bool
}

// RunMenu runs the menu and returns the selection result.
func RunMenu(store *storage.Store, cfg core.RuntimeConfig) (MenuResult, error) {
	final, err := tea.NewProgram(NewMenuModel(store, cfg), tea.WithAltScreen()).Run()
	if err != nil {
		return MenuResult{Config: cfg}, err
	}

	m, ok := final.(MenuModel)
	if !ok {
		return MenuResult{Config: cfg, Quit: true}, nil
	}

	result := MenuResult{Config: m.Config()}
	switch {
	case m.WantsScoreboard():
		result.WantsScoreboard = true
	case m.Selected() != nil:
		result.GameID = m.Selected().GameID
	default:
		result.Quit = true
	}
	return result, nil
}
