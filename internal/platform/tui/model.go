package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/match3-arcade/internal/core"
	"github.com/vovakirdan/match3-arcade/internal/registry"
	"github.com/vovakirdan/match3-arcade/internal/storage"
)

// helpHeight is the number of lines below the game screen.
const helpHeight = 1

// GameModel is the Bubble Tea model for one running game. It is used both
// for local play and inside SSH sessions.
type GameModel struct {
	game       registry.Game
	screen     *core.Screen
	store      *storage.Store
	logger     *log.Logger
	config     core.RuntimeConfig
	inputFrame core.InputFrame
	gameState  core.GameState
	keyMapper  *KeyMapper
	help       help.Model
	styles     *Styles
	quitting   bool
	backToMenu bool
	roundSaved bool // Whether the current round has been saved
	standalone bool // Back ends the program instead of returning to a session menu
	tickLoop   uint64
}

// NewGameModel starts a round of game and wraps it in a model.
func NewGameModel(game registry.Game, store *storage.Store, cfg core.RuntimeConfig, logger *log.Logger) (GameModel, error) {
	// Use time-based seed if not specified
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if logger == nil {
		logger = log.Default()
	}

	gameCfg := cfg
	gameCfg.ScreenH = max(cfg.ScreenH-helpHeight, 0)
	if err := game.Reset(gameCfg); err != nil {
		return GameModel{}, fmt.Errorf("tui: cannot start %s: %w", game.ID(), err)
	}

	h := help.New()
	h.Width = cfg.ScreenW
	return GameModel{
		game:       game,
		screen:     core.NewScreen(cfg.ScreenW, gameCfg.ScreenH),
		store:      store,
		logger:     logger,
		config:     cfg,
		inputFrame: core.NewInputFrame(),
		gameState:  game.State(),
		keyMapper:  NewKeyMapper(),
		help:       h,
		styles:     defaultStyles,
		tickLoop:   nextTickLoop(),
	}, nil
}

// Init starts the tick loop.
func (m GameModel) Init() tea.Cmd {
	return tickCmd(m.config.TickRate, m.tickLoop)
}

// Update handles messages and updates the model state.
func (m GameModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		m.keyMapper.MapMouseToFrame(msg, &m.inputFrame)
		return m, nil

	case tea.WindowSizeMsg:
		// The board keeps its state; Render adapts to the new size.
		m.config.ScreenW = msg.Width
		m.config.ScreenH = msg.Height
		m.screen.Resize(msg.Width, max(msg.Height-helpHeight, 0))
		m.help.Width = msg.Width
		return m, nil

	case TickMsg:
		if msg.Loop != m.tickLoop {
			return m, nil
		}
		return m.handleTick()
	}

	return m, nil
}

// handleKey processes keyboard input.
func (m GameModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := m.keyMapper.Keys()
	switch {
	case key.Matches(msg, keys.Shot):
		m.saveScreenshot()
		return m, nil
	case key.Matches(msg, keys.Back):
		m.finish()
		m.backToMenu = true
		if m.standalone {
			return m, tea.Quit
		}
		return m, nil
	}

	if m.keyMapper.MapKeyToFrame(msg, &m.inputFrame) {
		m.finish()
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// handleTick processes simulation ticks.
func (m GameModel) handleTick() (tea.Model, tea.Cmd) {
	if m.quitting || m.backToMenu {
		return m, nil
	}

	// The game may refuse a restart mid-transition, so keep the round
	// that would end and save it only once the restart is confirmed.
	var ended core.GameState
	if m.inputFrame.Has(core.ActionRestart) {
		ended = m.game.State()
	}

	result := m.game.Step(m.inputFrame)
	if result.Restarted {
		m.saveRound(ended)
		m.roundSaved = false
	}
	m.gameState = result.State

	// Clear input for next frame
	m.inputFrame.Clear()

	return m, tickCmd(m.config.TickRate, m.tickLoop)
}

// finish saves the round and stops the game.
func (m *GameModel) finish() {
	m.saveRound(m.game.State())
	m.game.Close()
}

// saveRound stores st once per round. Rounds without a move are skipped.
func (m *GameModel) saveRound(st core.GameState) {
	if m.roundSaved || m.store == nil || st.Moves == 0 {
		return
	}
	id, err := m.store.SaveRound(storage.Round{
		GameID:       m.game.ID(),
		Score:        st.Score,
		Goal:         st.Goal,
		GoalReached:  st.GoalReached,
		Moves:        st.Moves,
		Cascades:     st.Cascades,
		LongestChain: st.LongestChain,
	})
	if err != nil {
		m.logger.Warn("could not save round", "game", m.game.ID(), "error", err)
		return
	}
	m.logger.Info("round saved", "game", m.game.ID(), "id", id, "score", st.Score)
	m.roundSaved = true
}

// saveScreenshot saves the current screen to a file.
func (m *GameModel) saveScreenshot() {
	m.game.Render(m.screen)

	dir := filepath.Join(os.Getenv("HOME"), ".arcade", "screenshots")
	//nolint:errcheck // Best-effort directory creation
	os.MkdirAll(dir, 0o755)

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("%s_%s.txt", m.game.ID(), timestamp)
	path := filepath.Join(dir, filename)

	//nolint:errcheck // Best-effort save, game continues regardless
	os.WriteFile(path, []byte(m.screen.String()), 0o600)
}

// View renders the current state to a string for display.
func (m GameModel) View() string {
	if m.quitting || m.backToMenu {
		return ""
	}

	m.game.Render(m.screen)
	return m.styles.RenderScreen(m.screen) + "\n" + m.styles.help.Render(m.help.View(m.keyMapper.Keys()))
}

// SetRenderer switches the model to styles built for r.
func (m *GameModel) SetRenderer(r *lipgloss.Renderer) {
	m.styles = NewStyles(r)
}

// IsQuitting returns true if user requested to quit entirely.
func (m GameModel) IsQuitting() bool {
	return m.quitting
}

// BackToMenu returns true if user requested to go back to menu.
func (m GameModel) BackToMenu() bool {
	return m.backToMenu
}

// State returns the game state as of the last tick.
func (m GameModel) State() core.GameState {
	return m.gameState
}

// Run starts the Bubble Tea program for a single game.
func Run(game registry.Game, store *storage.Store, cfg core.RuntimeConfig, logger *log.Logger) error {
	model, err := NewGameModel(game, store, cfg, logger)
	if err != nil {
		return err
	}
	defer game.Close()
	model.standalone = true

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(), // Click a tile to pick it
	)

	final, err := p.Run()
	if m, ok := final.(GameModel); ok && err == nil {
		m.saveRound(m.game.State())
	}
	return err
}
