package main

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/imjasonh/chessd/internal/engine"
	"github.com/imjasonh/chessd/internal/render"
)

type styles struct {
	light, dark, cursor, selected, target, lastMove, check lipgloss.Style
	title, banner, alert, dim, info                        lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	square := func(bg string) lipgloss.Style {
		return r.NewStyle().Background(lipgloss.Color(bg)).Foreground(lipgloss.Color("#000000"))
	}
	return styles{
		light:    square("#f0d9b5"),
		dark:     square("#b58863"),
		cursor:   square("#e06c75"),
		selected: square("#f6f669"),
		target:   square("#9bc26b"),
		lastMove: square("#cdd26a"),
		check:    square("#e06c5a"),
		title:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("#7d56f4")),
		banner:   r.NewStyle().Bold(true),
		alert:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5f5f")),
		dim:      r.NewStyle().Faint(true),
		info:     r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1).Width(24),
	}
}

type model struct {
	// Game state
	state      engine.GameState
	cursor     engine.Square
	selected   *engine.Square
	validMoves []engine.Square
	message    string

	// Multiplayer state
	games       *GameManager
	player      *Player
	opponent    *Player
	gameSession *GameSession
	gameState   string // "waiting", "playing", "opponent_disconnected"

	styles styles
}

func newModel(player *Player, games *GameManager, st styles) model {
	return model{
		state:     engine.NewGameState(),
		cursor:    engine.Sq(4, 1),
		games:     games,
		player:    player,
		gameState: "waiting",
		styles:    st,
	}
}

func (m model) Init() tea.Cmd {
	if m.player != nil && m.player.UpdateChan != nil {
		return m.listenForUpdates()
	}
	return nil
}

func (m model) listenForUpdates() tea.Cmd {
	return func() tea.Msg {
		if m.player != nil && m.player.UpdateChan != nil {
			return <-m.player.UpdateChan
		}
		return nil
	}
}

func (m model) isMyTurn() bool {
	return m.gameState == "playing" && m.gameSession != nil &&
		m.gameSession.IsPlayerTurn(m.player.ID) && !m.state.Status.Over()
}

// flipped reports whether the board is drawn from Black's side.
func (m model) flipped() bool {
	return m.player != nil && m.player.Color == engine.Black
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case GameUpdate:
		return m.handleGameUpdate(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "esc":
		m.deselect()
		return m, nil
	case "up", "k":
		m.moveCursor(0, 1)
		return m, nil
	case "down", "j":
		m.moveCursor(0, -1)
		return m, nil
	case "left", "h":
		m.moveCursor(-1, 0)
		return m, nil
	case "right", "l":
		m.moveCursor(1, 0)
		return m, nil
	}

	if m.gameState != "playing" || m.gameSession == nil {
		return m, nil
	}

	var err error
	switch msg.String() {
	case "enter", " ":
		if !m.isMyTurn() {
			return m, nil
		}
		m.choose()
		return m, nil
	case "u":
		err = m.gameSession.Undo(m.player.ID)
	case "r":
		err = m.gameSession.Redo(m.player.ID)
	case "n":
		err = m.gameSession.Reset(m.player.ID)
	default:
		return m, nil
	}
	m.deselect()
	if err != nil {
		m.message = err.Error()
	}
	m.state = m.gameSession.State()
	return m, nil
}

func (m *model) moveCursor(dx, dy int) {
	if m.flipped() {
		dx, dy = -dx, -dy
	}
	next := engine.Sq(m.cursor.File+dx, m.cursor.Rank+dy)
	if next.Valid() {
		m.cursor = next
	}
}

func (m *model) deselect() {
	if m.selected == nil {
		return
	}
	m.selected = nil
	m.validMoves = nil
	if m.gameSession != nil {
		m.games.BroadcastUpdate(m.player.ID, GameUpdate{Type: "deselect"})
	}
}

// choose selects the piece under the cursor, or moves the selected piece
// there.
func (m *model) choose() {
	m.message = ""
	if m.selected == nil {
		pc, ok := m.state.Position.At(m.cursor)
		if !ok || pc.Color != m.player.Color {
			return
		}
		sel := m.cursor
		m.selected = &sel
		m.validMoves = m.gameSession.MovesFrom(sel)
		m.games.BroadcastUpdate(m.player.ID, GameUpdate{
			Type: "select",
			Data: map[string]any{
				"position":   sel,
				"validMoves": m.validMoves,
			},
		})
		return
	}

	from := *m.selected
	if from == m.cursor {
		m.deselect()
		return
	}
	if !slices.Contains(m.validMoves, m.cursor) {
		// Selecting another of our own pieces switches to it.
		if pc, ok := m.state.Position.At(m.cursor); ok && pc.Color == m.player.Color {
			m.selected = nil
			m.choose()
		}
		return
	}
	if err := m.gameSession.Move(m.player.ID, from, m.cursor); err != nil {
		m.message = err.Error()
		return
	}
	m.selected = nil
	m.validMoves = nil
	m.state = m.gameSession.State()
}

func (m model) handleGameUpdate(update GameUpdate) (tea.Model, tea.Cmd) {
	switch update.Type {
	case "matched":
		m.gameState = "playing"
		m.gameSession = m.games.GetGameSession(m.player.ID)
		if m.gameSession != nil {
			m.state = m.gameSession.State()
			m.opponent = m.gameSession.GetOpponent(m.player.ID)
		}
		if m.flipped() {
			m.cursor = engine.Sq(4, 6)
		}

	case "state":
		// Our own changes were applied when they were made.
		if update.FromPlayer != m.player.ID {
			m.state = update.State
			m.selected = nil
			m.validMoves = nil
		}

	case "select", "deselect":
		// Opponent piece selection; not shown yet.

	case "opponent_disconnected":
		m.gameState = "opponent_disconnected"
		m.selected = nil
		m.validMoves = nil
	}

	// Continue listening for updates
	return m, m.listenForUpdates()
}

func (m model) View() string {
	var s strings.Builder
	st := m.styles

	s.WriteString(st.title.Render("chessd"))
	s.WriteString("\n")

	switch m.gameState {
	case "waiting":
		s.WriteString("Waiting for an opponent to connect...\n")
		if m.player != nil {
			if position := m.games.GetQueuePosition(m.player.ID); position > 0 {
				s.WriteString(fmt.Sprintf("Position in queue: %d\n", position))
			}
		}
		s.WriteString(st.dim.Render("You can explore the board while waiting. Arrow keys move, q quits."))
		s.WriteString("\n\n")
		s.WriteString(m.renderBoardWithInfo())
		return s.String()

	case "opponent_disconnected":
		s.WriteString(st.alert.Render("*** OPPONENT DISCONNECTED; YOU WIN ***"))
		s.WriteString("\n")
		s.WriteString("Your opponent has left the game. Press q to quit.\n\n")
		s.WriteString(m.renderBoardWithInfo())
		return s.String()
	}

	if m.player != nil && m.opponent != nil {
		s.WriteString(fmt.Sprintf("You: %s (%s) vs %s (%s)\n",
			m.player.Name, m.player.Color, m.opponent.Name, m.opponent.Color))
	}

	s.WriteString(m.banner())
	s.WriteString("\n")
	if m.message != "" {
		s.WriteString(st.alert.Render(m.message))
		s.WriteString("\n")
	}
	s.WriteString("\n")
	s.WriteString(m.renderBoardWithInfo())
	s.WriteString("\n")
	s.WriteString(st.dim.Render("arrows/hjkl move · enter select/move · esc deselect · u undo · r redo · n new game · q quit"))
	return s.String()
}

func (m model) banner() string {
	st := m.styles
	switch m.state.Status {
	case engine.Checkmate:
		if m.player != nil && m.state.Winner == m.player.Color {
			return st.alert.Render("*** CHECKMATE: YOU WIN ***")
		}
		return st.alert.Render(fmt.Sprintf("*** CHECKMATE: %s WINS ***", strings.ToUpper(m.state.Winner.String())))
	case engine.Stalemate:
		return st.alert.Render("*** STALEMATE: DRAW ***")
	}

	turn := "OPPONENT'S TURN"
	if m.isMyTurn() {
		turn = "YOUR TURN"
	}
	if m.state.Status == engine.Check {
		return st.banner.Render(turn) + " " + st.alert.Render(fmt.Sprintf("%s is in check", m.state.Position.Turn))
	}
	return st.banner.Render(turn)
}

func (m model) renderBoardWithInfo() string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		strings.Join(m.getBoardLines(), "\n"),
		"   ",
		m.styles.info.Render(strings.Join(m.getInfoLines(), "\n")),
	)
}

func (m model) squareStyle(sq engine.Square) lipgloss.Style {
	st := m.styles
	last, hasLast := m.state.LastMove()
	inCheck := m.state.Status == engine.Check || m.state.Status == engine.Checkmate
	king, _ := m.state.Position.King(m.state.Position.Turn)

	switch {
	case sq == m.cursor:
		return st.cursor
	case m.selected != nil && *m.selected == sq:
		return st.selected
	case slices.Contains(m.validMoves, sq):
		return st.target
	case inCheck && sq == king:
		return st.check
	case hasLast && (sq == last.From || sq == last.To):
		return st.lastMove
	case (sq.File+sq.Rank)%2 == 1:
		return st.light
	}
	return st.dark
}

func (m model) getBoardLines() []string {
	files, ranks := []int{0, 1, 2, 3, 4, 5, 6, 7}, []int{7, 6, 5, 4, 3, 2, 1, 0}
	if m.flipped() {
		slices.Reverse(files)
		slices.Reverse(ranks)
	}

	var header strings.Builder
	header.WriteString(" ")
	for _, f := range files {
		header.WriteString(fmt.Sprintf(" %c ", 'a'+f))
	}

	lines := []string{header.String()}
	for _, rank := range ranks {
		var line strings.Builder
		line.WriteString(fmt.Sprintf("%d", rank+1))
		for _, file := range files {
			sq := engine.Sq(file, rank)
			cell := " "
			if pc, ok := m.state.Position.At(sq); ok {
				cell = render.Glyph(pc)
			}
			line.WriteString(m.squareStyle(sq).Render(" " + cell + " "))
		}
		line.WriteString(fmt.Sprintf("%d", rank+1))
		lines = append(lines, line.String())
	}
	return append(lines, header.String())
}

func (m model) getInfoLines() []string {
	pos := m.state.Position
	lines := []string{
		fmt.Sprintf("Turn: %s", pos.Turn),
		fmt.Sprintf("Status: %s", m.state.Status),
		"",
		fmt.Sprintf("Cursor: %s", m.cursor),
	}

	if pc, ok := pos.At(m.cursor); ok {
		lines = append(lines, fmt.Sprintf("Piece: %s %s", pc.Color, pc.Kind))
	} else {
		lines = append(lines, "Piece: empty")
	}

	if m.selected != nil {
		lines = append(lines, "")
		if pc, ok := pos.At(*m.selected); ok {
			lines = append(lines, fmt.Sprintf("Selected: %s at %s", pc.Kind, m.selected))
		}
		if len(m.validMoves) > 0 {
			targets := make([]string, 0, len(m.validMoves))
			for _, sq := range m.validMoves {
				targets = append(targets, sq.String())
			}
			lines = append(lines, "Valid moves:")
			for chunk := range slices.Chunk(targets, 4) {
				lines = append(lines, "  "+strings.Join(chunk, " "))
			}
		}
	}

	if captured := m.capturedLine(); captured != "" {
		lines = append(lines, "", "Captured:", captured)
	}

	if moves := m.state.Moves; len(moves) > 0 {
		lines = append(lines, "", "Moves:")
		start := max(0, len(moves)-6)
		for i := start; i < len(moves); i++ {
			lines = append(lines, fmt.Sprintf("%3d. %s", i+1, moves[i]))
		}
	}
	return lines
}

func (m model) capturedLine() string {
	var s strings.Builder
	for _, pc := range m.state.Captured {
		s.WriteString(render.Glyph(pc))
	}
	return s.String()
}
