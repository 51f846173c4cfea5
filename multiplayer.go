package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/imjasonh/chessd/internal/engine"
	"github.com/imjasonh/chessd/internal/opponent"
	"github.com/imjasonh/chessd/internal/store"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrNotYourTurn  = errors.New("not your turn")
	ErrIllegalMove  = errors.New("illegal move")
	ErrNotAPlayer   = errors.New("not a player in this game")
)

const (
	ModePvP = "pvp"
	ModeBot = "bot"
	ModeAPI = "api"
)

// Player represents a connected player
type Player struct {
	ID         string
	Color      engine.Color
	Name       string
	GameID     string
	Connected  bool
	UpdateChan chan GameUpdate // Channel for sending updates to the player's model
}

// GameUpdate represents an update to broadcast to players
type GameUpdate struct {
	Type       string           // "matched", "state", "select", "deselect", "opponent_disconnected"
	State      engine.GameState // Snapshot after the change, for "state" and "matched"
	Data       any
	FromPlayer string // Which player sent the update
}

// GameSession owns the engine for a single game and serializes every change
// to it, whichever player, bot or API client it comes from.
type GameSession struct {
	ID    string
	Mode  string
	White *Player
	Black *Player

	Updates chan GameUpdate
	ctx     context.Context
	cancel  context.CancelFunc

	mu       sync.RWMutex
	game     *engine.Engine
	bot      opponent.Mover
	botColor engine.Color

	store  store.Store
	logger *log.Logger
}

func newGameSession(id, mode string, st store.Store, logger *log.Logger) *GameSession {
	ctx, cancel := context.WithCancel(context.Background())

	session := &GameSession{
		ID:      id,
		Mode:    mode,
		Updates: make(chan GameUpdate, 10),
		ctx:     ctx,
		cancel:  cancel,
		game:    engine.New(),
		store:   st,
		logger:  logger.With("game", id),
	}

	// Start the update broadcaster
	go session.handleUpdates()

	return session
}

func (gs *GameSession) seat(p *Player, c engine.Color) {
	if p == nil {
		return
	}
	p.Color = c
	p.GameID = gs.ID
	if c == engine.White {
		gs.White = p
	} else {
		gs.Black = p
	}
}

func (gs *GameSession) handleUpdates() {
	for {
		select {
		case <-gs.ctx.Done():
			return
		case update := <-gs.Updates:
			gs.broadcastUpdate(update)
		}
	}
}

func (gs *GameSession) broadcastUpdate(update GameUpdate) {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	// Send update to both players (if connected) via their update channels
	for _, p := range []*Player{gs.White, gs.Black} {
		if p != nil && p.Connected && p.UpdateChan != nil {
			select {
			case p.UpdateChan <- update:
			default:
				// Channel full, drop update
			}
		}
	}
}

// publish queues a state update without blocking the caller.
func (gs *GameSession) publish(from string, state engine.GameState) {
	select {
	case gs.Updates <- GameUpdate{Type: "state", State: state, FromPlayer: from}:
	case <-gs.ctx.Done():
	case <-time.After(100 * time.Millisecond):
		gs.logger.Warn("dropped state update")
	}
}

// State returns the current snapshot.
func (gs *GameSession) State() engine.GameState {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.game.State()
}

// CanUndo and CanRedo report whether the history can move.
func (gs *GameSession) CanUndo() bool {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.game.CanUndo()
}

func (gs *GameSession) CanRedo() bool {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.game.CanRedo()
}

// MovesFrom returns the legal destinations for the piece on from.
func (gs *GameSession) MovesFrom(from engine.Square) []engine.Square {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gs.game.MovesFrom(from)
}

func (gs *GameSession) GetPlayer(playerID string) *Player {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	if gs.White != nil && gs.White.ID == playerID {
		return gs.White
	}
	if gs.Black != nil && gs.Black.ID == playerID {
		return gs.Black
	}
	return nil
}

func (gs *GameSession) GetOpponent(playerID string) *Player {
	gs.mu.RLock()
	defer gs.mu.RUnlock()

	if gs.White != nil && gs.White.ID == playerID {
		return gs.Black
	}
	if gs.Black != nil && gs.Black.ID == playerID {
		return gs.White
	}
	return nil
}

func (gs *GameSession) IsPlayerTurn(playerID string) bool {
	player := gs.GetPlayer(playerID)
	if player == nil {
		return false
	}
	return gs.State().Position.Turn == player.Color
}

// authorize checks that playerID may change the game. An empty playerID is
// an API client, which may act for either side.
func (gs *GameSession) authorize(playerID string, needTurn bool) error {
	if playerID == "" {
		return nil
	}
	var p *Player
	switch {
	case gs.White != nil && gs.White.ID == playerID:
		p = gs.White
	case gs.Black != nil && gs.Black.ID == playerID:
		p = gs.Black
	default:
		return ErrNotAPlayer
	}
	if needTurn && gs.game.State().Position.Turn != p.Color {
		return ErrNotYourTurn
	}
	return nil
}

// Move plays from-to for playerID. In a bot game the bot replies before
// Move returns.
func (gs *GameSession) Move(playerID string, from, to engine.Square) error {
	gs.mu.Lock()
	if err := gs.authorize(playerID, true); err != nil {
		gs.mu.Unlock()
		return err
	}
	if !gs.game.ApplyMove(from, to) {
		gs.mu.Unlock()
		return fmt.Errorf("%w: %s-%s", ErrIllegalMove, from, to)
	}
	gs.logger.Debug("move", "player", playerID, "from", from, "to", to)
	gs.playBot()
	state := gs.commit()
	gs.mu.Unlock()

	gs.publish(playerID, state)
	return nil
}

// playBot lets the bot move while it is its turn. Callers hold gs.mu.
func (gs *GameSession) playBot() {
	if gs.bot == nil {
		return
	}
	state := gs.game.State()
	if state.Position.Turn != gs.botColor || state.Status.Over() {
		return
	}
	m, ok := gs.bot.Next(gs.ctx, state)
	if !ok {
		return
	}
	if !gs.game.ApplyMove(m.From, m.To) {
		gs.logger.Error("bot proposed an illegal move", "move", m)
		return
	}
	gs.logger.Debug("bot move", "from", m.From, "to", m.To)
}

// Undo steps back one move. In a bot game it keeps stepping back until it
// is the human's turn again.
func (gs *GameSession) Undo(playerID string) error {
	return gs.step(playerID, gs.game.Undo)
}

// Redo replays one undone move, or a move pair in a bot game.
func (gs *GameSession) Redo(playerID string) error {
	return gs.step(playerID, gs.game.Redo)
}

func (gs *GameSession) step(playerID string, move func() bool) error {
	gs.mu.Lock()
	if err := gs.authorize(playerID, false); err != nil {
		gs.mu.Unlock()
		return err
	}
	if !move() {
		gs.mu.Unlock()
		return nil
	}
	for gs.bot != nil && gs.game.State().Position.Turn == gs.botColor && move() {
	}
	state := gs.commit()
	gs.mu.Unlock()

	gs.publish(playerID, state)
	return nil
}

// Reset starts the game over.
func (gs *GameSession) Reset(playerID string) error {
	gs.mu.Lock()
	if err := gs.authorize(playerID, false); err != nil {
		gs.mu.Unlock()
		return err
	}
	gs.game.Reset()
	gs.playBot()
	state := gs.commit()
	gs.mu.Unlock()

	gs.publish(playerID, state)
	return nil
}

// Load replaces the game with an externally supplied state.
func (gs *GameSession) Load(state engine.GameState) error {
	gs.mu.Lock()
	if err := gs.game.Load(state); err != nil {
		gs.mu.Unlock()
		return err
	}
	gs.playBot()
	loaded := gs.commit()
	gs.mu.Unlock()

	gs.publish("", loaded)
	return nil
}

// commit persists the game and returns the current state. Callers hold gs.mu.
func (gs *GameSession) commit() engine.GameState {
	h := gs.game.History()
	rec := store.Record{
		ID:        gs.ID,
		Mode:      gs.Mode,
		History:   h.States(),
		Cursor:    h.Cursor(),
		UpdatedAt: time.Now().UTC(),
	}
	if gs.White != nil {
		rec.White = gs.White.Name
	}
	if gs.Black != nil {
		rec.Black = gs.Black.Name
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(gs.ctx), 5*time.Second)
	defer cancel()
	if err := gs.store.Save(ctx, rec); err != nil {
		gs.logger.Warn("save game", "err", err)
	}
	return gs.game.State()
}

// restore installs a stored history.
func (gs *GameSession) restore(rec store.Record) error {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	return gs.game.Restore(rec.History, rec.Cursor)
}

func (gs *GameSession) Disconnect(playerID string) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	var disconnectedPlayer, remainingPlayer *Player

	if gs.White != nil && gs.White.ID == playerID {
		gs.White.Connected = false
		disconnectedPlayer = gs.White
		remainingPlayer = gs.Black
	}
	if gs.Black != nil && gs.Black.ID == playerID {
		gs.Black.Connected = false
		disconnectedPlayer = gs.Black
		remainingPlayer = gs.White
	}

	// Notify remaining player of opponent disconnect
	if disconnectedPlayer != nil && remainingPlayer != nil && remainingPlayer.Connected && remainingPlayer.UpdateChan != nil {
		disconnectUpdate := GameUpdate{
			Type: "opponent_disconnected",
			Data: map[string]any{
				"disconnectedPlayer": disconnectedPlayer.Name,
			},
		}
		select {
		case remainingPlayer.UpdateChan <- disconnectUpdate:
		default:
		}
	}

	if gs.abandoned() {
		gs.cancel()
	}
}

// abandoned reports whether no human is left in the game. Callers hold gs.mu.
func (gs *GameSession) abandoned() bool {
	connected := func(p *Player) bool { return p != nil && p.Connected }
	return !connected(gs.White) && !connected(gs.Black)
}

// GameManager handles matchmaking and game coordination
type GameManager struct {
	playerQueue  []*Player
	activeGames  map[string]*GameSession
	playerToGame map[string]string // playerID -> gameID
	mu           sync.RWMutex
	gameCounter  int
	epoch        string

	store  store.Store
	logger *log.Logger
	newBot func() opponent.Mover
}

func NewGameManager(st store.Store, logger *log.Logger) *GameManager {
	return &GameManager{
		playerQueue:  make([]*Player, 0),
		activeGames:  make(map[string]*GameSession),
		playerToGame: make(map[string]string),
		epoch:        strconv.FormatInt(time.Now().Unix(), 36),
		store:        st,
		logger:       logger,
		newBot: func() opponent.Mover {
			return &opponent.Greedy{Fallback: opponent.NewRandom(nil)}
		},
	}
}

// nextID returns a game ID unique across restarts. Callers hold gm.mu.
func (gm *GameManager) nextID() string {
	gm.gameCounter++
	return fmt.Sprintf("game_%s_%d", gm.epoch, gm.gameCounter)
}

func (gm *GameManager) register(session *GameSession, players ...*Player) {
	gm.activeGames[session.ID] = session
	for _, p := range players {
		gm.playerToGame[p.ID] = session.ID
	}
}

func notify(p *Player, update GameUpdate) {
	if p == nil || p.UpdateChan == nil {
		return
	}
	select {
	case p.UpdateChan <- update:
	default:
	}
}

func (gm *GameManager) AddPlayer(player *Player) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	// Add to queue
	gm.playerQueue = append(gm.playerQueue, player)

	// Try to match with another player
	if len(gm.playerQueue) >= 2 {
		white := gm.playerQueue[0]
		black := gm.playerQueue[1]

		// Remove from queue
		gm.playerQueue = gm.playerQueue[2:]

		session := newGameSession(gm.nextID(), ModePvP, gm.store, gm.logger)
		session.seat(white, engine.White)
		session.seat(black, engine.Black)
		gm.register(session, white, black)
		state := session.commit()
		gm.logger.Info("players matched", "game", session.ID, "white", white.Name, "black", black.Name)

		// Notify players they've been matched
		matchUpdate := GameUpdate{
			Type:  "matched",
			State: state,
			Data: map[string]any{
				"gameID": session.ID,
				"opponent": map[string]string{
					"white_opponent": black.Name,
					"black_opponent": white.Name,
				},
			},
		}
		notify(white, matchUpdate)
		notify(black, matchUpdate)
	}
}

// AddBotGame starts a game between player, as White, and a computer opponent.
func (gm *GameManager) AddBotGame(player *Player) *GameSession {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	session := newGameSession(gm.nextID(), ModeBot, gm.store, gm.logger)
	session.seat(player, engine.White)
	gm.seatBot(session, "")
	gm.register(session, player)
	state := session.commit()
	gm.logger.Info("bot game started", "game", session.ID, "player", player.Name)

	notify(player, GameUpdate{Type: "matched", State: state})
	return session
}

// seatBot gives Black to a computer opponent.
func (gm *GameManager) seatBot(session *GameSession, name string) {
	if name == "" {
		name = "bot"
	}
	session.seat(&Player{ID: session.ID + "_bot", Name: name}, engine.Black)
	session.bot = gm.newBot()
	session.botColor = engine.Black
}

// NewAPIGame starts a game driven only through the HTTP API.
func (gm *GameManager) NewAPIGame() *GameSession {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	session := newGameSession(gm.nextID(), ModeAPI, gm.store, gm.logger)
	gm.register(session)
	session.commit()
	return session
}

// Game returns the session with the given ID, resuming it from the store
// when it is not active.
func (gm *GameManager) Game(ctx context.Context, id string) (*GameSession, error) {
	gm.mu.RLock()
	session, ok := gm.activeGames[id]
	gm.mu.RUnlock()
	if ok {
		return session, nil
	}

	rec, err := gm.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	gm.mu.Lock()
	defer gm.mu.Unlock()
	if session, ok := gm.activeGames[id]; ok {
		return session, nil
	}
	mode := rec.Mode
	if mode == "" {
		mode = ModeAPI
	}
	session = newGameSession(rec.ID, mode, gm.store, gm.logger)
	// Stored players are seated but disconnected.
	if rec.White != "" {
		session.seat(&Player{ID: rec.ID + "_white", Name: rec.White}, engine.White)
	}
	if mode == ModeBot {
		gm.seatBot(session, rec.Black)
	} else if rec.Black != "" {
		session.seat(&Player{ID: rec.ID + "_black", Name: rec.Black}, engine.Black)
	}
	if err := session.restore(rec); err != nil {
		session.cancel()
		return nil, fmt.Errorf("resume %s: %w", id, err)
	}
	gm.register(session)
	gm.logger.Info("game resumed", "game", id, "mode", mode, "moves", len(rec.State().Moves))
	return session, nil
}

func (gm *GameManager) RemovePlayer(playerID string) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	// Remove from queue if present
	for i, player := range gm.playerQueue {
		if player.ID == playerID {
			gm.playerQueue = append(gm.playerQueue[:i], gm.playerQueue[i+1:]...)
			break
		}
	}

	// Handle active game disconnection
	if gameID, exists := gm.playerToGame[playerID]; exists {
		if session, gameExists := gm.activeGames[gameID]; gameExists {
			session.Disconnect(playerID)

			// Clean up if game is over
			if session.ctx.Err() != nil {
				delete(gm.activeGames, gameID)
				for _, p := range []*Player{session.White, session.Black} {
					if p != nil {
						delete(gm.playerToGame, p.ID)
					}
				}
			}
		}
		delete(gm.playerToGame, playerID)
	}
}

func (gm *GameManager) GetGameSession(playerID string) *GameSession {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	if gameID, exists := gm.playerToGame[playerID]; exists {
		return gm.activeGames[gameID]
	}
	return nil
}

func (gm *GameManager) BroadcastUpdate(playerID string, update GameUpdate) {
	session := gm.GetGameSession(playerID)
	if session != nil {
		update.FromPlayer = playerID
		select {
		case session.Updates <- update:
		case <-time.After(100 * time.Millisecond):
			// Drop update if channel is full
		}
	}
}

func (gm *GameManager) GetQueuePosition(playerID string) int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()

	for i, player := range gm.playerQueue {
		if player.ID == playerID {
			return i + 1
		}
	}
	return -1
}

// Close stops every active session.
func (gm *GameManager) Close() {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	for id, session := range gm.activeGames {
		session.cancel()
		delete(gm.activeGames, id)
	}
}
