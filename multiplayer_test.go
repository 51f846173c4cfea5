package main

import (
	"context"
	"io"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imjasonh/chessd/internal/engine"
	"github.com/imjasonh/chessd/internal/opponent"
	"github.com/imjasonh/chessd/internal/store"
)

func newTestManager(t *testing.T, st store.Store) *GameManager {
	t.Helper()
	if st == nil {
		st = store.NewMemory()
	}
	gm := NewGameManager(st, log.New(io.Discard))
	gm.newBot = func() opponent.Mover { return opponent.NewRandom(rand.NewPCG(1, 2)) }
	t.Cleanup(gm.Close)
	return gm
}

func newTestPlayer(name string) *Player {
	return &Player{
		ID:         "player_" + name,
		Name:       name,
		Connected:  true,
		UpdateChan: make(chan GameUpdate, 10),
	}
}

// awaitUpdate returns the next update of the given type sent to p.
func awaitUpdate(t *testing.T, p *Player, typ string) GameUpdate {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case u := <-p.UpdateChan:
			if u.Type == typ {
				return u
			}
		case <-timeout:
			t.Fatalf("no %q update for %s", typ, p.Name)
		}
	}
}

func TestMatchmaking(t *testing.T) {
	gm := newTestManager(t, nil)
	alice, bob := newTestPlayer("alice"), newTestPlayer("bob")

	gm.AddPlayer(alice)
	assert.Equal(t, 1, gm.GetQueuePosition(alice.ID))
	assert.Nil(t, gm.GetGameSession(alice.ID))

	gm.AddPlayer(bob)
	assert.Equal(t, -1, gm.GetQueuePosition(alice.ID))

	awaitUpdate(t, alice, "matched")
	awaitUpdate(t, bob, "matched")

	gs := gm.GetGameSession(alice.ID)
	require.NotNil(t, gs)
	assert.Same(t, gs, gm.GetGameSession(bob.ID))
	assert.Equal(t, engine.White, alice.Color)
	assert.Equal(t, engine.Black, bob.Color)
	assert.Same(t, bob, gs.GetOpponent(alice.ID))
	assert.True(t, gs.IsPlayerTurn(alice.ID))
	assert.False(t, gs.IsPlayerTurn(bob.ID))
}

func TestRemoveQueuedPlayer(t *testing.T) {
	gm := newTestManager(t, nil)
	alice := newTestPlayer("alice")
	gm.AddPlayer(alice)
	gm.RemovePlayer(alice.ID)
	assert.Equal(t, -1, gm.GetQueuePosition(alice.ID))
}

func TestSessionMove(t *testing.T) {
	st := store.NewMemory()
	gm := newTestManager(t, st)
	alice, bob := newTestPlayer("alice"), newTestPlayer("bob")
	gm.AddPlayer(alice)
	gm.AddPlayer(bob)
	gs := gm.GetGameSession(alice.ID)
	require.NotNil(t, gs)

	e2, e4 := engine.Sq(4, 1), engine.Sq(4, 3)

	assert.ErrorIs(t, gs.Move(bob.ID, engine.Sq(4, 6), engine.Sq(4, 4)), ErrNotYourTurn)
	assert.ErrorIs(t, gs.Move("player_mallory", e2, e4), ErrNotAPlayer)
	assert.ErrorIs(t, gs.Move(alice.ID, e2, engine.Sq(4, 4)), ErrIllegalMove)
	assert.Empty(t, gs.State().Moves)

	require.NoError(t, gs.Move(alice.ID, e2, e4))
	state := gs.State()
	assert.Equal(t, []engine.Move{{From: e2, To: e4}}, state.Moves)
	assert.Equal(t, engine.Black, state.Position.Turn)

	// Bob hears about it; Alice does not need to.
	u := awaitUpdate(t, bob, "state")
	assert.Equal(t, alice.ID, u.FromPlayer)
	assert.Equal(t, state, u.State)

	rec, err := st.Get(context.Background(), gs.ID)
	require.NoError(t, err)
	assert.Equal(t, ModePvP, rec.Mode)
	assert.Equal(t, "alice", rec.White)
	assert.Equal(t, "bob", rec.Black)
	assert.Equal(t, 1, rec.Cursor)
	assert.Equal(t, state, rec.State())
}

func TestSessionUndoRedoReset(t *testing.T) {
	gm := newTestManager(t, nil)
	gs := gm.NewAPIGame()

	require.NoError(t, gs.Move("", engine.Sq(6, 0), engine.Sq(5, 2)))
	require.NoError(t, gs.Move("", engine.Sq(6, 7), engine.Sq(5, 5)))
	assert.Len(t, gs.State().Moves, 2)

	require.NoError(t, gs.Undo(""))
	assert.Len(t, gs.State().Moves, 1)
	assert.True(t, gs.CanRedo())

	require.NoError(t, gs.Redo(""))
	assert.Len(t, gs.State().Moves, 2)
	assert.False(t, gs.CanRedo())

	require.NoError(t, gs.Reset(""))
	assert.Equal(t, engine.NewGameState(), gs.State())
	assert.False(t, gs.CanUndo())

	// Nothing to undo is not an error.
	require.NoError(t, gs.Undo(""))
}

func TestBotGame(t *testing.T) {
	gm := newTestManager(t, nil)
	alice := newTestPlayer("alice")
	gs := gm.AddBotGame(alice)
	awaitUpdate(t, alice, "matched")

	assert.Equal(t, ModeBot, gs.Mode)
	assert.Equal(t, engine.White, alice.Color)
	assert.Same(t, gs, gm.GetGameSession(alice.ID))

	require.NoError(t, gs.Move(alice.ID, engine.Sq(4, 1), engine.Sq(4, 3)))
	state := gs.State()
	require.Len(t, state.Moves, 2, "bot should have replied")
	assert.Equal(t, engine.White, state.Position.Turn)

	// Undo takes back the bot's reply and the player's move together.
	require.NoError(t, gs.Undo(alice.ID))
	assert.Equal(t, engine.NewGameState(), gs.State())

	require.NoError(t, gs.Redo(alice.ID))
	assert.Equal(t, state, gs.State())
}

func TestGameResumesFromStore(t *testing.T) {
	st := store.NewMemory()
	first := newTestManager(t, st)
	gs := first.NewAPIGame()
	require.NoError(t, gs.Move("", engine.Sq(4, 1), engine.Sq(4, 3)))
	require.NoError(t, gs.Move("", engine.Sq(4, 6), engine.Sq(4, 4)))
	require.NoError(t, gs.Undo(""))
	want := gs.State()

	second := newTestManager(t, st)
	resumed, err := second.Game(context.Background(), gs.ID)
	require.NoError(t, err)
	assert.Equal(t, want, resumed.State())
	assert.True(t, resumed.CanRedo())

	again, err := second.Game(context.Background(), gs.ID)
	require.NoError(t, err)
	assert.Same(t, resumed, again)
}

func TestBotGameResumesFromStore(t *testing.T) {
	st := store.NewMemory()
	first := newTestManager(t, st)
	alice := newTestPlayer("alice")
	gs := first.AddBotGame(alice)
	require.NoError(t, gs.Move(alice.ID, engine.Sq(4, 1), engine.Sq(4, 3)))
	want := gs.State()

	second := newTestManager(t, st)
	resumed, err := second.Game(context.Background(), gs.ID)
	require.NoError(t, err)
	assert.Equal(t, ModeBot, resumed.Mode)
	assert.Equal(t, want, resumed.State())
	require.NotNil(t, resumed.White)
	require.NotNil(t, resumed.Black)
	assert.Equal(t, "alice", resumed.White.Name)
	assert.Equal(t, "bot", resumed.Black.Name)
	assert.False(t, resumed.White.Connected)

	// The bot still answers.
	require.NoError(t, resumed.Move("", engine.Sq(3, 1), engine.Sq(3, 2)))
	state := resumed.State()
	assert.Len(t, state.Moves, 4)
	assert.Equal(t, engine.White, state.Position.Turn)

	rec, err := st.Get(context.Background(), gs.ID)
	require.NoError(t, err)
	assert.Equal(t, ModeBot, rec.Mode)
	assert.Equal(t, "alice", rec.White)
	assert.Equal(t, "bot", rec.Black)
	assert.Equal(t, state, rec.State())
}

func TestPvPGameResumesWithPlayers(t *testing.T) {
	st := store.NewMemory()
	first := newTestManager(t, st)
	alice, bob := newTestPlayer("alice"), newTestPlayer("bob")
	first.AddPlayer(alice)
	first.AddPlayer(bob)
	gs := first.GetGameSession(alice.ID)
	require.NotNil(t, gs)
	require.NoError(t, gs.Move(alice.ID, engine.Sq(4, 1), engine.Sq(4, 3)))

	second := newTestManager(t, st)
	resumed, err := second.Game(context.Background(), gs.ID)
	require.NoError(t, err)
	assert.Equal(t, ModePvP, resumed.Mode)
	assert.Equal(t, "alice", resumed.White.Name)
	assert.Equal(t, "bob", resumed.Black.Name)
	assert.True(t, resumed.IsPlayerTurn(resumed.Black.ID))

	require.NoError(t, resumed.Move("", engine.Sq(4, 6), engine.Sq(4, 4)))
	assert.Len(t, resumed.State().Moves, 2, "no bot in a two-player game")

	rec, err := st.Get(context.Background(), gs.ID)
	require.NoError(t, err)
	assert.Equal(t, ModePvP, rec.Mode)
	assert.Equal(t, "bob", rec.Black)
}

func TestGameNotFound(t *testing.T) {
	gm := newTestManager(t, nil)
	_, err := gm.Game(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestDisconnectNotifiesOpponent(t *testing.T) {
	gm := newTestManager(t, nil)
	alice, bob := newTestPlayer("alice"), newTestPlayer("bob")
	gm.AddPlayer(alice)
	gm.AddPlayer(bob)
	awaitUpdate(t, bob, "matched")

	gm.RemovePlayer(alice.ID)
	awaitUpdate(t, bob, "opponent_disconnected")
	assert.Nil(t, gm.GetGameSession(alice.ID))
	assert.NotNil(t, gm.GetGameSession(bob.ID))

	gm.RemovePlayer(bob.ID)
	assert.Nil(t, gm.GetGameSession(bob.ID))
}

func TestLoadReplacesGame(t *testing.T) {
	gm := newTestManager(t, nil)
	gs := gm.NewAPIGame()

	pos, err := engine.ParseFEN("k1K5/8/1Q6/8/8/8/8/8 b")
	require.NoError(t, err)
	require.NoError(t, gs.Load(engine.GameState{Position: pos}))
	assert.Equal(t, engine.Stalemate, gs.State().Status)

	bad, err := engine.ParseFEN("k1K5/8/1Q6/8/8/8/8/8 b")
	require.NoError(t, err)
	bad.Pieces = bad.Pieces[1:]
	assert.ErrorIs(t, gs.Load(engine.GameState{Position: bad}), engine.ErrInvalidPosition)
	assert.Equal(t, engine.Stalemate, gs.State().Status)
}
