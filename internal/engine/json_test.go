package engine

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameStateWireForm(t *testing.T) {
	e := New()
	play(t, e, Move{Sq(4, 1), Sq(4, 3)})

	b, err := json.Marshal(e.State())
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, "active", raw["status"])
	assert.Nil(t, raw["winner"])
	assert.Equal(t, []any{map[string]any{"from": []any{4.0, 1.0}, "to": []any{4.0, 3.0}}}, raw["moveHistory"])

	pos := raw["position"].(map[string]any)
	assert.Equal(t, "black", pos["turn"])
	first := pos["pieces"].([]any)[0].(map[string]any)
	assert.Equal(t, map[string]any{"type": "rook", "color": "white", "position": []any{0.0, 0.0}}, first)
}

func TestGameStateDecode(t *testing.T) {
	e := New()
	play(t, e, foolsMate...)
	want := e.State()

	b, err := json.Marshal(want)
	require.NoError(t, err)

	var got GameState
	require.NoError(t, json.Unmarshal(b, &got))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decoded state mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, Black, got.Winner)
}

func TestDecodeRejectsUnknownNames(t *testing.T) {
	var pc Piece
	assert.Error(t, json.Unmarshal([]byte(`{"type":"archbishop","color":"white","position":[0,0]}`), &pc))
	assert.Error(t, json.Unmarshal([]byte(`{"type":"pawn","color":"green","position":[0,0]}`), &pc))
	assert.Error(t, json.Unmarshal([]byte(`{"type":"pawn","color":"white","position":"a1"}`), &pc))
}

func TestSquareNeedsTwoCoordinates(t *testing.T) {
	var sq Square
	require.NoError(t, json.Unmarshal([]byte(`[3,5]`), &sq))
	assert.Equal(t, Sq(3, 5), sq)

	for _, in := range []string{`[3]`, `[1,2,3]`, `[]`, `"d6"`} {
		assert.Error(t, json.Unmarshal([]byte(in), &sq), in)
	}
}
