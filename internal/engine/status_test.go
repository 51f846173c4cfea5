package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		fen        string
		wantStatus Status
		wantWinner Color
	}{
		{"start", StartingFEN, Active, NoColor},
		{"check with escape", "4k3/8/8/8/8/8/8/4R1K1 b", Check, NoColor},
		{"back rank mate", "R5k1/5ppp/8/8/8/8/8/6K1 b", Checkmate, White},
		{"fool's mate", "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w", Checkmate, Black},
		{"queen stalemate", "k1K5/8/1Q6/8/8/8/8/8 b", Stalemate, NoColor},
		{"lone kings", "8/8/8/4k3/8/8/8/4K3 w", Active, NoColor},
		{"check answered only by capture", "4k3/8/8/8/8/8/4q3/4K3 w", Check, NoColor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			status, winner := Evaluate(mustFEN(t, tt.fen))
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantWinner, winner)
		})
	}
}

func TestStatusOver(t *testing.T) {
	assert.False(t, Active.Over())
	assert.False(t, Check.Over())
	assert.True(t, Checkmate.Over())
	assert.True(t, Stalemate.Over())
}
