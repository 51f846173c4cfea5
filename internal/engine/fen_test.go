package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFENStartingPosition(t *testing.T) {
	pos, err := ParseFEN(StartingFEN)
	require.NoError(t, err)

	less := func(a, b Piece) bool {
		if a.Square.Rank != b.Square.Rank {
			return a.Square.Rank < b.Square.Rank
		}
		return a.Square.File < b.Square.File
	}
	if diff := cmp.Diff(StartingPosition(), pos, cmpopts.SortSlices(less)); diff != "" {
		t.Errorf("ParseFEN(StartingFEN) mismatch (-want +got):\n%s", diff)
	}
}

func TestFENRoundTrip(t *testing.T) {
	for _, fen := range []string{
		StartingFEN,
		"rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w",
		"k1K5/8/1Q6/8/8/8/8/8 b",
		"8/8/8/8/Q3r2k/8/8/4K3 w",
	} {
		pos, err := ParseFEN(fen)
		require.NoError(t, err, fen)
		assert.Equal(t, fen, pos.FEN())
	}
}

func TestParseFENIgnoresTrailingFields(t *testing.T) {
	pos, err := ParseFEN("4k3/8/8/8/8/8/8/4K3 b KQkq - 0 1")
	require.NoError(t, err)
	assert.Equal(t, Black, pos.Turn)
	assert.Len(t, pos.Pieces, 2)
}

func TestParseFENDefaultsToWhite(t *testing.T) {
	pos, err := ParseFEN("4k3/8/8/8/8/8/8/4K3")
	require.NoError(t, err)
	assert.Equal(t, White, pos.Turn)
}

func TestParseFENErrors(t *testing.T) {
	tests := []struct {
		name string
		fen  string
	}{
		{"empty", ""},
		{"seven ranks", "8/8/8/8/8/8/4K3 w"},
		{"short rank", "4k3/8/8/8/8/8/8/4K2 w"},
		{"long rank", "4k3/8/8/8/8/8/8/4K4 w"},
		{"bad piece", "4k3/8/8/8/8/8/8/4X3 w"},
		{"bad side", "4k3/8/8/8/8/8/8/4K3 x"},
		{"no black king", "8/8/8/8/8/8/8/4K3 w"},
		{"two white kings", "4k3/8/8/8/8/8/8/3KK3 w"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFEN(tt.fen)
			assert.ErrorIs(t, err, ErrInvalidPosition)
		})
	}
}

func TestParseSquare(t *testing.T) {
	for in, want := range map[string]Square{
		"a1": Sq(0, 0),
		"e2": Sq(4, 1),
		"h8": Sq(7, 7),
	} {
		got, err := ParseSquare(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
		assert.Equal(t, in, got.String())
	}

	for _, in := range []string{"", "e", "e9", "i1", "E2", "e10"} {
		_, err := ParseSquare(in)
		assert.Error(t, err, in)
	}
}
