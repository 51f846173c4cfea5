// Package render draws game states for display: an SVG board for the web
// and the unicode glyphs shared with the terminal UI.
package render

import (
	"fmt"
	"io"

	svg "github.com/ajstarks/svgo"

	"github.com/imjasonh/chessd/internal/engine"
)

var (
	whiteGlyphs = map[engine.Kind]string{
		engine.Pawn:   "♙",
		engine.Rook:   "♖",
		engine.Knight: "♘",
		engine.Bishop: "♗",
		engine.Queen:  "♕",
		engine.King:   "♔",
	}
	blackGlyphs = map[engine.Kind]string{
		engine.Pawn:   "♟",
		engine.Rook:   "♜",
		engine.Knight: "♞",
		engine.Bishop: "♝",
		engine.Queen:  "♛",
		engine.King:   "♚",
	}
)

// Glyph returns the unicode chess symbol for p.
func Glyph(p engine.Piece) string {
	if p.Color == engine.White {
		return whiteGlyphs[p.Kind]
	}
	return blackGlyphs[p.Kind]
}

type Theme struct {
	Light, Dark       string
	Selected, Target  string
	LastMove, InCheck string
}

var (
	LightTheme = Theme{
		Light: "#f0d9b5", Dark: "#b58863",
		Selected: "#f6f669", Target: "#9bc26b",
		LastMove: "#cdd26a", InCheck: "#e06c5a",
	}
	DarkTheme = Theme{
		Light: "#8a8f98", Dark: "#3b3f46",
		Selected: "#c9b846", Target: "#5f8f4a",
		LastMove: "#7d8540", InCheck: "#b3483a",
	}
)

// ThemeNamed returns DarkTheme for "dark" and LightTheme otherwise.
func ThemeNamed(name string) Theme {
	if name == "dark" {
		return DarkTheme
	}
	return LightTheme
}

type Options struct {
	Theme Theme
	// SquareSize is the edge of one square in pixels; 0 means 60.
	SquareSize int
	// Flip draws the board from Black's side.
	Flip     bool
	Selected *engine.Square
	Targets  []engine.Square
}

const margin = 20

// SVG writes an SVG image of state to w. The last move is tinted, as is the
// king of the side to move when it is in check.
func SVG(w io.Writer, state engine.GameState, opts Options) {
	if opts.Theme == (Theme{}) {
		opts.Theme = LightTheme
	}
	size := opts.SquareSize
	if size <= 0 {
		size = 60
	}
	board := 8 * size

	fill := map[engine.Square]string{}
	if m, ok := state.LastMove(); ok {
		fill[m.From] = opts.Theme.LastMove
		fill[m.To] = opts.Theme.LastMove
	}
	if state.Status == engine.Check || state.Status == engine.Checkmate {
		if k, ok := state.Position.King(state.Position.Turn); ok {
			fill[k] = opts.Theme.InCheck
		}
	}
	if opts.Selected != nil {
		fill[*opts.Selected] = opts.Theme.Selected
	}
	targets := map[engine.Square]bool{}
	for _, sq := range opts.Targets {
		targets[sq] = true
	}

	// origin returns the top-left pixel of sq.
	origin := func(sq engine.Square) (int, int) {
		col, row := sq.File, 7-sq.Rank
		if opts.Flip {
			col, row = 7-sq.File, sq.Rank
		}
		return margin + col*size, margin + row*size
	}

	canvas := svg.New(w)
	canvas.Start(board+2*margin, board+2*margin)
	canvas.Title(fmt.Sprintf("%s to move, %s", state.Position.Turn, state.Status))

	for rank := range 8 {
		for file := range 8 {
			sq := engine.Sq(file, rank)
			x, y := origin(sq)
			color := opts.Theme.Dark
			if (file+rank)%2 == 1 {
				color = opts.Theme.Light
			}
			if c, ok := fill[sq]; ok {
				color = c
			}
			canvas.Rect(x, y, size, size, "fill:"+color)
			if targets[sq] {
				canvas.Circle(x+size/2, y+size/2, size/6, "fill:"+opts.Theme.Target+";fill-opacity:0.8")
			}
		}
	}

	labelStyle := fmt.Sprintf("font-family:sans-serif;font-size:%dpx;text-anchor:middle;fill:#555", margin*3/5)
	for i := range 8 {
		x, _ := origin(engine.Sq(i, 0))
		canvas.Text(x+size/2, board+margin*2-margin/3, string(rune('a'+i)), labelStyle)
		_, y := origin(engine.Sq(0, i))
		canvas.Text(margin/2, y+size/2+margin/4, fmt.Sprint(i+1), labelStyle)
	}

	pieceStyle := fmt.Sprintf("font-family:serif;font-size:%dpx;text-anchor:middle;dominant-baseline:central", size*4/5)
	for _, pc := range state.Position.Pieces {
		x, y := origin(pc.Square)
		canvas.Text(x+size/2, y+size/2, Glyph(pc), pieceStyle)
	}

	canvas.End()
}
