package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	sshproxy "github.com/imjasonh/ssh-proxy"

	"github.com/imjasonh/chessd/internal/engine"
	"github.com/imjasonh/chessd/internal/render"
)

// API serves games over HTTP and bridges browser websockets to the SSH server.
type API struct {
	r       *chi.Mux
	games   *GameManager
	logger  *log.Logger
	sshAddr string
}

func NewAPI(games *GameManager, logger *log.Logger, sshAddr string, timeout time.Duration) *API {
	a := &API{r: chi.NewRouter(), games: games, logger: logger, sshAddr: sshAddr}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	a.r.Use(chimw.RequestID)
	a.r.Use(chimw.RealIP)
	a.r.Use(a.logRequests)
	a.r.Use(chimw.Recoverer)

	a.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	// The websocket bridge is long-lived, so it sits outside the timeout.
	if sshAddr != "" {
		a.r.Get("/ssh", sshproxy.ProxyWebSocketToSSH(sshAddr, websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow connections from any origin for now
			},
		}))
	}

	a.r.Route("/api/games", func(r chi.Router) {
		r.Use(chimw.Timeout(timeout))
		r.Post("/", a.handleNewGame)
		r.Get("/", a.handleListGames)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.handleGetGame)
			r.Put("/", a.handleLoadGame)
			r.Get("/moves", a.handleLegalMoves)
			r.Post("/moves", a.handleMove)
			r.Post("/undo", a.handleUndo)
			r.Post("/redo", a.handleRedo)
			r.Post("/reset", a.handleReset)
			r.Get("/board.svg", a.handleBoard)
		})
	})

	a.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, fmt.Errorf("no route for %s", r.URL.Path))
	})

	return a
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) { a.r.ServeHTTP(w, r) }

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()))
	})
}

type gameResponse struct {
	ID      string           `json:"id"`
	CanUndo bool             `json:"canUndo"`
	CanRedo bool             `json:"canRedo"`
	State   engine.GameState `json:"state"`
}

func respond(gs *GameSession) gameResponse {
	gs.mu.RLock()
	defer gs.mu.RUnlock()
	return gameResponse{
		ID:      gs.ID,
		CanUndo: gs.game.CanUndo(),
		CanRedo: gs.game.CanRedo(),
		State:   gs.game.State(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// game looks up the {id} session, writing the error response when it fails.
func (a *API) game(w http.ResponseWriter, r *http.Request) (*GameSession, bool) {
	id := chi.URLParam(r, "id")
	gs, err := a.games.Game(r.Context(), id)
	switch {
	case errors.Is(err, ErrGameNotFound):
		writeError(w, http.StatusNotFound, err)
		return nil, false
	case err != nil:
		a.logger.Error("load game", "game", id, "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return nil, false
	}
	return gs, true
}

func (a *API) handleNewGame(w http.ResponseWriter, r *http.Request) {
	gs := a.games.NewAPIGame()
	a.logger.Info("api game created", "game", gs.ID)
	writeJSON(w, http.StatusCreated, respond(gs))
}

func (a *API) handleListGames(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("bad limit %q", s))
			return
		}
		limit = n
	}
	games, err := a.games.store.List(r.Context(), limit)
	if err != nil {
		a.logger.Error("list games", "err", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (a *API) handleGetGame(w http.ResponseWriter, r *http.Request) {
	gs, ok := a.game(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, respond(gs))
}

func (a *API) handleLoadGame(w http.ResponseWriter, r *http.Request) {
	gs, ok := a.game(w, r)
	if !ok {
		return
	}
	var state engine.GameState
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := gs.Load(state); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, respond(gs))
}

func (a *API) handleLegalMoves(w http.ResponseWriter, r *http.Request) {
	gs, ok := a.game(w, r)
	if !ok {
		return
	}
	from, err := engine.ParseSquare(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	targets := gs.MovesFrom(from)
	if targets == nil {
		targets = []engine.Square{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"from": from, "targets": targets})
}

func (a *API) handleMove(w http.ResponseWriter, r *http.Request) {
	gs, ok := a.game(w, r)
	if !ok {
		return
	}
	var m engine.Move
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if !m.From.Valid() || !m.To.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Errorf("move %v-%v leaves the board", m.From, m.To))
		return
	}
	if err := gs.Move("", m.From, m.To); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, respond(gs))
}

func (a *API) handleUndo(w http.ResponseWriter, r *http.Request) {
	a.step(w, r, (*GameSession).Undo)
}

func (a *API) handleRedo(w http.ResponseWriter, r *http.Request) {
	a.step(w, r, (*GameSession).Redo)
}

func (a *API) handleReset(w http.ResponseWriter, r *http.Request) {
	a.step(w, r, (*GameSession).Reset)
}

func (a *API) step(w http.ResponseWriter, r *http.Request, op func(*GameSession, string) error) {
	gs, ok := a.game(w, r)
	if !ok {
		return
	}
	if err := op(gs, ""); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, respond(gs))
}

func (a *API) handleBoard(w http.ResponseWriter, r *http.Request) {
	gs, ok := a.game(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	opts := render.Options{
		Theme: render.ThemeNamed(q.Get("theme")),
		Flip:  q.Get("flip") == "true",
	}
	if s := q.Get("from"); s != "" {
		from, err := engine.ParseSquare(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		opts.Selected = &from
		opts.Targets = gs.MovesFrom(from)
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	render.SVG(w, gs.State(), opts)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrIllegalMove):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrNotYourTurn), errors.Is(err, ErrNotAPlayer):
		return http.StatusForbidden
	case errors.Is(err, ErrGameNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrInvalidPosition):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
