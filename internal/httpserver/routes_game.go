// internal/httpserver/routes_game.go
//
// HTTP routes for playing a game:
//   - POST /game/new          → start a session (normal or daily layout), returns a play token
//   - POST /game/select       → select a card position (play token required)
//   - GET  /game/{id}         → visible state snapshot
//   - GET  /game/{id}/events  → journal entries after ?since=N
//   - GET  /sounds            → currently loaded sound library
//
// Starting a game tears down the player's previous session, including any
// pending resolution and the victory sound loop.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/concentration/internal/audio"
	"github.com/robalobadob/concentration/internal/daily"
	"github.com/robalobadob/concentration/internal/faces"
	"github.com/robalobadob/concentration/internal/game"
	"github.com/robalobadob/concentration/internal/history"
	"github.com/robalobadob/concentration/internal/journal"
	"github.com/robalobadob/concentration/internal/store"
)

const (
	modeNormal = "normal"
	modeDaily  = "daily"
)

func (s *Server) mountGame() {
	s.r.Post("/game/new", s.handleNewGame)
	s.r.With(s.requirePlayToken()).Post("/game/select", s.handleSelect)
	s.r.Get("/game/{id}", s.handleGetGame)
	s.r.Get("/game/{id}/events", s.handleEvents)
	s.r.Get("/sounds", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(s.catalog.Current())
	})
}

// newGameReq/Res payloads for POST /game/new.
type newGameReq struct {
	Mode string `json:"mode"` // "normal" (default) | "daily"
}
type newGameRes struct {
	GameID          string   `json:"gameId"`
	Token           string   `json:"token"`
	Mode            string   `json:"mode"`
	Date            string   `json:"date,omitempty"`
	PairCount       int      `json:"pairCount"`
	Cards           int      `json:"cards"`
	Faces           []string `json:"faces"` // image for pair ID i+1
	MatchDelayMs    int64    `json:"matchDelayMs"`
	MismatchDelayMs int64    `json:"mismatchDelayMs"`
	Message         string   `json:"message"`
}

// handleNewGame creates a session wired to its own journal and sound selector.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	_ = json.NewDecoder(r.Body).Decode(&req) // empty body means defaults

	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = modeNormal
	}
	if mode != modeNormal && mode != modeDaily {
		http.Error(w, `{"error":"bad_mode"}`, http.StatusBadRequest)
		return
	}

	owner := s.ensureAnonID(w, r)
	now := s.clock.Now()
	cfg := s.cfg.Game.Session()

	j := journal.New(0, s.clock.Now)
	opts := []game.Option{game.WithClock(s.clock)}
	date := ""
	if mode == modeDaily {
		date = daily.DateKey(now)
		opts = append(opts, game.WithRand(daily.Rand(now, s.cfg.DailySalt)))
	}
	sess, err := game.New(cfg, j, audio.NewSelector(s.catalog, j, nil), opts...)
	if err != nil {
		log.Error().Err(err).Msg("new session")
		http.Error(w, `{"error":"config_invalid"}`, http.StatusInternalServerError)
		return
	}

	entry := &store.Entry{Session: sess, Journal: j, Owner: owner, Mode: mode, Date: date}
	j.OnFinish(func(sum game.Summary) { s.recordResult(entry, sum) })
	if err := s.store.Put(r.Context(), entry); err != nil {
		sess.Close()
		log.Error().Err(err).Msg("save session")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}

	tok, exp, err := s.signPlayToken(sess.ID(), owner)
	if err != nil {
		http.Error(w, `{"error":"sign_failed"}`, http.StatusInternalServerError)
		return
	}
	s.setCookie(w, tokenCookieName, tok, exp)

	log.Debug().Str("gameId", sess.ID()).Str("mode", mode).Msg("game started")
	_ = json.NewEncoder(w).Encode(newGameRes{
		GameID:          sess.ID(),
		Token:           tok,
		Mode:            mode,
		Date:            date,
		PairCount:       cfg.PairCount,
		Cards:           2 * cfg.PairCount,
		Faces:           faces.All(cfg.PairCount),
		MatchDelayMs:    cfg.MatchDelay.Milliseconds(),
		MismatchDelayMs: cfg.MismatchDelay.Milliseconds(),
		Message:         s.cfg.EndMessage,
	})
}

// selectReq/Res payloads for POST /game/select.
type selectReq struct {
	GameID   string `json:"gameId"`
	Position *int   `json:"position"`
}
type selectRes struct {
	Accepted bool          `json:"accepted"`
	Game     game.Snapshot `json:"game"`
}

// handleSelect forwards a position to the session. Ignored selections are
// not errors: they come back with accepted=false.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	if req.Position == nil {
		http.Error(w, `{"error":"bad_position"}`, http.StatusBadRequest)
		return
	}
	if c := claimsFrom(r.Context()); c == nil || c.GameID != req.GameID {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
		return
	}
	e, err := s.store.Get(r.Context(), req.GameID)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}

	accepted := e.Session.Select(game.Position(*req.Position))
	_ = json.NewEncoder(w).Encode(selectRes{Accepted: accepted, Game: e.Session.Snapshot()})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	e, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	_ = json.NewEncoder(w).Encode(e.Session.Snapshot())
}

type eventsRes struct {
	Events []journal.Entry `json:"events"`
	Next   uint64          `json:"next"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var since uint64
	if v := r.URL.Query().Get("since"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			http.Error(w, `{"error":"bad_since"}`, http.StatusBadRequest)
			return
		}
		since = n
	}
	e, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	events, next := e.Journal.Since(since)
	_ = json.NewEncoder(w).Encode(eventsRes{Events: events, Next: next})
}

// recordResult writes a finished game to history. Failures are logged, never surfaced.
func (s *Server) recordResult(e *store.Entry, sum game.Summary) {
	if s.history == nil {
		return
	}
	finished := s.clock.Now()
	date := e.Date
	if date == "" {
		date = daily.DateKey(finished)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.history.Insert(ctx, history.Result{
		GameID:    e.Session.ID(),
		PlayerID:  e.Owner,
		Mode:      e.Mode,
		Date:      date,
		Pairs:     sum.Pairs,
		Moves:     sum.Moves,
		Mistakes:  sum.Mistakes,
		ElapsedMs: sum.ElapsedMs(),
		Finished:  finished,
	})
	if err != nil {
		log.Warn().Err(err).Str("gameId", e.Session.ID()).Msg("record result")
	}
}
