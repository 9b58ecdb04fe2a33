// internal/httpserver/routes_history.go
//
// HTTP routes over recorded results:
//   - GET /leaderboard?mode=&date=&pairs=&limit= → best results (fewest mistakes, then fastest)
//   - GET /games/mine                            → the caller's recent results (anon cookie)
//
// Both answer 503 when history is disabled (DB_PATH=off).

package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/concentration/internal/history"
)

const maxLeaderboard = 100

func (s *Server) mountHistory() {
	s.r.Get("/leaderboard", s.handleLeaderboard)
	s.r.Get("/games/mine", s.handleMine)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, `{"error":"history_disabled"}`, http.StatusServiceUnavailable)
		return
	}
	q := r.URL.Query()
	f := history.Filter{Mode: q.Get("mode"), Date: q.Get("date")}
	if v := q.Get("pairs"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, `{"error":"bad_pairs"}`, http.StatusBadRequest)
			return
		}
		f.Pairs = n
	}
	limit := 20
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			http.Error(w, `{"error":"bad_limit"}`, http.StatusBadRequest)
			return
		}
		limit = min(n, maxLeaderboard)
	}

	rows, err := s.history.Leaderboard(r.Context(), f, limit)
	if err != nil {
		log.Error().Err(err).Msg("leaderboard")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(rows)
}

func (s *Server) handleMine(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, `{"error":"history_disabled"}`, http.StatusServiceUnavailable)
		return
	}
	id := anonID(r)
	if id == "" {
		_ = json.NewEncoder(w).Encode([]history.Result{})
		return
	}
	rows, err := s.history.ForPlayer(r.Context(), id, 50)
	if err != nil {
		log.Error().Err(err).Msg("games mine")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(rows)
}
