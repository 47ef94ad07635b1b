// apps/go-server/internal/httpserver/routes_history.go
//
// Read-only routes over the finished-game archive:
//   - GET /history?limit=N     → most recent finished games with standings
//   - GET /leaderboard?limit=N → best totals per display name
//
// Without an archive both endpoints answer with an empty list.
package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/wordlecup/apps/go-server/internal/history"
)

func (s *Server) mountHistory(r chi.Router) {
	r.Get("/history", s.handleHistory)
	r.Get("/leaderboard", s.handleLeaderboard)
}

func limitParam(r *http.Request) int {
	n, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	return n
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeJSON(w, http.StatusOK, []history.Game{})
		return
	}
	games, err := s.archive.Recent(r.Context(), limitParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, games)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeJSON(w, http.StatusOK, []history.LeaderRow{})
		return
	}
	rows, err := s.archive.Leaderboard(r.Context(), limitParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
