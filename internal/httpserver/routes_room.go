// apps/go-server/internal/httpserver/routes_room.go
//
// HTTP routes for rooms:
//   - POST /room                            → create a room, returns its code
//   - POST /room/{code}/join                → join or reconnect
//   - POST /room/{code}/leave               → leave (soft after start)
//   - POST /room/{code}/start               → host starts round 1
//   - POST /room/{code}/guess               → submit a guess for the current round
//   - POST /room/{code}/advance-round       → host moves past a finished round
//   - POST /room/{code}/restart             → host resets a finished room
//   - GET  /room/{code}                     → room snapshot
//   - GET  /room/{code}/participants        → participant listing with round states
//   - GET  /room/{code}/participants/{id}   → one participant
//   - GET  /room/{code}/round-stats         → ranked stats for the current round
//
// Room codes are case-insensitive. Every handler resolves the room through the
// registry and then calls exactly one room operation.
package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/robalobadob/wordlecup/apps/go-server/internal/room"
)

func (s *Server) mountRooms(r chi.Router) {
	r.Post("/room", s.handleCreateRoom)
	r.Get("/room/{code}", s.handleSnapshot)
	r.Post("/room/{code}/join", s.handleJoin)
	r.Post("/room/{code}/leave", s.handleLeave)
	r.Post("/room/{code}/start", s.handleStart)
	r.Post("/room/{code}/guess", s.handleGuess)
	r.Post("/room/{code}/advance-round", s.handleAdvance)
	r.Post("/room/{code}/restart", s.handleRestart)
	r.Get("/room/{code}/participants", s.handleParticipants)
	r.Get("/room/{code}/participants/{id}", s.handleParticipant)
	r.Get("/room/{code}/round-stats", s.handleRoundStats)
}

// roomFor resolves {code} or writes a 404.
func (s *Server) roomFor(w http.ResponseWriter, r *http.Request) (*room.Room, bool) {
	rm, err := s.rooms.Get(chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return rm, true
}

type createRoomRes struct {
	RoomCode string `json:"roomCode"`
	HostID   string `json:"hostId"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var cfg room.Config
	if err := decodeJSON(w, r, &cfg); err != nil {
		writeError(w, r, err)
		return
	}
	rm, err := s.rooms.Create(cfg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createRoomRes{RoomCode: rm.Code(), HostID: rm.HostID()})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.roomFor(w, r)
	if !ok {
		return
	}
	snap, err := rm.Snapshot()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// participantReq carries the acting participant for join/leave/guess.
type participantReq struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	Word          string `json:"word"`
}

// requesterReq carries the acting participant for host-only actions.
type requesterReq struct {
	RequesterID string `json:"requesterId"`
}

type joinRes struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	IsHost        bool   `json:"isHost"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.roomFor(w, r)
	if !ok {
		return
	}
	var req participantReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := rm.Join(req.ParticipantID, req.DisplayName)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, joinRes{ParticipantID: p.ParticipantID, DisplayName: p.DisplayName, IsHost: p.IsHost})
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.roomFor(w, r)
	if !ok {
		return
	}
	var req participantReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := rm.Leave(req.ParticipantID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.roomFor(w, r)
	if !ok {
		return
	}
	var req requesterReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := rm.Start(req.RequesterID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.roomFor(w, r)
	if !ok {
		return
	}
	var req participantReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if !s.guesses.Allow(rm.Code(), req.ParticipantID) {
		writeError(w, r, errRateLimited)
		return
	}
	res, err := rm.SubmitGuess(req.ParticipantID, req.Word)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.roomFor(w, r)
	if !ok {
		return
	}
	var req requesterReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	snap, err := rm.AdvanceRound(req.RequesterID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleRestart(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.roomFor(w, r)
	if !ok {
		return
	}
	var req requesterReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := rm.Restart(req.RequesterID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleParticipants(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.roomFor(w, r)
	if !ok {
		return
	}
	ps, err := rm.Participants()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (s *Server) handleParticipant(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.roomFor(w, r)
	if !ok {
		return
	}
	p, err := rm.Participant(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleRoundStats(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.roomFor(w, r)
	if !ok {
		return
	}
	rows, err := rm.RoundStats()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
