package httpserver

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordlecup/apps/go-server/internal/game"
	"github.com/robalobadob/wordlecup/apps/go-server/internal/room"
)

var (
	errBadJSON     = errors.New("invalid JSON body")
	errRateLimited = errors.New("too many guesses, slow down")
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// errorStatus maps domain errors to an HTTP status and a stable error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, room.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, room.ErrRoomFull):
		return http.StatusConflict, "room_full"
	case errors.Is(err, room.ErrNotAuthorized):
		return http.StatusForbidden, "not_authorized"
	case errors.Is(err, room.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, room.ErrNotEnoughPlayers):
		return http.StatusConflict, "not_enough_players"
	case errors.Is(err, room.ErrConfig):
		return http.StatusBadRequest, "invalid_config"
	case errors.Is(err, game.ErrInvalidGuess):
		return http.StatusUnprocessableEntity, "invalid_guess"
	case errors.Is(err, errBadJSON):
		return http.StatusBadRequest, "bad_json"
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	}
	return http.StatusInternalServerError, "internal"
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		msg = "internal error"
	}
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}
