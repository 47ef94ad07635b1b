// apps/go-server/internal/httpserver/server.go
//
// HTTP server wiring for the WordleCup backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, access log).
//   - Diagnostics: "/", "/health", "/debug/words", "/debug/rooms".
//   - Room endpoints: mounted under /room (routes_room.go).
//   - Push channel: GET /room/{code}/ws (ws.go).
//   - Archive endpoints: /history, /leaderboard (routes_history.go).
//
// Notes:
//   - CORS is origin-aware and credentials-enabled.
//   - Handlers never hold a room lock themselves; every call goes through the
//     room's own operations.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/robalobadob/wordlecup/apps/go-server/internal/history"
	"github.com/robalobadob/wordlecup/apps/go-server/internal/notify"
	"github.com/robalobadob/wordlecup/apps/go-server/internal/store"
)

// Archive is the read side of the game history.
type Archive interface {
	Recent(ctx context.Context, limit int) ([]history.Game, error)
	Leaderboard(ctx context.Context, limit int) ([]history.LeaderRow, error)
}

// WordStats reports word list sizes for diagnostics.
type WordStats interface {
	Stats() (answers int, allowed int)
}

// Options are the collaborators a Server needs. Hub, Archive and Words may be nil.
type Options struct {
	Rooms        *store.Registry
	Hub          *notify.Hub
	Archive      Archive
	Words        WordStats
	ClientOrigin string
	GuessRate    rate.Limit
	GuessBurst   int
}

// Server bundles the router and its collaborators.
type Server struct {
	r       *chi.Mux
	rooms   *store.Registry
	hub     *notify.Hub
	archive Archive
	words   WordStats
	guesses *guessLimiter
}

// New constructs a Server, installs middleware, and registers routes.
func New(opts Options) *Server {
	s := &Server{
		r:       chi.NewRouter(),
		rooms:   opts.Rooms,
		hub:     opts.Hub,
		archive: opts.Archive,
		words:   opts.Words,
		guesses: newGuessLimiter(opts.GuessRate, opts.GuessBurst),
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(accessLog)
	s.r.Use(chimw.Recoverer)
	s.r.Use(cors(opts.ClientOrigin))

	// The websocket route must not sit behind the handler timeout.
	if s.hub != nil {
		s.r.Get("/room/{code}/ws", s.handleWS)
	}

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(jsonContentType)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"service": "wordlecup-go",
				"endpoints": []string{
					"/health", "POST /room", "/room/{code}", "/room/{code}/ws",
					"/history", "/leaderboard",
				},
			})
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		})
		r.Get("/debug/words", s.handleDebugWords)
		r.Get("/debug/rooms", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]int{"rooms": s.rooms.Len()})
		})

		s.mountRooms(r)
		s.mountHistory(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: r.URL.Path})
	})

	return s
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	hs := &http.Server{
		Addr:              addr,
		Handler:           s.r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- hs.ListenAndServe() }()
	log.Info().Str("addr", addr).Msg("http server listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleDebugWords(w http.ResponseWriter, r *http.Request) {
	if s.words == nil {
		writeJSON(w, http.StatusOK, map[string]int{"answers": 0, "allowed": 0})
		return
	}
	a, g := s.words.Stats()
	writeJSON(w, http.StatusOK, map[string]int{"answers": a, "allowed": g})
}

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// accessLog writes one structured line per request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		ev := log.Debug()
		if ww.Status() >= http.StatusInternalServerError {
			ev = log.Warn()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("took", time.Since(start)).
			Str("reqId", chimw.GetReqID(r.Context())).
			Msg("request")
	})
}

// ------------------------------ responses ----------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	if err := dec.Decode(v); err != nil {
		return errBadJSON
	}
	return nil
}
