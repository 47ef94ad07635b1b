// apps/go-server/internal/httpserver/ws.go
//
// Push channel: GET /room/{code}/ws.
// The server only writes; each message is {"event": ..., "roomCode": ...}
// with no state attached, and clients re-fetch over REST. Incoming frames are
// read and discarded so close frames and pongs are processed.
package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordlecup/apps/go-server/internal/notify"
)

const (
	wsPingInterval = 30 * time.Second
	wsWriteTimeout = 5 * time.Second
)

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.roomFor(w, r)
	if !ok {
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Warn().Err(err).Str("room", rm.Code()).Msg("websocket accept")
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	sub := s.hub.Subscribe(rm.Code())
	defer sub.Close()
	log.Debug().Str("room", rm.Code()).Str("remote", r.RemoteAddr).Msg("push subscriber connected")

	// CloseRead discards incoming frames and cancels ctx when the peer goes away.
	ctx := c.CloseRead(r.Context())
	if err := writePump(ctx, c, sub); err != nil {
		log.Debug().Err(err).Str("room", rm.Code()).Msg("push subscriber gone")
		return
	}
	c.Close(websocket.StatusNormalClosure, "room closed")
}

// writePump forwards hub messages and pings periodically. It returns nil when
// the subscription ends (room removed) and an error when the peer is gone.
func writePump(ctx context.Context, c *websocket.Conn, sub *notify.Subscription) error {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-sub.C:
			if !ok {
				return nil
			}
			data, err := json.Marshal(msg)
			if err != nil {
				log.Warn().Err(err).Msg("encode push message")
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return err
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				return err
			}
		}
	}
}
