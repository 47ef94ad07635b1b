// apps/go-server/internal/notify/hub.go
//
// In-process fan-out of room events to push-channel subscribers.
// Delivery is best effort: each subscriber owns a small buffer and an event
// that does not fit is dropped for that subscriber only. Clients recover by
// re-fetching state, so a missed event is never fatal.
package notify

import (
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordlecup/apps/go-server/internal/room"
)

// Message is the payload written to subscribers and external channels.
type Message struct {
	Event    room.Event `json:"event"`
	RoomCode string     `json:"roomCode"`
}

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 16

// Subscription receives messages for one room until cancelled.
type Subscription struct {
	C <-chan Message

	ch      chan Message
	hub     *Hub
	code    string
	dropped atomic.Int64
	once    sync.Once
}

// Dropped reports how many messages did not fit this subscriber's buffer.
func (s *Subscription) Dropped() int64 { return s.dropped.Load() }

// Close unsubscribes and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Hub tracks subscribers per room code.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
}

// NewHub returns an empty hub. buffer <= 0 selects DefaultBuffer.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{subs: make(map[string]map[*Subscription]struct{}), buffer: buffer}
}

// Subscribe registers a new subscriber for code.
func (h *Hub) Subscribe(code string) *Subscription {
	code = strings.ToUpper(code)
	ch := make(chan Message, h.buffer)
	s := &Subscription{C: ch, ch: ch, hub: h, code: code}

	h.mu.Lock()
	set, ok := h.subs[code]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[code] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Subscribers reports the subscriber count for code.
func (h *Hub) Subscribers(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[strings.ToUpper(code)])
}

// Notify implements room.Notifier. It never blocks.
func (h *Hub) Notify(code string, ev room.Event) {
	msg := Message{Event: ev, RoomCode: code}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[strings.ToUpper(code)] {
		select {
		case s.ch <- msg:
		default:
			s.dropped.Add(1)
			log.Warn().Str("room", code).Str("event", string(ev)).Msg("subscriber buffer full, event dropped")
		}
	}
}

// CloseRoom ends every subscription for code, e.g. when the room is removed.
func (h *Hub) CloseRoom(code string) {
	code = strings.ToUpper(code)
	h.mu.Lock()
	set := h.subs[code]
	delete(h.subs, code)
	h.mu.Unlock()

	for s := range set {
		s.once.Do(func() { close(s.ch) })
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[s.code]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.subs, s.code)
		}
	}
	close(s.ch)
}
