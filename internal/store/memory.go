// apps/go-server/internal/store/memory.go
//
// In-memory room registry.
// Rooms live for the process lifetime only; nothing here is persisted.
//
// Characteristics:
//   - Rooms keyed by upper-case code; lookups are case-insensitive.
//   - Concurrency-safe via RWMutex (concurrent lookups, exclusive create/remove).
//     The registry lock is never held while a room's own lock is taken for a
//     mutation, so rooms never contend with each other.
//   - Idle rooms are swept periodically and torn down (timers disarmed).
package store

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordlecup/apps/go-server/internal/room"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6
	maxCodeTries = 32
)

// ErrCodeSpace is returned when no free code could be found.
var ErrCodeSpace = errors.New("no free room code")

// Factory builds a room for a freshly allocated code.
type Factory func(code string, cfg room.Config) (*room.Room, error)

// Registry creates and looks up rooms by code.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room.Room

	factory  Factory
	idleTTL  time.Duration
	now      func() time.Time
	onRemove func(code string)
}

// NewRegistry returns an empty registry. Rooms idle for longer than idleTTL
// are evicted by Sweep; zero disables eviction.
func NewRegistry(factory Factory, idleTTL time.Duration) *Registry {
	return &Registry{
		rooms:   make(map[string]*room.Room),
		factory: factory,
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

// Create validates cfg, allocates a unique code and stores the new room.
func (g *Registry) Create(cfg room.Config) (*room.Room, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for i := 0; i < maxCodeTries; i++ {
		code, err := randomCode()
		if err != nil {
			return nil, err
		}
		if _, taken := g.rooms[code]; taken {
			continue
		}
		r, err := g.factory(code, cfg)
		if err != nil {
			return nil, err
		}
		g.rooms[code] = r
		return r, nil
	}
	return nil, ErrCodeSpace
}

// Get looks a room up by code, ignoring case and surrounding space.
func (g *Registry) Get(code string) (*room.Room, error) {
	key := normalizeCode(code)
	g.mu.RLock()
	r, ok := g.rooms[key]
	g.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: room %q", room.ErrNotFound, key)
	}
	return r, nil
}

// OnRemove registers fn to run after a room leaves the registry.
// It must be set before the registry is shared.
func (g *Registry) OnRemove(fn func(code string)) { g.onRemove = fn }

// Remove forgets a room and tears it down. Unknown codes are ignored.
func (g *Registry) Remove(code string) {
	key := normalizeCode(code)
	g.mu.Lock()
	r, ok := g.rooms[key]
	delete(g.rooms, key)
	g.mu.Unlock()
	if !ok {
		return
	}
	r.Close()
	if g.onRemove != nil {
		g.onRemove(key)
	}
	log.Info().Str("room", key).Msg("room removed")
}

// Len reports the number of live rooms.
func (g *Registry) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.rooms)
}

// Sweep evicts rooms idle since before now-idleTTL and returns how many went.
func (g *Registry) Sweep() int {
	if g.idleTTL <= 0 {
		return 0
	}
	cutoff := g.now().Add(-g.idleTTL)

	g.mu.RLock()
	var stale []string
	for code, r := range g.rooms {
		if r.IdleSince().Before(cutoff) {
			stale = append(stale, code)
		}
	}
	g.mu.RUnlock()

	for _, code := range stale {
		g.Remove(code)
	}
	if len(stale) > 0 {
		log.Info().Int("evicted", len(stale)).Int("remaining", g.Len()).Msg("idle rooms swept")
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done.
func (g *Registry) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 || g.idleTTL <= 0 {
		<-ctx.Done()
		return nil
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			g.Sweep()
		}
	}
}

// Close tears down every room.
func (g *Registry) Close() {
	g.mu.Lock()
	rooms := g.rooms
	g.rooms = make(map[string]*room.Room)
	g.mu.Unlock()
	for _, r := range rooms {
		r.Close()
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("room code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
