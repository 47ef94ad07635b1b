// apps/go-server/internal/notify/redis.go
//
// Optional external fan-out: every room event is published to a Redis
// channel "<prefix>:<CODE>" so other processes can follow rooms.
// Publishing happens off the caller's goroutine with a short timeout.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordlecup/apps/go-server/internal/room"
)

const publishTimeout = 2 * time.Second

// RedisPublisher implements room.Notifier on Redis pub/sub.
type RedisPublisher struct {
	rdb    redis.UniversalClient
	prefix string
	wg     sync.WaitGroup
}

// DialRedis connects to addr/db and verifies the connection with a ping.
func DialRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// NewRedisPublisher publishes on channels named prefix:CODE.
func NewRedisPublisher(rdb redis.UniversalClient, prefix string) *RedisPublisher {
	if prefix == "" {
		prefix = "wordlecup:room"
	}
	return &RedisPublisher{rdb: rdb, prefix: prefix}
}

// Channel returns the pub/sub channel for a room.
func (p *RedisPublisher) Channel(code string) string {
	return p.prefix + ":" + code
}

// Notify implements room.Notifier.
func (p *RedisPublisher) Notify(code string, ev room.Event) {
	data, err := json.Marshal(Message{Event: ev, RoomCode: code})
	if err != nil {
		log.Warn().Err(err).Msg("encode redis event")
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.rdb.Publish(ctx, p.Channel(code), data).Err(); err != nil {
			log.Warn().Err(err).Str("room", code).Str("event", string(ev)).Msg("redis publish failed")
		}
	}()
}

// Close waits for in-flight publishes.
func (p *RedisPublisher) Close() {
	p.wg.Wait()
}
