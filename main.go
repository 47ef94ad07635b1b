package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/robalobadob/wordlecup/apps/go-server/internal/config"
	"github.com/robalobadob/wordlecup/apps/go-server/internal/history"
	"github.com/robalobadob/wordlecup/apps/go-server/internal/httpserver"
	"github.com/robalobadob/wordlecup/apps/go-server/internal/notify"
	"github.com/robalobadob/wordlecup/apps/go-server/internal/room"
	"github.com/robalobadob/wordlecup/apps/go-server/internal/store"
	"github.com/robalobadob/wordlecup/apps/go-server/internal/words"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lx, err := words.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load word lists")
	}
	answers, allowed := lx.Stats()
	log.Info().Int("answers", answers).Int("allowed", allowed).Msg("word lists loaded")

	archive, err := history.Open(ctx, cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open history database")
	}
	defer archive.Close()

	hub := notify.NewHub(0)
	notifiers := notify.Multi{hub}
	if cfg.RedisAddr != "" {
		rdb, err := notify.DialRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, external fan-out disabled")
		} else {
			pub := notify.NewRedisPublisher(rdb, cfg.RedisChannelPrefix)
			defer rdb.Close()
			defer pub.Close()
			notifiers = append(notifiers, pub)
			log.Info().Str("addr", cfg.RedisAddr).Msg("redis fan-out enabled")
		}
	}

	var rooms *store.Registry
	rooms = store.NewRegistry(func(code string, rc room.Config) (*room.Room, error) {
		return room.New(code, rc, cfg.Policy, room.Deps{
			Words:    lx,
			Dict:     lx,
			Notifier: notifiers,
			OnFinish: func(res room.Result) {
				go archiveResult(archive, res)
			},
			OnDissolve: func(code string) { rooms.Remove(code) },
		})
	}, cfg.RoomIdleTTL)
	rooms.OnRemove(hub.CloseRoom)
	defer rooms.Close()

	srv := httpserver.New(httpserver.Options{
		Rooms:        rooms,
		Hub:          hub,
		Archive:      archive,
		Words:        lx,
		ClientOrigin: cfg.ClientOrigin,
		GuessRate:    rate.Limit(cfg.GuessRatePerSec),
		GuessBurst:   cfg.GuessBurst,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(gctx, ":"+cfg.Port) })
	g.Go(func() error { return rooms.Run(gctx, cfg.SweepInterval) })

	log.Info().Str("port", cfg.Port).Msg("starting go-server")
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server exited")
		return
	}
	log.Info().Msg("server stopped")
}

func setupLogger(cfg config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func archiveResult(archive *history.Store, res room.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := archive.Record(ctx, res); err != nil {
		log.Warn().Err(err).Str("room", res.Code).Msg("archive game")
	}
}
