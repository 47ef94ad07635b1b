// apps/go-server/internal/config/config.go
//
// Process configuration read from the environment (and .env when present).
// Every key has a default so the server starts with no configuration at all.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordlecup/apps/go-server/internal/room"
)

// Config is the resolved server configuration.
type Config struct {
	Port         string
	LogLevel     string
	LogFormat    string
	ClientOrigin string

	// DBPath is the SQLite archive location; empty keeps it in memory.
	DBPath string

	RedisAddr          string
	RedisDB            int
	RedisChannelPrefix string

	Policy room.Policy

	RoomIdleTTL   time.Duration
	SweepInterval time.Duration

	GuessRatePerSec float64
	GuessBurst      int
}

// Load reads .env (if any) and the environment.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("loaded .env")
	}
	return FromEnv()
}

// FromEnv resolves the configuration from the current environment only.
func FromEnv() Config {
	pol := room.DefaultPolicy()
	pol.MinPlayers = getEnvInt("MIN_PLAYERS", pol.MinPlayers)
	pol.HostPlays = getEnvBool("HOST_PLAYS", false)
	pol.HostLeave = room.ParseHostLeavePolicy(getEnv("HOST_LEAVE_POLICY", string(room.HostLeavePromote)))
	pol.Countdown = getEnvSeconds("ROUND_COUNTDOWN_SEC", pol.Countdown)
	pol.AutoAdvance = getEnvSeconds("AUTO_ADVANCE_SEC", 0)
	if pol.MinPlayers < 0 {
		pol.MinPlayers = 0
	}

	return Config{
		Port:               getEnv("PORT", "5175"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		ClientOrigin:       getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		DBPath:             os.Getenv("DB_PATH"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		RedisChannelPrefix: getEnv("REDIS_CHANNEL_PREFIX", "wordlecup:room"),
		Policy:             pol,
		RoomIdleTTL:        time.Duration(getEnvInt("ROOM_IDLE_TTL_MIN", 120)) * time.Minute,
		SweepInterval:      getEnvSeconds("SWEEP_INTERVAL_SEC", time.Minute),
		GuessRatePerSec:    getEnvFloat("GUESS_RATE_PER_SEC", 2),
		GuessBurst:         getEnvInt("GUESS_BURST", 6),
	}
}

func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func getEnvInt(k string, def int) int {
	v := getEnv(k, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		return def
	}
	return n
}

func getEnvFloat(k string, def float64) float64 {
	v := getEnv(k, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("not a number, using default")
		return def
	}
	return f
}

func getEnvBool(k string, def bool) bool {
	v := getEnv(k, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("not a boolean, using default")
		return def
	}
	return b
}

// getEnvSeconds reads a whole number of seconds.
func getEnvSeconds(k string, def time.Duration) time.Duration {
	n := getEnvInt(k, -1)
	if n < 0 {
		return def
	}
	return time.Duration(n) * time.Second
}
