package room

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/wordlecup/apps/go-server/internal/game"
)

// Status is the coarse room lifecycle state.
type Status string

const (
	StatusWaiting    Status = "WAITING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusFinished   Status = "FINISHED"
)

// Phase refines Status for clients rendering the round cycle.
type Phase string

const (
	PhaseWaiting     Phase = "WAITING"
	PhaseCountdown   Phase = "COUNTDOWN"
	PhaseRoundActive Phase = "ROUND_ACTIVE"
	PhaseRoundStats  Phase = "ROUND_STATS"
	PhaseFinished    Phase = "FINISHED"
)

// Event tags pushed to subscribers. They carry no payload; subscribers re-fetch.
type Event string

const (
	EventUpdate       Event = "update"
	EventRoundStarted Event = "round_started"
	EventRoundEnded   Event = "round_ended"
	EventGameEnd      Event = "game_end"
)

// Notifier receives room events after the mutation that produced them has
// committed. Implementations must not block.
type Notifier interface {
	Notify(code string, ev Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(code string, ev Event)

func (f NotifierFunc) Notify(code string, ev Event) { f(code, ev) }

// WordSource picks secret words for a room. *words.Lexicon satisfies it.
type WordSource interface {
	RandomAnswers(n int) []string
}

// Config is the immutable per-room configuration supplied by the host.
type Config struct {
	HostID              string `json:"hostId"`
	HostDisplayName     string `json:"hostDisplayName"`
	MaxStudents         int    `json:"maxStudents"`
	TotalRounds         int    `json:"totalRounds"`
	RoundTimeLimitSec   int    `json:"roundTimeLimitSec"`
	MaxAttemptsPerRound int    `json:"maxAttemptsPerRound"`
}

// Validate reports the first problem with c, wrapped in ErrConfig.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.HostID) == "":
		return fmt.Errorf("%w: hostId is required", ErrConfig)
	case c.MaxStudents < 1:
		return fmt.Errorf("%w: maxStudents must be at least 1", ErrConfig)
	case c.TotalRounds < 1:
		return fmt.Errorf("%w: totalRounds must be at least 1", ErrConfig)
	case c.RoundTimeLimitSec <= 0:
		return fmt.Errorf("%w: roundTimeLimitSec must be positive", ErrConfig)
	case c.MaxAttemptsPerRound < 1:
		return fmt.Errorf("%w: maxAttemptsPerRound must be at least 1", ErrConfig)
	}
	return nil
}

func (c Config) roundLimit() time.Duration {
	return time.Duration(c.RoundTimeLimitSec) * time.Second
}

// HostLeavePolicy decides what happens when the host leaves a WAITING room.
type HostLeavePolicy string

const (
	HostLeavePromote  HostLeavePolicy = "promote"
	HostLeaveDissolve HostLeavePolicy = "dissolve"
)

// ParseHostLeavePolicy maps a config string to a policy, defaulting to promote.
func ParseHostLeavePolicy(s string) HostLeavePolicy {
	if HostLeavePolicy(strings.ToLower(strings.TrimSpace(s))) == HostLeaveDissolve {
		return HostLeaveDissolve
	}
	return HostLeavePromote
}

// Policy holds server-wide rules that are not part of a room's Config.
type Policy struct {
	// MinPlayers is the number of non-host participants required to start.
	MinPlayers int
	// HostPlays gives the host round states; otherwise the host only moderates.
	HostPlays bool
	HostLeave HostLeavePolicy
	// Countdown delays each round's start after it is announced.
	Countdown time.Duration
	// AutoAdvance, when positive, advances the room this long after a round ends.
	AutoAdvance time.Duration
}

// DefaultPolicy returns the rules used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		MinPlayers: 1,
		HostLeave:  HostLeavePromote,
		Countdown:  3 * time.Second,
	}
}

// Deps are the collaborators a room calls out to.
type Deps struct {
	Words    WordSource
	Dict     game.Dictionary
	Notifier Notifier
	Clock    func() time.Time
	// OnFinish receives the final standings once a room reaches FINISHED.
	OnFinish func(Result)
	// OnDissolve is called when the room invalidates itself.
	OnDissolve func(code string)
}

// Result is the archived outcome of one finished game.
type Result struct {
	GameID      uuid.UUID  `json:"gameId"`
	Code        string     `json:"roomCode"`
	HostID      string     `json:"hostId"`
	TotalRounds int        `json:"totalRounds"`
	FinishedAt  time.Time  `json:"finishedAt"`
	Standings   []Standing `json:"standings"`
}

// Standing is one participant's final placement.
type Standing struct {
	ParticipantID string `json:"participantId"`
	DisplayName   string `json:"displayName"`
	Position      int    `json:"position"`
	TotalScore    int    `json:"totalScore"`
	RoundsWon     int    `json:"roundsWon"`
}

type participant struct {
	id           string
	displayName  string
	joinedAt     time.Time
	disconnected bool
	totalScore   int
	rounds       map[int]*roundState
}

type roundState struct {
	round        int
	guesses      []guess
	finished     bool
	win          bool
	timedOut     bool
	startTime    time.Time
	firstGuessAt time.Time
	finishTime   time.Time
	timeTaken    time.Duration
	score        int
}

type guess struct {
	word    string
	letters []game.LetterResult
	at      time.Time
}
