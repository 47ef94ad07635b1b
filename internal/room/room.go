// apps/go-server/internal/room/room.go
//
// Room state machine for a timed multi-round competition.
// Responsibilities:
//   - Participant join/leave/reconnect and host policies.
//   - Lifecycle WAITING → IN_PROGRESS (rounds 1..N) → FINISHED, plus restart.
//   - Guess submission, per-round finishing and scoring.
//   - Round deadlines (timer.go) converging with natural completion on endRoundLocked.
//
// Concurrency:
//   - Every operation runs under the room's own mutex; rooms never share a lock.
//   - Events are queued while the lock is held and dispatched after it is
//     released, so a slow subscriber never delays a mutation.
package room

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordlecup/apps/go-server/internal/game"
)

// Room is one isolated competition identified by a short code.
type Room struct {
	mu sync.Mutex

	code   string
	hostID string
	cfg    Config
	policy Policy
	deps   Deps
	log    zerolog.Logger

	status         Status
	gameID         uuid.UUID
	currentRound   int
	answers        []string
	roundStartTime time.Time
	roundOver      bool

	participants map[string]*participant
	order        []string // join order

	deadline *deadline
	epoch    uint64

	dissolved    bool
	lastActivity time.Time

	// Queued under the lock, drained by mutate after unlock.
	pending     []Event
	finished    *Result
	dissolveNow bool
}

// New allocates a WAITING room with secret words chosen and the host
// registered as first participant.
func New(code string, cfg Config, policy Policy, deps Deps) (*Room, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Words == nil {
		return nil, fmt.Errorf("%w: no word source", ErrConfig)
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Notifier == nil {
		deps.Notifier = NotifierFunc(func(string, Event) {})
	}
	if policy.HostLeave == "" {
		policy.HostLeave = HostLeavePromote
	}

	cfg.HostID = strings.TrimSpace(cfg.HostID)
	r := &Room{
		code:         code,
		hostID:       cfg.HostID,
		cfg:          cfg,
		policy:       policy,
		deps:         deps,
		log:          log.With().Str("room", code).Logger(),
		status:       StatusWaiting,
		participants: make(map[string]*participant),
	}
	if err := r.pickAnswersLocked(); err != nil {
		return nil, err
	}

	now := r.now()
	r.lastActivity = now
	r.addParticipantLocked(cfg.HostID, cfg.HostDisplayName, now)
	r.log.Info().Str("host", cfg.HostID).Int("rounds", cfg.TotalRounds).Msg("room created")
	return r, nil
}

// Code returns the room code.
func (r *Room) Code() string { return r.code }

// HostID returns the current host.
func (r *Room) HostID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hostID
}

// IdleSince reports when the room last changed.
func (r *Room) IdleSince() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastActivity
}

func (r *Room) now() time.Time { return r.deps.Clock() }

// mutate runs fn with exclusive access to the room, then dispatches whatever
// fn queued once the lock is released.
func (r *Room) mutate(fn func(now time.Time) error) error {
	r.mu.Lock()
	if r.dissolved {
		r.mu.Unlock()
		return fmt.Errorf("%w: room %s", ErrNotFound, r.code)
	}
	now := r.now()
	err := fn(now)
	r.lastActivity = now

	events, finished, dissolve := r.pending, r.finished, r.dissolveNow
	r.pending, r.finished, r.dissolveNow = nil, nil, false
	r.mu.Unlock()

	for _, ev := range events {
		r.deps.Notifier.Notify(r.code, ev)
	}
	if finished != nil && r.deps.OnFinish != nil {
		r.deps.OnFinish(*finished)
	}
	if dissolve && r.deps.OnDissolve != nil {
		r.deps.OnDissolve(r.code)
	}
	return err
}

func (r *Room) emit(ev Event) { r.pending = append(r.pending, ev) }

// Join adds a participant, renames an existing one, or reconnects one after start.
func (r *Room) Join(participantID, displayName string) (ParticipantView, error) {
	participantID = strings.TrimSpace(participantID)
	displayName = strings.TrimSpace(displayName)

	var view ParticipantView
	err := r.mutate(func(now time.Time) error {
		if participantID == "" {
			return fmt.Errorf("%w: participantId is required", ErrConfig)
		}
		if p, ok := r.participants[participantID]; ok {
			switch {
			case r.status == StatusWaiting:
				if displayName != "" && displayName != p.displayName {
					p.displayName = displayName
					r.emit(EventUpdate)
				}
			case p.disconnected:
				p.disconnected = false
				r.log.Info().Str("participant", participantID).Msg("participant reconnected")
				r.emit(EventUpdate)
			}
			view = r.participantViewLocked(p)
			return nil
		}

		if r.status != StatusWaiting {
			return fmt.Errorf("%w: room is not open for joining", ErrInvalidState)
		}
		if r.studentCountLocked() >= r.cfg.MaxStudents {
			return fmt.Errorf("%w: %d of %d seats taken", ErrRoomFull, r.studentCountLocked(), r.cfg.MaxStudents)
		}
		p := r.addParticipantLocked(participantID, displayName, now)
		r.log.Info().Str("participant", participantID).Str("name", p.displayName).Msg("participant joined")
		r.emit(EventUpdate)
		view = r.participantViewLocked(p)
		return nil
	})
	return view, err
}

// Leave removes a participant from a WAITING room, or marks them disconnected
// once the game has started so their round states still count.
func (r *Room) Leave(participantID string) error {
	return r.mutate(func(now time.Time) error {
		p, ok := r.participants[participantID]
		if !ok {
			return fmt.Errorf("%w: participant %s", ErrNotFound, participantID)
		}

		if r.status != StatusWaiting {
			if p.disconnected {
				return nil
			}
			p.disconnected = true
			r.log.Info().Str("participant", participantID).Msg("participant disconnected")
			r.emit(EventUpdate)
			if r.status == StatusInProgress {
				r.checkRoundCompleteLocked()
			}
			return nil
		}

		delete(r.participants, participantID)
		r.order = slices.DeleteFunc(r.order, func(id string) bool { return id == participantID })
		r.log.Info().Str("participant", participantID).Msg("participant left")

		if participantID == r.hostID {
			if r.policy.HostLeave == HostLeaveDissolve || len(r.order) == 0 {
				r.dissolveLocked()
				r.log.Info().Msg("host left, room dissolved")
			} else {
				r.hostID = r.order[0]
				r.log.Info().Str("host", r.hostID).Msg("host left, participant promoted")
			}
		}
		r.emit(EventUpdate)
		return nil
	})
}

// Start moves a WAITING room into round 1.
func (r *Room) Start(requesterID string) (Snapshot, error) {
	var snap Snapshot
	err := r.mutate(func(now time.Time) error {
		if requesterID != r.hostID {
			return fmt.Errorf("%w: only the host can start", ErrNotAuthorized)
		}
		if r.status != StatusWaiting {
			return fmt.Errorf("%w: room is %s", ErrInvalidState, r.status)
		}
		if n := r.studentCountLocked(); n < r.policy.MinPlayers {
			return fmt.Errorf("%w: need %d, have %d", ErrNotEnoughPlayers, r.policy.MinPlayers, n)
		}
		if len(r.playersLocked()) == 0 {
			return fmt.Errorf("%w: nobody would play", ErrNotEnoughPlayers)
		}

		r.status = StatusInProgress
		r.gameID = uuid.New()
		r.log.Info().Str("game", r.gameID.String()).Int("participants", len(r.order)).Msg("game started")
		r.beginRoundLocked(1, now)
		snap = r.snapshotLocked(now)
		return nil
	})
	return snap, err
}

// SubmitGuess evaluates word for the participant's current round.
// A participant whose round is already finished gets their last result back
// unchanged so retries are harmless.
func (r *Room) SubmitGuess(participantID, word string) (GuessResult, error) {
	var res GuessResult
	err := r.mutate(func(now time.Time) error {
		if r.status != StatusInProgress {
			return fmt.Errorf("%w: room is %s", ErrInvalidState, r.status)
		}
		p, ok := r.participants[participantID]
		if !ok {
			return fmt.Errorf("%w: participant %s", ErrNotFound, participantID)
		}
		if !r.playsLocked(p) {
			return fmt.Errorf("%w: the host does not play in this room", ErrInvalidState)
		}
		if now.Before(r.roundStartTime) {
			return fmt.Errorf("%w: round %d has not started yet", ErrInvalidState, r.currentRound)
		}

		st := p.rounds[r.currentRound]
		if st != nil && st.finished {
			res = r.guessResultLocked(st, nil)
			res.Duplicate = true
			return nil
		}
		if r.roundOver {
			return fmt.Errorf("%w: round %d is over", ErrInvalidState, r.currentRound)
		}

		answer := r.answers[r.currentRound-1]
		letters, err := game.Evaluate(answer, word, r.deps.Dict)
		if err != nil {
			return err
		}
		if st == nil {
			st = r.newRoundStateLocked(p)
		}
		st.guesses = append(st.guesses, guess{word: game.Normalize(word), letters: letters, at: now})
		if st.firstGuessAt.IsZero() {
			st.firstGuessAt = now
		}

		switch {
		case game.AllCorrect(letters):
			r.finishLocked(p, st, true, now)
		case len(st.guesses) >= r.cfg.MaxAttemptsPerRound:
			r.finishLocked(p, st, false, now)
		}
		r.emit(EventUpdate)
		r.checkRoundCompleteLocked()

		res = r.guessResultLocked(st, letters)
		return nil
	})
	return res, err
}

// AdvanceRound moves past a fully finished round: to the next round, or to
// FINISHED after the last one. Calling it while a round is active is an error.
func (r *Room) AdvanceRound(requesterID string) (Snapshot, error) {
	var snap Snapshot
	err := r.mutate(func(now time.Time) error {
		if requesterID != r.hostID {
			return fmt.Errorf("%w: only the host can advance rounds", ErrNotAuthorized)
		}
		if r.status != StatusInProgress {
			return fmt.Errorf("%w: room is %s", ErrInvalidState, r.status)
		}
		if !r.roundOver {
			return fmt.Errorf("%w: round %d is still active", ErrInvalidState, r.currentRound)
		}
		r.advanceLocked(now)
		snap = r.snapshotLocked(now)
		return nil
	})
	return snap, err
}

// ForceTimeout ends roundNumber, finishing every unfinished participant as a
// loss. It is a no-op when that round is not the active one or already ended.
func (r *Room) ForceTimeout(roundNumber int) error {
	return r.mutate(func(now time.Time) error {
		r.forceTimeoutLocked(roundNumber)
		return nil
	})
}

func (r *Room) forceTimeoutLocked(roundNumber int) {
	if r.status != StatusInProgress || roundNumber != r.currentRound || r.roundOver {
		r.log.Debug().Int("round", roundNumber).Msg("stale round timeout ignored")
		return
	}
	r.log.Info().Int("round", roundNumber).Msg("round timed out")
	r.endRoundLocked(true)
}

// Restart returns a FINISHED room to WAITING with the same code and roster,
// fresh secret words and no round history.
func (r *Room) Restart(requesterID string) error {
	return r.mutate(func(now time.Time) error {
		if requesterID != r.hostID {
			return fmt.Errorf("%w: only the host can restart", ErrNotAuthorized)
		}
		if r.status != StatusFinished {
			return fmt.Errorf("%w: room is %s", ErrInvalidState, r.status)
		}
		if err := r.pickAnswersLocked(); err != nil {
			return err
		}
		r.disarmLocked()

		kept := r.order[:0]
		for _, id := range r.order {
			p := r.participants[id]
			if p.disconnected && id != r.hostID {
				delete(r.participants, id)
				continue
			}
			p.disconnected = false
			p.totalScore = 0
			p.rounds = make(map[int]*roundState)
			kept = append(kept, id)
		}
		r.order = kept

		r.status = StatusWaiting
		r.gameID = uuid.Nil
		r.currentRound = 0
		r.roundStartTime = time.Time{}
		r.roundOver = false
		r.log.Info().Int("participants", len(r.order)).Msg("room restarted")
		r.emit(EventUpdate)
		return nil
	})
}

// Close tears the room down: the deadline is disarmed and later operations
// report ErrNotFound.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disarmLocked()
	r.dissolved = true
}

// ----------------------------- internals ------------------------------------

func (r *Room) pickAnswersLocked() error {
	answers := r.deps.Words.RandomAnswers(r.cfg.TotalRounds)
	if len(answers) != r.cfg.TotalRounds {
		return fmt.Errorf("%w: word source returned %d of %d words", ErrConfig, len(answers), r.cfg.TotalRounds)
	}
	for i := range answers {
		answers[i] = game.Normalize(answers[i])
	}
	r.answers = answers
	return nil
}

func (r *Room) addParticipantLocked(id, name string, now time.Time) *participant {
	if name == "" {
		name = id
	}
	p := &participant{
		id:          id,
		displayName: name,
		joinedAt:    now,
		rounds:      make(map[int]*roundState),
	}
	r.participants[id] = p
	r.order = append(r.order, id)
	return p
}

// studentCountLocked counts non-host participants.
func (r *Room) studentCountLocked() int {
	n := len(r.order)
	if _, ok := r.participants[r.hostID]; ok {
		n--
	}
	return n
}

func (r *Room) playsLocked(p *participant) bool {
	return r.policy.HostPlays || p.id != r.hostID
}

// playersLocked lists participants who receive round states, in join order.
func (r *Room) playersLocked() []*participant {
	out := make([]*participant, 0, len(r.order))
	for _, id := range r.order {
		if p := r.participants[id]; r.playsLocked(p) {
			out = append(out, p)
		}
	}
	return out
}

func (r *Room) newRoundStateLocked(p *participant) *roundState {
	st := &roundState{round: r.currentRound, startTime: r.roundStartTime}
	p.rounds[r.currentRound] = st
	return st
}

func (r *Room) beginRoundLocked(n int, now time.Time) {
	r.currentRound = n
	r.roundOver = false
	r.roundStartTime = now.Add(r.policy.Countdown)
	for _, p := range r.playersLocked() {
		r.newRoundStateLocked(p)
	}
	r.armLocked(phaseRound, n, r.policy.Countdown+r.cfg.roundLimit())
	r.log.Info().Int("round", n).Time("startsAt", r.roundStartTime).Msg("round started")
	r.emit(EventRoundStarted)
}

func (r *Room) finishLocked(p *participant, st *roundState, win bool, now time.Time) {
	st.finished = true
	st.win = win
	st.finishTime = now
	st.timeTaken = now.Sub(st.startTime)
	if st.timeTaken < 0 {
		st.timeTaken = 0
	}
	st.score = game.Score(len(st.guesses), r.cfg.MaxAttemptsPerRound,
		st.timeTaken.Milliseconds(), r.cfg.roundLimit().Milliseconds(), win)
	p.totalScore += st.score
	r.log.Debug().Str("participant", p.id).Int("round", st.round).Bool("win", win).
		Int("guesses", len(st.guesses)).Int("score", st.score).Msg("participant finished round")
}

// checkRoundCompleteLocked ends the round once every connected player is done.
func (r *Room) checkRoundCompleteLocked() {
	if r.roundOver {
		return
	}
	for _, p := range r.playersLocked() {
		if p.disconnected {
			continue
		}
		if st := p.rounds[r.currentRound]; st == nil || !st.finished {
			return
		}
	}
	r.endRoundLocked(false)
}

// endRoundLocked is the single transition both the last guess and the deadline
// converge on. It runs at most once per round.
func (r *Room) endRoundLocked(timedOut bool) {
	if r.roundOver {
		return
	}
	r.roundOver = true
	r.disarmLocked()

	now := r.now()
	for _, p := range r.playersLocked() {
		st := p.rounds[r.currentRound]
		if st == nil {
			st = r.newRoundStateLocked(p)
		}
		if !st.finished {
			st.timedOut = timedOut
			r.finishLocked(p, st, false, now)
		}
	}
	r.log.Info().Int("round", r.currentRound).Bool("timedOut", timedOut).Msg("round ended")
	r.emit(EventRoundEnded)

	if r.policy.AutoAdvance > 0 {
		r.armLocked(phaseStats, r.currentRound, r.policy.AutoAdvance)
	}
}

func (r *Room) advanceLocked(now time.Time) {
	r.disarmLocked()
	if r.currentRound >= r.cfg.TotalRounds {
		r.status = StatusFinished
		res := r.resultLocked(now)
		r.finished = &res
		r.log.Info().Str("game", r.gameID.String()).Msg("game finished")
		r.emit(EventGameEnd)
		return
	}
	r.beginRoundLocked(r.currentRound+1, now)
}

func (r *Room) autoAdvanceLocked(roundNumber int, now time.Time) {
	if r.status != StatusInProgress || !r.roundOver || r.currentRound != roundNumber {
		return
	}
	r.log.Info().Int("round", roundNumber).Msg("stats window elapsed, advancing")
	r.advanceLocked(now)
}

func (r *Room) dissolveLocked() {
	r.disarmLocked()
	r.dissolved = true
	r.dissolveNow = true
}
