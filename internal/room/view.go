package room

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/robalobadob/wordlecup/apps/go-server/internal/game"
)

// Snapshot is a consistent read of the room taken under its lock.
type Snapshot struct {
	RoomCode            string     `json:"roomCode"`
	Status              Status     `json:"status"`
	Phase               Phase      `json:"phase"`
	CurrentRound        int        `json:"currentRound"`
	TotalRounds         int        `json:"totalRounds"`
	RoundStartTime      *time.Time `json:"roundStartTime,omitempty"`
	RoundTimeLimitSec   int        `json:"roundTimeLimitSec"`
	MaxAttemptsPerRound int        `json:"maxAttemptsPerRound"`
	MaxStudents         int        `json:"maxStudents"`
	HostID              string     `json:"hostId"`
	HostPlays           bool       `json:"hostPlays"`
	RemainingMillis     int64      `json:"remainingMillis"`
	RoundOver           bool       `json:"roundOver"`
	Answers             []string   `json:"answers"`
	ParticipantCount    int        `json:"participantCount"`
	GameID              string     `json:"gameId,omitempty"`
}

// GuessView is one evaluated guess.
type GuessView struct {
	Word          string              `json:"word"`
	LetterResults []game.LetterResult `json:"letterResults"`
}

// RoundStateView exposes a participant's round authoritatively so clients
// never re-derive win/finished themselves.
type RoundStateView struct {
	Round           int         `json:"round"`
	Guesses         []GuessView `json:"guesses"`
	AttemptsUsed    int         `json:"attemptsUsed"`
	Finished        bool        `json:"finished"`
	Win             bool        `json:"win"`
	TimedOut        bool        `json:"timedOut"`
	StartTime       time.Time   `json:"startTime"`
	FirstGuessAt    *time.Time  `json:"firstGuessAt,omitempty"`
	FinishTime      *time.Time  `json:"finishTime,omitempty"`
	TimeTakenMillis int64       `json:"timeTakenMillis"`
	RoundScore      int         `json:"roundScore"`
}

// ParticipantView summarises one participant.
type ParticipantView struct {
	ParticipantID string           `json:"participantId"`
	DisplayName   string           `json:"displayName"`
	IsHost        bool             `json:"isHost"`
	Disconnected  bool             `json:"disconnected"`
	TotalScore    int              `json:"totalScore"`
	RoundStates   []RoundStateView `json:"roundStates"`
}

// StatRow is one line of the round-stats table.
type StatRow struct {
	ParticipantID   string `json:"participantId"`
	DisplayName     string `json:"displayName"`
	GuessCount      int    `json:"guessCount"`
	TimeTakenMillis int64  `json:"timeTakenMillis"`
	RoundScore      int    `json:"roundScore"`
	TotalScore      int    `json:"totalScore"`
	Win             bool   `json:"win"`
	Finished        bool   `json:"finished"`
}

// GuessResult is returned from SubmitGuess.
type GuessResult struct {
	LetterResults []game.LetterResult `json:"letterResults"`
	Win           bool                `json:"win"`
	Finished      bool                `json:"finished"`
	RoundOver     bool                `json:"roundOver"`
	AttemptsUsed  int                 `json:"attemptsUsed"`
	AttemptsLeft  int                 `json:"attemptsLeft"`
	Answer        string              `json:"answer,omitempty"`
	Duplicate     bool                `json:"duplicate,omitempty"`
}

// Snapshot returns the public room state.
func (r *Room) Snapshot() (Snapshot, error) {
	var snap Snapshot
	err := r.read(func() { snap = r.snapshotLocked(r.now()) })
	return snap, err
}

// Participants lists every participant in join order, or by total score
// once the game has finished.
func (r *Room) Participants() ([]ParticipantView, error) {
	var out []ParticipantView
	err := r.read(func() {
		ps := r.orderedLocked()
		out = make([]ParticipantView, 0, len(ps))
		for _, p := range ps {
			out = append(out, r.participantViewLocked(p))
		}
	})
	return out, err
}

// Participant returns a single participant.
func (r *Room) Participant(id string) (ParticipantView, error) {
	var view ParticipantView
	err := r.read(func() {
		if p, ok := r.participants[id]; ok {
			view = r.participantViewLocked(p)
		}
	})
	if err == nil && view.ParticipantID == "" {
		err = fmt.Errorf("%w: participant %s", ErrNotFound, id)
	}
	return view, err
}

// RoundStats ranks playing participants for the current round by total
// score, then round score, then fewer guesses.
func (r *Room) RoundStats() ([]StatRow, error) {
	var rows []StatRow
	err := r.read(func() {
		for _, p := range r.playersLocked() {
			row := StatRow{
				ParticipantID: p.id,
				DisplayName:   p.displayName,
				TotalScore:    p.totalScore,
			}
			if st := p.rounds[r.currentRound]; st != nil {
				row.GuessCount = len(st.guesses)
				row.TimeTakenMillis = st.timeTaken.Milliseconds()
				row.RoundScore = st.score
				row.Win = st.win
				row.Finished = st.finished
			}
			rows = append(rows, row)
		}
		slices.SortStableFunc(rows, func(a, b StatRow) int {
			if c := cmp.Compare(b.TotalScore, a.TotalScore); c != 0 {
				return c
			}
			if c := cmp.Compare(b.RoundScore, a.RoundScore); c != 0 {
				return c
			}
			return cmp.Compare(a.GuessCount, b.GuessCount)
		})
	})
	if rows == nil && err == nil {
		rows = []StatRow{}
	}
	return rows, err
}

func (r *Room) read(fn func()) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dissolved {
		return fmt.Errorf("%w: room %s", ErrNotFound, r.code)
	}
	fn()
	return nil
}

func (r *Room) phaseLocked(now time.Time) Phase {
	switch {
	case r.status == StatusWaiting:
		return PhaseWaiting
	case r.status == StatusFinished:
		return PhaseFinished
	case r.roundOver:
		return PhaseRoundStats
	case now.Before(r.roundStartTime):
		return PhaseCountdown
	default:
		return PhaseRoundActive
	}
}

func (r *Room) snapshotLocked(now time.Time) Snapshot {
	s := Snapshot{
		RoomCode:            r.code,
		Status:              r.status,
		Phase:               r.phaseLocked(now),
		CurrentRound:        r.currentRound,
		TotalRounds:         r.cfg.TotalRounds,
		RoundTimeLimitSec:   r.cfg.RoundTimeLimitSec,
		MaxAttemptsPerRound: r.cfg.MaxAttemptsPerRound,
		MaxStudents:         r.cfg.MaxStudents,
		HostID:              r.hostID,
		HostPlays:           r.policy.HostPlays,
		RoundOver:           r.roundOver,
		Answers:             r.revealedLocked(),
		ParticipantCount:    len(r.order),
	}
	if !r.roundStartTime.IsZero() {
		t := r.roundStartTime
		s.RoundStartTime = &t
	}
	if r.gameID != uuid.Nil {
		s.GameID = r.gameID.String()
	}

	var until time.Time
	switch s.Phase {
	case PhaseCountdown:
		until = r.roundStartTime
	case PhaseRoundActive:
		until = r.roundStartTime.Add(r.cfg.roundLimit())
	case PhaseRoundStats:
		if r.deadline != nil && r.deadline.phase == phaseStats {
			until = r.deadline.at
		}
	}
	if !until.IsZero() && until.After(now) {
		s.RemainingMillis = until.Sub(now).Milliseconds()
	}
	return s
}

// revealedLocked returns answers for rounds that have ended.
func (r *Room) revealedLocked() []string {
	n := 0
	switch {
	case r.status == StatusFinished:
		n = len(r.answers)
	case r.status == StatusInProgress:
		n = r.currentRound - 1
		if r.roundOver {
			n = r.currentRound
		}
	}
	return slices.Clone(r.answers[:n])
}

func (r *Room) orderedLocked() []*participant {
	ps := make([]*participant, 0, len(r.order))
	for _, id := range r.order {
		ps = append(ps, r.participants[id])
	}
	if r.status == StatusFinished {
		slices.SortStableFunc(ps, func(a, b *participant) int {
			return cmp.Compare(b.totalScore, a.totalScore)
		})
	}
	return ps
}

func (r *Room) participantViewLocked(p *participant) ParticipantView {
	v := ParticipantView{
		ParticipantID: p.id,
		DisplayName:   p.displayName,
		IsHost:        p.id == r.hostID,
		Disconnected:  p.disconnected,
		TotalScore:    p.totalScore,
		RoundStates:   []RoundStateView{},
	}
	for n := 1; n <= r.currentRound; n++ {
		st := p.rounds[n]
		if st == nil {
			continue
		}
		rs := RoundStateView{
			Round:           st.round,
			Guesses:         make([]GuessView, 0, len(st.guesses)),
			AttemptsUsed:    len(st.guesses),
			Finished:        st.finished,
			Win:             st.win,
			TimedOut:        st.timedOut,
			StartTime:       st.startTime,
			TimeTakenMillis: st.timeTaken.Milliseconds(),
			RoundScore:      st.score,
		}
		for _, g := range st.guesses {
			rs.Guesses = append(rs.Guesses, GuessView{Word: g.word, LetterResults: g.letters})
		}
		if !st.firstGuessAt.IsZero() {
			t := st.firstGuessAt
			rs.FirstGuessAt = &t
		}
		if st.finished {
			t := st.finishTime
			rs.FinishTime = &t
		}
		v.RoundStates = append(v.RoundStates, rs)
	}
	return v
}

// guessResultLocked describes st after a guess. letters defaults to the last
// guess when nil.
func (r *Room) guessResultLocked(st *roundState, letters []game.LetterResult) GuessResult {
	if letters == nil && len(st.guesses) > 0 {
		letters = st.guesses[len(st.guesses)-1].letters
	}
	res := GuessResult{
		LetterResults: letters,
		Win:           st.win,
		Finished:      st.finished,
		RoundOver:     r.roundOver,
		AttemptsUsed:  len(st.guesses),
		AttemptsLeft:  max(r.cfg.MaxAttemptsPerRound-len(st.guesses), 0),
	}
	if r.roundOver {
		res.Answer = r.answers[st.round-1]
	}
	return res
}

// resultLocked builds the final standings. Ties share the better position.
func (r *Room) resultLocked(now time.Time) Result {
	res := Result{
		GameID:      r.gameID,
		Code:        r.code,
		HostID:      r.hostID,
		TotalRounds: r.cfg.TotalRounds,
		FinishedAt:  now,
	}
	players := r.playersLocked()
	slices.SortStableFunc(players, func(a, b *participant) int {
		return cmp.Compare(b.totalScore, a.totalScore)
	})
	for i, p := range players {
		won := 0
		for _, st := range p.rounds {
			if st.win {
				won++
			}
		}
		pos := i + 1
		if i > 0 && res.Standings[i-1].TotalScore == p.totalScore {
			pos = res.Standings[i-1].Position
		}
		res.Standings = append(res.Standings, Standing{
			ParticipantID: p.id,
			DisplayName:   p.displayName,
			Position:      pos,
			TotalScore:    p.totalScore,
			RoundsWon:     won,
		})
	}
	return res
}
