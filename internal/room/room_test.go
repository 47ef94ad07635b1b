package room

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedWords []string

func (w fixedWords) RandomAnswers(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = w[i%len(w)]
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(_ string, ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) count(ev Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == ev {
			n++
		}
	}
	return n
}

type fixture struct {
	room     *Room
	clock    *fakeClock
	events   *recorder
	finished []Result
	mu       sync.Mutex
}

func (f *fixture) results() []Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Result(nil), f.finished...)
}

func testConfig() Config {
	return Config{
		HostID:              "host",
		HostDisplayName:     "Ms Rivera",
		MaxStudents:         4,
		TotalRounds:         2,
		RoundTimeLimitSec:   60,
		MaxAttemptsPerRound: 6,
	}
}

func newFixture(t *testing.T, cfg Config, policy Policy) *fixture {
	t.Helper()
	f := &fixture{clock: newFakeClock(), events: &recorder{}}
	r, err := New("ABC123", cfg, policy, Deps{
		Words:    fixedWords{"crane", "apple"},
		Notifier: f.events,
		Clock:    f.clock.Now,
		OnFinish: func(res Result) {
			f.mu.Lock()
			f.finished = append(f.finished, res)
			f.mu.Unlock()
		},
	})
	require.NoError(t, err)
	t.Cleanup(r.Close)
	f.room = r
	return f
}

func instantPolicy() Policy {
	p := DefaultPolicy()
	p.Countdown = 0
	return p
}

func TestNewRejectsBadConfig(t *testing.T) {
	deps := Deps{Words: fixedWords{"crane"}}
	for _, mut := range []func(*Config){
		func(c *Config) { c.HostID = " " },
		func(c *Config) { c.MaxStudents = 0 },
		func(c *Config) { c.TotalRounds = 0 },
		func(c *Config) { c.RoundTimeLimitSec = 0 },
		func(c *Config) { c.MaxAttemptsPerRound = 0 },
	} {
		cfg := testConfig()
		mut(&cfg)
		_, err := New("X", cfg, DefaultPolicy(), deps)
		assert.ErrorIs(t, err, ErrConfig)
	}
}

func TestNewRegistersHost(t *testing.T) {
	f := newFixture(t, testConfig(), instantPolicy())

	snap, err := f.room.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, snap.Status)
	assert.Equal(t, PhaseWaiting, snap.Phase)
	assert.Equal(t, 0, snap.CurrentRound)
	assert.Equal(t, "host", snap.HostID)
	assert.Empty(t, snap.Answers)
	assert.Empty(t, snap.GameID)

	ps, err := f.room.Participants()
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.True(t, ps[0].IsHost)
	assert.Equal(t, "Ms Rivera", ps[0].DisplayName)
}

func TestJoinCapacityAndRename(t *testing.T) {
	cfg := testConfig()
	cfg.MaxStudents = 2
	f := newFixture(t, cfg, instantPolicy())

	v, err := f.room.Join("s1", "Ann")
	require.NoError(t, err)
	assert.False(t, v.IsHost)
	_, err = f.room.Join("s2", "Bob")
	require.NoError(t, err)

	_, err = f.room.Join("s3", "Cid")
	assert.ErrorIs(t, err, ErrRoomFull)

	v, err = f.room.Join("s1", "Annie")
	require.NoError(t, err, "re-join never counts against capacity")
	assert.Equal(t, "Annie", v.DisplayName)

	_, err = f.room.Join("", "nobody")
	assert.ErrorIs(t, err, ErrConfig)
}

func TestStartRules(t *testing.T) {
	f := newFixture(t, testConfig(), instantPolicy())

	_, err := f.room.Start("host")
	assert.ErrorIs(t, err, ErrNotEnoughPlayers)

	_, err = f.room.Join("s1", "Ann")
	require.NoError(t, err)

	_, err = f.room.Start("s1")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	snap, err := f.room.Start("host")
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, snap.Status)
	assert.Equal(t, PhaseRoundActive, snap.Phase)
	assert.Equal(t, 1, snap.CurrentRound)
	assert.NotEmpty(t, snap.GameID)
	assert.Equal(t, int64(60_000), snap.RemainingMillis)
	assert.Equal(t, 1, f.events.count(EventRoundStarted))

	_, err = f.room.Start("host")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.room.Join("late", "Late")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSubmitGuessFlow(t *testing.T) {
	f := newFixture(t, testConfig(), instantPolicy())
	_, err := f.room.SubmitGuess("s1", "crane")
	assert.ErrorIs(t, err, ErrInvalidState, "not started")

	_, _ = f.room.Join("s1", "Ann")
	_, _ = f.room.Join("s2", "Bob")
	_, err = f.room.Start("host")
	require.NoError(t, err)

	_, err = f.room.SubmitGuess("ghost", "crane")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.room.SubmitGuess("host", "crane")
	assert.ErrorIs(t, err, ErrInvalidState, "host only moderates")
	_, err = f.room.SubmitGuess("s1", "cr4ne")
	assert.Error(t, err)

	f.clock.Advance(10 * time.Second)
	res, err := f.room.SubmitGuess("s1", "slate")
	require.NoError(t, err)
	assert.False(t, res.Win)
	assert.False(t, res.Finished)
	assert.Equal(t, 1, res.AttemptsUsed)
	assert.Equal(t, 5, res.AttemptsLeft)
	assert.Empty(t, res.Answer)

	res, err = f.room.SubmitGuess("s1", "CRANE")
	require.NoError(t, err)
	assert.True(t, res.Win)
	assert.True(t, res.Finished)
	assert.False(t, res.RoundOver)
	assert.Empty(t, res.Answer, "answer stays hidden while others play")

	again, err := f.room.SubmitGuess("s1", "slate")
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, 2, again.AttemptsUsed)

	res, err = f.room.SubmitGuess("s2", "crane")
	require.NoError(t, err)
	assert.True(t, res.RoundOver)
	assert.Equal(t, "crane", res.Answer)
	assert.Equal(t, 1, f.events.count(EventRoundEnded))

	p, err := f.room.Participant("s1")
	require.NoError(t, err)
	require.Len(t, p.RoundStates, 1)
	rs := p.RoundStates[0]
	assert.Equal(t, 2, rs.AttemptsUsed)
	assert.Equal(t, int64(10_000), rs.TimeTakenMillis)
	assert.Greater(t, rs.RoundScore, 0)
	require.NotNil(t, rs.FirstGuessAt)
	require.NotNil(t, rs.FinishTime)

	_, err = f.room.Participant("nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAttemptsExhaustedIsLoss(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttemptsPerRound = 2
	f := newFixture(t, cfg, instantPolicy())
	_, _ = f.room.Join("s1", "Ann")
	_, err := f.room.Start("host")
	require.NoError(t, err)

	_, err = f.room.SubmitGuess("s1", "slate")
	require.NoError(t, err)
	res, err := f.room.SubmitGuess("s1", "pizza")
	require.NoError(t, err)
	assert.True(t, res.Finished)
	assert.False(t, res.Win)
	assert.True(t, res.RoundOver)

	stats, err := f.room.RoundStats()
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 0, stats[0].RoundScore)
	assert.Equal(t, 2, stats[0].GuessCount)
}

func TestAdvanceRoundRules(t *testing.T) {
	f := newFixture(t, testConfig(), instantPolicy())
	_, _ = f.room.Join("s1", "Ann")
	_, err := f.room.Start("host")
	require.NoError(t, err)

	_, err = f.room.AdvanceRound("host")
	assert.ErrorIs(t, err, ErrInvalidState, "round still active")

	_, err = f.room.SubmitGuess("s1", "crane")
	require.NoError(t, err)

	_, err = f.room.AdvanceRound("s1")
	assert.ErrorIs(t, err, ErrNotAuthorized)

	snap, err := f.room.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, PhaseRoundStats, snap.Phase)
	assert.Equal(t, []string{"crane"}, snap.Answers)

	snap, err = f.room.AdvanceRound("host")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.CurrentRound)
	assert.Equal(t, []string{"crane"}, snap.Answers)

	_, err = f.room.AdvanceRound("host")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestTimeoutRacingNaturalCompletion(t *testing.T) {
	f := newFixture(t, testConfig(), instantPolicy())
	_, _ = f.room.Join("s1", "Ann")
	_, err := f.room.Start("host")
	require.NoError(t, err)

	_, err = f.room.SubmitGuess("s1", "crane")
	require.NoError(t, err)
	require.NoError(t, f.room.ForceTimeout(1))
	require.NoError(t, f.room.ForceTimeout(1))

	assert.Equal(t, 1, f.events.count(EventRoundEnded))

	p, err := f.room.Participant("s1")
	require.NoError(t, err)
	assert.True(t, p.RoundStates[0].Win, "timeout never rewrites a finished round")
	assert.False(t, p.RoundStates[0].TimedOut)

	_, err = f.room.AdvanceRound("host")
	require.NoError(t, err)
	_, err = f.room.AdvanceRound("host")
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, f.room.ForceTimeout(1), "stale round")
	snap, _ := f.room.Snapshot()
	assert.False(t, snap.RoundOver)
}

func TestForceTimeoutFinishesEveryone(t *testing.T) {
	f := newFixture(t, testConfig(), instantPolicy())
	_, _ = f.room.Join("s1", "Ann")
	_, _ = f.room.Join("s2", "Bob")
	_, err := f.room.Start("host")
	require.NoError(t, err)
	_, err = f.room.SubmitGuess("s1", "slate")
	require.NoError(t, err)

	require.NoError(t, f.room.ForceTimeout(1))
	assert.Equal(t, 1, f.events.count(EventRoundEnded))

	ps, err := f.room.Participants()
	require.NoError(t, err)
	for _, p := range ps {
		if p.IsHost {
			assert.Empty(t, p.RoundStates)
			continue
		}
		require.Len(t, p.RoundStates, 1)
		assert.True(t, p.RoundStates[0].Finished)
		assert.False(t, p.RoundStates[0].Win)
		assert.True(t, p.RoundStates[0].TimedOut)
	}
}

func TestRoundDeadlineFires(t *testing.T) {
	cfg := testConfig()
	cfg.RoundTimeLimitSec = 1
	events := &recorder{}
	r, err := New("TIMER1", cfg, instantPolicy(), Deps{Words: fixedWords{"crane"}, Notifier: events})
	require.NoError(t, err)
	t.Cleanup(r.Close)

	_, _ = r.Join("s1", "Ann")
	_, err = r.Start("host")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return events.count(EventRoundEnded) == 1 },
		3*time.Second, 20*time.Millisecond)

	snap, err := r.Snapshot()
	require.NoError(t, err)
	assert.True(t, snap.RoundOver)
}

func TestCountdownRejectsEarlyGuesses(t *testing.T) {
	f := newFixture(t, testConfig(), DefaultPolicy())
	_, _ = f.room.Join("s1", "Ann")
	_, err := f.room.Start("host")
	require.NoError(t, err)

	snap, _ := f.room.Snapshot()
	assert.Equal(t, PhaseCountdown, snap.Phase)
	assert.Equal(t, int64(3_000), snap.RemainingMillis)

	_, err = f.room.SubmitGuess("s1", "crane")
	assert.ErrorIs(t, err, ErrInvalidState)

	f.clock.Advance(5 * time.Second)
	snap, _ = f.room.Snapshot()
	assert.Equal(t, PhaseRoundActive, snap.Phase)
	assert.Equal(t, int64(58_000), snap.RemainingMillis)

	res, err := f.room.SubmitGuess("s1", "crane")
	require.NoError(t, err)
	assert.True(t, res.Win)

	p, _ := f.room.Participant("s1")
	assert.Equal(t, int64(2_000), p.RoundStates[0].TimeTakenMillis, "time counts from round start, not announcement")
}

func TestAutoAdvance(t *testing.T) {
	pol := instantPolicy()
	pol.AutoAdvance = 50 * time.Millisecond
	cfg := testConfig()
	cfg.TotalRounds = 1
	f := newFixture(t, cfg, pol)
	_, _ = f.room.Join("s1", "Ann")
	_, err := f.room.Start("host")
	require.NoError(t, err)
	_, err = f.room.SubmitGuess("s1", "crane")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return f.events.count(EventGameEnd) == 1 },
		2*time.Second, 10*time.Millisecond)
	require.Len(t, f.results(), 1)
}

func TestConcurrentGuessesNeverExceedAttempts(t *testing.T) {
	cfg := testConfig()
	cfg.MaxStudents = 8
	f := newFixture(t, cfg, instantPolicy())
	for i := 0; i < 8; i++ {
		_, err := f.room.Join(fmt.Sprintf("s%d", i), "")
		require.NoError(t, err)
	}
	_, err := f.room.Start("host")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("s%d", i)
		for j := 0; j < 20; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.room.SubmitGuess(id, "slate")
				assert.NoError(t, err)
				_, _ = f.room.Snapshot()
			}()
		}
	}
	wg.Wait()

	ps, err := f.room.Participants()
	require.NoError(t, err)
	for _, p := range ps {
		if p.IsHost {
			continue
		}
		require.Len(t, p.RoundStates, 1)
		assert.Equal(t, 6, p.RoundStates[0].AttemptsUsed, p.ParticipantID)
		assert.Len(t, p.RoundStates[0].Guesses, 6)
		assert.True(t, p.RoundStates[0].Finished)
	}
	assert.Equal(t, 1, f.events.count(EventRoundEnded))
}

func TestEndToEndTwoRounds(t *testing.T) {
	cfg := Config{
		HostID:              "host",
		MaxStudents:         5,
		TotalRounds:         2,
		RoundTimeLimitSec:   5,
		MaxAttemptsPerRound: 6,
	}
	f := newFixture(t, cfg, instantPolicy())
	_, _ = f.room.Join("ann", "Ann")
	_, _ = f.room.Join("bob", "Bob")
	_, err := f.room.Start("host")
	require.NoError(t, err)

	f.clock.Advance(time.Second)
	_, err = f.room.SubmitGuess("ann", "crane")
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	_, err = f.room.SubmitGuess("bob", "crane")
	require.NoError(t, err)

	stats, err := f.room.RoundStats()
	require.NoError(t, err)
	require.Len(t, stats, 2)
	for _, row := range stats {
		assert.Equal(t, 1, row.GuessCount)
		assert.True(t, row.Win)
	}
	assert.Equal(t, "ann", stats[0].ParticipantID, "faster finisher ranks first")

	snap, err := f.room.AdvanceRound("host")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.CurrentRound)

	_, err = f.room.SubmitGuess("bob", "apple")
	require.NoError(t, err)
	f.clock.Advance(4 * time.Second)
	_, err = f.room.SubmitGuess("ann", "slate")
	require.NoError(t, err)
	require.NoError(t, f.room.ForceTimeout(2))

	snap, err = f.room.AdvanceRound("host")
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, snap.Status)
	assert.Equal(t, []string{"crane", "apple"}, snap.Answers)
	assert.Equal(t, 1, f.events.count(EventGameEnd))

	ps, err := f.room.Participants()
	require.NoError(t, err)
	assert.Equal(t, "bob", ps[0].ParticipantID)
	for i := 1; i < len(ps); i++ {
		assert.GreaterOrEqual(t, ps[i-1].TotalScore, ps[i].TotalScore)
	}

	res := f.results()
	require.Len(t, res, 1)
	require.Len(t, res[0].Standings, 2)
	assert.Equal(t, "bob", res[0].Standings[0].ParticipantID)
	assert.Equal(t, 1, res[0].Standings[0].Position)
	assert.Equal(t, 2, res[0].Standings[0].RoundsWon)
	assert.Equal(t, 1, res[0].Standings[1].RoundsWon)
}

func TestRestart(t *testing.T) {
	cfg := testConfig()
	cfg.TotalRounds = 1
	f := newFixture(t, cfg, instantPolicy())
	_, _ = f.room.Join("s1", "Ann")
	_, _ = f.room.Join("s2", "Bob")

	require.ErrorIs(t, f.room.Restart("host"), ErrInvalidState)

	_, err := f.room.Start("host")
	require.NoError(t, err)
	require.NoError(t, f.room.Leave("s2"))
	_, err = f.room.SubmitGuess("s1", "crane")
	require.NoError(t, err)
	snap, _ := f.room.Snapshot()
	require.True(t, snap.RoundOver, "disconnected participants are not waited for")
	_, err = f.room.AdvanceRound("host")
	require.NoError(t, err)

	assert.ErrorIs(t, f.room.Restart("s1"), ErrNotAuthorized)
	require.NoError(t, f.room.Restart("host"))

	snap, err = f.room.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, snap.Status)
	assert.Equal(t, 0, snap.CurrentRound)
	assert.Empty(t, snap.Answers)
	assert.Empty(t, snap.GameID)
	assert.Equal(t, "ABC123", snap.RoomCode)

	ps, err := f.room.Participants()
	require.NoError(t, err)
	require.Len(t, ps, 2, "disconnected s2 is dropped")
	for _, p := range ps {
		assert.Zero(t, p.TotalScore)
		assert.Empty(t, p.RoundStates)
	}

	_, err = f.room.Start("host")
	require.NoError(t, err)
}

func TestLeaveAndReconnect(t *testing.T) {
	f := newFixture(t, testConfig(), instantPolicy())
	_, _ = f.room.Join("s1", "Ann")
	_, _ = f.room.Join("s2", "Bob")

	require.NoError(t, f.room.Leave("s2"))
	assert.ErrorIs(t, f.room.Leave("s2"), ErrNotFound)
	ps, _ := f.room.Participants()
	assert.Len(t, ps, 2)

	_, _ = f.room.Join("s2", "Bob")
	_, err := f.room.Start("host")
	require.NoError(t, err)

	require.NoError(t, f.room.Leave("s2"))
	p, err := f.room.Participant("s2")
	require.NoError(t, err)
	assert.True(t, p.Disconnected)
	require.Len(t, p.RoundStates, 1, "round state is kept after leaving")

	p, err = f.room.Join("s2", "Bob")
	require.NoError(t, err)
	assert.False(t, p.Disconnected)
}

func TestHostLeavePolicies(t *testing.T) {
	t.Run("promote", func(t *testing.T) {
		f := newFixture(t, testConfig(), instantPolicy())
		_, _ = f.room.Join("s1", "Ann")
		_, _ = f.room.Join("s2", "Bob")
		require.NoError(t, f.room.Leave("host"))
		assert.Equal(t, "s1", f.room.HostID())

		p, err := f.room.Participant("s1")
		require.NoError(t, err)
		assert.True(t, p.IsHost)
	})

	t.Run("dissolve", func(t *testing.T) {
		pol := instantPolicy()
		pol.HostLeave = HostLeaveDissolve
		var dissolved []string
		r, err := New("GONE01", testConfig(), pol, Deps{
			Words:      fixedWords{"crane"},
			OnDissolve: func(code string) { dissolved = append(dissolved, code) },
		})
		require.NoError(t, err)
		_, _ = r.Join("s1", "Ann")

		require.NoError(t, r.Leave("host"))
		assert.Equal(t, []string{"GONE01"}, dissolved)
		_, err = r.Snapshot()
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = r.Join("s2", "Bob")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty room dissolves", func(t *testing.T) {
		f := newFixture(t, testConfig(), instantPolicy())
		require.NoError(t, f.room.Leave("host"))
		_, err := f.room.Snapshot()
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestHostPlays(t *testing.T) {
	pol := instantPolicy()
	pol.HostPlays = true
	pol.MinPlayers = 0
	cfg := testConfig()
	cfg.TotalRounds = 1
	f := newFixture(t, cfg, pol)

	_, err := f.room.Start("host")
	require.NoError(t, err, "solo play")

	res, err := f.room.SubmitGuess("host", "crane")
	require.NoError(t, err)
	assert.True(t, res.Win)
	assert.True(t, res.RoundOver)
}
