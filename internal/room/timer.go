package room

import (
	"time"
)

type deadlinePhase int

const (
	phaseRound deadlinePhase = iota // round time limit (countdown included)
	phaseStats                      // auto-advance after round stats
)

type deadline struct {
	phase deadlinePhase
	round int
	at    time.Time
	timer *time.Timer
}

// armLocked replaces any pending deadline with one firing after d.
// Each arm bumps the epoch so a timer that already fired and is waiting for
// the lock recognises itself as stale.
func (r *Room) armLocked(phase deadlinePhase, round int, d time.Duration) {
	r.disarmLocked()
	r.epoch++
	epoch := r.epoch
	r.deadline = &deadline{
		phase: phase,
		round: round,
		at:    r.now().Add(d),
		timer: time.AfterFunc(d, func() { r.expire(epoch) }),
	}
}

func (r *Room) disarmLocked() {
	if r.deadline == nil {
		return
	}
	r.deadline.timer.Stop()
	r.deadline = nil
	r.epoch++
}

// expire runs on the timer goroutine.
func (r *Room) expire(epoch uint64) {
	_ = r.mutate(func(now time.Time) error {
		if epoch != r.epoch || r.deadline == nil {
			return nil
		}
		d := r.deadline
		r.deadline = nil
		switch d.phase {
		case phaseRound:
			r.forceTimeoutLocked(d.round)
		case phaseStats:
			r.autoAdvanceLocked(d.round, now)
		}
		return nil
	})
}
