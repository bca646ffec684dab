package session

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// scheduler holds the one expiry timer. Every arm or disarm bumps gen, so a
// callback that was already on its way when the timer was replaced can tell
// it is stale.
type scheduler struct {
	clock    clockwork.Clock
	timer    clockwork.Timer
	deadline time.Time
	gen      uint64
	onFire   func(gen uint64)
}

// arm replaces any pending timer with one firing at deadline. It returns
// true without scheduling anything when the deadline is already due; the
// caller expires the session itself in that case. A zero deadline is
// ignored.
func (s *scheduler) arm(deadline time.Time) (due bool) {
	if deadline.IsZero() {
		return false
	}
	s.disarm()

	delay := deadline.Sub(s.clock.Now())
	if delay <= 0 {
		return true
	}

	gen := s.gen
	s.deadline = deadline
	s.timer = s.clock.AfterFunc(delay, func() { s.onFire(gen) })
	return false
}

func (s *scheduler) disarm() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.deadline = time.Time{}
	s.gen++
}

// current reports whether gen identifies the pending timer.
func (s *scheduler) current(gen uint64) bool {
	return s.timer != nil && gen == s.gen
}

// fired retires the timer whose callback was accepted.
func (s *scheduler) fired() {
	s.disarm()
}

func (s *scheduler) pending() bool {
	return s.timer != nil
}
