package session

import (
	"context"

	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
)

// store holds the auth state and keeps the persisted copy, the activity
// subscription and the expiry timer in step with it. Callers hold the
// manager lock.
type store struct {
	state   AuthState
	persist Persister
	tracker *tracker
	sched   *scheduler
	log     logging.Logger
}

// set installs s: mutate, persist, then attach and arm. A non-empty state
// whose deadline is already due is reported back instead of being armed.
func (st *store) set(ctx context.Context, s AuthState) (due bool) {
	if s.Empty() {
		st.clear(ctx)
		return false
	}

	st.state = s.Clone()

	if err := st.persist.Save(ctx, st.state); err != nil {
		st.log.Warn(ctx, "session storage write failed", "error", err)
	}

	st.tracker.attach()
	return st.sched.arm(st.state.Deadline())
}

// clear empties the state: mutate, persist, then detach and disarm.
func (st *store) clear(ctx context.Context) {
	st.state = AuthState{}

	if err := st.persist.Clear(ctx); err != nil {
		st.log.Warn(ctx, "session storage clear failed", "error", err)
	}

	st.tracker.detach()
	st.sched.disarm()
}

func (st *store) get() AuthState {
	return st.state.Clone()
}
