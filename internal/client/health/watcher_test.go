package health

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	mu    sync.Mutex
	err   error
	calls atomic.Int32
}

func (f *fakePinger) Ping(context.Context) error {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakePinger) set(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func TestWatcher_ModeTransitions(t *testing.T) {
	p := &fakePinger{}
	var changes []Mode
	w := NewWatcher(p, time.Hour, logging.Discard(), func(m Mode) { changes = append(changes, m) })
	assert.Equal(t, ModeOffline, w.Mode())

	assert.Equal(t, ModeOnline, w.Check(context.Background()))
	assert.Equal(t, ModeOnline, w.Check(context.Background()))

	p.set(errors.New("connection refused"))
	assert.Equal(t, ModeOffline, w.Check(context.Background()))

	p.set(nil)
	w.Check(context.Background())

	assert.Equal(t, []Mode{ModeOnline, ModeOffline, ModeOnline}, changes)
}

func TestWatcher_Disabled(t *testing.T) {
	w := NewWatcher(nil, time.Millisecond, logging.Discard(), nil)

	assert.Equal(t, ModeDisabled, w.Mode())
	assert.Equal(t, ModeDisabled, w.Check(context.Background()))
	w.Run(context.Background())
}

func TestWatcher_RunPollsUntilCancelled(t *testing.T) {
	p := &fakePinger{}
	w := NewWatcher(p, 5*time.Millisecond, logging.Discard(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return p.calls.Load() >= 3 }, time.Second, time.Millisecond)
	assert.Equal(t, ModeOnline, w.Mode())

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_NonPositiveIntervalChecksOnce(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		p := &fakePinger{}
		w := NewWatcher(p, interval, logging.Discard(), nil)

		done := make(chan struct{})
		go func() {
			w.Run(context.Background())
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("watcher with interval %s did not return", interval)
		}
		assert.Equal(t, int32(1), p.calls.Load())
		assert.Equal(t, ModeOnline, w.Mode())
	}
}
