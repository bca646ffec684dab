package health

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

// Pinger is anything that can tell whether the backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Watcher polls a Pinger and reports mode changes.
type Watcher struct {
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
	log      logging.Logger
	onChange func(Mode)

	mu   sync.Mutex
	mode Mode
}

// NewWatcher returns a watcher in offline mode. A nil pinger yields a
// watcher that stays disabled.
func NewWatcher(p Pinger, interval time.Duration, log logging.Logger, onChange func(Mode)) *Watcher {
	w := &Watcher{
		pinger:   p,
		interval: interval,
		timeout:  3 * time.Second,
		log:      log,
		onChange: onChange,
		mode:     ModeOffline,
	}
	if p == nil {
		w.mode = ModeDisabled
	}
	return w
}

func (w *Watcher) Mode() Mode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mode
}

// Check pings once and updates the mode.
func (w *Watcher) Check(ctx context.Context) Mode {
	if w.pinger == nil {
		return ModeDisabled
	}

	pctx, cancel := context.WithTimeout(ctx, w.timeout)
	err := w.pinger.Ping(pctx)
	cancel()

	if err != nil {
		w.log.Debug(ctx, "backend ping failed", "error", err)
		return w.setMode(ctx, ModeOffline)
	}
	return w.setMode(ctx, ModeOnline)
}

// Run checks immediately and then every interval until ctx is done. With a
// non-positive interval it checks once and returns.
func (w *Watcher) Run(ctx context.Context) {
	if w.pinger == nil {
		return
	}

	w.Check(ctx)

	if w.interval <= 0 {
		w.log.Warn(ctx, "polling disabled, interval is not positive", "interval", w.interval)
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) setMode(ctx context.Context, m Mode) Mode {
	w.mu.Lock()
	changed := w.mode != m
	w.mode = m
	w.mu.Unlock()

	if changed {
		w.log.Info(ctx, "switched mode", "mode", string(m))
		if w.onChange != nil {
			w.onChange(m)
		}
	}
	return m
}
