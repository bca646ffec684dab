// Package metrics exposes session activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the session collectors and implements session.Listener.
type Metrics struct {
	Events          *prometheus.CounterVec
	Active          prometheus.Gauge
	SessionLifetime prometheus.Histogram

	mu      sync.Mutex
	started map[string]time.Time
}

func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		Events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sessionkeeper_session_events_total",
				Help: "Session lifecycle events by kind",
			},
			[]string{"kind"},
		),
		Active: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sessionkeeper_sessions_active",
				Help: "1 while a user is signed in",
			},
		),
		SessionLifetime: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sessionkeeper_session_lifetime_seconds",
				Help:    "Time from sign-in (or restore) to logout or expiry",
				Buckets: []float64{60, 300, 900, 1800, 3600, 4 * 3600, 12 * 3600},
			},
		),
		started: make(map[string]time.Time),
	}
}

// NewRegistry creates a registry with the session metrics registered.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	return reg, NewMetrics(reg)
}

func (m *Metrics) OnSessionEvent(e session.Event) {
	m.Events.WithLabelValues(string(e.Kind)).Inc()

	switch e.Kind {
	case session.KindLogin, session.KindRestored:
		m.mu.Lock()
		m.started[e.UserID] = e.At
		m.mu.Unlock()
		m.Active.Set(1)
	case session.KindLogout, session.KindExpired:
		m.mu.Lock()
		if at, ok := m.started[e.UserID]; ok {
			m.SessionLifetime.Observe(e.At.Sub(at).Seconds())
			delete(m.started, e.UserID)
		}
		m.mu.Unlock()
		m.Active.Set(0)
	}
}

// Serve exposes reg on addr at /metrics until ctx is done.
func Serve(ctx context.Context, addr string, reg prometheus.Gatherer, log logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info(ctx, "metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
