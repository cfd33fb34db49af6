package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

const defaultTimeout = 3 * time.Second

type Metrics struct {
	Events *prometheus.CounterVec
}

func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "captable_audit_events_total",
				Help: "Audit events by action and outcome.",
			},
			[]string{"action", "status"},
		),
	}
	registry.MustRegister(m.Events)
	return m
}

func (m *Metrics) inc(action Action, status string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(string(action), status).Inc()
}

// Hook runs after the primary write has committed. A failed audit write never
// fails the caller; it is logged and counted instead.
type Hook struct {
	recorder Recorder
	logger   *slog.Logger
	metrics  *Metrics
	timeout  time.Duration
	now      func() time.Time
}

func NewHook(recorder Recorder, logger *slog.Logger, metrics *Metrics, timeout time.Duration) *Hook {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Hook{recorder: recorder, logger: logger, metrics: metrics, timeout: timeout, now: time.Now}
}

func (h *Hook) Emit(ctx context.Context, ev Event) {
	if h == nil || h.recorder == nil {
		return
	}
	if ev.ID == uuid.Nil {
		ev.ID = uuid.New()
	}
	if ev.At.IsZero() {
		ev.At = h.now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.timeout)
	defer cancel()

	if err := h.recorder.Record(ctx, ev); err != nil {
		h.metrics.inc(ev.Action, "error")
		h.logger.Error("audit log failed",
			"action", string(ev.Action),
			"actor_id", ev.ActorID.String(),
			"error", err,
		)
		return
	}
	h.metrics.inc(ev.Action, "success")
}
