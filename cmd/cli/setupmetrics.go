package cli

import (
	"context"
	"time"

	"github.com/biodiversity-atlas/publishing-ui/internal/event"
	"github.com/biodiversity-atlas/publishing-ui/internal/metrics"
	"github.com/biodiversity-atlas/publishing-ui/internal/session"
) // .import

const sessionGaugeInterval = 15 * time.Second

func setupMetrics(ctx context.Context, bus event.Subscribable[*event.StepChanged], registry *session.Registry) {
	if err := metrics.RegisterMetrics(metrics.DefaultMetrics...); err != nil {
		logger.Error("error registering metrics", "error", err)
	}

	go func() {
		err := bus.Listen(ctx, TracingProcessor(func(_ context.Context, e *event.StepChanged) error {
			metrics.StepTransitionsTotal.WithLabelValues(e.From, e.To).Inc()
			return nil
		}))
		if err != nil {
			logger.Error("step transition listener stopped", "error", err)
		}
	}()

	go func() {
		ticker := time.NewTicker(sessionGaugeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.ActiveSessions.Set(float64(registry.Len()))
			}
		}
	}()
} // setupMetrics
