package event

import (
	"context"

	"github.com/biodiversity-atlas/publishing-ui/internal/models"
)

type MemoryBus[T Identifiable] struct {
	Chan   chan T
	closed bool
}

func NewMemoryBus[T Identifiable]() *MemoryBus[T] {
	return &MemoryBus[T]{Chan: make(chan T)}
}

func (ms *MemoryBus[T]) Listen(ctx context.Context, process func(context.Context, T) error) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt := <-ms.Chan:
			if err := process(ctx, evt); err != nil {
				logger.Error("failed to handle event", "event", evt, "error", err.Error())
				if evt.RetryCount() < MaxRetries {
					evt.IncrementRetryCount()
					// Retrying in a separate go routine so this doesn't block on channel write.
					go func() {
						ms.Chan <- evt
					}()
				}
			}
		}
	}
}

func (ms *MemoryBus[T]) Close() error {
	if !ms.closed && ms.Chan != nil {
		ms.closed = true
		close(ms.Chan)
	}
	return nil
}

func (ms *MemoryBus[T]) Health(_ context.Context) (rsp models.ServiceHealthResp) {
	rsp.Service = "Memory Bus"
	rsp.Status = models.STATUS_UP
	rsp.HealthIssue = models.HEALTH_ISSUE_NONE
	return rsp
}

func (ms *MemoryBus[T]) Publish(_ context.Context, event T) error {
	if ms.Chan != nil && !ms.closed {
		go func() {
			ms.Chan <- event
		}()
	}
	return nil
}
