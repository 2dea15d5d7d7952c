// Package poller tracks a publishing job by polling its status endpoint at a
// fixed interval until the job reaches a terminal state.
package poller

import (
	"context"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/biodiversity-atlas/publishing-ui/internal/publishapi"
	"github.com/biodiversity-atlas/publishing-ui/pkg/sloger"
)

var logger *slog.Logger

func init() {
	type Empty struct{}
	pkgParts := strings.Split(reflect.TypeOf(Empty{}).PkgPath(), "/")
	// add package name to app logger
	logger = sloger.With("pkg", pkgParts[len(pkgParts)-1])
}

const DefaultInterval = 5 * time.Second

// StatusFetcher is the slice of the publishing service client the poller
// needs.
type StatusFetcher interface {
	Status(ctx context.Context, requestID string) (*publishapi.JobStatus, error)
}

// Poller repeatedly fetches a job's status. On the first terminal state it
// stops the ticker and invokes exactly one of OnCompleted/OnFailed exactly
// once; after that it is inert. A transient fetch failure is logged and
// retried on the next tick, with no backoff and no error callback.
type Poller struct {
	RequestID string
	Interval  time.Duration

	// OnUpdate fires on every applied status, including non-terminal ones.
	OnUpdate    func(*publishapi.JobStatus)
	OnCompleted func(*publishapi.JobStatus)
	OnFailed    func(*publishapi.JobStatus)

	client StatusFetcher

	mu         sync.Mutex
	lastStatus *publishapi.JobStatus
	active     bool
	started    bool
	cancel     context.CancelFunc
}

func New(client StatusFetcher, requestID string) *Poller {
	return &Poller{
		RequestID: requestID,
		Interval:  DefaultInterval,
		client:    client,
		active:    true,
	}
}

// LastStatus returns the most recent applied status, nil until the first
// successful fetch.
func (p *Poller) LastStatus() *publishapi.JobStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastStatus
}

// Active reports whether the poller is still issuing requests.
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// Start begins polling on its own goroutine. Calling Start more than once is
// a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || !p.active {
		p.mu.Unlock()
		return
	}
	p.started = true
	ctx, p.cancel = context.WithCancel(ctx)
	p.mu.Unlock()

	go p.run(ctx)
}

func (p *Poller) run(ctx context.Context) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.tick(ctx) {
				return
			}
		}
	}
}

// tick issues one status request and applies the response. It returns false
// once polling should stop.
func (p *Poller) tick(ctx context.Context) bool {
	status, err := p.client.Status(ctx, p.RequestID)
	if err != nil {
		// Not terminal: the next scheduled tick retries.
		logger.Warn("status fetch failed", "requestId", p.RequestID, "error", err.Error())
		return p.Active()
	}

	p.mu.Lock()
	if !p.active {
		// Response raced with teardown; discard it.
		p.mu.Unlock()
		return false
	}
	p.lastStatus = status
	terminal := publishapi.TerminalState(status.State)
	if terminal {
		p.active = false
	}
	onUpdate := p.OnUpdate
	p.mu.Unlock()

	if onUpdate != nil {
		onUpdate(status)
	}

	if terminal {
		switch status.State {
		case publishapi.JobSuccess:
			if p.OnCompleted != nil {
				p.OnCompleted(status)
			}
		case publishapi.JobFailed:
			if p.OnFailed != nil {
				p.OnFailed(status)
			}
		}
		return false
	}
	return true
}

// Stop tears the poller down. A response racing with Stop is discarded, not
// applied, and no callback fires after Stop returns unless a terminal state
// had already been observed.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.active = false
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
