package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/biodiversity-atlas/publishing-ui/internal/publishapi"
)

// scriptedFetcher replays a fixed sequence of responses, repeating the last
// one if polled past the end.
type scriptedFetcher struct {
	mu     sync.Mutex
	script []func() (*publishapi.JobStatus, error)
	calls  int
}

func (s *scriptedFetcher) Status(ctx context.Context, requestID string) (*publishapi.JobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i >= len(s.script) {
		i = len(s.script) - 1
	}
	return s.script[i]()
}

func (s *scriptedFetcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func status(state string) func() (*publishapi.JobStatus, error) {
	return func() (*publishapi.JobStatus, error) {
		return &publishapi.JobStatus{ID: "req-1", State: state, DatasetName: "Frog Survey"}, nil
	}
}

func fetchError() func() (*publishapi.JobStatus, error) {
	return func() (*publishapi.JobStatus, error) {
		return nil, errors.New("connection reset")
	}
}

func newTestPoller(f StatusFetcher) *Poller {
	p := New(f, "req-1")
	p.Interval = 5 * time.Millisecond
	return p
}

func TestPollerCompletesExactlyOnce(t *testing.T) {
	fetcher := &scriptedFetcher{script: []func() (*publishapi.JobStatus, error){
		status(publishapi.JobQueued),
		status(publishapi.JobRunning),
		status(publishapi.JobRunning),
		status(publishapi.JobSuccess),
	}}

	var mu sync.Mutex
	var updates []string
	completed := 0
	failed := 0
	done := make(chan struct{})

	p := newTestPoller(fetcher)
	p.OnUpdate = func(s *publishapi.JobStatus) {
		mu.Lock()
		updates = append(updates, s.State)
		mu.Unlock()
	}
	p.OnCompleted = func(s *publishapi.JobStatus) {
		mu.Lock()
		completed++
		mu.Unlock()
		close(done)
	}
	p.OnFailed = func(*publishapi.JobStatus) {
		mu.Lock()
		failed++
		mu.Unlock()
	}

	p.Start(context.Background())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller never reported completion")
	}

	// allow any stray extra tick to surface
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if completed != 1 || failed != 0 {
		t.Errorf("completed=%d failed=%d, want exactly one completion", completed, failed)
	}
	want := []string{publishapi.JobQueued, publishapi.JobRunning, publishapi.JobRunning, publishapi.JobSuccess}
	if len(updates) != len(want) {
		t.Fatalf("updates = %v, want %v", updates, want)
	}
	for i := range want {
		if updates[i] != want[i] {
			t.Errorf("updates[%d] = %q, want %q", i, updates[i], want[i])
		}
	}

	if fetcher.callCount() != 4 {
		t.Errorf("fetch count = %d, polling must stop on the terminal state", fetcher.callCount())
	}
	if p.Active() {
		t.Error("poller still active after terminal state")
	}
	if got := p.LastStatus(); got == nil || got.State != publishapi.JobSuccess {
		t.Errorf("last status = %+v", got)
	}
}

func TestPollerReportsFailure(t *testing.T) {
	fetcher := &scriptedFetcher{script: []func() (*publishapi.JobStatus, error){
		status(publishapi.JobRunning),
		status(publishapi.JobFailed),
	}}

	done := make(chan struct{})
	p := newTestPoller(fetcher)
	p.OnCompleted = func(*publishapi.JobStatus) {
		t.Error("OnCompleted fired for a failed job")
	}
	p.OnFailed = func(*publishapi.JobStatus) {
		close(done)
	}

	p.Start(context.Background())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller never reported failure")
	}
}

func TestPollerRetriesTransientErrors(t *testing.T) {
	fetcher := &scriptedFetcher{script: []func() (*publishapi.JobStatus, error){
		fetchError(),
		fetchError(),
		status(publishapi.JobSuccess),
	}}

	done := make(chan struct{})
	p := newTestPoller(fetcher)
	p.OnCompleted = func(*publishapi.JobStatus) {
		close(done)
	}

	p.Start(context.Background())
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller gave up after transient errors")
	}

	if p.LastStatus() == nil {
		t.Error("terminal status not recorded")
	}
}

func TestPollerStop(t *testing.T) {
	fetcher := &scriptedFetcher{script: []func() (*publishapi.JobStatus, error){
		status(publishapi.JobRunning),
	}}

	p := newTestPoller(fetcher)
	p.OnCompleted = func(*publishapi.JobStatus) {
		t.Error("callback fired after stop")
	}

	p.Start(context.Background())
	time.Sleep(20 * time.Millisecond)
	p.Stop()
	calls := fetcher.callCount()

	time.Sleep(50 * time.Millisecond)
	if got := fetcher.callCount(); got > calls+1 {
		t.Errorf("polling continued after stop: %d -> %d", calls, got)
	}
	if p.Active() {
		t.Error("poller active after stop")
	}
}

func TestPollerStartTwice(t *testing.T) {
	fetcher := &scriptedFetcher{script: []func() (*publishapi.JobStatus, error){
		status(publishapi.JobSuccess),
	}}

	var mu sync.Mutex
	completed := 0
	done := make(chan struct{})
	p := newTestPoller(fetcher)
	p.OnCompleted = func(*publishapi.JobStatus) {
		mu.Lock()
		completed++
		mu.Unlock()
		close(done)
	}

	ctx := context.Background()
	p.Start(ctx)
	p.Start(ctx)

	<-done
	time.Sleep(30 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if completed != 1 {
		t.Errorf("completed = %d, second Start must be a no-op", completed)
	}
}
