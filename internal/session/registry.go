package session

import (
	"sync"

	"github.com/biodiversity-atlas/publishing-ui/internal/poller"
	"github.com/biodiversity-atlas/publishing-ui/internal/workflow"
)

// Entry binds one browser session to its workflow controller and, once a
// publish has been accepted, its status poller.
type Entry struct {
	Controller *workflow.Controller

	mu     sync.Mutex
	poller *poller.Poller
}

// SetPoller installs the poller for the current publish, stopping any poller
// left over from a previous cycle.
func (e *Entry) SetPoller(p *poller.Poller) {
	e.mu.Lock()
	old := e.poller
	e.poller = p
	e.mu.Unlock()
	if old != nil {
		old.Stop()
	}
}

func (e *Entry) Poller() *poller.Poller {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.poller
}

// Registry maps browser session ids to their live workflow state. Each
// browser session owns exactly one controller at a time.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Entry
	factory func() *workflow.Controller
}

func NewRegistry(factory func() *workflow.Controller) *Registry {
	return &Registry{
		entries: map[string]*Entry{},
		factory: factory,
	}
}

// Get returns the entry for a browser session, creating it on first use.
func (r *Registry) Get(id string) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		e = &Entry{Controller: r.factory()}
		r.entries[id] = e
	}
	return e
}

// Drop tears down a browser session's workflow state, stopping its poller.
func (r *Registry) Drop(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if ok {
		if p := e.Poller(); p != nil {
			p.Stop()
		}
		e.Controller.Cancel()
	}
}

// Len reports the number of live browser sessions, for the active sessions
// gauge.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
