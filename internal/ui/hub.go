package ui

import (
	"net/http"
	"sync"

	"github.com/biodiversity-atlas/publishing-ui/internal/publishapi"
	"github.com/gorilla/mux"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// statusHubs fans polled job statuses out to the websocket subscribers of
// each publishing request.
type statusHubs struct {
	mu   sync.Mutex
	subs map[string]map[chan *publishapi.JobStatus]struct{}
}

func newStatusHubs() *statusHubs {
	return &statusHubs{subs: map[string]map[chan *publishapi.JobStatus]struct{}{}}
}

func (h *statusHubs) Subscribe(requestID string) (chan *publishapi.JobStatus, func()) {
	ch := make(chan *publishapi.JobStatus, 4)
	h.mu.Lock()
	set := h.subs[requestID]
	if set == nil {
		set = map[chan *publishapi.JobStatus]struct{}{}
		h.subs[requestID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[requestID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(h.subs, requestID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Broadcast delivers a status to every subscriber. A subscriber that cannot
// keep up misses intermediate statuses rather than blocking the poller.
func (h *statusHubs) Broadcast(requestID string, status *publishapi.JobStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[requestID] {
		select {
		case ch <- status:
		default:
		}
	}
}

// statusSocket pushes live job statuses to the browser. The current status is
// sent on connect, then every status the poller applies until the job
// reaches a terminal state.
func (s *Server) statusSocket(w http.ResponseWriter, r *http.Request) {
	requestID := mux.Vars(r)["request_id"]

	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		logger.Warn("websocket accept failed", "error", err.Error())
		return
	}
	defer c.CloseNow()

	ch, cancel := s.hubs.Subscribe(requestID)
	defer cancel()

	ctx := r.Context()
	if status, err := s.api.Status(ctx, requestID); err == nil {
		if err := wsjson.Write(ctx, c, status); err != nil {
			return
		}
		if publishapi.TerminalState(status.State) {
			c.Close(websocket.StatusNormalClosure, "")
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case status := <-ch:
			if err := wsjson.Write(ctx, c, status); err != nil {
				return
			}
			if publishapi.TerminalState(status.State) {
				c.Close(websocket.StatusNormalClosure, "")
				return
			}
		}
	}
}
