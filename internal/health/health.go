package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/biodiversity-atlas/publishing-ui/internal/models"
)

// Checkable is any dependency that can report its own health.
type Checkable interface {
	Health(ctx context.Context) models.ServiceHealthResp
}

var (
	mu     sync.RWMutex
	checks []Checkable
)

func Register(c ...Checkable) {
	mu.Lock()
	defer mu.Unlock()
	checks = append(checks, c...)
}

type Response struct {
	Status     string                     `json:"status"`
	ServerTime string                     `json:"server_time"`
	Services   []models.ServiceHealthResp `json:"services"`
}

func Check(ctx context.Context) Response {
	mu.RLock()
	defer mu.RUnlock()

	rsp := Response{
		Status:     models.STATUS_UP,
		ServerTime: time.Now().Format(time.RFC3339),
	}
	for _, c := range checks {
		svc := c.Health(ctx)
		if svc.Status != models.STATUS_UP {
			rsp.Status = models.STATUS_DEGRADED
		}
		rsp.Services = append(rsp.Services, svc)
	}
	return rsp
}

func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Check(r.Context()))
	})
}
