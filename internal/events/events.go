// Package events maintains the recent publishing runs feed: the service's
// run list enriched with dataset names resolved through the registry.
package events

import (
	"context"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/biodiversity-atlas/publishing-ui/internal/collectory"
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

const nameCacheTTL = 12 * time.Hour

type RunLister interface {
	Events(ctx context.Context) ([]publishapi.JobRun, error)
}

type Resolver interface {
	Lookup(ctx context.Context, uid string) (*collectory.DataResource, error)
}

// Feed caches the latest run list and refreshes it on a fixed interval while
// running.
type Feed struct {
	lister   RunLister
	resolver Resolver
	cache    Cache
	Interval time.Duration

	mu        sync.RWMutex
	runs      []publishapi.JobRun
	refreshed time.Time
}

func NewFeed(lister RunLister, resolver Resolver, cache Cache) *Feed {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Feed{
		lister:   lister,
		resolver: resolver,
		cache:    cache,
		Interval: 30 * time.Second,
	}
}

// Runs returns the last refreshed run list and when it was fetched.
func (f *Feed) Runs() ([]publishapi.JobRun, time.Time) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.runs, f.refreshed
}

// Refresh fetches the run list once and resolves any dataset names the feed
// has not seen before. A failed registry lookup leaves the id as the display
// name rather than failing the refresh.
func (f *Feed) Refresh(ctx context.Context) error {
	runs, err := f.lister.Events(ctx)
	if err != nil {
		return err
	}

	for i := range runs {
		for j := range runs[i].Datasets {
			ds := &runs[i].Datasets[j]
			if ds.DatasetName != "" || ds.DatasetId == "" {
				continue
			}
			ds.DatasetName = f.resolveName(ctx, ds.DatasetId)
		}
	}

	f.mu.Lock()
	f.runs = runs
	f.refreshed = time.Now()
	f.mu.Unlock()
	return nil
}

func (f *Feed) resolveName(ctx context.Context, uid string) string {
	if name, ok := f.cache.Get(ctx, "dataset-name:"+uid); ok {
		return name
	}
	if f.resolver == nil {
		return uid
	}
	dr, err := f.resolver.Lookup(ctx, uid)
	if err != nil || dr.Name == "" {
		logger.Warn("failed to resolve dataset name", "uid", uid)
		return uid
	}
	f.cache.Set(ctx, "dataset-name:"+uid, dr.Name, nameCacheTTL)
	return dr.Name
}

// Run refreshes the feed on its interval until the context is cancelled.
func (f *Feed) Run(ctx context.Context) {
	if err := f.Refresh(ctx); err != nil {
		logger.Warn("initial events refresh failed", "error", err.Error())
	}
	ticker := time.NewTicker(f.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.Refresh(ctx); err != nil {
				logger.Warn("events refresh failed", "error", err.Error())
			}
		}
	}
}
