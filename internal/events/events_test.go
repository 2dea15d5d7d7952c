package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/biodiversity-atlas/publishing-ui/internal/collectory"
	"github.com/biodiversity-atlas/publishing-ui/internal/models"
	"github.com/biodiversity-atlas/publishing-ui/internal/publishapi"
)

type fakeLister struct {
	runs []publishapi.JobRun
	err  error
}

func (f *fakeLister) Events(ctx context.Context) ([]publishapi.JobRun, error) {
	return f.runs, f.err
}

type fakeResolver struct {
	names   map[string]string
	lookups int
}

func (f *fakeResolver) Lookup(ctx context.Context, uid string) (*collectory.DataResource, error) {
	f.lookups++
	name, ok := f.names[uid]
	if !ok {
		return nil, errors.New("not found")
	}
	return &collectory.DataResource{UID: uid, Name: name}, nil
}

func TestRefreshResolvesDatasetNames(t *testing.T) {
	lister := &fakeLister{runs: []publishapi.JobRun{
		{ID: "run-1", State: publishapi.JobSuccess, Datasets: []publishapi.RunDataset{
			{DatasetId: "dr1"},
			{DatasetId: "dr2", DatasetName: "Already Named"},
		}},
	}}
	resolver := &fakeResolver{names: map[string]string{"dr1": "Frog Survey"}}

	feed := NewFeed(lister, resolver, nil)
	if err := feed.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	runs, refreshed := feed.Runs()
	if refreshed.IsZero() {
		t.Error("refresh time not recorded")
	}
	if runs[0].Datasets[0].DatasetName != "Frog Survey" {
		t.Errorf("resolved name = %q", runs[0].Datasets[0].DatasetName)
	}
	if runs[0].Datasets[1].DatasetName != "Already Named" {
		t.Error("pre-named datasets must not be re-resolved")
	}
	if resolver.lookups != 1 {
		t.Errorf("lookups = %d, want 1", resolver.lookups)
	}
}

func TestRefreshCachesLookups(t *testing.T) {
	lister := &fakeLister{runs: []publishapi.JobRun{
		{ID: "run-1", Datasets: []publishapi.RunDataset{{DatasetId: "dr1"}}},
	}}
	resolver := &fakeResolver{names: map[string]string{"dr1": "Frog Survey"}}

	feed := NewFeed(lister, resolver, nil)
	for i := 0; i < 3; i++ {
		if err := feed.Refresh(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	if resolver.lookups != 1 {
		t.Errorf("lookups = %d, repeated refreshes must hit the cache", resolver.lookups)
	}
}

func TestRefreshKeepsIDOnFailedLookup(t *testing.T) {
	lister := &fakeLister{runs: []publishapi.JobRun{
		{ID: "run-1", Datasets: []publishapi.RunDataset{{DatasetId: "dr-unknown"}}},
	}}
	resolver := &fakeResolver{names: map[string]string{}}

	feed := NewFeed(lister, resolver, nil)
	if err := feed.Refresh(context.Background()); err != nil {
		t.Fatalf("a failed lookup must not fail the refresh: %v", err)
	}

	runs, _ := feed.Runs()
	if runs[0].Datasets[0].DatasetName != "dr-unknown" {
		t.Errorf("name = %q, want the id as fallback", runs[0].Datasets[0].DatasetName)
	}
}

func TestRefreshPropagatesListError(t *testing.T) {
	lister := &fakeLister{err: errors.New("service unavailable")}
	feed := NewFeed(lister, nil, nil)

	if err := feed.Refresh(context.Background()); err == nil {
		t.Error("expected list error to propagate")
	}
	if _, refreshed := feed.Runs(); !refreshed.IsZero() {
		t.Error("failed refresh must not update the timestamp")
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	cache.Set(ctx, "k", "v", 10*time.Millisecond)
	if v, ok := cache.Get(ctx, "k"); !ok || v != "v" {
		t.Fatalf("Get = %q, %v", v, ok)
	}

	time.Sleep(20 * time.Millisecond)
	if _, ok := cache.Get(ctx, "k"); ok {
		t.Error("expired entry still readable")
	}

	// zero ttl means no expiry
	cache.Set(ctx, "k2", "v2", 0)
	if _, ok := cache.Get(ctx, "k2"); !ok {
		t.Error("entry without ttl expired")
	}
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache, err := NewRedisCache("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisCache: %v", err)
	}

	ctx := context.Background()
	if _, ok := cache.Get(ctx, "missing"); ok {
		t.Error("missing key reported present")
	}

	cache.Set(ctx, "dataset-name:dr1", "Frog Survey", time.Hour)
	if v, ok := cache.Get(ctx, "dataset-name:dr1"); !ok || v != "Frog Survey" {
		t.Errorf("Get = %q, %v", v, ok)
	}

	if rsp := cache.Health(ctx); rsp.Status != models.STATUS_UP {
		t.Errorf("health = %+v", rsp)
	}

	mr.FastForward(2 * time.Hour)
	if _, ok := cache.Get(ctx, "dataset-name:dr1"); ok {
		t.Error("entry survived its ttl")
	}
}

func TestRedisCacheBadConnectionString(t *testing.T) {
	if _, err := NewRedisCache("not-a-url"); err == nil {
		t.Error("expected parse error")
	}
}

func TestFeedRunStopsOnCancel(t *testing.T) {
	lister := &fakeLister{}
	feed := NewFeed(lister, nil, nil)
	feed.Interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		feed.Run(ctx)
		close(stopped)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}
}
