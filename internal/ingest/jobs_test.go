package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func exerciseJobStore(t *testing.T, store JobStore) {
	t.Helper()
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)

	if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected missing job, got ok=%v err=%v", ok, err)
	}
	if err := store.Set(ctx, "a", JobStatus{Status: StatusPending, Message: "Upload received, job is starting."}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	st, ok, err := store.Get(ctx, "a")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if st.Status != StatusPending || st.UpdatedAt.IsZero() {
		t.Fatalf("unexpected status %+v", st)
	}

	_ = store.Set(ctx, "done-old", JobStatus{Status: StatusComplete, Message: "Successfully ingested 2 chunks.", UpdatedAt: old})
	_ = store.Set(ctx, "failed-old", JobStatus{Status: StatusError, Message: "An error occurred: boom", UpdatedAt: old})
	_ = store.Set(ctx, "running-old", JobStatus{Status: StatusProcessing, Message: "Loading document content...", UpdatedAt: old})
	_ = store.Set(ctx, "done-new", JobStatus{Status: StatusComplete, Message: "Successfully ingested 1 chunks."})

	n, err := store.Prune(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 pruned jobs, got %d", n)
	}
	for id, want := range map[string]bool{"a": true, "done-old": false, "failed-old": false, "running-old": true, "done-new": true} {
		if _, ok, _ := store.Get(ctx, id); ok != want {
			t.Fatalf("job %s: expected present=%v", id, want)
		}
	}
}

func TestMemoryJobs(t *testing.T) {
	exerciseJobStore(t, NewMemoryJobs())
}

func TestRedisJobs(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	exerciseJobStore(t, NewRedisJobs(client))
}

func TestNewJobStore(t *testing.T) {
	if s, err := NewJobStore("", nil); err != nil {
		t.Fatalf("default store: %v", err)
	} else if _, ok := s.(*MemoryJobs); !ok {
		t.Fatalf("expected memory store, got %T", s)
	}
	if _, err := NewJobStore("redis", nil); err == nil {
		t.Fatal("expected error for redis without client")
	}
	if _, err := NewJobStore("etcd", nil); err == nil {
		t.Fatal("expected error for unknown store")
	}
}

func TestNotFoundStatus(t *testing.T) {
	st := NotFoundStatus()
	if st.Status != "not_found" || st.Message != "Job ID not found." {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestJanitorSweep(t *testing.T) {
	jobs := NewMemoryJobs()
	now := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	ctx := context.Background()
	_ = jobs.Set(ctx, "stale", JobStatus{Status: StatusComplete, UpdatedAt: now.Add(-2 * time.Hour)})
	_ = jobs.Set(ctx, "fresh", JobStatus{Status: StatusComplete, UpdatedAt: now.Add(-10 * time.Minute)})

	j, err := NewJanitor(jobs, "0 * * * *", time.Hour, nil)
	if err != nil {
		t.Fatalf("NewJanitor: %v", err)
	}
	j.now = func() time.Time { return now }

	if next := j.Next(now); !next.Equal(time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected next run %v", next)
	}
	n, err := j.Sweep(ctx)
	if err != nil || n != 1 {
		t.Fatalf("expected 1 pruned job, got %d (%v)", n, err)
	}
	if _, ok, _ := jobs.Get(ctx, "fresh"); !ok {
		t.Fatal("fresh job should be kept")
	}
}

func TestJanitorRejectsBadSchedule(t *testing.T) {
	if _, err := NewJanitor(NewMemoryJobs(), "every tuesday", time.Hour, nil); err == nil {
		t.Fatal("expected schedule parse error")
	}
}
