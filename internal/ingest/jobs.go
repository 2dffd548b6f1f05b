package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusComplete   = "complete"
	StatusError      = "error"
	StatusNotFound   = "not_found"
)

// JobStatus is what /upload-status reports for a job.
type JobStatus struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"-"`
}

// Finished reports whether the job reached a terminal status.
func (s JobStatus) Finished() bool {
	return s.Status == StatusComplete || s.Status == StatusError
}

// NotFoundStatus is reported for ids the store does not know.
func NotFoundStatus() JobStatus {
	return JobStatus{Status: StatusNotFound, Message: "Job ID not found."}
}

// JobStore keeps the latest status per job id. Writers of different ids
// never block each other beyond the store's own key-level locking.
type JobStore interface {
	Set(ctx context.Context, id string, status JobStatus) error
	Get(ctx context.Context, id string) (JobStatus, bool, error)
	// Prune removes finished jobs last updated before cutoff.
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// NewJobStore selects "memory" (default) or "redis".
func NewJobStore(kind string, client *redis.Client) (JobStore, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "memory":
		return NewMemoryJobs(), nil
	case "redis":
		if client == nil {
			return nil, errors.New("redis job store requires a redis client")
		}
		return NewRedisJobs(client), nil
	default:
		return nil, fmt.Errorf("unsupported job store %q", kind)
	}
}

// MemoryJobs is a process-local JobStore.
type MemoryJobs struct {
	jobs sync.Map
}

func NewMemoryJobs() *MemoryJobs { return &MemoryJobs{} }

func (m *MemoryJobs) Set(_ context.Context, id string, status JobStatus) error {
	if status.UpdatedAt.IsZero() {
		status.UpdatedAt = time.Now()
	}
	m.jobs.Store(id, status)
	return nil
}

func (m *MemoryJobs) Get(_ context.Context, id string) (JobStatus, bool, error) {
	v, ok := m.jobs.Load(id)
	if !ok {
		return JobStatus{}, false, nil
	}
	return v.(JobStatus), true, nil
}

func (m *MemoryJobs) Prune(_ context.Context, cutoff time.Time) (int, error) {
	n := 0
	m.jobs.Range(func(k, v any) bool {
		st := v.(JobStatus)
		if st.Finished() && st.UpdatedAt.Before(cutoff) {
			m.jobs.Delete(k)
			n++
		}
		return true
	})
	return n, nil
}

const jobKeyPrefix = "ragagent:ingest:job:"

// RedisJobs shares job status across replicas.
type RedisJobs struct {
	client *redis.Client
}

func NewRedisJobs(client *redis.Client) *RedisJobs { return &RedisJobs{client: client} }

type redisJob struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updated_at"`
}

func jobKey(id string) string { return jobKeyPrefix + id }

func (r *RedisJobs) Set(ctx context.Context, id string, status JobStatus) error {
	if status.UpdatedAt.IsZero() {
		status.UpdatedAt = time.Now()
	}
	data, err := json.Marshal(redisJob(status))
	if err != nil {
		return err
	}
	return r.client.Set(ctx, jobKey(id), data, 0).Err()
}

func (r *RedisJobs) Get(ctx context.Context, id string) (JobStatus, bool, error) {
	val, err := r.client.Get(ctx, jobKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return JobStatus{}, false, nil
	}
	if err != nil {
		return JobStatus{}, false, err
	}
	var rec redisJob
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return JobStatus{}, false, fmt.Errorf("decode job %s: %w", id, err)
	}
	return JobStatus(rec), true, nil
}

func (r *RedisJobs) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	n := 0
	iter := r.client.Scan(ctx, 0, jobKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		st, ok, err := r.Get(ctx, strings.TrimPrefix(key, jobKeyPrefix))
		if err != nil || !ok {
			continue
		}
		if st.Finished() && st.UpdatedAt.Before(cutoff) {
			if err := r.client.Del(ctx, key).Err(); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, iter.Err()
}
