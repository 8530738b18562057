package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"todo-api/domain"
)

type stubBackend struct {
	listTasksFn  func(ctx context.Context, ownerID string) ([]domain.Task, error)
	getTaskFn    func(ctx context.Context, ownerID, taskID string) (*domain.Task, error)
	insertTaskFn func(ctx context.Context, t domain.Task) error
	updateTaskFn func(ctx context.Context, t domain.Task) error
	deleteTaskFn func(ctx context.Context, ownerID, taskID string) error
}

func (s *stubBackend) ListTasks(ctx context.Context, ownerID string) ([]domain.Task, error) {
	if s.listTasksFn == nil {
		return nil, errors.New("unexpected ListTasks call")
	}
	return s.listTasksFn(ctx, ownerID)
}

func (s *stubBackend) GetTask(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	if s.getTaskFn == nil {
		return nil, errors.New("unexpected GetTask call")
	}
	return s.getTaskFn(ctx, ownerID, taskID)
}

func (s *stubBackend) InsertTask(ctx context.Context, t domain.Task) error {
	if s.insertTaskFn == nil {
		return errors.New("unexpected InsertTask call")
	}
	return s.insertTaskFn(ctx, t)
}

func (s *stubBackend) UpdateTask(ctx context.Context, t domain.Task) error {
	if s.updateTaskFn == nil {
		return errors.New("unexpected UpdateTask call")
	}
	return s.updateTaskFn(ctx, t)
}

func (s *stubBackend) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	if s.deleteTaskFn == nil {
		return errors.New("unexpected DeleteTask call")
	}
	return s.deleteTaskFn(ctx, ownerID, taskID)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func sampleTasks() []domain.Task {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return []domain.Task{{ID: "t1", OwnerID: "user-1", Title: "Write code", CreatedAt: at, UpdatedAt: at}}
}

func TestCacheListTasksMissThenHit(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()
	expected := sampleTasks()

	var calls int
	cache := NewCache(&stubBackend{
		listTasksFn: func(ctx context.Context, owner string) ([]domain.Task, error) {
			calls++
			if owner != "user-1" {
				t.Fatalf("unexpected owner: %s", owner)
			}
			return append([]domain.Task(nil), expected...), nil
		},
	}, client, time.Minute)

	tasks, err := cache.ListTasks(ctx, "user-1")
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if !reflect.DeepEqual(tasks, expected) {
		t.Fatalf("unexpected tasks: %#v", tasks)
	}
	if ttl := mr.TTL(tasksCacheKey("user-1")); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected TTL: %v", ttl)
	}

	cached, err := cache.ListTasks(ctx, "user-1")
	if err != nil {
		t.Fatalf("list cached tasks: %v", err)
	}
	if !reflect.DeepEqual(cached, expected) {
		t.Fatalf("unexpected cached tasks: %#v", cached)
	}
	if calls != 1 {
		t.Fatalf("expected cached list to avoid backend, calls=%d", calls)
	}
}

func TestCacheEmptyListIsCachedAsEmpty(t *testing.T) {
	_, client := newTestRedis(t)
	ctx := context.Background()

	var calls int
	cache := NewCache(&stubBackend{
		listTasksFn: func(context.Context, string) ([]domain.Task, error) {
			calls++
			return []domain.Task{}, nil
		},
	}, client, time.Minute)

	for i := 0; i < 2; i++ {
		tasks, err := cache.ListTasks(ctx, "user-1")
		if err != nil {
			t.Fatalf("list tasks: %v", err)
		}
		if tasks == nil || len(tasks) != 0 {
			t.Fatalf("expected empty non-nil list, got %#v", tasks)
		}
	}
	if calls != 1 {
		t.Fatalf("expected one backend call, got %d", calls)
	}
}

func TestCacheWritesEvictOwnerList(t *testing.T) {
	tests := []struct {
		name  string
		write func(c *Cache) error
	}{
		{name: "insert", write: func(c *Cache) error { return c.InsertTask(context.Background(), sampleTasks()[0]) }},
		{name: "update", write: func(c *Cache) error { return c.UpdateTask(context.Background(), sampleTasks()[0]) }},
		{name: "delete", write: func(c *Cache) error { return c.DeleteTask(context.Background(), "user-1", "t1") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mr, client := newTestRedis(t)
			backend := &stubBackend{
				listTasksFn:  func(context.Context, string) ([]domain.Task, error) { return sampleTasks(), nil },
				insertTaskFn: func(context.Context, domain.Task) error { return nil },
				updateTaskFn: func(context.Context, domain.Task) error { return nil },
				deleteTaskFn: func(context.Context, string, string) error { return nil },
			}
			cache := NewCache(backend, client, time.Minute)
			if _, err := cache.ListTasks(context.Background(), "user-1"); err != nil {
				t.Fatalf("prime cache: %v", err)
			}
			if !mr.Exists(tasksCacheKey("user-1")) {
				t.Fatalf("expected cache to be primed")
			}
			if err := tt.write(cache); err != nil {
				t.Fatalf("write: %v", err)
			}
			if mr.Exists(tasksCacheKey("user-1")) {
				t.Fatalf("expected cache entry to be evicted")
			}
		})
	}
}

func TestCacheFailedWriteKeepsEntry(t *testing.T) {
	mr, client := newTestRedis(t)
	boom := errors.New("store down")
	cache := NewCache(&stubBackend{
		listTasksFn:  func(context.Context, string) ([]domain.Task, error) { return sampleTasks(), nil },
		insertTaskFn: func(context.Context, domain.Task) error { return boom },
	}, client, time.Minute)
	if _, err := cache.ListTasks(context.Background(), "user-1"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	if err := cache.InsertTask(context.Background(), sampleTasks()[0]); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if !mr.Exists(tasksCacheKey("user-1")) {
		t.Fatalf("cache must not be evicted when the write fails")
	}
}

func TestCacheCorruptEntryFallsBack(t *testing.T) {
	mr, client := newTestRedis(t)
	if err := mr.Set(tasksCacheKey("user-1"), "{not json"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var calls int
	cache := NewCache(&stubBackend{
		listTasksFn: func(context.Context, string) ([]domain.Task, error) {
			calls++
			return sampleTasks(), nil
		},
	}, client, time.Minute)

	tasks, err := cache.ListTasks(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if calls != 1 || len(tasks) != 1 {
		t.Fatalf("expected backend fallback, calls=%d tasks=%#v", calls, tasks)
	}
}

func TestCacheRedisDownFallsBack(t *testing.T) {
	mr, client := newTestRedis(t)
	mr.Close()
	cache := NewCache(&stubBackend{
		listTasksFn: func(context.Context, string) ([]domain.Task, error) { return sampleTasks(), nil },
	}, client, time.Minute)

	tasks, err := cache.ListTasks(context.Background(), "user-1")
	if err != nil || len(tasks) != 1 {
		t.Fatalf("expected backend result with redis down, got %#v %v", tasks, err)
	}
}

func TestCacheGetTaskPassesThrough(t *testing.T) {
	want := sampleTasks()[0]
	cache := NewCache(&stubBackend{
		getTaskFn: func(ctx context.Context, owner, id string) (*domain.Task, error) {
			if owner != "user-1" || id != "t1" {
				t.Fatalf("unexpected args %s %s", owner, id)
			}
			return &want, nil
		},
	}, nil, time.Minute)

	got, err := cache.GetTask(context.Background(), "user-1", "t1")
	if err != nil || got == nil || *got != want {
		t.Fatalf("unexpected result: %v %v", got, err)
	}
}

func TestNewCachePanicsOnNilBase(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	NewCache(nil, nil, time.Minute)
}

func TestCacheListOverlappingWriteIsNotServed(t *testing.T) {
	mr, client := newTestRedis(t)
	ctx := context.Background()

	var cache *Cache
	var calls int
	backend := &stubBackend{
		insertTaskFn: func(context.Context, domain.Task) error { return nil },
	}
	backend.listTasksFn = func(ctx context.Context, owner string) ([]domain.Task, error) {
		calls++
		if calls == 1 {
			// A write lands after the base read has taken its snapshot.
			if err := cache.InsertTask(ctx, sampleTasks()[0]); err != nil {
				t.Fatalf("insert: %v", err)
			}
			return []domain.Task{}, nil
		}
		return sampleTasks(), nil
	}
	cache = NewCache(backend, client, time.Minute)

	stale, err := cache.ListTasks(ctx, "user-1")
	if err != nil || len(stale) != 0 {
		t.Fatalf("first list: %#v %v", stale, err)
	}
	if !mr.Exists(tasksCacheKey("user-1")) {
		t.Fatalf("expected the stale snapshot to be written")
	}

	fresh, err := cache.ListTasks(ctx, "user-1")
	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	if calls != 2 || len(fresh) != 1 {
		t.Fatalf("expected stale entry to be skipped, calls=%d tasks=%#v", calls, fresh)
	}

	if _, err := cache.ListTasks(ctx, "user-1"); err != nil || calls != 2 {
		t.Fatalf("expected fresh entry to be served from cache, calls=%d err=%v", calls, err)
	}
}

func TestCacheEvictBumpsGeneration(t *testing.T) {
	mr, client := newTestRedis(t)
	cache := NewCache(&stubBackend{
		deleteTaskFn: func(context.Context, string, string) error { return nil },
	}, client, time.Minute)

	for i := 0; i < 2; i++ {
		if err := cache.DeleteTask(context.Background(), "user-1", "t1"); err != nil {
			t.Fatalf("delete: %v", err)
		}
	}
	gen, err := mr.Get(tasksGenKey("user-1"))
	if err != nil || gen != "2" {
		t.Fatalf("expected generation 2, got %q %v", gen, err)
	}
	if ttl := mr.TTL(tasksGenKey("user-1")); ttl != 0 {
		t.Fatalf("generation key must not expire, ttl=%v", ttl)
	}
}
