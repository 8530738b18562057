package storage

import (
	"context"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"todo-api/domain"
)

// Cache wraps a task store with a Redis-backed cache of each owner's task list.
type Cache struct {
	base  domain.TaskStorage
	redis *redis.Client
	ttl   time.Duration
}

// NewCache creates a caching task store using the provided Redis client and TTL.
func NewCache(base domain.TaskStorage, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &Cache{base: base, redis: client, ttl: ttl}
}

// ListTasks serves the owner's list from Redis when the cached entry was
// written under the current generation. Writes bump the generation, so a list
// read from the base store while a write was landing is never served.
func (c *Cache) ListTasks(ctx context.Context, ownerID string) ([]domain.Task, error) {
	tasks, gen, ok := c.loadTasks(ctx, ownerID)
	if ok {
		return tasks, nil
	}

	tasks, err := c.base.ListTasks(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	c.storeTasks(ctx, ownerID, gen, tasks)
	return tasks, nil
}

func (c *Cache) GetTask(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	return c.base.GetTask(ctx, ownerID, taskID)
}

func (c *Cache) InsertTask(ctx context.Context, t domain.Task) error {
	if err := c.base.InsertTask(ctx, t); err != nil {
		return err
	}
	c.evict(ctx, t.OwnerID)
	return nil
}

func (c *Cache) UpdateTask(ctx context.Context, t domain.Task) error {
	if err := c.base.UpdateTask(ctx, t); err != nil {
		return err
	}
	c.evict(ctx, t.OwnerID)
	return nil
}

func (c *Cache) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	if err := c.base.DeleteTask(ctx, ownerID, taskID); err != nil {
		return err
	}
	c.evict(ctx, ownerID)
	return nil
}

type cachedTasks struct {
	Gen   int64         `json:"gen"`
	Tasks []domain.Task `json:"tasks"`
}

// loadTasks returns the cached list and the owner's current generation. A
// negative generation means Redis could not be read and nothing may be stored.
func (c *Cache) loadTasks(ctx context.Context, ownerID string) ([]domain.Task, int64, bool) {
	if c.redis == nil {
		return nil, -1, false
	}
	vals, err := c.redis.MGet(ctx, tasksCacheKey(ownerID), tasksGenKey(ownerID)).Result()
	if err != nil || len(vals) != 2 {
		// On redis errors fall back to the backing storage without failing.
		log.WithError(err).Debug("tasks cache read failed")
		return nil, -1, false
	}

	var gen int64
	if raw, ok := vals[1].(string); ok {
		if gen, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, -1, false
		}
	}
	data, ok := vals[0].(string)
	if !ok {
		return nil, gen, false
	}
	var entry cachedTasks
	if err := sonic.UnmarshalString(data, &entry); err != nil || entry.Gen != gen {
		_ = c.redis.Del(ctx, tasksCacheKey(ownerID)).Err()
		return nil, gen, false
	}
	if entry.Tasks == nil {
		entry.Tasks = []domain.Task{}
	}
	return entry.Tasks, gen, true
}

func (c *Cache) storeTasks(ctx context.Context, ownerID string, gen int64, tasks []domain.Task) {
	if c.redis == nil || c.ttl == 0 || gen < 0 {
		return
	}
	data, err := sonic.Marshal(cachedTasks{Gen: gen, Tasks: tasks})
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, tasksCacheKey(ownerID), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, ownerID string) {
	if c.redis == nil {
		return
	}
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, tasksGenKey(ownerID))
		pipe.Del(ctx, tasksCacheKey(ownerID))
		return nil
	})
	if err != nil {
		log.WithField("owner", ownerID).WithError(err).Warn("tasks cache evict failed")
	}
}

func tasksCacheKey(ownerID string) string {
	return "tasks:" + ownerID
}

// tasksGenKey holds the owner's write generation. It never expires.
func tasksGenKey(ownerID string) string {
	return "tasks-gen:" + ownerID
}

var _ domain.TaskStorage = (*Cache)(nil)
