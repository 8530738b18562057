package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// TaskStorage persists tasks. Every method is scoped to an owner; a task
// belonging to another owner is reported the same way as a missing one.
type TaskStorage interface {
	ListTasks(ctx context.Context, ownerID string) ([]Task, error)
	// GetTask returns nil, nil when the owner has no task with that id.
	GetTask(ctx context.Context, ownerID, taskID string) (*Task, error)
	InsertTask(ctx context.Context, t Task) error
	// UpdateTask replaces the stored task and returns ErrNotFound if it is gone.
	UpdateTask(ctx context.Context, t Task) error
	// DeleteTask returns ErrNotFound if the task is gone.
	DeleteTask(ctx context.Context, ownerID, taskID string) error
}

// TaskService implements owner-scoped task CRUD.
type TaskService struct {
	st     TaskStorage
	events EventPublisher
	now    func() time.Time
	newID  func() string
}

func NewTaskService(st TaskStorage, events EventPublisher) *TaskService {
	if events == nil {
		events = NopPublisher{}
	}
	return &TaskService{st: st, events: events, now: time.Now, newID: uuid.NewString}
}

// List returns the owner's tasks, newest first.
func (s *TaskService) List(ctx context.Context, ownerID string) ([]Task, error) {
	tasks, err := s.st.ListTasks(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []Task{}
	}
	return tasks, nil
}

// Get returns a single task owned by ownerID.
func (s *TaskService) Get(ctx context.Context, ownerID, taskID string) (Task, error) {
	if err := ValidateTaskID(taskID); err != nil {
		return Task{}, err
	}
	t, err := s.st.GetTask(ctx, ownerID, taskID)
	if err != nil {
		return Task{}, fmt.Errorf("get task: %w", err)
	}
	if t == nil {
		return Task{}, ErrNotFound
	}
	return *t, nil
}

// Create stores a new task owned by ownerID.
func (s *TaskService) Create(ctx context.Context, ownerID string, in CreateTaskInput) (Task, error) {
	title, completed, err := ValidateCreateTask(in)
	if err != nil {
		return Task{}, err
	}
	now := s.timestamp()
	t := Task{
		ID:        s.newID(),
		Title:     title,
		Completed: completed,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.st.InsertTask(ctx, t); err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}
	s.publish(ctx, TaskCreated, t)
	return t, nil
}

// Update applies a partial update to a task owned by ownerID.
func (s *TaskService) Update(ctx context.Context, ownerID, taskID string, in UpdateTaskInput) (Task, error) {
	in, err := ValidateUpdateTask(taskID, in)
	if err != nil {
		return Task{}, err
	}
	cur, err := s.st.GetTask(ctx, ownerID, taskID)
	if err != nil {
		return Task{}, fmt.Errorf("get task: %w", err)
	}
	if cur == nil {
		return Task{}, ErrNotFound
	}
	if in.Empty() {
		return *cur, nil
	}
	t := *cur
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Completed != nil {
		t.Completed = *in.Completed
	}
	t.UpdatedAt = s.timestamp()
	if err := s.st.UpdateTask(ctx, t); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Task{}, ErrNotFound
		}
		return Task{}, fmt.Errorf("update task: %w", err)
	}
	s.publish(ctx, TaskUpdated, t)
	return t, nil
}

// Delete removes a task owned by ownerID and returns the removed snapshot.
func (s *TaskService) Delete(ctx context.Context, ownerID, taskID string) (Task, error) {
	if err := ValidateTaskID(taskID); err != nil {
		return Task{}, err
	}
	cur, err := s.st.GetTask(ctx, ownerID, taskID)
	if err != nil {
		return Task{}, fmt.Errorf("get task: %w", err)
	}
	if cur == nil {
		return Task{}, ErrNotFound
	}
	if err := s.st.DeleteTask(ctx, ownerID, taskID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Task{}, ErrNotFound
		}
		return Task{}, fmt.Errorf("delete task: %w", err)
	}
	s.publish(ctx, TaskDeleted, *cur)
	return *cur, nil
}

// timestamp is the current time at the millisecond precision the stores keep.
func (s *TaskService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

func (s *TaskService) publish(ctx context.Context, typ string, t Task) {
	ev := Event{
		Type:       typ,
		EntityType: EntityTask,
		EntityID:   t.ID,
		UserID:     t.OwnerID,
		Timestamp:  s.now().UnixNano(),
		Data:       t,
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		log.WithFields(log.Fields{"event": typ, "task": t.ID}).WithError(err).Warn("publish event failed")
	}
}
