package domain

import "time"

// Task is a single item on a user's list.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	OwnerID   string    `json:"owner"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateTaskInput carries the client supplied fields of a new task.
type CreateTaskInput struct {
	Title     *string
	Completed *bool
}

// UpdateTaskInput carries a partial update. Nil fields are left unchanged.
type UpdateTaskInput struct {
	Title     *string
	Completed *bool
}

// Empty reports whether the update changes nothing.
func (in UpdateTaskInput) Empty() bool {
	return in.Title == nil && in.Completed == nil
}
