package api

import (
	"context"

	"todo-api/domain"
)

// Accounts covers registration, login and identity resolution.
type Accounts interface {
	Register(ctx context.Context, in domain.RegisterInput) (domain.Session, error)
	Login(ctx context.Context, in domain.LoginInput) (domain.Session, error)
	Identify(ctx context.Context, userID string) (domain.User, error)
}

// Tasks is the owner-scoped task service used by handlers.
type Tasks interface {
	List(ctx context.Context, ownerID string) ([]domain.Task, error)
	Get(ctx context.Context, ownerID, taskID string) (domain.Task, error)
	Create(ctx context.Context, ownerID string, in domain.CreateTaskInput) (domain.Task, error)
	Update(ctx context.Context, ownerID, taskID string, in domain.UpdateTaskInput) (domain.Task, error)
	Delete(ctx context.Context, ownerID, taskID string) (domain.Task, error)
}

// TokenVerifier checks a bearer token and returns the user id it was issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error
