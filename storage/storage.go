package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"todo-api/domain"
)

// Tables names the Azure tables backing the store.
type Tables struct {
	Users      string
	UserEmails string
	Tasks      string
}

// Storage is the Azure Table Storage implementation of the user and task stores.
type Storage struct {
	userTable  *aztables.Client
	emailTable *aztables.Client
	taskTable  *aztables.Client
}

// clientOptions disables SDK retries so a failed call surfaces immediately.
func clientOptions() azcore.ClientOptions {
	return azcore.ClientOptions{
		Retry: policy.RetryOptions{
			MaxRetries: -1,
			TryTimeout: 30 * time.Second,
		},
	}
}

// New creates a Storage instance from the given connection string.
func New(connStr string, tables Tables) (*Storage, error) {
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &aztables.ClientOptions{ClientOptions: clientOptions()})
	if err != nil {
		return nil, fmt.Errorf("table service client: %w", err)
	}
	return &Storage{
		userTable:  svc.NewClient(tables.Users),
		emailTable: svc.NewClient(tables.UserEmails),
		taskTable:  svc.NewClient(tables.Tasks),
	}, nil
}

func statusCode(err error) int {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}
	return 0
}

// healthKey addresses a row that is never written; reading it checks that
// the service and the users table answer.
const healthKey = "healthz"

// Ping reads the sentinel row from the users table.
func (s *Storage) Ping(ctx context.Context) error {
	_, err := s.userTable.GetEntity(ctx, healthKey, healthKey, nil)
	if err != nil && !missingRow(err) {
		return fmt.Errorf("ping users table: %w", err)
	}
	return nil
}

// missingRow reports a 404 for an absent entity, as opposed to an absent table.
func missingRow(err error) bool {
	return statusCode(err) == http.StatusNotFound && !hasErrorCode(err, tableNotFound)
}

// CreateUser reserves the email row first; a conflict there means the email is taken.
func (s *Storage) CreateUser(ctx context.Context, u domain.User) error {
	key := emailKey(u.Email)
	emailPayload, err := sonic.Marshal(emailEntity{Entity: Entity{PartitionKey: key, RowKey: key}, UserID: u.ID})
	if err != nil {
		return err
	}
	if _, err := s.emailTable.AddEntity(ctx, emailPayload, nil); err != nil {
		if statusCode(err) == http.StatusConflict {
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("reserve email: %w", err)
	}

	userPayload, err := sonic.Marshal(newUserEntity(u))
	if err == nil {
		_, err = s.userTable.AddEntity(ctx, userPayload, nil)
	}
	if err != nil {
		if _, derr := s.emailTable.DeleteEntity(ctx, key, key, nil); derr != nil {
			log.WithField("user", u.ID).WithError(derr).Error("release email reservation failed")
		}
		return fmt.Errorf("add user: %w", err)
	}
	return nil
}

// UserByEmail resolves the email index and then loads the user row.
func (s *Storage) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	key := emailKey(email)
	resp, err := s.emailTable.GetEntity(ctx, key, key, nil)
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get email: %w", err)
	}
	var ent emailEntity
	if err := sonic.Unmarshal(resp.Value, &ent); err != nil {
		return nil, err
	}
	return s.UserByID(ctx, ent.UserID)
}

func (s *Storage) UserByID(ctx context.Context, id string) (*domain.User, error) {
	if id == "" {
		return nil, nil
	}
	resp, err := s.userTable.GetEntity(ctx, id, id, nil)
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u, err := decodeUserEntity(resp.Value)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListTasks retrieves all tasks in the owner's partition, newest first.
func (s *Storage) ListTasks(ctx context.Context, ownerID string) ([]domain.Task, error) {
	filter := partitionFilter(ownerID)
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		for _, e := range resp.Entities {
			t, err := decodeTaskEntity(e)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, t)
		}
	}
	sortNewestFirst(tasks)
	return tasks, nil
}

func (s *Storage) GetTask(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	resp, err := s.taskTable.GetEntity(ctx, ownerID, taskID, nil)
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	t, err := decodeTaskEntity(resp.Value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Storage) InsertTask(ctx context.Context, t domain.Task) error {
	payload, err := sonic.Marshal(newTaskEntity(t))
	if err != nil {
		return err
	}
	if _, err := s.taskTable.AddEntity(ctx, payload, nil); err != nil {
		return fmt.Errorf("add task: %w", err)
	}
	return nil
}

// UpdateTask replaces the row unconditionally; concurrent writers are last-write-wins.
func (s *Storage) UpdateTask(ctx context.Context, t domain.Task) error {
	payload, err := sonic.Marshal(newTaskEntity(t))
	if err != nil {
		return err
	}
	et := azcore.ETagAny
	_, err = s.taskTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeReplace})
	if err != nil {
		if statusCode(err) == http.StatusNotFound {
			return domain.ErrNotFound
		}
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

func (s *Storage) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	et := azcore.ETagAny
	if _, err := s.taskTable.DeleteEntity(ctx, ownerID, taskID, &aztables.DeleteEntityOptions{IfMatch: &et}); err != nil {
		if statusCode(err) == http.StatusNotFound {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func sortNewestFirst(tasks []domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
}

var (
	_ domain.UserStorage = (*Storage)(nil)
	_ domain.TaskStorage = (*Storage)(nil)
)
