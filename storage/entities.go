package storage

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"todo-api/domain"
)

const edmDateTime = "Edm.DateTime"

// Entity holds the table keys common to every row.
type Entity struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
}

type userEntity struct {
	Entity
	Name          string    `json:"Name"`
	Email         string    `json:"Email"`
	PasswordHash  string    `json:"PasswordHash"`
	CreatedAt     time.Time `json:"CreatedAt"`
	CreatedAtType string    `json:"CreatedAt@odata.type,omitempty"`
}

type emailEntity struct {
	Entity
	UserID string `json:"UserID"`
}

type taskEntity struct {
	Entity
	Title         string    `json:"Title"`
	Completed     bool      `json:"Completed"`
	CreatedAt     time.Time `json:"CreatedAt"`
	CreatedAtType string    `json:"CreatedAt@odata.type,omitempty"`
	UpdatedAt     time.Time `json:"UpdatedAt"`
	UpdatedAtType string    `json:"UpdatedAt@odata.type,omitempty"`
}

// emailKey maps an email to a key that satisfies table key character rules.
func emailKey(email string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strings.ToLower(email)))
}

// partitionFilter builds an OData filter for a single partition.
func partitionFilter(pk string) string {
	return "PartitionKey eq '" + strings.ReplaceAll(pk, "'", "''") + "'"
}

func newUserEntity(u domain.User) userEntity {
	return userEntity{
		Entity:        Entity{PartitionKey: u.ID, RowKey: u.ID},
		Name:          u.Name,
		Email:         u.Email,
		PasswordHash:  u.PasswordHash,
		CreatedAt:     u.CreatedAt.UTC(),
		CreatedAtType: edmDateTime,
	}
}

func decodeUserEntity(data []byte) (domain.User, error) {
	var ent userEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return domain.User{}, err
	}
	return domain.User{
		ID:           ent.RowKey,
		Name:         ent.Name,
		Email:        ent.Email,
		PasswordHash: ent.PasswordHash,
		CreatedAt:    ent.CreatedAt.UTC(),
	}, nil
}

func newTaskEntity(t domain.Task) taskEntity {
	return taskEntity{
		Entity:        Entity{PartitionKey: t.OwnerID, RowKey: t.ID},
		Title:         t.Title,
		Completed:     t.Completed,
		CreatedAt:     t.CreatedAt.UTC(),
		CreatedAtType: edmDateTime,
		UpdatedAt:     t.UpdatedAt.UTC(),
		UpdatedAtType: edmDateTime,
	}
}

func decodeTaskEntity(data []byte) (domain.Task, error) {
	var ent taskEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, err
	}
	return domain.Task{
		ID:        ent.RowKey,
		Title:     ent.Title,
		Completed: ent.Completed,
		OwnerID:   ent.PartitionKey,
		CreatedAt: ent.CreatedAt.UTC(),
		UpdatedAt: ent.UpdatedAt.UTC(),
	}, nil
}
