package storage

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"

	"todo-api/domain"
)

// ActivityLog records domain events per user in an Azure table, newest first.
type ActivityLog struct {
	table *aztables.Client
}

// activityEntity carries the event time as Edm.Int64, which travels as a string.
type activityEntity struct {
	Entity
	Type          string `json:"Type"`
	EntityType    string `json:"EntityType"`
	EntityID      string `json:"EntityID"`
	Timestamp     string `json:"EventTimestamp"`
	TimestampType string `json:"EventTimestamp@odata.type"`
}

// NewActivityLog connects to the named activity table.
func NewActivityLog(connStr, table string) (*ActivityLog, error) {
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &aztables.ClientOptions{ClientOptions: clientOptions()})
	if err != nil {
		return nil, fmt.Errorf("table service client: %w", err)
	}
	return &ActivityLog{table: svc.NewClient(table)}, nil
}

// activityRowKey orders rows newest first within a user's partition. The
// entity id and event type keep keys unique for events sharing a timestamp.
func activityRowKey(ev domain.Event) string {
	return fmt.Sprintf("%019d_%s_%s", math.MaxInt64-ev.Timestamp, ev.EntityID, ev.Type)
}

func newActivityEntity(ev domain.Event) ([]byte, error) {
	return sonic.Marshal(activityEntity{
		Entity:        Entity{PartitionKey: ev.UserID, RowKey: activityRowKey(ev)},
		Type:          ev.Type,
		EntityType:    ev.EntityType,
		EntityID:      ev.EntityID,
		Timestamp:     strconv.FormatInt(ev.Timestamp, 10),
		TimestampType: "Edm.Int64",
	})
}

// Record upserts ev, so redelivered messages leave a single row.
func (a *ActivityLog) Record(ctx context.Context, ev domain.Event) error {
	payload, err := newActivityEntity(ev)
	if err != nil {
		return fmt.Errorf("encode activity: %w", err)
	}
	if _, err := a.table.UpsertEntity(ctx, payload, nil); err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}
