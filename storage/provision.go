package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	log "github.com/sirupsen/logrus"
)

const (
	queueAlreadyExists = "QueueAlreadyExists"
	tableNotFound      = "TableNotFound"
)

// EnsureTables creates every named table that does not exist yet.
func EnsureTables(ctx context.Context, connStr string, names ...string) error {
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, nil)
	if err != nil {
		return fmt.Errorf("table service client: %w", err)
	}
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, err := svc.NewClient(name).CreateTable(ctx, nil); err != nil {
			if !hasErrorCode(err, string(aztables.TableAlreadyExists)) {
				return fmt.Errorf("create table %s: %w", name, err)
			}
			log.WithField("table", name).Debug("table already exists")
			continue
		}
		log.WithField("table", name).Info("table created")
	}
	return nil
}

// EnsureQueue creates the named queue if it does not exist yet. An empty
// name is a no-op.
func EnsureQueue(ctx context.Context, connStr, name string) error {
	if name == "" {
		return nil
	}
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, name, nil)
	if err != nil {
		return fmt.Errorf("queue client: %w", err)
	}
	if _, err := q.Create(ctx, nil); err != nil {
		if !hasErrorCode(err, queueAlreadyExists) {
			return fmt.Errorf("create queue %s: %w", name, err)
		}
		log.WithField("queue", name).Debug("queue already exists")
		return nil
	}
	log.WithField("queue", name).Info("queue created")
	return nil
}

func hasErrorCode(err error, code string) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.ErrorCode == code
}
