package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
)

func TestHasErrorCode(t *testing.T) {
	exists := &azcore.ResponseError{ErrorCode: string(aztables.TableAlreadyExists), StatusCode: http.StatusConflict}
	tests := []struct {
		name string
		err  error
		code string
		want bool
	}{
		{name: "match", err: exists, code: string(aztables.TableAlreadyExists), want: true},
		{name: "wrapped", err: fmt.Errorf("create: %w", exists), code: string(aztables.TableAlreadyExists), want: true},
		{name: "other code", err: exists, code: queueAlreadyExists, want: false},
		{name: "plain", err: errors.New("boom"), code: queueAlreadyExists, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasErrorCode(tt.err, tt.code); got != tt.want {
				t.Fatalf("hasErrorCode = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusCode(t *testing.T) {
	if got := statusCode(fmt.Errorf("wrap: %w", &azcore.ResponseError{StatusCode: http.StatusNotFound})); got != http.StatusNotFound {
		t.Fatalf("statusCode = %d", got)
	}
	if got := statusCode(errors.New("boom")); got != 0 {
		t.Fatalf("statusCode = %d", got)
	}
}

func TestEnsureQueueEmptyNameIsNoop(t *testing.T) {
	if err := EnsureQueue(context.Background(), "not a connection string", ""); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestEnsureTablesRejectsBadConnectionString(t *testing.T) {
	if err := EnsureTables(context.Background(), "not a connection string", "users"); err == nil {
		t.Fatalf("expected error for malformed connection string")
	}
}
