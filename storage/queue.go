package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"

	"todo-api/domain"
)

// EventQueue publishes domain events to an Azure storage queue.
type EventQueue struct {
	queue *azqueue.QueueClient
}

// NewEventQueue connects to the named queue.
func NewEventQueue(connStr, queueName string) (*EventQueue, error) {
	opts := azqueue.ClientOptions{ClientOptions: clientOptions()}
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, queueName, &opts)
	if err != nil {
		return nil, fmt.Errorf("queue client: %w", err)
	}
	return &EventQueue{queue: q}, nil
}

func encodeEvent(ev domain.Event) (string, error) {
	data, err := sonic.Marshal(ev)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Publish enqueues ev as a JSON message.
func (q *EventQueue) Publish(ctx context.Context, ev domain.Event) error {
	msg, err := encodeEvent(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := q.queue.EnqueueMessage(ctx, msg, nil); err != nil {
		return fmt.Errorf("enqueue event: %w", err)
	}
	return nil
}

// Message is a dequeued event together with the receipt needed to delete it.
type Message struct {
	ID         string
	PopReceipt string
	Text       string
}

// Receive dequeues up to max messages, hiding them from other consumers for
// visibility.
func (q *EventQueue) Receive(ctx context.Context, max int32, visibility time.Duration) ([]Message, error) {
	resp, err := q.queue.DequeueMessages(ctx, &azqueue.DequeueMessagesOptions{
		NumberOfMessages:  to.Ptr(max),
		VisibilityTimeout: to.Ptr(int32(visibility / time.Second)),
	})
	if err != nil {
		return nil, fmt.Errorf("dequeue events: %w", err)
	}
	out := make([]Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		if m == nil || m.MessageID == nil || m.PopReceipt == nil {
			continue
		}
		msg := Message{ID: *m.MessageID, PopReceipt: *m.PopReceipt}
		if m.MessageText != nil {
			msg.Text = *m.MessageText
		}
		out = append(out, msg)
	}
	return out, nil
}

// Delete removes a processed message from the queue.
func (q *EventQueue) Delete(ctx context.Context, m Message) error {
	if _, err := q.queue.DeleteMessage(ctx, m.ID, m.PopReceipt, nil); err != nil {
		return fmt.Errorf("delete event %s: %w", m.ID, err)
	}
	return nil
}

// DecodeEvent parses a queue message produced by Publish.
func DecodeEvent(text string) (domain.Event, error) {
	var ev domain.Event
	if err := sonic.UnmarshalString(text, &ev); err != nil {
		return domain.Event{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.Type == "" || ev.EntityID == "" {
		return domain.Event{}, fmt.Errorf("decode event: missing type or entity id")
	}
	return ev, nil
}

var _ domain.EventPublisher = (*EventQueue)(nil)
