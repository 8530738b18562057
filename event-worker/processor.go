package main

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"todo-api/domain"
	"todo-api/storage"
)

type eventQueue interface {
	Receive(ctx context.Context, max int32, visibility time.Duration) ([]storage.Message, error)
	Delete(ctx context.Context, m storage.Message) error
}

type eventRecorder interface {
	Record(ctx context.Context, ev domain.Event) error
}

type processor struct {
	queue      eventQueue
	recorder   eventRecorder
	batchSize  int32
	visibility time.Duration
	idle       time.Duration
}

// poll handles one batch and returns how many messages were removed from the
// queue. Messages that fail to record stay on the queue and reappear once
// their visibility timeout lapses. Undecodable messages are dropped.
func (p *processor) poll(ctx context.Context) (int, error) {
	msgs, err := p.queue.Receive(ctx, p.batchSize, p.visibility)
	if err != nil {
		return 0, err
	}
	handled := 0
	for _, m := range msgs {
		ev, err := storage.DecodeEvent(m.Text)
		if err != nil {
			log.WithField("message", m.ID).WithError(err).Warn("dropping undecodable event")
		} else if err := p.recorder.Record(ctx, ev); err != nil {
			log.WithFields(log.Fields{"message": m.ID, "event": ev.Type}).WithError(err).Error("record event")
			continue
		}
		if err := p.queue.Delete(ctx, m); err != nil {
			log.WithField("message", m.ID).WithError(err).Error("delete event")
			continue
		}
		handled++
	}
	return handled, nil
}

// run polls until ctx is cancelled, sleeping between empty or failed polls.
func (p *processor) run(ctx context.Context) {
	for {
		n, err := p.poll(ctx)
		if err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("receive events")
		}
		if n > 0 {
			log.WithField("count", n).Debug("events processed")
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.idle):
		}
	}
}
