package services

import (
	"context"
	"sync"
	"time"

	"github.com/skillbridge/apiserver/types"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// EventPublisher sends JSON documents to a broker channel. *mq.Topic
// satisfies it.
type EventPublisher interface {
	PublishJSON(ctx context.Context, v any, attrs map[string]string) (string, error)
}

type eventEmitter struct {
	publisher EventPublisher
	pending   *sync.WaitGroup
	logger    *zap.Logger
}

func newEventEmitter(logger *zap.Logger) eventEmitter {
	return eventEmitter{pending: &sync.WaitGroup{}, logger: logger}
}

// emit publishes in the background after the write has been persisted.
// Broker failures are logged and never reach the caller, and events from
// separate requests may arrive out of order.
func (e eventEmitter) emit(ctx context.Context, event types.CourseEvent) {
	if e.publisher == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	ctx = context.WithoutCancel(ctx)
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		e.publish(ctx, event)
	}()
}

func (e eventEmitter) publish(ctx context.Context, event types.CourseEvent) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	id, err := e.publisher.PublishJSON(ctx, event, map[string]string{"type": string(event.Type)})
	if err != nil {
		e.logger.Warn("failed to publish course event",
			zap.String("type", string(event.Type)),
			zap.String("course_id", event.CourseID),
			zap.Error(err),
		)
		return
	}
	e.logger.Debug("course event published", zap.String("type", string(event.Type)), zap.String("message_id", id))
}

// wait blocks until every pending publish finished or ctx is done.
func (e eventEmitter) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
