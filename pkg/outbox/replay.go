package outbox

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ReplayStore is the subset of *Repository replay needs.
type ReplayStore interface {
	GetEventByID(ctx context.Context, eventID int64) (*Event, error)
	GetFailedEvents(ctx context.Context, limit int) ([]*Event, error)
	ResetEvent(ctx context.Context, eventID int64) error
}

// ReplayService puts failed events back in the queue; the dispatcher
// picks them up on its next tick.
type ReplayService struct {
	store  ReplayStore
	logger *zap.Logger
}

func NewReplayService(store ReplayStore, logger *zap.Logger) *ReplayService {
	return &ReplayService{store: store, logger: logger}
}

// ReplayEvent 重放指定的事件
func (s *ReplayService) ReplayEvent(ctx context.Context, eventID int64) error {
	event, err := s.store.GetEventByID(ctx, eventID)
	if err != nil {
		return err
	}
	if event.Status == StatusPending {
		return nil
	}

	if err := s.store.ResetEvent(ctx, eventID); err != nil {
		return fmt.Errorf("failed to replay event %d: %w", eventID, err)
	}
	s.logger.Info("Outbox event requeued",
		zap.Int64("event_id", eventID),
		zap.String("routing_key", event.RoutingKey),
		zap.String("previous_status", event.Status),
	)
	return nil
}

// ReplayFailedEvents 重放所有失败的事件，返回成功重置的数量
func (s *ReplayService) ReplayFailedEvents(ctx context.Context, limit int) (int, error) {
	events, err := s.store.GetFailedEvents(ctx, limit)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, event := range events {
		if err := s.store.ResetEvent(ctx, event.ID); err != nil {
			// 记录错误但继续处理其他事件
			s.logger.Error("Failed to requeue outbox event",
				zap.Int64("event_id", event.ID),
				zap.Error(err),
			)
			continue
		}
		count++
	}
	return count, nil
}
