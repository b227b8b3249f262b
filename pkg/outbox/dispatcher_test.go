package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"collabtodo/pkg/trace"
)

type fakeStore struct {
	pending []*Event
	sent    []int64
	failed  []int64
	dead    []int64
	getErr  error
}

func (s *fakeStore) GetPendingEvents(ctx context.Context, limit int) ([]*Event, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if len(s.pending) > limit {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *fakeStore) MarkAsSent(ctx context.Context, id int64) error {
	s.sent = append(s.sent, id)
	return nil
}

func (s *fakeStore) MarkAsFailed(ctx context.Context, id int64, maxRetries int) error {
	s.failed = append(s.failed, id)
	return nil
}

func (s *fakeStore) MarkAsDead(ctx context.Context, id int64) error {
	s.dead = append(s.dead, id)
	return nil
}

type published struct {
	routingKey string
	traceID    string
	payload    any
}

type fakePublisher struct {
	err  error
	msgs []published
}

func (p *fakePublisher) PublishWithContext(ctx context.Context, routingKey string, payload any) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, published{routingKey: routingKey, traceID: trace.FromContext(ctx), payload: payload})
	return nil
}

func event(id int64, key string, payload string) *Event {
	return &Event{ID: id, RoutingKey: key, Payload: json.RawMessage(payload), Status: StatusPending}
}

func TestDispatcher_PublishesAndMarksSent(t *testing.T) {
	store := &fakeStore{pending: []*Event{
		event(1, "project.created", `{"project_id":"p1","trace_id":"t-1"}`),
		event(2, "task.created", `{"task_id":"x"}`),
	}}
	pub := &fakePublisher{}
	d := NewDispatcher(store, pub, zap.NewNop())

	sent := d.ProcessPendingEvents(context.Background())
	assert.Equal(t, 2, sent)
	assert.Equal(t, []int64{1, 2}, store.sent)
	require.Len(t, pub.msgs, 2)
	assert.Equal(t, "project.created", pub.msgs[0].routingKey)
	assert.Equal(t, "t-1", pub.msgs[0].traceID)
	assert.Equal(t, "", pub.msgs[1].traceID)
}

func TestDispatcher_RetryableFailureSchedulesRetry(t *testing.T) {
	store := &fakeStore{pending: []*Event{event(7, "member.invited", `{}`)}}
	d := NewDispatcher(store, &fakePublisher{err: errors.New("connection reset")}, zap.NewNop())

	assert.Equal(t, 0, d.ProcessPendingEvents(context.Background()))
	assert.Equal(t, []int64{7}, store.failed)
	assert.Empty(t, store.dead)
	assert.Empty(t, store.sent)
}

func TestDispatcher_BadPayloadIsDead(t *testing.T) {
	store := &fakeStore{pending: []*Event{event(3, "task.created", `{not json`)}}
	d := NewDispatcher(store, &fakePublisher{}, zap.NewNop())

	d.ProcessPendingEvents(context.Background())
	assert.Equal(t, []int64{3}, store.dead)
	assert.Empty(t, store.failed)
}

func TestDispatcher_OpenBreakerSkipsRemainingEvents(t *testing.T) {
	var events []*Event
	for i := int64(1); i <= 8; i++ {
		events = append(events, event(i, "task.created", `{}`))
	}
	store := &fakeStore{pending: events}
	d := NewDispatcher(store, &fakePublisher{err: errors.New("broker down")}, zap.NewNop())

	d.ProcessPendingEvents(context.Background())
	// default breaker opens after five consecutive failures
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, store.failed)
}

func TestDispatcher_StoreErrorIsLogged(t *testing.T) {
	store := &fakeStore{getErr: errors.New("db down")}
	d := NewDispatcher(store, &fakePublisher{}, zap.NewNop()).WithBatchSize(10)
	assert.Equal(t, 0, d.ProcessPendingEvents(context.Background()))
}

func TestDispatcher_StartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDispatcher(&fakeStore{}, &fakePublisher{}, zap.NewNop())

	done := make(chan struct{})
	go func() {
		d.Start(ctx)
		close(done)
	}()
	<-done
}
