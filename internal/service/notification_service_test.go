package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusevents/event-api/internal/dto"
	"github.com/campusevents/event-api/internal/models"
	"github.com/campusevents/event-api/pkg/broker"
	"github.com/campusevents/event-api/pkg/jobs"
)

type stubPublisher struct {
	messages []broker.Message
	err      error
}

func (p *stubPublisher) Publish(ctx context.Context, msg broker.Message) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

type stubQueue struct {
	jobs []jobs.Job
	err  error
}

func (q *stubQueue) Enqueue(job jobs.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func TestNotificationPublishesInline(t *testing.T) {
	pub := &stubPublisher{}
	svc := NewNotificationService(pub, NewMetricsService(), nil)

	svc.Notify(context.Background(), dto.StatusChangeNotification{RequestID: "r1", Current: models.StatusApproved, RequestedBy: "c1"})

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.Equal(t, "event_request.approved", msg.RoutingKey)
	assert.Equal(t, "c1", msg.Headers["requested_by"])

	var decoded dto.StatusChangeNotification
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, "r1", decoded.RequestID)
}

func TestNotificationUsesQueue(t *testing.T) {
	pub := &stubPublisher{}
	queue := &stubQueue{}
	svc := NewNotificationService(pub, nil, nil)
	svc.UseQueue(queue)

	svc.Notify(context.Background(), dto.StatusChangeNotification{RequestID: "r1", Current: models.StatusRejected})
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypeStatusChanged, queue.jobs[0].Type)
	assert.Empty(t, pub.messages)

	require.NoError(t, svc.Handle(context.Background(), queue.jobs[0]))
	require.Len(t, pub.messages, 1)
	assert.Equal(t, "event_request.rejected", pub.messages[0].RoutingKey)
}

func TestNotificationFailuresAreSwallowed(t *testing.T) {
	svc := NewNotificationService(&stubPublisher{err: errors.New("broker down")}, nil, nil)
	assert.NotPanics(t, func() {
		svc.Notify(context.Background(), dto.StatusChangeNotification{RequestID: "r1", Current: models.StatusPending})
	})

	svc.UseQueue(&stubQueue{err: jobs.ErrQueueFull})
	assert.NotPanics(t, func() {
		svc.Notify(context.Background(), dto.StatusChangeNotification{RequestID: "r1", Current: models.StatusPending})
	})
}

func TestNotificationHandleReturnsPublishErrorForRetry(t *testing.T) {
	svc := NewNotificationService(&stubPublisher{err: errors.New("broker down")}, nil, nil)
	err := svc.Handle(context.Background(), jobs.Job{ID: "j1", Payload: dto.StatusChangeNotification{Current: models.StatusApproved}})
	assert.Error(t, err)

	withoutBroker := NewNotificationService(nil, nil, nil)
	assert.NoError(t, withoutBroker.Handle(context.Background(), jobs.Job{ID: "j2", Payload: dto.StatusChangeNotification{Current: models.StatusApproved}}))
	assert.NoError(t, withoutBroker.Handle(context.Background(), jobs.Job{ID: "j3", Payload: "bogus"}))
}
