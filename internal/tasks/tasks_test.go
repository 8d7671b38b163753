package tasks_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Idosegev23/homeruncms-sub000/internal/config"
	"github.com/Idosegev23/homeruncms-sub000/internal/models"
	"github.com/Idosegev23/homeruncms-sub000/internal/tasks"
)

// --- Mocks ---

// MockSource
type MockSource struct {
	mock.Mock
}

func (m *MockSource) Next(ctx context.Context) (*models.InboundMessage, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InboundMessage), args.Error(1)
}

// MockInboxService
type MockInboxService struct {
	mock.Mock
}

func (m *MockInboxService) SaveInbound(ctx context.Context, msg *models.InboundMessage) (*models.InboundMessage, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InboundMessage), args.Error(1)
}

func (m *MockInboxService) ListInbound(ctx context.Context, limit int) ([]models.InboundMessage, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InboundMessage), args.Error(1)
}

func (m *MockInboxService) ListInboundForCustomer(ctx context.Context, customerID string, limit int) ([]models.InboundMessage, error) {
	args := m.Called(ctx, customerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InboundMessage), args.Error(1)
}

// MockAsynqClient
type MockAsynqClient struct {
	mock.Mock
}

func (m *MockAsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}

// --- Tests ---

func TestHandleNotificationPollTask_SavesAndReEnqueues(t *testing.T) {
	mockSource := new(MockSource)
	mockInbox := new(MockInboxService)
	mockClient := new(MockAsynqClient)
	cfg := &config.Config{NotificationPollInterval: 30 * time.Second}

	p := tasks.NewTaskProcessor(cfg, mockSource, mockInbox, nil, nil, nil, mockClient)

	msg := &models.InboundMessage{
		ChatID: "972501234567@c.us",
		Phone:  "972501234567",
		Text:   "מעוניינת בדירה ברחוב הרצל",
	}
	mockSource.On("Next", mock.Anything).Return(msg, nil).Once()
	mockSource.On("Next", mock.Anything).Return(nil, nil).Once()
	mockInbox.On("SaveInbound", mock.Anything, msg).Return(msg, nil).Once()
	mockClient.On("EnqueueContext", mock.Anything, mock.Anything, mock.Anything).
		Return(&asynq.TaskInfo{ID: "t1"}, nil).Once()

	task := tasks.NewNotificationPollTask()
	err := p.HandleNotificationPollTask(context.Background(), task)

	assert.NoError(t, err)
	mockSource.AssertExpectations(t)
	mockInbox.AssertExpectations(t)
	mockClient.AssertExpectations(t)
}

func TestHandleNotificationPollTask_SourceErrorStillReEnqueues(t *testing.T) {
	mockSource := new(MockSource)
	mockInbox := new(MockInboxService)
	mockClient := new(MockAsynqClient)
	cfg := &config.Config{NotificationPollInterval: 30 * time.Second}

	p := tasks.NewTaskProcessor(cfg, mockSource, mockInbox, nil, nil, nil, mockClient)

	mockSource.On("Next", mock.Anything).Return(nil, errors.New("gateway down")).Once()
	mockClient.On("EnqueueContext", mock.Anything, mock.Anything, mock.Anything).
		Return(&asynq.TaskInfo{ID: "t2"}, nil).Once()

	err := p.HandleNotificationPollTask(context.Background(), tasks.NewNotificationPollTask())

	assert.NoError(t, err, "a flaky gateway must not kill the poll loop")
	mockInbox.AssertNotCalled(t, "SaveInbound", mock.Anything, mock.Anything)
	mockClient.AssertExpectations(t)
}

func TestHandleImageProcessTask_BadPayload(t *testing.T) {
	cfg := &config.Config{ImageMaxDimension: 2048, ImageMaxSizeMB: 10}
	p := tasks.NewTaskProcessor(cfg, nil, nil, nil, nil, nil, nil)

	task := asynq.NewTask(tasks.TypeImageProcess, []byte("{not json"))
	err := p.HandleImageProcessTask(context.Background(), task)

	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry), "malformed payloads must not retry")
}

func TestHandleImageProcessTask_MissingFields(t *testing.T) {
	cfg := &config.Config{ImageMaxDimension: 2048, ImageMaxSizeMB: 10}
	p := tasks.NewTaskProcessor(cfg, nil, nil, nil, nil, nil, nil)

	payload, _ := json.Marshal(tasks.ImageTaskPayload{S3Key: "", PropertyID: ""})
	err := p.HandleImageProcessTask(context.Background(), asynq.NewTask(tasks.TypeImageProcess, payload))

	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestNewImageProcessTask(t *testing.T) {
	task, err := tasks.NewImageProcessTask("properties/p1/uploads/x.jpg", "p1")
	require.NoError(t, err)
	assert.Equal(t, tasks.TypeImageProcess, task.Type())

	var payload tasks.ImageTaskPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "p1", payload.PropertyID)
}
