package pipeline_test

import (
	"context"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/civicsignal/go-message-pipeline/internal/telemetry"
	"github.com/civicsignal/go-message-pipeline/pkg/messaging"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Typed Mocks ---

type mockProfileStore struct {
	mock.Mock
}

func (m *mockProfileStore) Latest(ctx context.Context, fiscalCode string) (*messaging.Profile, error) {
	args := m.Called(ctx, fiscalCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.Profile), args.Error(1)
}

type mockPreferenceStore struct {
	mock.Mock
}

func (m *mockPreferenceStore) Get(ctx context.Context, fiscalCode, serviceID string, version int64) (*messaging.ServicePreference, error) {
	args := m.Called(ctx, fiscalCode, serviceID, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.ServicePreference), args.Error(1)
}

type mockMessageStore struct {
	mock.Mock
}

func (m *mockMessageStore) RetrieveProcessing(ctx context.Context, messageID string) (*messaging.ProcessingMessageData, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.ProcessingMessageData), args.Error(1)
}

func (m *mockMessageStore) StoreContent(ctx context.Context, messageID string, content messaging.MessageContent) error {
	return m.Called(ctx, messageID, content).Error(0)
}

func (m *mockMessageStore) MarkProcessed(ctx context.Context, messageID string) error {
	return m.Called(ctx, messageID).Error(0)
}

type mockNotificationStore struct {
	mock.Mock
}

func (m *mockNotificationStore) Create(ctx context.Context, n *messaging.Notification) (*messaging.Notification, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.Notification), args.Error(1)
}

func (m *mockNotificationStore) GetByMessageID(ctx context.Context, messageID string) (*messaging.Notification, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*messaging.Notification), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, topicID string, event any) error {
	return m.Called(ctx, topicID, event).Error(0)
}

type mockTracker struct {
	mock.Mock
}

func (m *mockTracker) MessageProcessed(ctx context.Context, event telemetry.Event) {
	m.Called(ctx, event)
}

type mockEmailDispatcher struct {
	mock.Mock
}

func (m *mockEmailDispatcher) Dispatch(ctx context.Context, to messaging.EmailChannel, content messaging.MessageContent, sender messaging.SenderMetadata) error {
	return m.Called(ctx, to, content, sender).Error(0)
}

type mockWebhookDispatcher struct {
	mock.Mock
}

func (m *mockWebhookDispatcher) Dispatch(ctx context.Context, ch messaging.WebhookChannel, event messaging.NotificationCreatedEvent, message messaging.Message) error {
	return m.Called(ctx, ch, event, message).Error(0)
}
