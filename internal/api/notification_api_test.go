package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/civicsignal/go-message-pipeline/internal/api"
	"github.com/civicsignal/go-message-pipeline/pkg/messaging"
	"github.com/civicsignal/go-message-pipeline/pkg/store"
)

// --- Mocks ---
type MockNotificationStore struct {
	mock.Mock
}

func (m *MockNotificationStore) Create(ctx context.Context, n *messaging.Notification) (*messaging.Notification, error) {
	args := m.Called(ctx, n)
	if stored := args.Get(0); stored != nil {
		return stored.(*messaging.Notification), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockNotificationStore) GetByMessageID(ctx context.Context, messageID string) (*messaging.Notification, error) {
	args := m.Called(ctx, messageID)
	if stored := args.Get(0); stored != nil {
		return stored.(*messaging.Notification), args.Error(1)
	}
	return nil, args.Error(1)
}

// --- Setup ---
func setupAPI(t *testing.T) (*api.NotificationAPI, *MockNotificationStore) {
	t.Helper()
	mockStore := new(MockNotificationStore)
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return api.NewNotificationAPI(mockStore, logger), mockStore
}

func lookupRequest(messageID string) *http.Request {
	req := httptest.NewRequest("GET", "/api/v1/notifications/"+messageID, nil)
	req.SetPathValue("messageId", messageID)
	return req
}

// --- Tests ---

func TestGetByMessageID(t *testing.T) {
	t.Run("Returns Stored Notification", func(t *testing.T) {
		apiHandler, mockStore := setupAPI(t)
		stored := &messaging.Notification{
			ID:         "ntf-1",
			MessageID:  "msg-0001",
			FiscalCode: "AAABBB80A01C123D",
			Channels: messaging.NotificationChannels{
				Email: &messaging.EmailChannel{
					AddressSource: messaging.AddressSourceProfile,
					ToAddress:     "citizen@example.com",
				},
			},
		}
		mockStore.On("GetByMessageID", mock.Anything, "msg-0001").Return(stored, nil)

		w := httptest.NewRecorder()
		apiHandler.GetByMessageID(w, lookupRequest("msg-0001"))

		require.Equal(t, http.StatusOK, w.Code)
		var status api.NotificationStatus
		require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
		assert.True(t, status.Exists)
		require.NotNil(t, status.Notification)
		assert.Equal(t, "ntf-1", status.Notification.ID)
		assert.Equal(t, []messaging.Channel{messaging.ChannelEmail}, status.Channels)
		mockStore.AssertExpectations(t)
	})

	t.Run("Absent Notification Reports Exists False", func(t *testing.T) {
		apiHandler, mockStore := setupAPI(t)
		mockStore.On("GetByMessageID", mock.Anything, "msg-none").Return(nil, store.ErrNotFound)

		w := httptest.NewRecorder()
		apiHandler.GetByMessageID(w, lookupRequest("msg-none"))

		require.Equal(t, http.StatusOK, w.Code)
		var status api.NotificationStatus
		require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
		assert.False(t, status.Exists)
		assert.Nil(t, status.Notification)
	})

	t.Run("Storage Failure Is 500", func(t *testing.T) {
		apiHandler, mockStore := setupAPI(t)
		mockStore.On("GetByMessageID", mock.Anything, "msg-0001").Return(nil, errors.New("firestore unavailable"))

		w := httptest.NewRecorder()
		apiHandler.GetByMessageID(w, lookupRequest("msg-0001"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("Rejects Missing MessageID", func(t *testing.T) {
		apiHandler, _ := setupAPI(t)

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/v1/notifications/", nil)
		apiHandler.GetByMessageID(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
