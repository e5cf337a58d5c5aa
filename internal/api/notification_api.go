package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"log/slog"

	"github.com/tinywideclouds/go-microservice-base/pkg/response"

	"github.com/civicsignal/go-message-pipeline/pkg/messaging"
	"github.com/civicsignal/go-message-pipeline/pkg/store"
)

// NotificationAPI is the read-only operator surface for inspecting fan-out
// decisions after the fact.
type NotificationAPI struct {
	Store  store.NotificationStore
	Logger *slog.Logger
}

func NewNotificationAPI(notifications store.NotificationStore, logger *slog.Logger) *NotificationAPI {
	return &NotificationAPI{
		Store:  notifications,
		Logger: logger,
	}
}

// NotificationStatus is the lookup response. Exists is false when the
// message produced no notification, either because nothing was eligible or
// because the CreateNotification stage has not run yet.
type NotificationStatus struct {
	Exists       bool                    `json:"exists"`
	Notification *messaging.Notification `json:"notification,omitempty"`
	Channels     []messaging.Channel     `json:"channels,omitempty"`
}

// GetByMessageID handles GET /api/v1/notifications/{messageId}.
func (api *NotificationAPI) GetByMessageID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	messageID := r.PathValue("messageId")
	if messageID == "" {
		response.WriteJSONError(w, http.StatusBadRequest, "missing messageId")
		return
	}

	stored, err := api.Store.GetByMessageID(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			api.writeJSON(w, http.StatusOK, NotificationStatus{Exists: false})
			return
		}
		api.Logger.Error("notification lookup failed", "message_id", messageID, "err", err)
		response.WriteJSONError(w, http.StatusInternalServerError, "storage failed")
		return
	}

	status := NotificationStatus{
		Exists:       true,
		Notification: stored,
	}
	if stored.Channels.Email != nil {
		status.Channels = append(status.Channels, messaging.ChannelEmail)
	}
	if stored.Channels.Webhook != nil {
		status.Channels = append(status.Channels, messaging.ChannelWebhook)
	}

	api.writeJSON(w, http.StatusOK, status)
}

func (api *NotificationAPI) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		api.Logger.Error("failed to encode response", "err", err)
	}
}
