// --- File: messagingservice/service.go ---
package messagingservice

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-microservice-base/pkg/microservice"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"

	"github.com/civicsignal/go-message-pipeline/internal/api"
	"github.com/civicsignal/go-message-pipeline/internal/eligibility"
	"github.com/civicsignal/go-message-pipeline/internal/pipeline"
	"github.com/civicsignal/go-message-pipeline/internal/telemetry"
	"github.com/civicsignal/go-message-pipeline/messagingservice/config"
	"github.com/civicsignal/go-message-pipeline/pkg/dispatch"
	"github.com/civicsignal/go-message-pipeline/pkg/messaging"
	"github.com/civicsignal/go-message-pipeline/pkg/store"
)

// Consumers carries one message consumer per pipeline stage, each bound to
// that stage's subscription.
type Consumers struct {
	ProcessMessage     messagepipeline.MessageConsumer
	CreateNotification messagepipeline.MessageConsumer
	DeliverEmail       messagepipeline.MessageConsumer
	DeliverWebhook     messagepipeline.MessageConsumer
}

// Dependencies carries the storage, publishing and dispatch capabilities
// the stages run on.
type Dependencies struct {
	Profiles      store.ProfileStore
	Preferences   store.ServicePreferenceStore
	Messages      store.MessageStore
	Notifications store.NotificationStore
	Publisher     store.EventPublisher
	Tracker       telemetry.Tracker

	// PreferenceCache is nil when no cache layer is configured; the
	// invalidation route is only registered when it is present.
	PreferenceCache api.PreferenceCacheInvalidator

	EmailDispatcher   dispatch.EmailDispatcher
	WebhookDispatcher dispatch.WebhookDispatcher
}

type Wrapper struct {
	*microservice.BaseServer
	processService *messagepipeline.StreamingService[messaging.CreatedMessageEvent]
	createService  *messagepipeline.StreamingService[messaging.ProcessedMessageEvent]
	emailService   *messagepipeline.StreamingService[messaging.NotificationCreatedEvent]
	webhookService *messagepipeline.StreamingService[messaging.NotificationCreatedEvent]
	logger         *slog.Logger
}

// New assembles the service: the four streaming stages plus the operator
// lookup API.
func New(
	cfg *config.Config,
	consumers Consumers,
	deps Dependencies,
	authMiddleware func(http.Handler) http.Handler,
	logger *slog.Logger,
) (*Wrapper, error) {

	// 1. Base Server
	baseServer := microservice.NewBaseServer(logger, cfg.ListenAddr)
	stageCfg := messagepipeline.StreamingServiceConfig{NumWorkers: cfg.NumPipelineWorkers}

	// 2. ProcessMessage stage
	processService, err := messagepipeline.NewStreamingService(
		stageCfg,
		consumers.ProcessMessage,
		pipeline.CreatedMessageTransformer,
		pipeline.NewMessageProcessor(
			deps.Profiles,
			eligibility.NewResolver(deps.Preferences),
			deps.Messages,
			deps.Publisher,
			deps.Tracker,
			cfg.Delivery,
			cfg.Topics.MessageProcessedTopicID,
			logger,
		),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create process-message service: %w", err)
	}

	// 3. CreateNotification stage
	createService, err := messagepipeline.NewStreamingService(
		stageCfg,
		consumers.CreateNotification,
		pipeline.ProcessedMessageTransformer,
		pipeline.NewNotificationProcessor(
			deps.Messages,
			deps.Notifications,
			deps.Publisher,
			cfg.Delivery,
			cfg.Topics.NotificationEmailTopicID,
			cfg.Topics.NotificationWebhookTopicID,
			logger,
		),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create create-notification service: %w", err)
	}

	// 4. Delivery stages
	emailService, err := messagepipeline.NewStreamingService(
		stageCfg,
		consumers.DeliverEmail,
		pipeline.NotificationCreatedTransformer,
		pipeline.NewEmailDeliveryProcessor(deps.Notifications, deps.Messages, deps.EmailDispatcher, logger),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create deliver-email service: %w", err)
	}

	webhookService, err := messagepipeline.NewStreamingService(
		stageCfg,
		consumers.DeliverWebhook,
		pipeline.NotificationCreatedTransformer,
		pipeline.NewWebhookDeliveryProcessor(deps.Notifications, deps.Messages, deps.WebhookDispatcher, logger),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create deliver-webhook service: %w", err)
	}

	// 5. API (Notification Lookup)
	notificationAPI := api.NewNotificationAPI(deps.Notifications, logger)

	// Register Routes
	mux := baseServer.Mux()
	corsMiddleware := middleware.NewCorsMiddleware(cfg.CorsConfig, logger)

	handle := func(pattern string, handlerFunc http.HandlerFunc) {
		mux.Handle(pattern, corsMiddleware(authMiddleware(handlerFunc)))
	}

	handle("GET /api/v1/notifications/{messageId}", notificationAPI.GetByMessageID)

	if deps.PreferenceCache != nil {
		cacheAPI := api.NewPreferenceCacheAPI(deps.PreferenceCache, logger)
		handle("DELETE /api/v1/preferences/{fiscalCode}/{serviceId}/{version}/cache", cacheAPI.Invalidate)
	}

	// CORS preflight for the API namespace
	mux.Handle("OPTIONS /api/v1/", corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})))

	return &Wrapper{
		BaseServer:     baseServer,
		processService: processService,
		createService:  createService,
		emailService:   emailService,
		webhookService: webhookService,
		logger:         logger,
	}, nil
}

type pipelineStage interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type namedStage struct {
	name  string
	stage pipelineStage
}

func (w *Wrapper) stages() []namedStage {
	return []namedStage{
		{"process-message", w.processService},
		{"create-notification", w.createService},
		{"deliver-email", w.emailService},
		{"deliver-webhook", w.webhookService},
	}
}

func (w *Wrapper) Start(ctx context.Context) error {
	w.logger.Info("Core processing pipeline starting...")
	for _, s := range w.stages() {
		if err := s.stage.Start(ctx); err != nil {
			return fmt.Errorf("failed to start %s stage: %w", s.name, err)
		}
		w.logger.Info("Stage started.", "stage", s.name)
	}
	w.SetReady(true)
	w.logger.Info("Service is now ready.")
	return w.BaseServer.Start()
}

func (w *Wrapper) Shutdown(ctx context.Context) error {
	w.logger.Info("Shutting down service components...")
	var finalErr error
	for _, s := range w.stages() {
		if err := s.stage.Stop(ctx); err != nil {
			w.logger.Error("Stage shutdown failed.", "stage", s.name, "err", err)
			finalErr = err
		}
	}
	if err := w.BaseServer.Shutdown(ctx); err != nil {
		w.logger.Error("HTTP server shutdown failed.", "err", err)
		finalErr = err
	}
	w.logger.Info("Service shutdown complete.")
	return finalErr
}
