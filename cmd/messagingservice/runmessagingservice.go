// --- File: cmd/messagingservice/runmessagingservice.go ---
package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/illmade-knight/go-dataflow/pkg/messagepipeline"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"

	"github.com/civicsignal/go-message-pipeline/internal/api"
	"github.com/civicsignal/go-message-pipeline/internal/platform/email"
	pspublisher "github.com/civicsignal/go-message-pipeline/internal/platform/pubsub"
	"github.com/civicsignal/go-message-pipeline/internal/platform/webhook"
	"github.com/civicsignal/go-message-pipeline/internal/storage/cache"
	fsStore "github.com/civicsignal/go-message-pipeline/internal/storage/firestore"
	"github.com/civicsignal/go-message-pipeline/internal/telemetry"
	"github.com/civicsignal/go-message-pipeline/pkg/store"

	"github.com/civicsignal/go-message-pipeline/messagingservice"
	"github.com/civicsignal/go-message-pipeline/messagingservice/config"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gopkg.in/yaml.v3"
)

//go:embed local.yaml
var configFile []byte

func main() {
	var logLevel slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug", "DEBUG":
		logLevel = slog.LevelDebug
	case "info", "INFO":
		logLevel = slog.LevelInfo
	case "warn", "WARN":
		logLevel = slog.LevelWarn
	case "error", "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})).With("service", "go-message-pipeline")
	slog.SetDefault(logger)

	ctx := context.Background()

	// --- Config Loading ---
	var yamlCfg config.YamlConfig
	if err := yaml.Unmarshal(configFile, &yamlCfg); err != nil {
		logger.Error("Failed to unmarshal embedded yaml config", "err", err)
		os.Exit(1)
	}
	baseCfg, err := config.NewConfigFromYaml(&yamlCfg, logger)
	if err != nil {
		logger.Error("Config mapping failed", "err", err)
		os.Exit(1)
	}
	cfg, err := config.UpdateConfigWithEnvOverrides(baseCfg, logger)
	if err != nil {
		logger.Error("Config failed", "err", err)
		os.Exit(1)
	}

	// --- Infrastructure Clients ---
	psClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		logger.Error("PubSub client failed", "err", err)
		os.Exit(1)
	}
	defer psClient.Close()

	fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		logger.Error("Firestore client failed", "err", err)
		os.Exit(1)
	}
	defer fsClient.Close()

	// --- Stores (Preference store optionally decorated) ---
	var preferences store.ServicePreferenceStore = fsStore.NewPreferenceStore(fsClient)
	var preferenceCache api.PreferenceCacheInvalidator
	logger.Info("PreferenceStore initialized", "type", "firestore")

	if cfg.Redis.Enabled {
		logger.Info("Initializing Redis Cache layer...", "addr", cfg.Redis.Addr)
		redisClient, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Error("Failed to connect to Redis", "err", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		cachedPreferences := cache.NewCachedPreferenceStore(preferences, redisClient, time.Hour)
		preferences = cachedPreferences
		preferenceCache = cachedPreferences
		logger.Info("PreferenceStore upgraded", "type", "redis_cached_firestore")
	}

	publisher := pspublisher.NewPublisher(psClient, logger)
	defer publisher.Stop()

	// --- Auth ---
	identityURL := os.Getenv("IDENTITY_SERVICE_URL")
	if identityURL == "" {
		identityURL = "http://localhost:3000"
	}
	jwksURL, _ := middleware.DiscoverAndValidateJWTConfig(identityURL, middleware.RSA256, logger)
	authMiddleware, _ := middleware.NewJWKSAuthMiddleware(jwksURL, logger)

	// --- Dispatchers ---

	// A. Email (SES)
	awsOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.SES.Region)}
	if cfg.SES.AccessKeyID != "" && cfg.SES.SecretAccessKey != "" {
		awsOpts = append(awsOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.SES.AccessKeyID, cfg.SES.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		logger.Error("Failed to load AWS config", "err", err)
		os.Exit(1)
	}
	emailDispatcher := email.NewDispatcher(sesv2.NewFromConfig(awsCfg), email.Config{
		FromName:    cfg.SES.FromName,
		FromAddress: cfg.SES.FromAddress,
	}, logger)

	// B. Webhook
	if cfg.Delivery.DefaultWebhookURL == "" {
		logger.Warn("No default webhook URL configured. Webhook fan-out is disabled.")
	}
	webhookDispatcher := webhook.NewDispatcher(&http.Client{Timeout: 10 * time.Second}, cfg.WebhookBearerToken, logger)

	// --- Consumers (one per stage) & Service ---
	consumers, err := newStageConsumers(ctx, cfg, psClient, logger)
	if err != nil {
		logger.Error("Consumer setup failed", "err", err)
		os.Exit(1)
	}

	service, err := messagingservice.New(
		cfg,
		consumers,
		messagingservice.Dependencies{
			Profiles:          fsStore.NewProfileStore(fsClient),
			Preferences:       preferences,
			PreferenceCache:   preferenceCache,
			Messages:          fsStore.NewMessageStore(fsClient),
			Notifications:     fsStore.NewNotificationStore(fsClient),
			Publisher:         publisher,
			Tracker:           telemetry.NewLogTracker(logger),
			EmailDispatcher:   emailDispatcher,
			WebhookDispatcher: webhookDispatcher,
		},
		authMiddleware,
		logger,
	)
	if err != nil {
		logger.Error("Service creation failed", "err", err)
		os.Exit(1)
	}

	logger.Info("Starting service...")
	if err := service.Start(ctx); err != nil {
		logger.Error("Service shutdown with error", "err", err)
		os.Exit(1)
	}
}

type stageBinding struct {
	subscriptionID string
	topicID        string
	dst            *messagepipeline.MessageConsumer
}

func newStageConsumers(ctx context.Context, cfg *config.Config, psClient *pubsub.Client, logger *slog.Logger) (messagingservice.Consumers, error) {
	var consumers messagingservice.Consumers
	bindings := []stageBinding{
		{cfg.Stages.ProcessMessageSubscriptionID, cfg.Topics.MessageCreatedTopicID, &consumers.ProcessMessage},
		{cfg.Stages.CreateNotificationSubscriptionID, cfg.Topics.MessageProcessedTopicID, &consumers.CreateNotification},
		{cfg.Stages.DeliverEmailSubscriptionID, cfg.Topics.NotificationEmailTopicID, &consumers.DeliverEmail},
		{cfg.Stages.DeliverWebhookSubscriptionID, cfg.Topics.NotificationWebhookTopicID, &consumers.DeliverWebhook},
	}

	for _, b := range bindings {
		consumer, err := newStageConsumer(ctx, cfg, psClient, b.subscriptionID, b.topicID, logger)
		if err != nil {
			return messagingservice.Consumers{}, err
		}
		*b.dst = consumer
	}
	return consumers, nil
}

func newStageConsumer(ctx context.Context, cfg *config.Config, psClient *pubsub.Client, subscriptionID, topicID string, logger *slog.Logger) (messagepipeline.MessageConsumer, error) {
	sub := convertPubsub(cfg.ProjectID, subscriptionID, "subscriptions")
	topic := convertPubsub(cfg.ProjectID, topicID, "topics")
	dlt := convertPubsub(cfg.ProjectID, cfg.Topics.DLQTopicID, "topics")

	subConfig := &pubsubpb.Subscription{
		Name:               sub,
		Topic:              topic,
		AckDeadlineSeconds: 10,
		DeadLetterPolicy: &pubsubpb.DeadLetterPolicy{
			DeadLetterTopic:     dlt,
			MaxDeliveryAttempts: 5,
		},
		EnableMessageOrdering: false,
	}
	logger.Debug("Ensuring subscription exists", "sub", subConfig.Name, "topic", subConfig.Topic)
	_, err := psClient.SubscriptionAdminClient.CreateSubscription(ctx, subConfig)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			logger.Debug("Subscription already exists, skipping creation", "sub", subConfig.Name)
		} else {
			logger.Error("Failed to create subscription", "sub", subConfig.Name, "err", err)
			return nil, fmt.Errorf("could not create sub: %s", sub)
		}
	}

	return messagepipeline.NewGooglePubsubConsumer(
		messagepipeline.NewGooglePubsubConsumerDefaults(subConfig.Name), psClient, logger,
	)
}

type PS string

func convertPubsub(project, id string, ps PS) string {
	return fmt.Sprintf("projects/%s/%s/%s", project, ps, id)
}
