// --- File: messagingservice/config/config.go ---
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"

	"github.com/civicsignal/go-message-pipeline/internal/eligibility"
)

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// StagesConfig holds the input subscription of each pipeline stage.
type StagesConfig struct {
	ProcessMessageSubscriptionID     string
	CreateNotificationSubscriptionID string
	DeliverEmailSubscriptionID       string
	DeliverWebhookSubscriptionID     string
}

// TopicsConfig holds the topic graph the stages publish into. The
// message-created topic is only used to bind the ProcessMessage
// subscription; this service never publishes to it.
type TopicsConfig struct {
	MessageCreatedTopicID      string
	MessageProcessedTopicID    string
	NotificationEmailTopicID   string
	NotificationWebhookTopicID string
	DLQTopicID                 string
}

type SESConfig struct {
	Region      string
	FromName    string
	FromAddress string
	// Static credentials are env-only; empty means the SDK default chain.
	AccessKeyID     string
	SecretAccessKey string
}

// Config defines the *single*, authoritative configuration.
type Config struct {
	ProjectID          string
	ListenAddr         string
	NumPipelineWorkers int

	Stages   StagesConfig
	Topics   TopicsConfig
	Delivery eligibility.DeliveryConfig
	SES      SESConfig

	// WebhookBearerToken authenticates outbound webhook calls. Env-only.
	WebhookBearerToken string

	CorsConfig middleware.CorsConfig
	Redis      RedisConfig
}

// UpdateConfigWithEnvOverrides applies environment variables and final validation.
func UpdateConfigWithEnvOverrides(cfg *Config, logger *slog.Logger) (*Config, error) {
	logger.Debug("Applying environment variable overrides...")

	// 1. Apply Environment Overrides
	overrideString := func(key string, dst *string) {
		if val := os.Getenv(key); val != "" {
			logger.Debug("Overriding config value", "key", key, "source", "env")
			*dst = val
		}
	}

	overrideString("PROJECT_ID", &cfg.ProjectID)
	if val := os.Getenv("PORT"); val != "" {
		logger.Debug("Overriding config value", "key", "PORT", "source", "env")
		cfg.ListenAddr = ":" + val
	}
	if val := os.Getenv("NUM_PIPELINE_WORKERS"); val != "" {
		if workers, err := strconv.Atoi(val); err == nil && workers > 0 {
			logger.Debug("Overriding config value", "key", "NUM_PIPELINE_WORKERS", "source", "env")
			cfg.NumPipelineWorkers = workers
		}
	}

	// Stage subscriptions
	overrideString("PROCESS_MESSAGE_SUBSCRIPTION_ID", &cfg.Stages.ProcessMessageSubscriptionID)
	overrideString("CREATE_NOTIFICATION_SUBSCRIPTION_ID", &cfg.Stages.CreateNotificationSubscriptionID)
	overrideString("DELIVER_EMAIL_SUBSCRIPTION_ID", &cfg.Stages.DeliverEmailSubscriptionID)
	overrideString("DELIVER_WEBHOOK_SUBSCRIPTION_ID", &cfg.Stages.DeliverWebhookSubscriptionID)

	// Topics
	overrideString("MESSAGE_CREATED_TOPIC_ID", &cfg.Topics.MessageCreatedTopicID)
	overrideString("MESSAGE_PROCESSED_TOPIC_ID", &cfg.Topics.MessageProcessedTopicID)
	overrideString("NOTIFICATION_EMAIL_TOPIC_ID", &cfg.Topics.NotificationEmailTopicID)
	overrideString("NOTIFICATION_WEBHOOK_TOPIC_ID", &cfg.Topics.NotificationWebhookTopicID)
	overrideString("DLQ_TOPIC_ID", &cfg.Topics.DLQTopicID)

	// Delivery behaviour
	overrideString("SANDBOX_FISCAL_CODE", &cfg.Delivery.SandboxFiscalCode)
	overrideString("DEFAULT_WEBHOOK_URL", &cfg.Delivery.DefaultWebhookURL)
	if val := os.Getenv("EMAIL_SERVICE_BLOCKLIST"); val != "" {
		cfg.Delivery.EmailServiceBlocklist = splitCSV(val)
	}
	if val := os.Getenv("WEBHOOK_SERVICE_BLOCKLIST"); val != "" {
		cfg.Delivery.WebhookServiceBlocklist = splitCSV(val)
	}
	if val := os.Getenv("OPT_IN_EMAIL_ENABLED"); val != "" {
		enabled, _ := strconv.ParseBool(val)
		cfg.Delivery.OptInEmailEnabled = enabled
	}
	if val := os.Getenv("OPT_OUT_EMAIL_SWITCH_DATE"); val != "" {
		switchDate, err := time.Parse(time.RFC3339, val)
		if err != nil {
			return nil, fmt.Errorf("invalid OPT_OUT_EMAIL_SWITCH_DATE %q: %w", val, err)
		}
		cfg.Delivery.OptOutEmailSwitchDate = switchDate
	}

	// SES
	overrideString("SES_REGION", &cfg.SES.Region)
	overrideString("SES_FROM_NAME", &cfg.SES.FromName)
	overrideString("SES_FROM_ADDRESS", &cfg.SES.FromAddress)
	overrideString("SES_ACCESS_KEY_ID", &cfg.SES.AccessKeyID)
	overrideString("SES_SECRET_ACCESS_KEY", &cfg.SES.SecretAccessKey)

	// Webhook auth
	overrideString("WEBHOOK_BEARER_TOKEN", &cfg.WebhookBearerToken)

	// Redis Overrides
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		cfg.Redis.Addr = val
		cfg.Redis.Enabled = true
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		cfg.Redis.Password = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if db, err := strconv.Atoi(val); err == nil {
			cfg.Redis.DB = db
		}
	}
	if val := os.Getenv("REDIS_ENABLED"); val != "" {
		enabled, _ := strconv.ParseBool(val)
		cfg.Redis.Enabled = enabled
	}

	// CORS Overrides
	if corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS"); corsOrigins != "" {
		logger.Debug("Overriding config value", "key", "CORS_ALLOWED_ORIGINS", "source", "env")
		cfg.CorsConfig.AllowedOrigins = splitCSV(corsOrigins)
	}

	// 2. Final Validation
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project_id is required (set via YAML or PROJECT_ID env var)")
	}
	missingSubs := map[string]string{
		"stages.process_message_subscription_id":     cfg.Stages.ProcessMessageSubscriptionID,
		"stages.create_notification_subscription_id": cfg.Stages.CreateNotificationSubscriptionID,
		"stages.deliver_email_subscription_id":       cfg.Stages.DeliverEmailSubscriptionID,
		"stages.deliver_webhook_subscription_id":     cfg.Stages.DeliverWebhookSubscriptionID,
	}
	for key, val := range missingSubs {
		if val == "" {
			return nil, fmt.Errorf("%s is required", key)
		}
	}
	if cfg.Topics.MessageProcessedTopicID == "" ||
		cfg.Topics.NotificationEmailTopicID == "" ||
		cfg.Topics.NotificationWebhookTopicID == "" {
		return nil, fmt.Errorf("topics.message_processed_topic_id, topics.notification_email_topic_id and topics.notification_webhook_topic_id are required")
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.NumPipelineWorkers <= 0 {
		cfg.NumPipelineWorkers = 1
	}

	logger.Debug("Configuration finalized and validated successfully")
	return cfg, nil
}

func splitCSV(raw string) []string {
	var clean []string
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			clean = append(clean, trimmed)
		}
	}
	return clean
}
