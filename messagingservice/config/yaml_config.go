// --- File: messagingservice/config/yaml_config.go ---
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"

	"github.com/civicsignal/go-message-pipeline/internal/eligibility"
)

type YamlCorsConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	Role           string   `yaml:"role"`
}

type YamlRedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

// YamlStagesConfig names the input subscription of each pipeline stage.
type YamlStagesConfig struct {
	ProcessMessageSubscriptionID     string `yaml:"process_message_subscription_id"`
	CreateNotificationSubscriptionID string `yaml:"create_notification_subscription_id"`
	DeliverEmailSubscriptionID       string `yaml:"deliver_email_subscription_id"`
	DeliverWebhookSubscriptionID     string `yaml:"deliver_webhook_subscription_id"`
}

// YamlTopicsConfig names the topics the stages publish to and consume from.
type YamlTopicsConfig struct {
	MessageCreatedTopicID      string `yaml:"message_created_topic_id"`
	MessageProcessedTopicID    string `yaml:"message_processed_topic_id"`
	NotificationEmailTopicID   string `yaml:"notification_email_topic_id"`
	NotificationWebhookTopicID string `yaml:"notification_webhook_topic_id"`
	DLQTopicID                 string `yaml:"dlq_topic_id"`
}

type YamlDeliveryConfig struct {
	SandboxFiscalCode       string   `yaml:"sandbox_fiscal_code"`
	EmailServiceBlocklist   []string `yaml:"email_service_blocklist"`
	WebhookServiceBlocklist []string `yaml:"webhook_service_blocklist"`
	DefaultWebhookURL       string   `yaml:"default_webhook_url"`
	OptInEmailEnabled       bool     `yaml:"opt_in_email_enabled"`
	OptOutEmailSwitchDate   string   `yaml:"opt_out_email_switch_date"`
}

type YamlSESConfig struct {
	Region      string `yaml:"region"`
	FromName    string `yaml:"from_name"`
	FromAddress string `yaml:"from_address"`
}

// YamlConfig is the structure that mirrors the raw config.yaml file.
type YamlConfig struct {
	ProjectID          string             `yaml:"project_id"`
	ListenAddr         string             `yaml:"listen_addr"`
	NumPipelineWorkers int                `yaml:"num_pipeline_workers"`
	Stages             YamlStagesConfig   `yaml:"stages"`
	Topics             YamlTopicsConfig   `yaml:"topics"`
	Delivery           YamlDeliveryConfig `yaml:"delivery"`
	SES                YamlSESConfig      `yaml:"ses"`
	CorsConfig         YamlCorsConfig     `yaml:"cors"`
	RedisConfig        YamlRedisConfig    `yaml:"redis"`
}

// NewConfigFromYaml converts the YamlConfig into a clean, base Config struct.
func NewConfigFromYaml(baseCfg *YamlConfig, logger *slog.Logger) (*Config, error) {
	logger.Debug("Mapping YAML config to base config struct")

	cfg := &Config{
		ProjectID:          baseCfg.ProjectID,
		ListenAddr:         baseCfg.ListenAddr,
		NumPipelineWorkers: baseCfg.NumPipelineWorkers,
		Stages: StagesConfig{
			ProcessMessageSubscriptionID:     baseCfg.Stages.ProcessMessageSubscriptionID,
			CreateNotificationSubscriptionID: baseCfg.Stages.CreateNotificationSubscriptionID,
			DeliverEmailSubscriptionID:       baseCfg.Stages.DeliverEmailSubscriptionID,
			DeliverWebhookSubscriptionID:     baseCfg.Stages.DeliverWebhookSubscriptionID,
		},
		Topics: TopicsConfig{
			MessageCreatedTopicID:      baseCfg.Topics.MessageCreatedTopicID,
			MessageProcessedTopicID:    baseCfg.Topics.MessageProcessedTopicID,
			NotificationEmailTopicID:   baseCfg.Topics.NotificationEmailTopicID,
			NotificationWebhookTopicID: baseCfg.Topics.NotificationWebhookTopicID,
			DLQTopicID:                 baseCfg.Topics.DLQTopicID,
		},
		Delivery: eligibility.DeliveryConfig{
			SandboxFiscalCode:       baseCfg.Delivery.SandboxFiscalCode,
			EmailServiceBlocklist:   baseCfg.Delivery.EmailServiceBlocklist,
			WebhookServiceBlocklist: baseCfg.Delivery.WebhookServiceBlocklist,
			DefaultWebhookURL:       baseCfg.Delivery.DefaultWebhookURL,
			OptInEmailEnabled:       baseCfg.Delivery.OptInEmailEnabled,
		},
		SES: SESConfig{
			Region:      baseCfg.SES.Region,
			FromName:    baseCfg.SES.FromName,
			FromAddress: baseCfg.SES.FromAddress,
		},
		CorsConfig: middleware.CorsConfig{
			AllowedOrigins: baseCfg.CorsConfig.AllowedOrigins,
			Role:           middleware.CorsRole(baseCfg.CorsConfig.Role),
		},
		Redis: RedisConfig{
			Addr:     baseCfg.RedisConfig.Addr,
			Password: baseCfg.RedisConfig.Password,
			DB:       baseCfg.RedisConfig.DB,
			Enabled:  baseCfg.RedisConfig.Enabled,
		},
	}

	if baseCfg.Delivery.OptOutEmailSwitchDate != "" {
		switchDate, err := time.Parse(time.RFC3339, baseCfg.Delivery.OptOutEmailSwitchDate)
		if err != nil {
			return nil, fmt.Errorf("invalid opt_out_email_switch_date %q: %w", baseCfg.Delivery.OptOutEmailSwitchDate, err)
		}
		cfg.Delivery.OptOutEmailSwitchDate = switchDate
	}

	logger.Debug("YAML config mapping complete",
		"project_id", cfg.ProjectID,
		"listen_addr", cfg.ListenAddr,
	)

	return cfg, nil
}
