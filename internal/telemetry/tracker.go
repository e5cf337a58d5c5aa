// Package telemetry emits the per-message processing event recorded once
// preference resolution has completed.
package telemetry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"github.com/civicsignal/go-message-pipeline/pkg/messaging"
)

// Event is emitted exactly once per message that reaches preference
// resolution, regardless of the terminal outcome.
type Event struct {
	HashedFiscalCode string
	ServiceID        string
	Mode             messaging.PreferenceMode
	InboxBlocked     bool
}

// Tracker is injected into the pipeline orchestrator; it never alters
// control flow.
type Tracker interface {
	MessageProcessed(ctx context.Context, event Event)
}

// HashFiscalCode returns the sha256 hex digest of a fiscal code so telemetry
// never carries the identifier in clear.
func HashFiscalCode(fiscalCode string) string {
	sum := sha256.Sum256([]byte(fiscalCode))
	return hex.EncodeToString(sum[:])
}

// LogTracker records processing events as structured log lines.
type LogTracker struct {
	logger *slog.Logger
}

func NewLogTracker(logger *slog.Logger) *LogTracker {
	return &LogTracker{logger: logger.With("component", "Telemetry")}
}

func (t *LogTracker) MessageProcessed(_ context.Context, event Event) {
	t.logger.Info("message.processed",
		"hashed_fiscal_code", event.HashedFiscalCode,
		"service_id", event.ServiceID,
		"preference_mode", string(event.Mode),
		"inbox_blocked", event.InboxBlocked,
	)
}
