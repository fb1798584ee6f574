// Package events holds publishers that need no broker.
package events

import (
	"context"
	"log/slog"

	interfaces "github.com/yazan176yazan-ctrl/referral-ledger/internal/interfaces"
)

// LogPublisher writes events to the logger instead of a broker. It is the
// default backend and the fallback when a broker is unreachable at startup.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, eventType string, event any) error {
	p.logger.DebugContext(ctx, "event", "type", eventType, "payload", event)
	return nil
}

var _ interfaces.EventPublisher = (*LogPublisher)(nil)
