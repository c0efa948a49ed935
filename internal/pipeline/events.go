// Package pipeline orchestrates the prospect processing run: fetch,
// extract, classify, map, generate and materialize, with per-stage
// checkpoints and progress events.
package pipeline

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/estateforge/prospect-engine/internal/cache"
	"github.com/estateforge/prospect-engine/internal/observability"
	"github.com/estateforge/prospect-engine/internal/storage"
)

// Event is one progress notification. Progress runs 0-100 over a whole run.
type Event struct {
	ProspectID uuid.UUID              `json:"prospectId"`
	Status     storage.ProspectStatus `json:"status"`
	Progress   int                    `json:"progress"`
	Message    string                 `json:"message"`
	Data       map[string]any         `json:"data,omitempty"`
}

// EventChannel names the per-prospect progress channel.
func EventChannel(prospectID uuid.UUID) string {
	return cache.Key("prospect", prospectID.String(), "events")
}

// Publisher fans progress events out through the broker. A nil broker
// makes publishing a no-op; events carry no durability guarantee beyond
// the final prospect state.
type Publisher struct {
	broker cache.Broker
	logger *observability.Logger
}

// NewPublisher creates an event publisher.
func NewPublisher(broker cache.Broker, logger *observability.Logger) *Publisher {
	return &Publisher{broker: broker, logger: logger.WithStage("events")}
}

// Publish emits one event. Delivery failures are logged, never propagated;
// progress reporting must not break the pipeline.
func (p *Publisher) Publish(ctx context.Context, ev Event) {
	if p == nil || p.broker == nil {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Event marshal failed")
		return
	}
	if err := p.broker.Publish(ctx, EventChannel(ev.ProspectID), payload); err != nil {
		p.logger.Warn().Err(err).Msg("Event publish failed")
	}
}
