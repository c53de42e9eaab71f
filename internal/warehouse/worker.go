package warehouse

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/metricmind/performancecore-backend/pkg/enums"
	"github.com/metricmind/performancecore-backend/pkg/logger"
	"github.com/metricmind/performancecore-backend/pkg/outbox"
)

// Processor handles decoded outbox envelopes.
type Processor interface {
	Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error
}

// Worker pulls snapshot events off the Pub/Sub subscription and hands them
// to the exporter. Malformed messages are acked and logged; handler failures
// are nacked for redelivery.
type Worker struct {
	subscription *gcppubsub.Subscriber
	processor    Processor
	logg         *logger.Logger
}

// NewWorker builds the warehouse consumer worker.
func NewWorker(subscription *gcppubsub.Subscriber, processor Processor, logg *logger.Logger) (*Worker, error) {
	if subscription == nil {
		return nil, errors.New("snapshot subscription is required")
	}
	if processor == nil {
		return nil, errors.New("processor is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Worker{
		subscription: subscription,
		processor:    processor,
		logg:         logg,
	}, nil
}

// Run consumes messages until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return w.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if w.process(innerCtx, msg) {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// process returns true when the message should be nacked.
func (w *Worker) process(ctx context.Context, msg *gcppubsub.Message) bool {
	logCtx := w.logg.WithFields(ctx, map[string]any{"message_id": msg.ID})

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		w.logg.Warn(logCtx, "invalid payload envelope")
		return false
	}

	eventType := enums.OutboxEventType(strings.TrimSpace(msg.Attributes["event_type"]))
	if eventType == "" {
		w.logg.Warn(logCtx, "event_type attribute missing")
		return false
	}
	if envelope.EventID == "" {
		envelope.EventID = strings.TrimSpace(msg.Attributes["event_id"])
	}

	if err := w.processor.Process(logCtx, eventType, envelope); err != nil {
		w.logg.Error(logCtx, "warehouse processing failed", err)
		return true
	}
	return false
}
