package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/metricmind/performancecore-backend/pkg/config"
	"github.com/metricmind/performancecore-backend/pkg/db/models"
	"github.com/metricmind/performancecore-backend/pkg/enums"
	"github.com/metricmind/performancecore-backend/pkg/logger"
	"github.com/metricmind/performancecore-backend/pkg/outbox/registry"
)

const (
	publishTimeout = 15 * time.Second
	maxPollDelay   = 10 * time.Second
	jitterWindow   = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

// eventQueue is the outbox table surface the dispatcher drives. Rows are
// fetched FOR UPDATE SKIP LOCKED inside the batch transaction, so multiple
// publisher replicas never double-send.
type eventQueue interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type deadLetterSink interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type txRunner interface {
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

// snapshotPublisher sends one message to the snapshot events topic and
// blocks until the broker acknowledges it. All three event types
// (snapshot.created, report.dispatched, kpi.status_changed) share that
// topic; consumers fan out on the event_type attribute.
type snapshotPublisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) (string, error)
}

// DispatcherParams configure the outbox dispatcher.
type DispatcherParams struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        txRunner
	Queue     eventQueue
	DLQ       deadLetterSink
	Resolver  eventResolver
	Publisher snapshotPublisher
}

// Dispatcher drains the outbox table into Pub/Sub. Each batch runs in one
// transaction; a transient publish failure marks the row for retry, a
// non-retryable or exhausted row is parked in the DLQ table.
type Dispatcher struct {
	logg        *logger.Logger
	db          txRunner
	queue       eventQueue
	dlq         deadLetterSink
	resolver    eventResolver
	pub         snapshotPublisher
	batchSize   int
	maxAttempts int
	poll        time.Duration
}

func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("transaction runner is required")
	}
	if params.Queue == nil {
		return nil, errors.New("outbox queue is required")
	}
	if params.DLQ == nil {
		return nil, errors.New("dead letter sink is required")
	}
	if params.Resolver == nil {
		return nil, errors.New("event resolver is required")
	}
	if params.Publisher == nil {
		return nil, errors.New("snapshot publisher is required")
	}

	cfg := params.Config.Outbox
	d := &Dispatcher{
		logg:        params.Logger,
		db:          params.DB,
		queue:       params.Queue,
		dlq:         params.DLQ,
		resolver:    params.Resolver,
		pub:         params.Publisher,
		batchSize:   cfg.BatchSize,
		maxAttempts: cfg.MaxAttempts,
		poll:        time.Duration(cfg.PollIntervalMS) * time.Millisecond,
	}
	if d.batchSize <= 0 {
		d.batchSize = 50
	}
	if d.maxAttempts <= 0 {
		d.maxAttempts = 10
	}
	if d.poll <= 0 {
		d.poll = 500 * time.Millisecond
	}
	return d, nil
}

// Run polls until the context is canceled. A full batch is followed by an
// immediate next poll so a backlog drains at publish speed; an empty or
// failed batch waits out the (jittered, capped) delay first.
func (d *Dispatcher) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	delay := d.poll

	for {
		select {
		case <-ctx.Done():
			d.logg.Info(ctx, "outbox dispatcher stopping")
			return ctx.Err()
		default:
		}

		fetched, err := d.dispatchBatch(ctx)
		if err != nil {
			d.logg.Error(ctx, "outbox batch failed", err)
			delay = capDelay(delay * 2)
			if err := d.wait(ctx, delay); err != nil {
				return err
			}
			continue
		}

		delay = d.poll
		if fetched >= d.batchSize {
			continue
		}
		if err := d.wait(ctx, delay); err != nil {
			return err
		}
	}
}

func (d *Dispatcher) dispatchBatch(ctx context.Context) (int, error) {
	fetched := 0
	err := d.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := d.queue.FetchUnpublishedForPublish(tx, d.batchSize, d.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox rows: %w", err)
		}
		fetched = len(rows)
		for _, row := range rows {
			if err := d.dispatch(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	return fetched, err
}

// dispatch publishes one row. It returns an error only when a bookkeeping
// write fails, which aborts the whole batch transaction; publish failures
// are absorbed into the row's retry state.
func (d *Dispatcher) dispatch(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	logCtx := d.rowContext(ctx, row)

	resolved, err := d.resolver.Resolve(row)
	if err != nil {
		return d.park(logCtx, tx, row, enums.OutboxDLQReasonNonRetryable, err)
	}

	messageID, err := d.publish(ctx, row, resolved)
	if err != nil {
		var permanent registry.NonRetryableError
		if errors.As(err, &permanent) {
			return d.park(logCtx, tx, row, enums.OutboxDLQReasonNonRetryable, err)
		}

		attempts := row.AttemptCount + 1
		if attempts >= d.maxAttempts {
			exhausted := fmt.Errorf("publish attempts exhausted: %w", err)
			return d.park(logCtx, tx, row, enums.OutboxDLQReasonMaxAttempts, exhausted)
		}

		warnCtx := d.logg.WithFields(logCtx, map[string]any{
			"attempt_count": attempts,
			"error":         err.Error(),
		})
		d.logg.Warn(warnCtx, "outbox publish failed; will retry")
		if markErr := d.queue.MarkFailedTx(tx, row.ID, err); markErr != nil {
			return fmt.Errorf("mark failed %s: %w", row.ID, markErr)
		}
		return nil
	}

	if err := d.queue.MarkPublishedTx(tx, row.ID); err != nil {
		return fmt.Errorf("mark published %s: %w", row.ID, err)
	}
	d.logg.Info(d.logg.WithField(logCtx, "message_id", messageID), "outbox event published")
	return nil
}

// park moves a row that will never publish into the DLQ table and marks it
// terminal in the same transaction.
func (d *Dispatcher) park(logCtx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	warnCtx := d.logg.WithFields(logCtx, map[string]any{
		"error_reason": string(reason),
		"error":        cause.Error(),
	})
	d.logg.Warn(warnCtx, "outbox event parked in dead letter queue")

	message := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &message,
		AttemptCount:  row.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := d.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", row.ID, err)
	}
	if err := d.queue.MarkTerminalTx(tx, row.ID, cause, d.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", row.ID, err)
	}
	return nil
}

func (d *Dispatcher) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) (string, error) {
	msg := &gcppubsub.Message{
		Data: row.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"created_at":     row.CreatedAt.Format(time.RFC3339Nano),
		},
	}
	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	return d.pub.Publish(publishCtx, msg)
}

func (d *Dispatcher) rowContext(ctx context.Context, row models.OutboxEvent) context.Context {
	return d.logg.WithFields(ctx, map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID.String(),
		"attempt_count":  row.AttemptCount,
	})
}

func (d *Dispatcher) wait(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay + time.Duration(jitterSource.Int63n(int64(jitterWindow))))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func capDelay(delay time.Duration) time.Duration {
	if delay > maxPollDelay {
		return maxPollDelay
	}
	return delay
}

// topicPublisher adapts the GCP publisher handle to the blocking
// snapshotPublisher shape the dispatcher wants.
type topicPublisher struct {
	topic *gcppubsub.Publisher
}

func newTopicPublisher(topic *gcppubsub.Publisher) (*topicPublisher, error) {
	if topic == nil {
		return nil, errors.New("snapshot topic publisher is not configured")
	}
	return &topicPublisher{topic: topic}, nil
}

func (p *topicPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) (string, error) {
	return p.topic.Publish(ctx, msg).Get(ctx)
}
