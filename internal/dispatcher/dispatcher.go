package dispatcher

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/heartpost/greeting-gateway/internal/model"
	"github.com/heartpost/greeting-gateway/internal/repository"
	"github.com/heartpost/greeting-gateway/pkg/logger"
	"github.com/heartpost/greeting-gateway/pkg/prom"
)

// GreetingStore is the slice of the repository the dispatcher needs.
type GreetingStore interface {
	FindDue(ctx context.Context, now time.Time, limit int) ([]*model.Greeting, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, d *model.Diagnostic) error
}

// TaskPublisher enqueues a delivery task for a greeting id.
type TaskPublisher interface {
	PublishTask(ctx context.Context, greetingID string) (string, error)
}

type Config struct {
	TickInterval time.Duration
	BatchSize    int
}

// Dispatcher periodically scans for due pending greetings, claims each one
// by flipping it to processing and hands it to the delivery queue. A
// greeting that cannot be claimed or enqueued is finalized as failed with a
// queueing-stage diagnostic rather than left stuck in pending.
type Dispatcher struct {
	store     GreetingStore
	publisher TaskPublisher
	config    Config
	clock     func() time.Time
}

func New(store GreetingStore, publisher TaskPublisher, config Config) *Dispatcher {
	if config.TickInterval == 0 {
		config.TickInterval = 30 * time.Second
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
	return &Dispatcher{
		store:     store,
		publisher: publisher,
		config:    config,
		clock:     time.Now,
	}
}

// SetClock overrides the time source. Intended for tests.
func (d *Dispatcher) SetClock(clock func() time.Time) {
	d.clock = clock
}

// RunTick performs one scan-claim-enqueue pass and returns the number of
// greetings handed to the queue.
func (d *Dispatcher) RunTick(ctx context.Context) (int, error) {
	now := d.clock()

	due, err := d.store.FindDue(ctx, now, d.config.BatchSize)
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, g := range due {
		if err := d.store.MarkProcessing(ctx, g.ID); err != nil {
			if errors.Is(err, repository.ErrNotClaimable) {
				// Claimed by a concurrent tick in the meantime.
				continue
			}
			d.failQueueing(ctx, g.ID, err)
			continue
		}

		if _, err := d.publisher.PublishTask(ctx, g.ID.String()); err != nil {
			d.failQueueing(ctx, g.ID, err)
			continue
		}

		dispatched++
	}

	if dispatched > 0 {
		prom.AddGreetingsClaimed(float64(dispatched))
		logger.Info("dispatched due greetings", "count", dispatched)
	}

	return dispatched, nil
}

// Run ticks until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.config.TickInterval)
	defer ticker.Stop()

	logger.Info("dispatcher started", "tick_interval", d.config.TickInterval, "batch_size", d.config.BatchSize)

	for {
		select {
		case <-ctx.Done():
			logger.Info("dispatcher stopped")
			return
		case <-ticker.C:
			if _, err := d.RunTick(ctx); err != nil {
				logger.Error("dispatcher tick failed", "error", err)
			}
		}
	}
}

func (d *Dispatcher) failQueueing(ctx context.Context, id uuid.UUID, cause error) {
	logger.Error("failed to enqueue greeting", "greeting_id", id, "error", cause)
	prom.IncGreetingFailed(model.StageQueueing)

	diag := &model.Diagnostic{
		Error:     cause.Error(),
		Stage:     model.StageQueueing,
		Timestamp: d.clock().UTC().Format(time.RFC3339),
	}
	if err := d.store.MarkFailed(ctx, id, diag); err != nil {
		logger.Error("failed to record queueing failure", "greeting_id", id, "error", err)
	}
}
