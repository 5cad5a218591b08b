package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/heartpost/greeting-gateway/pkg/logger"
	"github.com/heartpost/greeting-gateway/pkg/redis"
)

// DeliveryTask is the envelope carried on the stream. The pipeline publishes
// greeting ids only; workers refetch the row so they always act on current
// state.
type DeliveryTask struct {
	GreetingID string `json:"greeting_id"`
	EnqueuedAt int64  `json:"enqueued_at"`
}

// Task is a single consumed stream entry.
type Task struct {
	ID        string
	Data      []byte
	Metadata  map[string]string
	Timestamp time.Time
	Attempts  int
	acked     bool
	nacked    bool
	queue     *Queue
}

// Ack marks the task as successfully processed.
func (t *Task) Ack() error {
	if t.acked {
		return fmt.Errorf("task already acknowledged")
	}
	if t.nacked {
		return fmt.Errorf("task already rejected")
	}

	t.acked = true
	return t.queue.ackTask(t.ID)
}

// Nack rejects the task; it stays pending and will be reclaimed after the
// visibility timeout.
func (t *Task) Nack() error {
	if t.acked {
		return fmt.Errorf("task already acknowledged")
	}
	if t.nacked {
		return fmt.Errorf("task already rejected")
	}

	t.nacked = true
	return nil
}

// TaskHandler processes a consumed task. A nil return auto-acks the task; an
// error leaves it pending for retry.
type TaskHandler func(ctx context.Context, task *Task) error

type QueueConfig struct {
	Name              string
	ConsumerGroup     string
	ConsumerName      string
	MaxRetries        int
	VisibilityTimeout time.Duration
	PollInterval      time.Duration
	BatchSize         int64
	MaxLen            int64
	EnableDLQ         bool
}

// Queue is a redis-streams backed work queue with consumer groups, at-least-
// once delivery and a dead-letter stream for tasks that exhaust retries.
type Queue struct {
	adapter    redis.RedisAdapter
	config     QueueConfig
	handler    TaskHandler
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.RWMutex
	processing map[string]*Task
}

type QueueStats struct {
	TotalTasks    int64
	PendingTasks  int64
	ConsumerCount int64
}

func NewQueue(adapter redis.RedisAdapter, config QueueConfig) (*Queue, error) {
	if config.Name == "" {
		return nil, fmt.Errorf("queue name is required")
	}
	if config.ConsumerGroup == "" {
		config.ConsumerGroup = "default-group"
	}
	if config.ConsumerName == "" {
		config.ConsumerName = fmt.Sprintf("consumer-%d", time.Now().UnixNano())
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.VisibilityTimeout == 0 {
		config.VisibilityTimeout = 30 * time.Second
	}
	if config.PollInterval == 0 {
		config.PollInterval = 1 * time.Second
	}
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &Queue{
		adapter:    adapter,
		config:     config,
		ctx:        ctx,
		cancel:     cancel,
		processing: make(map[string]*Task),
	}

	if err := q.initConsumerGroup(); err != nil {
		// Group might already exist, which is fine
	}

	return q, nil
}

func (q *Queue) initConsumerGroup() error {
	return q.adapter.XGroupCreateMkStream(
		q.config.Name,
		q.config.ConsumerGroup,
		"0",
	)
}

// Publish adds a raw payload to the stream.
func (q *Queue) Publish(ctx context.Context, data []byte, metadata map[string]string) (string, error) {
	if metadata == nil {
		metadata = make(map[string]string)
	}

	values := map[string]interface{}{
		"data":      string(data),
		"timestamp": time.Now().Unix(),
		"attempts":  0,
	}

	for k, v := range metadata {
		values["meta_"+k] = v
	}

	id, err := q.adapter.XAdd(q.config.Name, values)
	if err != nil {
		return "", fmt.Errorf("failed to publish task: %w", err)
	}

	if q.config.MaxLen > 0 {
		_ = q.adapter.XTrimApprox(q.config.Name, q.config.MaxLen)
	}

	return id, nil
}

// PublishTask publishes a JSON-encoded delivery task for a greeting id.
func (q *Queue) PublishTask(ctx context.Context, greetingID string) (string, error) {
	payload, err := json.Marshal(DeliveryTask{
		GreetingID: greetingID,
		EnqueuedAt: time.Now().Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal delivery task: %w", err)
	}
	return q.Publish(ctx, payload, map[string]string{"greeting_id": greetingID})
}

// Consume starts the consume loop with auto-ack semantics.
func (q *Queue) Consume(handler TaskHandler) error {
	if handler == nil {
		return fmt.Errorf("task handler is required")
	}

	q.handler = handler
	q.wg.Add(1)

	go q.consumeLoop()

	return nil
}

func (q *Queue) consumeLoop() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			q.processTasks()
			q.claimStuckTasks()
		}
	}
}

func (q *Queue) processTasks() {
	entries, err := q.adapter.XReadGroup(
		q.config.ConsumerGroup,
		q.config.ConsumerName,
		q.config.Name,
		">",
		q.config.BatchSize,
	)

	if err != nil {
		if err != redis.NilError {
			logger.Warn("queue: read group failed", "queue", q.config.Name, "error", err)
		}
		return
	}

	for _, entry := range entries {
		task := q.streamEntryToTask(entry)
		task.queue = q
		q.handleTask(task)
	}
}

func (q *Queue) claimStuckTasks() {
	pending, err := q.adapter.XPending(q.config.Name, q.config.ConsumerGroup)
	if err != nil || pending == nil || pending.Count == 0 {
		return
	}

	pendingExt, err := q.adapter.XPendingExt(
		q.config.Name,
		q.config.ConsumerGroup,
		"-",
		"+",
		100,
	)
	if err != nil || len(pendingExt) == 0 {
		return
	}

	var idsToReclaim []string
	for _, p := range pendingExt {
		if p.Idle >= q.config.VisibilityTimeout {
			idsToReclaim = append(idsToReclaim, p.ID)
		}
	}

	if len(idsToReclaim) == 0 {
		return
	}

	entries, err := q.adapter.XClaim(
		q.config.Name,
		q.config.ConsumerGroup,
		q.config.ConsumerName,
		q.config.VisibilityTimeout,
		idsToReclaim...,
	)

	if err != nil {
		return
	}

	for _, entry := range entries {
		task := q.streamEntryToTask(entry)
		task.queue = q
		task.Attempts++
		q.handleTask(task)
	}
}

func (q *Queue) handleTask(task *Task) {
	q.mu.Lock()
	q.processing[task.ID] = task
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		delete(q.processing, task.ID)
		q.mu.Unlock()
	}()

	if task.Attempts >= q.config.MaxRetries {
		q.moveToDeadLetterQueue(task)
		q.ackTask(task.ID)
		return
	}

	ctx, cancel := context.WithTimeout(q.ctx, q.config.VisibilityTimeout)
	defer cancel()

	if err := q.handler(ctx, task); err != nil {
		// Not acked; the task stays pending and will be retried.
		return
	}

	q.ackTask(task.ID)
}

func (q *Queue) ackTask(taskID string) error {
	return q.adapter.XAck(q.config.Name, q.config.ConsumerGroup, taskID)
}

func (q *Queue) moveToDeadLetterQueue(task *Task) {
	if !q.config.EnableDLQ {
		return
	}

	dlqName := q.config.Name + ":dlq"

	values := map[string]interface{}{
		"data":           string(task.Data),
		"original_id":    task.ID,
		"attempts":       task.Attempts,
		"failed_at":      time.Now().Unix(),
		"original_queue": q.config.Name,
	}

	for k, v := range task.Metadata {
		values["meta_"+k] = v
	}

	_, _ = q.adapter.XAdd(dlqName, values)
}

func (q *Queue) streamEntryToTask(entry redis.StreamMessage) *Task {
	task := &Task{
		ID:       entry.ID,
		Metadata: make(map[string]string),
	}

	for k, v := range entry.Values {
		switch k {
		case "data":
			if data, ok := v.(string); ok {
				task.Data = []byte(data)
			}
		case "attempts":
			if attempts, ok := v.(string); ok {
				fmt.Sscanf(attempts, "%d", &task.Attempts)
			}
		default:
			if len(k) > 5 && k[:5] == "meta_" {
				if val, ok := v.(string); ok {
					task.Metadata[k[5:]] = val
				}
			}
		}
	}

	if task.Timestamp.IsZero() {
		task.Timestamp = time.Now()
	}

	return task
}

// Stop cancels the consume loop and waits for in-flight handlers.
func (q *Queue) Stop(timeout time.Duration) error {
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for queue to stop")
	}
}

func (q *Queue) GetStats() (*QueueStats, error) {
	total, err := q.adapter.XLen(q.config.Name)
	if err != nil {
		return nil, err
	}

	pending, err := q.adapter.XPending(q.config.Name, q.config.ConsumerGroup)
	if err != nil {
		pending = nil
	}

	stats := &QueueStats{
		TotalTasks: total,
	}

	if pending != nil {
		stats.PendingTasks = pending.Count
		stats.ConsumerCount = int64(len(pending.Consumers))
	}

	return stats, nil
}
