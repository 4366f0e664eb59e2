package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/meshflow/meshflow/backend/internal/config"
	"github.com/meshflow/meshflow/backend/pkg/logger"
)

const (
	TaskTypeAutoLink = "workspace:autolink"
)

// AutoLinkTask asks for the nodes of one workspace to be auto-linked.
// UserID is the editor who requested it and is recorded as the actor.
type AutoLinkTask struct {
	WorkspaceID string `json:"workspace_id"`
	UserID      string `json:"user_id"`
}

// TaskProcessor handles one auto-link task.
type TaskProcessor func(context.Context, *AutoLinkTask) error

// TaskQueue defines the interface for auto-link task processing
type TaskQueue interface {
	// Enqueue adds a task to the queue
	Enqueue(task *AutoLinkTask) error
	// IsAsync returns true if queue processes tasks asynchronously
	IsAsync() bool
	// Close gracefully shuts down the queue
	Close() error
}

// NewTaskQueue picks the asynq queue when Redis is enabled and reachable,
// otherwise the in-process queue.
func NewTaskQueue(cfg *config.Config) TaskQueue {
	if cfg.Redis.Enabled {
		queue, err := NewAsyncQueue(&cfg.Redis)
		if err != nil {
			logger.Infof("[TaskQueue] Redis unavailable, falling back to sync mode: %v", err)
			return NewSyncQueue()
		}
		logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Redis.Addr)
		return queue
	}
	logger.Infof("[TaskQueue] Sync queue initialized (Redis disabled)")
	return NewSyncQueue()
}

func redisClientOpt(cfg *config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

const autoLinkQueue = "default"

// autoLinkTaskID keys tasks by workspace so at most one run per workspace
// is pending at a time.
func autoLinkTaskID(workspaceID string) string {
	return TaskTypeAutoLink + ":" + workspaceID
}

// AsyncQueue implements TaskQueue using asynq (Redis-based)
type AsyncQueue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewAsyncQueue creates a new Redis-based async queue
func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	redisOpt := redisClientOpt(cfg)
	client := asynq.NewClient(redisOpt)

	inspector := asynq.NewInspector(redisOpt)
	if _, err := inspector.Queues(); err != nil {
		inspector.Close()
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client, inspector: inspector}, nil
}

func (q *AsyncQueue) Enqueue(task *AutoLinkTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	err = q.enqueue(task.WorkspaceID, payload)
	if !errors.Is(err, asynq.ErrTaskIDConflict) {
		return err
	}

	// The ID is held until the task is deleted, including after it was
	// archived or kept as completed. Only a pending, scheduled, retrying or
	// active run counts as already queued.
	id := autoLinkTaskID(task.WorkspaceID)
	info, err := q.inspector.GetTaskInfo(autoLinkQueue, id)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) {
			return q.enqueue(task.WorkspaceID, payload)
		}
		return err
	}
	if info.State != asynq.TaskStateArchived && info.State != asynq.TaskStateCompleted {
		logger.Infof("[AsyncQueue] Auto-link already queued for workspace %s (state=%s)", task.WorkspaceID, info.State)
		return nil
	}

	if err := q.inspector.DeleteTask(autoLinkQueue, id); err != nil && !errors.Is(err, asynq.ErrTaskNotFound) {
		return err
	}
	return q.enqueue(task.WorkspaceID, payload)
}

func (q *AsyncQueue) enqueue(workspaceID string, payload []byte) error {
	t := asynq.NewTask(TaskTypeAutoLink, payload)
	info, err := q.client.Enqueue(t,
		asynq.Queue(autoLinkQueue),
		asynq.MaxRetry(3),
		asynq.TaskID(autoLinkTaskID(workspaceID)),
	)
	if err != nil {
		return err
	}

	logger.Infof("[AsyncQueue] Task enqueued: id=%s, queue=%s", info.ID, info.Queue)
	return nil
}

func (q *AsyncQueue) IsAsync() bool {
	return true
}

func (q *AsyncQueue) Close() error {
	q.inspector.Close()
	return q.client.Close()
}

// SyncQueue implements TaskQueue in process (no Redis)
type SyncQueue struct {
	processor TaskProcessor
	wg        sync.WaitGroup
}

func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

// SetProcessor sets the function to process tasks
func (q *SyncQueue) SetProcessor(processor TaskProcessor) {
	q.processor = processor
}

// Enqueue runs the task on its own goroutine so the request returns at once.
func (q *SyncQueue) Enqueue(task *AutoLinkTask) error {
	if q.processor == nil {
		logger.Infof("[SyncQueue] Warning: no processor set, task will be dropped")
		return nil
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		if err := q.processor(context.Background(), task); err != nil {
			logger.Infof("[SyncQueue] Task processing failed: %v", err)
		}
	}()

	return nil
}

func (q *SyncQueue) IsAsync() bool {
	return false
}

// Wait blocks until every enqueued task has finished.
func (q *SyncQueue) Wait() {
	q.wg.Wait()
}

// Close waits for in-flight tasks.
func (q *SyncQueue) Close() error {
	q.wg.Wait()
	return nil
}
