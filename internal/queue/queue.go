package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/duynm98/daily-story/internal/models"
	"github.com/go-redis/redis/v8"
)

const (
	QueueGenerateStory = "queue:generate_story"
	QueueGenerateVideo = "queue:generate_video"

	// taskSetKey is the durable append-only set of every task id ever
	// submitted. It has no expiry and is never pruned.
	taskSetKey = "daily-story:tasks"

	// resultExpiry matches the original backend policy: terminal task
	// records are kept for ten hours, then expire. The id stays in the
	// durable set after the record is gone.
	resultExpiry = 10 * time.Hour
)

// Task is the envelope pushed onto a queue list.
type Task struct {
	ID          string          `json:"id"`
	Kind        models.TaskKind `json:"kind"`
	Moral       string          `json:"moral"`
	SearchTerms []string        `json:"search_terms,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// QueueFor maps a task kind to its Redis list.
func QueueFor(kind models.TaskKind) string {
	if kind == models.TaskKindStory {
		return QueueGenerateStory
	}
	return QueueGenerateVideo
}

type Queue struct {
	client *redis.Client
}

func New(redisURL string) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Queue{client: client}, nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}

func taskKey(id string) string {
	return "task:" + id
}

// Enqueue records the task's initial PENDING status and pushes the envelope
// onto the kind's queue list.
func (q *Queue) Enqueue(ctx context.Context, task *Task) error {
	if task.SubmittedAt.IsZero() {
		task.SubmittedAt = time.Now()
	}

	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	fields := map[string]interface{}{
		"kind":         string(task.Kind),
		"status":       string(models.TaskStatusPending),
		"submitted_at": task.SubmittedAt.Format(time.RFC3339),
	}
	if err := q.client.HSet(ctx, taskKey(task.ID), fields).Err(); err != nil {
		return fmt.Errorf("failed to record task status: %w", err)
	}

	return q.client.RPush(ctx, QueueFor(task.Kind), data).Err()
}

// Dequeue blocks up to timeout for the next task on the given queue.
// Returns (nil, nil) when no task arrived within the timeout.
func (q *Queue) Dequeue(ctx context.Context, queueName string, timeout time.Duration) (*Task, error) {
	result, err := q.client.BLPop(ctx, timeout, queueName).Result()
	if err == redis.Nil {
		return nil, nil // No task available
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue: %w", err)
	}

	if len(result) != 2 {
		return nil, fmt.Errorf("unexpected redis response")
	}

	var task Task
	if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}

	return &task, nil
}

// SetStatus records a non-success status transition. Terminal statuses start
// the ten-hour record expiry.
func (q *Queue) SetStatus(ctx context.Context, id string, status models.TaskStatus) error {
	key := taskKey(id)
	if err := q.client.HSet(ctx, key, "status", string(status)).Err(); err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}
	if status.Terminal() {
		return q.client.Expire(ctx, key, resultExpiry).Err()
	}
	return nil
}

// SetResult marks the task SUCCESS and stores its result payload.
func (q *Queue) SetResult(ctx context.Context, id, result string) error {
	key := taskKey(id)
	fields := map[string]interface{}{
		"status": string(models.TaskStatusSuccess),
		"result": result,
	}
	if err := q.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("failed to set result: %w", err)
	}
	return q.client.Expire(ctx, key, resultExpiry).Err()
}

// Status resolves the current status and result for an id. Ids the backend
// has never seen, or whose records have expired, come back PENDING with no
// result; the backend never errors for unknown ids.
func (q *Queue) Status(ctx context.Context, id string) (models.TaskInfo, error) {
	fields, err := q.client.HGetAll(ctx, taskKey(id)).Result()
	if err != nil {
		return models.TaskInfo{}, fmt.Errorf("failed to get status: %w", err)
	}

	info := models.TaskInfo{ID: id, Status: models.TaskStatusPending}
	if len(fields) == 0 {
		return info, nil
	}

	if s, ok := fields["status"]; ok && s != "" {
		info.Status = models.TaskStatus(s)
	}
	if k, ok := fields["kind"]; ok {
		info.Kind = models.TaskKind(k)
	}
	if info.Status == models.TaskStatusSuccess {
		info.Result = fields["result"]
	}
	if ts, ok := fields["submitted_at"]; ok {
		if t, err := time.Parse(time.RFC3339, ts); err == nil {
			info.SubmittedAt = &t
		}
	}

	return info, nil
}

// Register adds an id to the durable task set.
func (q *Queue) Register(ctx context.Context, id string) error {
	return q.client.SAdd(ctx, taskSetKey, id).Err()
}

// IsRegistered reports whether an id was ever submitted.
func (q *Queue) IsRegistered(ctx context.Context, id string) (bool, error) {
	return q.client.SIsMember(ctx, taskSetKey, id).Result()
}

// IDs returns every task id ever registered.
func (q *Queue) IDs(ctx context.Context) ([]string, error) {
	return q.client.SMembers(ctx, taskSetKey).Result()
}

// Length returns the number of waiting tasks on a queue.
func (q *Queue) Length(ctx context.Context, queueName string) (int64, error) {
	return q.client.LLen(ctx, queueName).Result()
}
