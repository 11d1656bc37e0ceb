package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/duynm98/daily-story/internal/models"
	"github.com/duynm98/daily-story/internal/queue"
	"github.com/google/uuid"
)

// ErrTaskNotFound is returned when an id was never submitted through this
// store. Ids that were submitted but whose backend record has expired are
// NOT treated as missing; they resolve as PENDING.
var ErrTaskNotFound = errors.New("task not found")

// Backend is the queue/result backend the store delegates to. Implemented
// by *queue.Queue; faked in tests.
type Backend interface {
	Enqueue(ctx context.Context, task *queue.Task) error
	Status(ctx context.Context, id string) (models.TaskInfo, error)
	Register(ctx context.Context, id string) error
	IsRegistered(ctx context.Context, id string) (bool, error)
	IDs(ctx context.Context) ([]string, error)
}

// Store bridges synchronous submission to asynchronous execution: Submit
// mints an id, records it durably and enqueues the work; Status and ListAll
// resolve ids against the backend without ever blocking on execution.
type Store struct {
	backend Backend
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Submit enqueues a unit of work and returns its id immediately.
func (s *Store) Submit(ctx context.Context, kind models.TaskKind, moral string, searchTerms []string) (string, error) {
	id := mintID(kind)

	// Register before enqueueing so a poll racing the submission sees the
	// id as known (PENDING) rather than missing.
	if err := s.backend.Register(ctx, id); err != nil {
		return "", fmt.Errorf("failed to register task: %w", err)
	}

	task := &queue.Task{
		ID:          id,
		Kind:        kind,
		Moral:       moral,
		SearchTerms: searchTerms,
		SubmittedAt: time.Now(),
	}
	if err := s.backend.Enqueue(ctx, task); err != nil {
		return "", fmt.Errorf("failed to enqueue task: %w", err)
	}

	return id, nil
}

// Status resolves a single task. Unknown ids return ErrTaskNotFound; known
// ids whose backend record expired resolve as PENDING with no result.
func (s *Store) Status(ctx context.Context, id string) (models.TaskInfo, error) {
	known, err := s.backend.IsRegistered(ctx, id)
	if err != nil {
		return models.TaskInfo{}, fmt.Errorf("failed to check task id: %w", err)
	}
	if !known {
		return models.TaskInfo{}, ErrTaskNotFound
	}

	return s.backend.Status(ctx, id)
}

// ListAll enumerates every id ever submitted and resolves each one's current
// status. Expired ids stay in the listing as PENDING; the durable set is
// never pruned here.
func (s *Store) ListAll(ctx context.Context) ([]models.TaskInfo, error) {
	ids, err := s.backend.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list task ids: %w", err)
	}
	sort.Strings(ids)

	infos := make([]models.TaskInfo, 0, len(ids))
	for _, id := range ids {
		info, err := s.backend.Status(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve task %s: %w", id, err)
		}
		infos = append(infos, info)
	}

	return infos, nil
}

// mintID creates the task identifier. Story tasks get an opaque uuid; video
// tasks get a human-readable timestamp id (it names the working directory)
// with a short random suffix to keep ids unique within the same minute.
func mintID(kind models.TaskKind) string {
	if kind == models.TaskKindVideo {
		suffix := strings.Split(uuid.NewString(), "-")[0]
		return time.Now().Format("2006_01_02_15_04") + "_" + suffix
	}
	return uuid.NewString()
}
