package worker

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/duynm98/daily-story/internal/models"
	"github.com/duynm98/daily-story/internal/pipeline"
	"github.com/duynm98/daily-story/internal/queue"
)

// ---------------------------------------------------------------------------
// Worker consumes the task queues and drives the pipeline. One consumer
// goroutine per task kind; task failures are logged and recorded, never
// fatal to the consumer loop.
// ---------------------------------------------------------------------------

const dequeueTimeout = 5 * time.Second

type Worker struct {
	queue        *queue.Queue
	orchestrator *pipeline.Orchestrator
	maxJobs      int
}

func New(q *queue.Queue, orchestrator *pipeline.Orchestrator, maxJobs int) *Worker {
	if maxJobs < 1 {
		maxJobs = 1
	}
	return &Worker{
		queue:        q,
		orchestrator: orchestrator,
		maxJobs:      maxJobs,
	}
}

// Start runs the consumers until the context is cancelled: one for story
// tasks and maxJobs for video tasks (video work is ffmpeg-bound, so the
// parallelism knob applies there).
func (w *Worker) Start(ctx context.Context) error {
	log.Printf("[Worker] Starting consumers (video concurrency: %d)", w.maxJobs)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.consume(ctx, queue.QueueGenerateStory)
	})
	for i := 0; i < w.maxJobs; i++ {
		g.Go(func() error {
			return w.consume(ctx, queue.QueueGenerateVideo)
		})
	}

	return g.Wait()
}

func (w *Worker) consume(ctx context.Context, queueName string) error {
	log.Printf("[Worker] Consuming %s", queueName)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[Worker] Stopping consumer for %s", queueName)
			return ctx.Err()
		default:
		}

		task, err := w.queue.Dequeue(ctx, queueName, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[Worker] Dequeue error on %s: %v", queueName, err)
			time.Sleep(time.Second)
			continue
		}
		if task == nil {
			continue // Timed out waiting, poll again
		}

		w.handle(ctx, task)
	}
}

// handle runs one task through to a terminal status. Errors are recorded as
// FAILURE and logged; the consumer moves on either way.
func (w *Worker) handle(ctx context.Context, task *queue.Task) {
	log.Printf("[Worker] Processing task %s (%s)", task.ID, task.Kind)

	if err := w.queue.SetStatus(ctx, task.ID, models.TaskStatusStarted); err != nil {
		log.Printf("[Worker] Failed to mark task %s started: %v", task.ID, err)
	}

	var result string
	var err error

	switch task.Kind {
	case models.TaskKindStory:
		result, err = w.orchestrator.GenerateStory(ctx, task.Moral)
	case models.TaskKindVideo:
		result, err = w.orchestrator.GenerateVideo(ctx, task.ID, task.Moral, task.SearchTerms, func(attempt int) {
			if serr := w.queue.SetStatus(ctx, task.ID, models.TaskStatusRetry); serr != nil {
				log.Printf("[Worker] Failed to mark task %s retrying: %v", task.ID, serr)
			}
		})
	default:
		log.Printf("[Worker] Unknown task kind %q for task %s, dropping", task.Kind, task.ID)
		if serr := w.queue.SetStatus(ctx, task.ID, models.TaskStatusFailure); serr != nil {
			log.Printf("[Worker] Failed to mark task %s failed: %v", task.ID, serr)
		}
		return
	}

	if err != nil {
		log.Printf("[Worker] Task %s failed: %v", task.ID, err)
		if serr := w.queue.SetStatus(ctx, task.ID, models.TaskStatusFailure); serr != nil {
			log.Printf("[Worker] Failed to mark task %s failed: %v", task.ID, serr)
		}
		return
	}

	if serr := w.queue.SetResult(ctx, task.ID, result); serr != nil {
		log.Printf("[Worker] Failed to record result for task %s: %v", task.ID, serr)
		return
	}

	log.Printf("[Worker] Task %s completed", task.ID)
}
