package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"day-planner/backend/internal/models"
)

const (
	saveQueue   = "cloud_save_queue"
	saveTimeout = 30 * time.Second
)

// Saver executes one remote overwrite.
type Saver interface {
	Save(ctx context.Context, email string, tasks []models.Task) error
}

// Job is one fire-and-forget snapshot write. MaxTries is 1: a failed
// cloud save is logged and dropped, never retried.
type Job struct {
	ID        string        `json:"id"`
	Email     string        `json:"email"`
	Tasks     []models.Task `json:"tasks"`
	Attempts  int           `json:"attempts"`
	MaxTries  int           `json:"max_tries"`
	CreatedAt time.Time     `json:"created_at"`
}

// Dispatcher hands snapshot writes off the caller's path. With a redis
// client the jobs flow through a redis list and a worker goroutine;
// without one each job runs on its own detached goroutine. Either way
// the caller never waits and never sees the outcome.
type Dispatcher struct {
	client *redis.Client
	saver  Saver

	mu   sync.RWMutex
	done func(jobID string, err error)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDispatcher(client *redis.Client, saver Saver) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		client: client,
		saver:  saver,
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetDoneHook registers a completion callback. Production wiring
// leaves it unset; tests use it to await the detached writes.
func (d *Dispatcher) SetDoneHook(fn func(jobID string, err error)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.done = fn
}

// Dispatch queues one snapshot write and returns immediately.
func (d *Dispatcher) Dispatch(email string, tasks []models.Task) string {
	job := Job{
		ID:        fmt.Sprintf("%d", time.Now().UnixNano()),
		Email:     email,
		Tasks:     tasks,
		MaxTries:  1,
		CreatedAt: time.Now(),
	}

	if d.client == nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.execute(&job)
		}()
		return job.ID
	}

	jobData, err := json.Marshal(job)
	if err != nil {
		log.Printf("Failed to marshal cloud save job: %v", err)
		d.notify(job.ID, err)
		return job.ID
	}

	if err := d.client.RPush(d.ctx, saveQueue, jobData).Err(); err != nil {
		log.Printf("Failed to enqueue cloud save job %s: %v", job.ID, err)
		d.notify(job.ID, err)
	}

	return job.ID
}

// Start launches the queue worker. A no-op in inline mode.
func (d *Dispatcher) Start() {
	if d.client == nil {
		return
	}

	d.wg.Add(1)
	go d.workerLoop()
}

func (d *Dispatcher) Stop() {
	d.cancel()
	d.wg.Wait()
}

func (d *Dispatcher) workerLoop() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		default:
			if err := d.processNextJob(); err != nil {
				log.Printf("Error processing cloud save job: %v", err)
				time.Sleep(time.Second)
			}
		}
	}
}

func (d *Dispatcher) processNextJob() error {
	result, err := d.client.BLPop(d.ctx, time.Second, saveQueue).Result()
	if err != nil {
		if err == redis.Nil || d.ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to pop job: %w", err)
	}

	if len(result) < 2 {
		return fmt.Errorf("invalid job result")
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return fmt.Errorf("failed to unmarshal job: %w", err)
	}

	d.execute(&job)
	return nil
}

func (d *Dispatcher) execute(job *Job) {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	job.Attempts++
	err := d.saver.Save(ctx, job.Email, job.Tasks)
	if err != nil {
		log.Printf("Cloud save job %s failed: %v", job.ID, err)
	}

	d.notify(job.ID, err)
}

func (d *Dispatcher) notify(jobID string, err error) {
	d.mu.RLock()
	done := d.done
	d.mu.RUnlock()

	if done != nil {
		done(jobID, err)
	}
}
