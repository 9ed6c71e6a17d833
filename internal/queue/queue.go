// Package queue implements a small database-backed job queue: jobs are
// rows, workers poll for pending work, failures retry with backoff.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobType defines the type of job
type JobType string

const (
	// JobTypeRenewalCheck scans for subscriptions due for renewal
	JobTypeRenewalCheck JobType = "renewal_check"

	// JobTypeProcessRenewal renews a single subscription
	JobTypeProcessRenewal JobType = "process_renewal"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job represents a background job
type Job struct {
	ID         uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Type       JobType         `json:"type" gorm:"index"`
	Payload    json.RawMessage `json:"payload"`
	Status     JobStatus       `json:"status" gorm:"index"`
	RetryCount int             `json:"retry_count" gorm:"default:0"`
	MaxRetries int             `json:"max_retries" gorm:"default:3"`
	NextRetry  *time.Time      `json:"next_retry,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// JobHandler is a function that processes a job
type JobHandler func(ctx context.Context, job Job) error

// Queue represents a job queue
type Queue struct {
	db       *gorm.DB
	handlers map[JobType]JobHandler
	interval time.Duration
	quit     chan struct{}
}

// NewQueue creates a new queue polling at the given interval
func NewQueue(db *gorm.DB, interval time.Duration) *Queue {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Queue{
		db:       db,
		handlers: make(map[JobType]JobHandler),
		interval: interval,
		quit:     make(chan struct{}),
	}
}

// RegisterHandler registers a handler for a job type
func (q *Queue) RegisterHandler(jobType JobType, handler JobHandler) {
	q.handlers[jobType] = handler
}

// Enqueue adds a job to the queue
func (q *Queue) Enqueue(jobType JobType, payload interface{}) (uuid.UUID, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}

	job := Job{
		ID:      uuid.New(),
		Type:    jobType,
		Payload: payloadBytes,
		Status:  JobStatusPending,
	}
	if err := q.db.Create(&job).Error; err != nil {
		return uuid.Nil, fmt.Errorf("failed to enqueue job: %w", err)
	}
	return job.ID, nil
}

// ProcessJobs polls for pending jobs until Stop is called. Run it in its
// own goroutine.
func (q *Queue) ProcessJobs() {
	log.Printf("Job queue processor started (poll interval %s)", q.interval)
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-q.quit:
			log.Println("Job queue processor stopped")
			return
		case <-ticker.C:
			q.processNext()
		}
	}
}

// Stop signals the processor loop to exit
func (q *Queue) Stop() {
	close(q.quit)
}

// processNext claims and runs pending jobs until none remain
func (q *Queue) processNext() {
	for {
		var job Job
		now := time.Now()
		err := q.db.
			Where("status = ?", JobStatusPending).
			Where("next_retry IS NULL OR next_retry <= ?", now).
			Order("created_at ASC").
			First(&job).Error
		if err != nil {
			return // nothing pending
		}

		handler, ok := q.handlers[job.Type]
		if !ok {
			q.fail(&job, fmt.Errorf("no handler registered for job type %q", job.Type))
			continue
		}

		job.Status = JobStatusProcessing
		if err := q.db.Save(&job).Error; err != nil {
			log.Printf("Failed to claim job %s: %v", job.ID, err)
			return
		}

		if err := handler(context.Background(), job); err != nil {
			log.Printf("Job %s (%s) failed: %v", job.ID, job.Type, err)
			q.fail(&job, err)
			continue
		}

		job.Status = JobStatusCompleted
		job.Error = ""
		if err := q.db.Save(&job).Error; err != nil {
			log.Printf("Failed to mark job %s completed: %v", job.ID, err)
		}
	}
}

// fail marks a job failed, scheduling a retry with exponential backoff
// while retries remain.
func (q *Queue) fail(job *Job, cause error) {
	job.Error = cause.Error()
	job.RetryCount++

	if job.RetryCount <= job.MaxRetries {
		backoff := time.Duration(1<<uint(job.RetryCount-1)) * time.Minute
		retryAt := time.Now().Add(backoff)
		job.Status = JobStatusPending
		job.NextRetry = &retryAt
	} else {
		job.Status = JobStatusFailed
	}

	if err := q.db.Save(job).Error; err != nil {
		log.Printf("Failed to record failure for job %s: %v", job.ID, err)
	}
}
