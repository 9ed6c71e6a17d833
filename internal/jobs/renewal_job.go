// Package jobs wires the background work: a scheduled scan that finds
// subscriptions due for renewal and per-subscription renewal jobs run
// through the queue.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"

	"github.com/subtrackr/backend/internal/queue"
	"github.com/subtrackr/backend/internal/services/subscription"
)

// ProcessRenewalPayload identifies the subscription a renewal job targets
type ProcessRenewalPayload struct {
	SubscriptionID uuid.UUID `json:"subscription_id"`
	AsOf           time.Time `json:"as_of"`
}

// RenewalJob drives automatic subscription renewals
type RenewalJob struct {
	queue           *queue.Queue
	subscriptionSvc *subscription.Service
	scheduler       *gocron.Scheduler
}

// NewRenewalJob creates a new renewal job handler
func NewRenewalJob(q *queue.Queue, subscriptionSvc *subscription.Service) *RenewalJob {
	return &RenewalJob{
		queue:           q,
		subscriptionSvc: subscriptionSvc,
		scheduler:       gocron.NewScheduler(time.UTC),
	}
}

// Register registers the renewal job handlers on the queue
func (j *RenewalJob) Register() {
	j.queue.RegisterHandler(queue.JobTypeRenewalCheck, j.CheckDueRenewals)
	j.queue.RegisterHandler(queue.JobTypeProcessRenewal, j.ProcessRenewal)
}

// StartScheduler schedules the hourly due-renewal scan
func (j *RenewalJob) StartScheduler() error {
	_, err := j.scheduler.Every(1).Hour().Do(func() {
		if _, err := j.queue.Enqueue(queue.JobTypeRenewalCheck, nil); err != nil {
			log.Printf("Failed to enqueue renewal check: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule renewal check: %w", err)
	}
	j.scheduler.StartAsync()
	return nil
}

// StopScheduler stops the scheduler
func (j *RenewalJob) StopScheduler() {
	j.scheduler.Stop()
}

// CheckDueRenewals finds auto-renewing subscriptions that are due and
// enqueues one renewal job per subscription.
func (j *RenewalJob) CheckDueRenewals(ctx context.Context, job queue.Job) error {
	now := time.Now().UTC()

	due, err := j.subscriptionSvc.Due(now)
	if err != nil {
		return err
	}
	log.Printf("Found %d subscriptions due for renewal", len(due))

	for _, sub := range due {
		payload := ProcessRenewalPayload{SubscriptionID: sub.ID, AsOf: now}
		if _, err := j.queue.Enqueue(queue.JobTypeProcessRenewal, payload); err != nil {
			log.Printf("Failed to enqueue renewal for subscription %s: %v", sub.ID, err)
			continue
		}
	}
	return nil
}

// ProcessRenewal renews a single subscription
func (j *RenewalJob) ProcessRenewal(ctx context.Context, job queue.Job) error {
	var payload ProcessRenewalPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal renewal payload: %w", err)
	}

	sub, err := j.subscriptionSvc.Renew(payload.SubscriptionID, payload.AsOf)
	if err != nil {
		return fmt.Errorf("failed to renew subscription %s: %w", payload.SubscriptionID, err)
	}

	log.Printf("Renewed subscription %s, next billing on %s",
		sub.ID, sub.NextBillingDate.Format("2006-01-02"))
	return nil
}
