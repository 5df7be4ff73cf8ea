package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/metrics"
)

const (
	// Redis keys. Job bodies live under JobKeyPrefix+id, the lists hold ids.
	JobKeyPrefix     = "nexius:job:"
	JobQueueKey      = "nexius:jobs:pending"
	JobProcessingKey = "nexius:jobs:processing"
	JobStatsKey      = "nexius:jobs:stats"

	DefaultMaxRetries = 3
	DefaultWorkers    = 3
	DefaultRetryDelay = time.Minute
	JobTTL            = 24 * time.Hour

	stuckAfter    = 10 * time.Minute
	stuckInterval = time.Minute
	popTimeout    = time.Second
)

// ReminderDeliverer sends a stored notification job. A nil job with a nil
// error means the job no longer exists.
type ReminderDeliverer interface {
	Deliver(ctx context.Context, jobID string) (*models.NotificationJob, error)
}

// Queue is a Redis list backed work queue. A job id moves atomically from the
// pending list to the processing list when a worker takes it, so a crashed
// worker leaves it behind for the stuck-job recovery.
type Queue struct {
	client     *redis.Client
	deliverer  ReminderDeliverer
	workers    int
	retryDelay time.Duration

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewQueue creates a queue. A non-positive workers count uses DefaultWorkers.
func NewQueue(client *redis.Client, workers int, deliverer ReminderDeliverer) *Queue {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Queue{
		client:     client,
		deliverer:  deliverer,
		workers:    workers,
		retryDelay: DefaultRetryDelay,
		stopCh:     make(chan struct{}),
	}
}

// SetRetryDelay sets the base delay between attempts. Attempt n waits n times
// the base.
func (q *Queue) SetRetryDelay(d time.Duration) {
	if d > 0 {
		q.retryDelay = d
	}
}

func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.running = true
	log.Infof("[JobQueue] Starting %d workers", q.workers)

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i, q.stopCh)
	}
	q.wg.Add(1)
	go q.recoveryLoop(q.stopCh)
}

// Stop waits for in-flight jobs. Workers notice the stop within popTimeout.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.running {
		return
	}
	log.Info("[JobQueue] Stopping workers...")
	close(q.stopCh)
	q.wg.Wait()
	q.running = false
	q.stopCh = make(chan struct{})
	log.Info("[JobQueue] All workers stopped")
}

func (q *Queue) worker(id int, stop <-chan struct{}) {
	defer q.wg.Done()
	log.Debugf("[JobQueue] Worker %d started", id)
	ctx := context.Background()

	for {
		select {
		case <-stop:
			log.Debugf("[JobQueue] Worker %d stopping", id)
			return
		default:
		}

		job, err := q.dequeueJob(ctx)
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case err != nil:
			log.Errorf("[JobQueue] Worker %d: dequeue failed: %v", id, err)
			select {
			case <-stop:
				return
			case <-time.After(time.Second):
			}
			continue
		}
		log.Infof("[JobQueue] Worker %d processing job %s (%s)", id, job.ID, job.Type)
		q.processJob(ctx, job)
	}
}

func (q *Queue) recoveryLoop(stop <-chan struct{}) {
	defer q.wg.Done()
	ticker := time.NewTicker(stuckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if n, err := q.recoverStuck(context.Background(), stuckAfter); err != nil {
				log.Errorf("[JobQueue] Stuck job recovery failed: %v", err)
			} else if n > 0 {
				log.Warnf("[JobQueue] Requeued %d stuck jobs", n)
			}
		}
	}
}

// recoverStuck requeues jobs that have sat in the processing list for longer
// than maxAge and drops entries whose body is gone or no longer processing.
func (q *Queue) recoverStuck(ctx context.Context, maxAge time.Duration) (int, error) {
	ids, err := q.client.LRange(ctx, JobProcessingKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}
	now := time.Now()
	recovered := 0
	for _, id := range ids {
		job, err := q.loadJob(ctx, id)
		if err != nil || job.Status != JobStatusProcessing {
			if err != nil && !errors.Is(err, redis.Nil) {
				log.Warnf("[JobQueue] Dropping unreadable job %s: %v", id, err)
			}
			q.removeFromProcessing(ctx, id)
			continue
		}
		started := job.UpdatedAt
		if job.ProcessedAt != nil && !job.ProcessedAt.IsZero() {
			started = *job.ProcessedAt
		}
		if now.Sub(started) <= maxAge {
			continue
		}
		job.ErrorMsg = "recovered after worker loss"
		if err := q.requeueJob(ctx, job); err != nil {
			return recovered, err
		}
		recovered++
	}
	return recovered, nil
}

// EnqueueJob stores the job body and pushes its id in one pipeline.
func (q *Queue) EnqueueJob(ctx context.Context, jobType JobType, payload map[string]interface{}) (*Job, error) {
	now := time.Now()
	job := &Job{
		ID:         uuid.New().String(),
		Type:       jobType,
		Status:     JobStatusPending,
		Payload:    payload,
		CreatedAt:  now,
		UpdatedAt:  now,
		MaxRetries: DefaultMaxRetries,
	}
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL)
	pipe.LPush(ctx, JobQueueKey, job.ID)
	pipe.HIncrBy(ctx, JobStatsKey, string(JobStatusPending), 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	metrics.QueueJobs.WithLabelValues(string(jobType), "enqueued").Inc()
	log.Infof("[JobQueue] Enqueued job %s (%s)", job.ID, job.Type)
	return job, nil
}

// dequeueJob blocks up to popTimeout. redis.Nil means the queue was empty.
func (q *Queue) dequeueJob(ctx context.Context) (*Job, error) {
	id, err := q.client.BLMove(ctx, JobQueueKey, JobProcessingKey, "RIGHT", "LEFT", popTimeout).Result()
	if err != nil {
		return nil, err
	}
	job, err := q.loadJob(ctx, id)
	if err != nil {
		q.removeFromProcessing(ctx, id)
		return nil, fmt.Errorf("job %s: %w", id, err)
	}
	return job, nil
}

func (q *Queue) processJob(ctx context.Context, job *Job) {
	job.MarkAsProcessing()
	q.saveJob(ctx, job)
	defer q.removeFromProcessing(ctx, job.ID)

	var err error
	switch job.Type {
	case JobTypeLicenseReminder:
		err = q.processLicenseReminderJob(ctx, job)
	default:
		err = fmt.Errorf("unknown job type: %s", job.Type)
	}

	if err == nil {
		job.MarkAsCompleted()
		q.countOutcome(ctx, job, JobStatusCompleted)
		if derr := q.client.Del(ctx, JobKeyPrefix+job.ID).Err(); derr != nil {
			log.Errorf("[JobQueue] Failed to remove completed job %s: %v", job.ID, derr)
		}
		log.Infof("[JobQueue] Job %s completed", job.ID)
		return
	}

	job.MarkAsFailed(err.Error())
	if !job.IsRetryable() {
		log.Errorf("[JobQueue] Job %s failed permanently after %d attempts: %v", job.ID, job.RetryCount, err)
		q.countOutcome(ctx, job, JobStatusFailed)
		q.saveJob(ctx, job)
		return
	}

	job.MarkAsRetrying()
	q.saveJob(ctx, job)
	q.countOutcome(ctx, job, JobStatusRetrying)
	delay := job.RetryDelay(q.retryDelay)
	log.Warnf("[JobQueue] Job %s failed (attempt %d/%d), retrying in %s: %v", job.ID, job.RetryCount, job.MaxRetries, delay, err)

	id := job.ID
	time.AfterFunc(delay, func() {
		if err := q.client.LPush(context.Background(), JobQueueKey, id).Err(); err != nil {
			log.Errorf("[JobQueue] Failed to requeue job %s: %v", id, err)
		}
	})
}

// processLicenseReminderJob delivers the notification job the payload points
// at. Delivery errors are returned so the job is retried.
func (q *Queue) processLicenseReminderJob(ctx context.Context, job *Job) error {
	payload, err := LicenseReminderJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid license reminder payload: %w", err)
	}
	if q.deliverer == nil {
		return errors.New("no reminder deliverer configured")
	}

	delivered, err := q.deliverer.Deliver(ctx, payload.NotificationJobID)
	if err != nil {
		return err
	}
	if delivered == nil {
		log.Warnf("[JobQueue] Notification job %s no longer exists, dropping", payload.NotificationJobID)
		return nil
	}
	log.Debugf("[JobQueue] Notification job %s is %s after %d attempts", delivered.ID, delivered.Status, delivered.Attempts)
	return nil
}

func (q *Queue) countOutcome(ctx context.Context, job *Job, status JobStatus) {
	metrics.QueueJobs.WithLabelValues(string(job.Type), string(status)).Inc()
	if status == JobStatusRetrying {
		return
	}
	if err := q.client.HIncrBy(ctx, JobStatsKey, string(status), 1).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to update job stats: %v", err)
	}
}

func (q *Queue) loadJob(ctx context.Context, id string) (*Job, error) {
	data, err := q.client.Get(ctx, JobKeyPrefix+id).Bytes()
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

func (q *Queue) saveJob(ctx context.Context, job *Job) {
	data, err := json.Marshal(job)
	if err != nil {
		log.Errorf("[JobQueue] Failed to marshal job %s: %v", job.ID, err)
		return
	}
	if err := q.client.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to save job %s: %v", job.ID, err)
	}
}

// requeueJob moves a job from processing to the tail of the pending list.
func (q *Queue) requeueJob(ctx context.Context, job *Job) error {
	job.Status = JobStatusPending
	job.UpdatedAt = time.Now()
	q.saveJob(ctx, job)

	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, JobProcessingKey, 1, job.ID)
	pipe.RPush(ctx, JobQueueKey, job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to requeue job %s: %w", job.ID, err)
	}
	return nil
}

func (q *Queue) removeFromProcessing(ctx context.Context, id string) {
	if err := q.client.LRem(ctx, JobProcessingKey, 1, id).Err(); err != nil {
		log.Errorf("[JobQueue] Failed to remove job %s from processing: %v", id, err)
	}
}

// GetJob returns redis.Nil for unknown or completed jobs.
func (q *Queue) GetJob(ctx context.Context, jobID string) (*Job, error) {
	return q.loadJob(ctx, jobID)
}

// GetJobStats returns the lifetime counters. Unparseable values are skipped.
func (q *Queue) GetJobStats(ctx context.Context) (map[JobStatus]int64, error) {
	raw, err := q.client.HGetAll(ctx, JobStatsKey).Result()
	if err != nil {
		return nil, err
	}
	stats := make(map[JobStatus]int64, len(raw))
	for status, count := range raw {
		if n, err := strconv.ParseInt(count, 10, 64); err == nil {
			stats[JobStatus(status)] = n
		}
	}
	return stats, nil
}

func (q *Queue) GetQueueSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, JobQueueKey).Result()
}

func (q *Queue) GetProcessingSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, JobProcessingKey).Result()
}
