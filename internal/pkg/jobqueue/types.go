package jobqueue

import (
	"encoding/json"
	"errors"
	"time"
)

// JobType selects the handler in processJob.
type JobType string

const (
	JobTypeLicenseReminder JobType = "license_reminder"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job is the JSON envelope stored under jobKeyPrefix+ID.
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

var errMissingNotificationJobID = errors.New("notification_job_id is required")

// LicenseReminderJobPayload points at a stored notification job. The queue
// only carries the id; message, channel and recipient live on the record.
type LicenseReminderJobPayload struct {
	NotificationJobID string `json:"notification_job_id"`
	RucOrDni          string `json:"ruc_or_dni,omitempty"`
}

func (p LicenseReminderJobPayload) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"notification_job_id": p.NotificationJobID,
	}
	if p.RucOrDni != "" {
		m["ruc_or_dni"] = p.RucOrDni
	}
	return m
}

func LicenseReminderJobPayloadFromMap(data map[string]interface{}) (*LicenseReminderJobPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var payload LicenseReminderJobPayload
	if err := json.Unmarshal(jsonData, &payload); err != nil {
		return nil, err
	}
	if payload.NotificationJobID == "" {
		return nil, errMissingNotificationJobID
	}
	return &payload, nil
}

// IsRetryable reports whether a failed job still has attempts left.
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed counts the attempt and keeps the last error.
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}

// RetryDelay is the linear backoff before the next attempt.
func (j *Job) RetryDelay(base time.Duration) time.Duration {
	if j.RetryCount < 1 {
		return base
	}
	return base * time.Duration(j.RetryCount)
}
