package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
	"github.com/Carlos-mc14/nexius-landing-sub000/app/repository"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/licensing"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/metrics"
)

var validate = validator.New()

// JobInput describes a candidate reminder.
type JobInput struct {
	RucOrDni   string   `json:"rucOrDni" validate:"required,max=20"`
	LicenseIDs []string `json:"licenseIds" validate:"required,min=1,dive,required"`
	TotalDue   float64  `json:"totalDue" validate:"gte=0"`
	Currency   string   `json:"currency" validate:"omitempty,len=3"`
	Severity   string   `json:"severity" validate:"required,oneof=low medium high"`
	Message    string   `json:"message" validate:"required,max=4000"`
	Channel    string   `json:"channel" validate:"omitempty,oneof=whatsapp email log"`
	Recipient  string   `json:"recipient" validate:"omitempty,max=191"`
	Origin     string   `json:"origin" validate:"omitempty,max=32"`
}

// UpsertResult is the stored job and whether it already existed.
type UpsertResult struct {
	Job       *models.NotificationJob `json:"job"`
	Duplicate bool                    `json:"duplicate"`
}

// JobPatch lists the mutable job fields. Nil fields are left untouched.
type JobPatch struct {
	Status    *string    `json:"status,omitempty" validate:"omitempty,oneof=pending sent failed cancelled"`
	Channel   *string    `json:"channel,omitempty" validate:"omitempty,oneof=whatsapp email log"`
	Recipient *string    `json:"recipient,omitempty" validate:"omitempty,max=191"`
	Attempts  *int       `json:"attempts,omitempty" validate:"omitempty,gte=0"`
	LastError *string    `json:"lastError,omitempty"`
	SentAt    *time.Time `json:"sentAt,omitempty"`
}

// LogInput is one delivery attempt to record.
type LogInput struct {
	JobID      string   `json:"jobId"`
	RucOrDni   string   `json:"rucOrDni" validate:"required,max=20"`
	LicenseIDs []string `json:"licenseIds"`
	Channel    string   `json:"channel" validate:"required,oneof=whatsapp email log"`
	Recipient  string   `json:"recipient" validate:"omitempty,max=191"`
	Status     string   `json:"status" validate:"required,oneof=sent failed"`
	Message    string   `json:"message"`
	Error      string   `json:"error"`
}

// Service stores deduplicated reminder jobs and delivers them.
type Service struct {
	jobs    repository.NotificationJobRepository
	logs    repository.NotificationLogRepository
	cfg     Config
	senders map[string]Sender
	now     func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSender registers the sender used for jobs on channel.
func WithSender(channel string, sender Sender) Option {
	return func(s *Service) { s.senders[channel] = sender }
}

func NewService(jobs repository.NotificationJobRepository, logs repository.NotificationLogRepository, cfg Config, opts ...Option) *Service {
	cfg.applyDefaults()
	s := &Service{
		jobs:    jobs,
		logs:    logs,
		cfg:     cfg,
		senders: map[string]Sender{models.ChannelLog: LogSender{}},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Config() Config {
	return s.cfg
}

// Upsert stores in unless a job with the same content hash exists, in which
// case the existing job is returned flagged as duplicate.
func (s *Service) Upsert(ctx context.Context, in JobInput) (*UpsertResult, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}

	hash := JobHash(in)
	existing, err := s.jobs.GetByHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.duplicate(existing), nil
	}

	channel := in.Channel
	if channel == "" {
		channel = s.cfg.DefaultChannel
	}
	origin := strings.TrimSpace(in.Origin)
	if origin == "" {
		origin = "manual"
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = models.DefaultCurrency
	}

	job := &models.NotificationJob{
		ID:         uuid.New().String(),
		RucOrDni:   strings.TrimSpace(in.RucOrDni),
		LicenseIDs: licenseSet(in.LicenseIDs),
		TotalDue:   licensing.RoundMoney(in.TotalDue),
		Currency:   currency,
		Severity:   in.Severity,
		Message:    strings.TrimSpace(in.Message),
		Channel:    channel,
		Recipient:  strings.TrimSpace(in.Recipient),
		Origin:     origin,
		Status:     models.NotificationStatusPending,
		Attempts:   0,
		Hash:       hash,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("failed to create notification job: %w", err)
		}
		// Another trigger inserted the same hash between lookup and insert.
		winner, lookupErr := s.jobs.GetByHash(ctx, hash)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if winner == nil {
			return nil, fmt.Errorf("failed to create notification job: %w", err)
		}
		return s.duplicate(winner), nil
	}

	metrics.NotificationJobs.WithLabelValues("created").Inc()
	log.Infof("[Notifications] Created %s reminder %s for %s (%d licenses, %s %.2f)", job.Severity, job.ID, job.RucOrDni, len(job.LicenseIDs), job.Currency, job.TotalDue)
	return &UpsertResult{Job: job, Duplicate: false}, nil
}

func (s *Service) duplicate(job *models.NotificationJob) *UpsertResult {
	metrics.NotificationJobs.WithLabelValues("duplicate").Inc()
	log.Debugf("[Notifications] Reminder %s already exists (hash %s)", job.ID, job.Hash)
	return &UpsertResult{Job: job, Duplicate: true}
}

func (s *Service) Find(ctx context.Context, filter repository.NotificationJobFilter) ([]models.NotificationJob, error) {
	return s.jobs.Find(ctx, filter)
}

// Get returns (nil, nil) when the job does not exist.
func (s *Service) Get(ctx context.Context, id string) (*models.NotificationJob, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: bad id %q", ErrInvalidJob, id)
	}
	return s.jobs.GetByID(ctx, id)
}

// Update applies patch and returns the stored job, or nil when missing.
func (s *Service) Update(ctx context.Context, id string, patch JobPatch) (*models.NotificationJob, error) {
	if err := validate.Struct(patch); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	job, err := s.Get(ctx, id)
	if err != nil || job == nil {
		return nil, err
	}
	if patch.Status != nil {
		job.Status = *patch.Status
	}
	if patch.Channel != nil {
		job.Channel = *patch.Channel
	}
	if patch.Recipient != nil {
		job.Recipient = strings.TrimSpace(*patch.Recipient)
	}
	if patch.Attempts != nil {
		job.Attempts = *patch.Attempts
	}
	if patch.LastError != nil {
		job.LastError = *patch.LastError
	}
	if patch.SentAt != nil {
		at := *patch.SentAt
		job.SentAt = &at
	}
	if err := s.jobs.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to update notification job %s: %w", id, err)
	}
	return job, nil
}

// LogNotification appends an immutable delivery record.
func (s *Service) LogNotification(ctx context.Context, in LogInput) (*models.NotificationLog, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	entry := &models.NotificationLog{
		JobID:      in.JobID,
		RucOrDni:   strings.TrimSpace(in.RucOrDni),
		LicenseIDs: licenseSet(in.LicenseIDs),
		Channel:    in.Channel,
		Recipient:  strings.TrimSpace(in.Recipient),
		Status:     in.Status,
		Message:    in.Message,
		Error:      in.Error,
		CreatedAt:  s.now(),
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to log notification: %w", err)
	}
	return entry, nil
}

func (s *Service) ListLogs(ctx context.Context, jobID string, limit int) ([]models.NotificationLog, error) {
	return s.logs.ListByJob(ctx, jobID, limit)
}

// Deliver sends a pending or failed job through its channel, records the
// attempt and returns the updated job. Jobs in any other state are returned
// unchanged. A send failure is returned after it has been recorded so queue
// callers can retry.
func (s *Service) Deliver(ctx context.Context, jobID string) (*models.NotificationJob, error) {
	job, err := s.Get(ctx, jobID)
	if err != nil || job == nil {
		return nil, err
	}
	if job.Status != models.NotificationStatusPending && job.Status != models.NotificationStatusFailed {
		log.Debugf("[Notifications] Job %s is %s, not delivering", job.ID, job.Status)
		return job, nil
	}

	sendErr := s.send(ctx, job)

	job.Attempts++
	status := models.NotificationStatusSent
	if sendErr != nil {
		status = models.NotificationStatusFailed
		job.Status = models.NotificationStatusFailed
		job.LastError = sendErr.Error()
		log.Warnf("[Notifications] Delivery of %s via %s failed (attempt %d): %v", job.ID, job.Channel, job.Attempts, sendErr)
	} else {
		sentAt := s.now()
		job.Status = models.NotificationStatusSent
		job.SentAt = &sentAt
		job.LastError = ""
		log.Infof("[Notifications] Delivered %s via %s to %s", job.ID, job.Channel, job.Recipient)
	}
	metrics.NotificationDeliveries.WithLabelValues(job.Channel, status).Inc()

	if err := s.jobs.Update(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to update notification job %s: %w", job.ID, err)
	}

	entry := LogInput{
		JobID:      job.ID,
		RucOrDni:   job.RucOrDni,
		LicenseIDs: job.LicenseIDs,
		Channel:    job.Channel,
		Recipient:  job.Recipient,
		Status:     status,
		Message:    job.Message,
	}
	if sendErr != nil {
		entry.Error = sendErr.Error()
	}
	if _, err := s.LogNotification(ctx, entry); err != nil {
		log.Errorf("[Notifications] Failed to log delivery of %s: %v", job.ID, err)
	}
	return job, sendErr
}

func (s *Service) send(ctx context.Context, job *models.NotificationJob) error {
	sender, ok := s.senders[job.Channel]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownChannel, job.Channel)
	}
	if job.Recipient == "" && job.Channel != models.ChannelLog {
		return ErrNoRecipient
	}
	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()
	return sender.Send(sendCtx, Message{
		JobID:     job.ID,
		Channel:   job.Channel,
		Recipient: job.Recipient,
		Subject:   subjectFor(job.Severity),
		Body:      job.Message,
	})
}

func subjectFor(severity string) string {
	if severity == models.SeverityHigh {
		return "Pago vencido de su servicio Nexius"
	}
	return "Recordatorio de pago de su servicio Nexius"
}
