package repository

import (
	"context"
	"errors"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
	"gorm.io/gorm"
)

type notificationJobRepository struct {
	db *gorm.DB
}

// NewNotificationJobRepository creates a new notification job repository instance
func NewNotificationJobRepository(db *gorm.DB) NotificationJobRepository {
	return &notificationJobRepository{db: db}
}

// Create fails with gorm.ErrDuplicatedKey when the hash is already stored
// and the handle was opened with TranslateError.
func (r *notificationJobRepository) Create(ctx context.Context, job *models.NotificationJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

func (r *notificationJobRepository) GetByID(ctx context.Context, id string) (*models.NotificationJob, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *notificationJobRepository) GetByHash(ctx context.Context, hash string) (*models.NotificationJob, error) {
	return r.first(ctx, "hash = ?", hash)
}

func (r *notificationJobRepository) Find(ctx context.Context, filter NotificationJobFilter) ([]models.NotificationJob, error) {
	q := r.db.WithContext(ctx).Model(&models.NotificationJob{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.RucOrDni != "" {
		q = q.Where("ruc_or_dni = ?", filter.RucOrDni)
	}
	if filter.Severity != "" {
		q = q.Where("severity = ?", filter.Severity)
	}
	if filter.LicenseID != "" {
		q = q.Where("JSON_CONTAINS(license_ids, JSON_QUOTE(?))", filter.LicenseID)
	}
	var jobs []models.NotificationJob
	err := q.Order("created_at DESC").Limit(listLimit(filter.Limit)).Offset(filter.Offset).Find(&jobs).Error
	return jobs, err
}

func (r *notificationJobRepository) Update(ctx context.Context, job *models.NotificationJob) error {
	return r.db.WithContext(ctx).Save(job).Error
}

func (r *notificationJobRepository) first(ctx context.Context, query string, args ...any) (*models.NotificationJob, error) {
	var job models.NotificationJob
	err := r.db.WithContext(ctx).Where(query, args...).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

type notificationLogRepository struct {
	db *gorm.DB
}

// NewNotificationLogRepository creates a new notification log repository instance
func NewNotificationLogRepository(db *gorm.DB) NotificationLogRepository {
	return &notificationLogRepository{db: db}
}

func (r *notificationLogRepository) Create(ctx context.Context, entry *models.NotificationLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *notificationLogRepository) ListByJob(ctx context.Context, jobID string, limit int) ([]models.NotificationLog, error) {
	var logs []models.NotificationLog
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at DESC").
		Limit(listLimit(limit)).
		Find(&logs).Error
	return logs, err
}
