package repository

import (
	"context"
	"time"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
	"gorm.io/gorm"
)

// LicenseFilter narrows license listings. Zero values mean "any".
type LicenseFilter struct {
	Status         string
	Domain         string
	ClientDocument string
	ScheduleMode   string
	DueBefore      *time.Time
	ExcludeStatus  []string
	Limit          int
	Offset         int
}

// NotificationJobFilter narrows notification job listings.
type NotificationJobFilter struct {
	Status    string
	RucOrDni  string
	LicenseID string
	Severity  string
	Limit     int
	Offset    int
}

// TransactionFilter narrows transaction listings.
type TransactionFilter struct {
	LicenseID   string
	PaymentCode string
	Since       *time.Time
	Limit       int
	Offset      int
}

// LicenseRepository persists license documents. Lookups return (nil, nil)
// when the record does not exist.
type LicenseRepository interface {
	Create(ctx context.Context, license *models.License) error
	Save(ctx context.Context, license *models.License) error
	GetByID(ctx context.Context, id string) (*models.License, error)
	Find(ctx context.Context, filter LicenseFilter) ([]models.License, error)
	FindByDomain(ctx context.Context, domain string) (*models.License, error)
	FindByPaymentCode(ctx context.Context, code string) (*models.License, error)
}

// TransactionRepository persists incoming payment notifications.
type TransactionRepository interface {
	// CreateIfNotExists inserts tx unless its TransactionID is known and
	// reports whether a row was created. stored is the persisted row.
	CreateIfNotExists(ctx context.Context, tx *models.Transaction) (created bool, stored *models.Transaction, err error)
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error)
	LinkLicense(ctx context.Context, transactionID, licenseID, licenseKey string) error
	List(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error)
}

// NotificationJobRepository persists deduplicated reminder jobs.
type NotificationJobRepository interface {
	Create(ctx context.Context, job *models.NotificationJob) error
	GetByID(ctx context.Context, id string) (*models.NotificationJob, error)
	GetByHash(ctx context.Context, hash string) (*models.NotificationJob, error)
	Find(ctx context.Context, filter NotificationJobFilter) ([]models.NotificationJob, error)
	Update(ctx context.Context, job *models.NotificationJob) error
}

// NotificationLogRepository is append-only.
type NotificationLogRepository interface {
	Create(ctx context.Context, entry *models.NotificationLog) error
	ListByJob(ctx context.Context, jobID string, limit int) ([]models.NotificationLog, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	License         LicenseRepository
	Transaction     TransactionRepository
	NotificationJob NotificationJobRepository
	NotificationLog NotificationLogRepository
}

// NewRepositories creates GORM-backed repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		License:         NewLicenseRepository(db),
		Transaction:     NewTransactionRepository(db),
		NotificationJob: NewNotificationJobRepository(db),
		NotificationLog: NewNotificationLogRepository(db),
	}
}

const defaultListLimit = 100

func listLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return defaultListLimit
	}
	return limit
}
