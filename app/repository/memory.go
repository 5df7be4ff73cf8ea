package repository

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
	"gorm.io/gorm"
)

// NewMemoryRepositories returns process-local repositories used when
// DB_DRIVER=memory and by tests. Every read and write copies the record.
func NewMemoryRepositories() *Repositories {
	return &Repositories{
		License:         NewMemoryLicenseRepository(),
		Transaction:     NewMemoryTransactionRepository(),
		NotificationJob: NewMemoryNotificationJobRepository(),
		NotificationLog: NewMemoryNotificationLogRepository(),
	}
}

type memoryLicenseRepository struct {
	mu       sync.RWMutex
	licenses map[string]*models.License
}

func NewMemoryLicenseRepository() LicenseRepository {
	return &memoryLicenseRepository{licenses: make(map[string]*models.License)}
}

func (r *memoryLicenseRepository) Create(_ context.Context, license *models.License) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.licenses[license.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	for _, l := range r.licenses {
		if l.LicenseKey == license.LicenseKey {
			return gorm.ErrDuplicatedKey
		}
	}
	now := time.Now()
	if license.CreatedAt.IsZero() {
		license.CreatedAt = now
	}
	license.UpdatedAt = now
	r.licenses[license.ID] = license.Clone()
	return nil
}

func (r *memoryLicenseRepository) Save(_ context.Context, license *models.License) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if license.CreatedAt.IsZero() {
		license.CreatedAt = time.Now()
	}
	license.UpdatedAt = time.Now()
	r.licenses[license.ID] = license.Clone()
	return nil
}

func (r *memoryLicenseRepository) GetByID(_ context.Context, id string) (*models.License, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.licenses[id].Clone(), nil
}

func (r *memoryLicenseRepository) FindByDomain(_ context.Context, domain string) (*models.License, error) {
	d := strings.ToLower(strings.TrimSpace(domain))
	return r.findOne(func(l *models.License) bool { return d != "" && l.Domain == d }), nil
}

func (r *memoryLicenseRepository) FindByPaymentCode(_ context.Context, code string) (*models.License, error) {
	return r.findOne(func(l *models.License) bool { return code != "" && l.CurrentPaymentCode == code }), nil
}

func (r *memoryLicenseRepository) Find(_ context.Context, filter LicenseFilter) ([]models.License, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	domain := strings.ToLower(strings.TrimSpace(filter.Domain))
	out := make([]models.License, 0, len(r.licenses))
	for _, l := range r.licenses {
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if slices.Contains(filter.ExcludeStatus, l.Status) {
			continue
		}
		if domain != "" && l.Domain != domain {
			continue
		}
		if filter.ClientDocument != "" && l.ClientDocument != filter.ClientDocument {
			continue
		}
		if filter.ScheduleMode != "" && l.ScheduleMode != filter.ScheduleMode {
			continue
		}
		if filter.DueBefore != nil && (l.NextPaymentDue == nil || !l.NextPaymentDue.Before(*filter.DueBefore)) {
			continue
		}
		out = append(out, *l.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, filter.Offset, filter.Limit), nil
}

func (r *memoryLicenseRepository) findOne(match func(*models.License) bool) *models.License {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found *models.License
	for _, l := range r.licenses {
		if match(l) && (found == nil || l.CreatedAt.Before(found.CreatedAt)) {
			found = l
		}
	}
	return found.Clone()
}

type memoryTransactionRepository struct {
	mu     sync.RWMutex
	nextID uint
	byTxID map[string]models.Transaction
}

func NewMemoryTransactionRepository() TransactionRepository {
	return &memoryTransactionRepository{byTxID: make(map[string]models.Transaction)}
}

func (r *memoryTransactionRepository) CreateIfNotExists(_ context.Context, tx *models.Transaction) (bool, *models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byTxID[tx.TransactionID]; ok {
		return false, &existing, nil
	}
	r.nextID++
	tx.ID = r.nextID
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now()
	}
	r.byTxID[tx.TransactionID] = *tx
	stored := *tx
	return true, &stored, nil
}

func (r *memoryTransactionRepository) GetByTransactionID(_ context.Context, transactionID string) (*models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tx, ok := r.byTxID[transactionID]
	if !ok {
		return nil, nil
	}
	return &tx, nil
}

func (r *memoryTransactionRepository) LinkLicense(_ context.Context, transactionID, licenseID, licenseKey string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.byTxID[transactionID]
	if !ok {
		return nil
	}
	tx.LicenseID = licenseID
	tx.LicenseKey = licenseKey
	r.byTxID[transactionID] = tx
	return nil
}

func (r *memoryTransactionRepository) List(_ context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Transaction, 0, len(r.byTxID))
	for _, tx := range r.byTxID {
		if filter.LicenseID != "" && tx.LicenseID != filter.LicenseID {
			continue
		}
		if filter.PaymentCode != "" && tx.PaymentCode != filter.PaymentCode {
			continue
		}
		if filter.Since != nil && tx.Timestamp.Before(*filter.Since) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return paginate(out, filter.Offset, filter.Limit), nil
}

type memoryNotificationJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]models.NotificationJob
}

func NewMemoryNotificationJobRepository() NotificationJobRepository {
	return &memoryNotificationJobRepository{jobs: make(map[string]models.NotificationJob)}
}

func (r *memoryNotificationJobRepository) Create(_ context.Context, job *models.NotificationJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.Hash == job.Hash {
			return gorm.ErrDuplicatedKey
		}
	}
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	r.jobs[job.ID] = cloneJob(*job)
	return nil
}

func (r *memoryNotificationJobRepository) GetByID(_ context.Context, id string) (*models.NotificationJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	c := cloneJob(j)
	return &c, nil
}

func (r *memoryNotificationJobRepository) GetByHash(_ context.Context, hash string) (*models.NotificationJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, j := range r.jobs {
		if j.Hash == hash {
			c := cloneJob(j)
			return &c, nil
		}
	}
	return nil, nil
}

func (r *memoryNotificationJobRepository) Find(_ context.Context, filter NotificationJobFilter) ([]models.NotificationJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.NotificationJob, 0, len(r.jobs))
	for _, j := range r.jobs {
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		if filter.RucOrDni != "" && j.RucOrDni != filter.RucOrDni {
			continue
		}
		if filter.Severity != "" && j.Severity != filter.Severity {
			continue
		}
		if filter.LicenseID != "" && !slices.Contains(j.LicenseIDs, filter.LicenseID) {
			continue
		}
		out = append(out, cloneJob(j))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, filter.Offset, filter.Limit), nil
}

func (r *memoryNotificationJobRepository) Update(_ context.Context, job *models.NotificationJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job.UpdatedAt = time.Now()
	r.jobs[job.ID] = cloneJob(*job)
	return nil
}

type memoryNotificationLogRepository struct {
	mu     sync.RWMutex
	nextID uint
	logs   []models.NotificationLog
}

func NewMemoryNotificationLogRepository() NotificationLogRepository {
	return &memoryNotificationLogRepository{}
}

func (r *memoryNotificationLogRepository) Create(_ context.Context, entry *models.NotificationLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	entry.ID = r.nextID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	c := *entry
	c.LicenseIDs = slices.Clone(entry.LicenseIDs)
	r.logs = append(r.logs, c)
	return nil
}

func (r *memoryNotificationLogRepository) ListByJob(_ context.Context, jobID string, limit int) ([]models.NotificationLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.NotificationLog, 0)
	for i := len(r.logs) - 1; i >= 0; i-- {
		if r.logs[i].JobID == jobID {
			c := r.logs[i]
			c.LicenseIDs = slices.Clone(c.LicenseIDs)
			out = append(out, c)
		}
	}
	return paginate(out, 0, limit), nil
}

func cloneJob(j models.NotificationJob) models.NotificationJob {
	j.LicenseIDs = slices.Clone(j.LicenseIDs)
	if j.SentAt != nil {
		t := *j.SentAt
		j.SentAt = &t
	}
	return j
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	if offset > 0 {
		items = items[offset:]
	}
	if l := listLimit(limit); len(items) > l {
		items = items[:l]
	}
	return items
}
