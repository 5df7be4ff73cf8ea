package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
	"gorm.io/gorm"
)

// licenseRepository implements the LicenseRepository interface
type licenseRepository struct {
	db *gorm.DB
}

// NewLicenseRepository creates a new license repository instance
func NewLicenseRepository(db *gorm.DB) LicenseRepository {
	return &licenseRepository{db: db}
}

func (r *licenseRepository) Create(ctx context.Context, license *models.License) error {
	return r.db.WithContext(ctx).Create(license).Error
}

// Save writes the whole document, ledgers included.
func (r *licenseRepository) Save(ctx context.Context, license *models.License) error {
	return r.db.WithContext(ctx).Save(license).Error
}

func (r *licenseRepository) GetByID(ctx context.Context, id string) (*models.License, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *licenseRepository) FindByDomain(ctx context.Context, domain string) (*models.License, error) {
	return r.first(ctx, "domain = ?", strings.ToLower(strings.TrimSpace(domain)))
}

func (r *licenseRepository) FindByPaymentCode(ctx context.Context, code string) (*models.License, error) {
	if code == "" {
		return nil, nil
	}
	return r.first(ctx, "current_payment_code = ?", code)
}

func (r *licenseRepository) Find(ctx context.Context, filter LicenseFilter) ([]models.License, error) {
	q := r.db.WithContext(ctx).Model(&models.License{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if len(filter.ExcludeStatus) > 0 {
		q = q.Where("status NOT IN ?", filter.ExcludeStatus)
	}
	if filter.Domain != "" {
		q = q.Where("domain = ?", strings.ToLower(strings.TrimSpace(filter.Domain)))
	}
	if filter.ClientDocument != "" {
		q = q.Where("client_document = ?", filter.ClientDocument)
	}
	if filter.ScheduleMode != "" {
		q = q.Where("schedule_mode = ?", filter.ScheduleMode)
	}
	if filter.DueBefore != nil {
		q = q.Where("next_payment_due IS NOT NULL AND next_payment_due < ?", *filter.DueBefore)
	}

	var licenses []models.License
	err := q.Order("created_at DESC").
		Limit(listLimit(filter.Limit)).
		Offset(filter.Offset).
		Find(&licenses).Error
	return licenses, err
}

func (r *licenseRepository) first(ctx context.Context, query string, args ...any) (*models.License, error) {
	var license models.License
	err := r.db.WithContext(ctx).Where(query, args...).First(&license).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &license, nil
}
