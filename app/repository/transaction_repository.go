package repository

import (
	"context"
	"errors"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository instance
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) CreateIfNotExists(ctx context.Context, tx *models.Transaction) (bool, *models.Transaction, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "transaction_id"}},
		DoNothing: true,
	}).Create(tx)
	if res.Error != nil {
		return false, nil, res.Error
	}
	if res.RowsAffected > 0 {
		return true, tx, nil
	}

	stored, err := r.GetByTransactionID(ctx, tx.TransactionID)
	if err != nil {
		return false, nil, err
	}
	return false, stored, nil
}

func (r *transactionRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func (r *transactionRepository) LinkLicense(ctx context.Context, transactionID, licenseID, licenseKey string) error {
	return r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("transaction_id = ?", transactionID).
		Updates(map[string]any{"license_id": licenseID, "license_key": licenseKey}).Error
}

func (r *transactionRepository) List(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	q := r.db.WithContext(ctx).Model(&models.Transaction{})
	if filter.LicenseID != "" {
		q = q.Where("license_id = ?", filter.LicenseID)
	}
	if filter.PaymentCode != "" {
		q = q.Where("payment_code = ?", filter.PaymentCode)
	}
	if filter.Since != nil {
		q = q.Where("timestamp >= ?", *filter.Since)
	}
	var out []models.Transaction
	err := q.Order("timestamp DESC").Limit(listLimit(filter.Limit)).Offset(filter.Offset).Find(&out).Error
	return out, err
}
