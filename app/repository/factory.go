package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory manages repository instances and ensures they are singletons
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a factory over a GORM handle. A nil handle yields the
// in-memory repositories.
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// GetRepositories returns a singleton instance of all repositories
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() {
		if f.db == nil {
			f.repos = NewMemoryRepositories()
			return
		}
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// GetLicenseRepository returns the license repository instance
func (f *Factory) GetLicenseRepository() LicenseRepository {
	return f.GetRepositories().License
}

// GetTransactionRepository returns the transaction repository instance
func (f *Factory) GetTransactionRepository() TransactionRepository {
	return f.GetRepositories().Transaction
}

// GetNotificationJobRepository returns the notification job repository instance
func (f *Factory) GetNotificationJobRepository() NotificationJobRepository {
	return f.GetRepositories().NotificationJob
}

// GetNotificationLogRepository returns the notification log repository instance
func (f *Factory) GetNotificationLogRepository() NotificationLogRepository {
	return f.GetRepositories().NotificationLog
}
