package models

import "time"

// Transaction is an incoming payment notification (for example a Yape
// transfer captured by the companion app). TransactionID is the source's own
// identifier and the idempotency key everywhere downstream.
type Transaction struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	TransactionID   string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"transactionId" validate:"required,max=191"`
	Amount          float64   `gorm:"type:decimal(12,2);not null" json:"amount" validate:"gt=0"`
	Currency        string    `gorm:"type:varchar(3);not null;default:'PEN'" json:"currency"`
	Type            string    `gorm:"type:varchar(32);not null;default:'yape'" json:"type"`
	Timestamp       time.Time `gorm:"type:datetime;not null;index" json:"timestamp"`
	Message         string    `gorm:"type:text" json:"message,omitempty"`
	ContactName     string    `gorm:"type:varchar(191)" json:"contactName,omitempty"`
	ContactPhone    string    `gorm:"type:varchar(32)" json:"contactPhone,omitempty"`
	ContactEmail    string    `gorm:"type:varchar(191)" json:"contactEmail,omitempty"`
	ContactDocument string    `gorm:"type:varchar(20)" json:"contactDocument,omitempty"`
	LicenseID       string    `gorm:"type:char(36);index" json:"licenseId,omitempty"`
	LicenseKey      string    `gorm:"type:varchar(32)" json:"licenseKey,omitempty"`
	PaymentCode     string    `gorm:"type:varchar(16);index" json:"paymentCode,omitempty"`

	YapeCode             string     `gorm:"type:varchar(32)" json:"yapeCode,omitempty"`
	AppVersion           string     `gorm:"type:varchar(32)" json:"appVersion,omitempty"`
	DeviceID             string     `gorm:"type:varchar(191)" json:"deviceId,omitempty"`
	NotificationTitle    string     `gorm:"type:varchar(255)" json:"notificationTitle,omitempty"`
	NotificationText     string     `gorm:"type:text" json:"notificationText,omitempty"`
	NotificationPackage  string     `gorm:"type:varchar(191)" json:"notificationPackage,omitempty"`
	NotificationPostedAt *time.Time `gorm:"type:datetime;default:null" json:"notificationPostedAt,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Transaction) TableName() string {
	return "transactions"
}
