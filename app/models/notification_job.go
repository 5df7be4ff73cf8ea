package models

import "time"

const (
	NotificationStatusPending   = "pending"
	NotificationStatusSent      = "sent"
	NotificationStatusFailed    = "failed"
	NotificationStatusCancelled = "cancelled"
)

const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

const (
	ChannelWhatsApp = "whatsapp"
	ChannelEmail    = "email"
	ChannelLog      = "log"
)

// NotificationJob is a deduplicated reminder request. Hash fingerprints the
// semantic content so the same reminder is stored once.
type NotificationJob struct {
	ID         string     `gorm:"primaryKey;type:char(36)" json:"id"`
	RucOrDni   string     `gorm:"type:varchar(20);not null;index" json:"rucOrDni"`
	LicenseIDs []string   `gorm:"type:json;serializer:json" json:"licenseIds"`
	TotalDue   float64    `gorm:"type:decimal(12,2);not null;default:0" json:"totalDue"`
	Currency   string     `gorm:"type:varchar(3);not null;default:'PEN'" json:"currency"`
	Severity   string     `gorm:"type:varchar(16);not null" json:"severity"`
	Message    string     `gorm:"type:text" json:"message"`
	Channel    string     `gorm:"type:varchar(20);not null;default:'whatsapp'" json:"channel"`
	Recipient  string     `gorm:"type:varchar(191)" json:"recipient,omitempty"`
	Origin     string     `gorm:"type:varchar(32);not null;default:'manual'" json:"origin"`
	Status     string     `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	Attempts   int        `gorm:"not null;default:0" json:"attempts"`
	LastError  string     `gorm:"type:text" json:"lastError,omitempty"`
	Hash       string     `gorm:"type:char(40);not null;uniqueIndex" json:"hash"`
	SentAt     *time.Time `gorm:"type:datetime;default:null" json:"sentAt,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (NotificationJob) TableName() string {
	return "license_notification_jobs"
}

// NotificationLog records one delivery attempt. Rows are never updated.
type NotificationLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	JobID      string    `gorm:"type:char(36);index" json:"jobId,omitempty"`
	RucOrDni   string    `gorm:"type:varchar(20);index" json:"rucOrDni"`
	LicenseIDs []string  `gorm:"type:json;serializer:json" json:"licenseIds"`
	Channel    string    `gorm:"type:varchar(20);not null" json:"channel"`
	Recipient  string    `gorm:"type:varchar(191)" json:"recipient,omitempty"`
	Status     string    `gorm:"type:varchar(16);not null" json:"status"`
	Message    string    `gorm:"type:text" json:"message"`
	Error      string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
}

func (NotificationLog) TableName() string {
	return "license_notification_logs"
}
