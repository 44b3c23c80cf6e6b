package writer

import "time"

// Relational models for the normalized transaction schema. All child rows
// hang off Transaction and are created in the same database transaction.

type User struct {
	ID        uint   `gorm:"primaryKey"`
	Email     string `gorm:"uniqueIndex;not null"`
	APIToken  string
	CreatedAt time.Time
}

type Transaction struct {
	ID                   string `gorm:"type:uuid;primaryKey"`
	ExternalID           string `gorm:"uniqueIndex;not null"`
	Amount               float64
	TransactionType      int
	Description          string
	TransactionTimestamp time.Time
	Category             string
	UserID               uint
	CreatedAt            time.Time

	Counterparty        *Counterparty        `gorm:"constraint:OnDelete:CASCADE"`
	PaymentMethod       *PaymentMethod       `gorm:"constraint:OnDelete:CASCADE"`
	Tags                []TransactionTag     `gorm:"constraint:OnDelete:CASCADE"`
	Recurrence          *Recurrence          `gorm:"constraint:OnDelete:CASCADE"`
	Attachments         []Attachment         `gorm:"constraint:OnDelete:CASCADE"`
	Location            *Location            `gorm:"constraint:OnDelete:CASCADE"`
	TransactionMetadata *TransactionMetadata `gorm:"constraint:OnDelete:CASCADE"`
}

type Counterparty struct {
	ID            uint   `gorm:"primaryKey"`
	TransactionID string `gorm:"type:uuid;index"`
	Name          string
	IsKnown       bool
}

type PaymentMethod struct {
	ID            uint   `gorm:"primaryKey"`
	TransactionID string `gorm:"type:uuid;index"`
	Type          string
	Provider      string
	Nickname      string
	LastFour      string
}

type TransactionTag struct {
	ID            uint   `gorm:"primaryKey"`
	TransactionID string `gorm:"type:uuid;index"`
	Tag           string
}

type Recurrence struct {
	ID            uint   `gorm:"primaryKey"`
	TransactionID string `gorm:"type:uuid;index"`
	IsRecurring   bool
	Frequency     string
	StartDate     *time.Time
	EndDate       *time.Time
}

type Attachment struct {
	ID            uint   `gorm:"primaryKey"`
	TransactionID string `gorm:"type:uuid;index"`
	Type          string
	URL           string
	Description   string
}

type Location struct {
	ID                uint   `gorm:"primaryKey"`
	TransactionID     string `gorm:"type:uuid;index"`
	EstablishmentName string
	Address           string
	Latitude          *float64
	Longitude         *float64
}

type TransactionMetadata struct {
	ID            uint   `gorm:"primaryKey"`
	TransactionID string `gorm:"type:uuid;index"`
	DeviceModel   string
	AppVersion    string
}
