// Package model holds the GORM persistence models.
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountModel mirrors the 'accounts' table. The unique index on email is what
// guarantees one account per normalized address under concurrent registration.
type AccountModel struct {
	ID                   uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Email                string     `gorm:"type:varchar(255);uniqueIndex:idx_accounts_email;not null"`
	PasswordHash         string     `gorm:"type:varchar(255);not null"`
	Verified             bool       `gorm:"not null;default:false"`
	ConfirmEmailToken    string     `gorm:"type:varchar(128);index:idx_accounts_confirm_token"`
	ResetPasswordToken   string     `gorm:"type:varchar(128);index:idx_accounts_reset_token"`
	ResetPasswordExpires *time.Time `gorm:"index"`
	FirstName            string     `gorm:"type:varchar(100)"`
	LastName             string     `gorm:"type:varchar(100)"`
	Classification       string     `gorm:"type:varchar(50)"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// TableName explicitly sets the table name for GORM.
func (AccountModel) TableName() string {
	return "accounts"
}

// BeforeCreate assigns a v7 UUID when the caller did not set one, so the model
// works the same on PostgreSQL and SQLite.
func (m *AccountModel) BeforeCreate(_ *gorm.DB) error {
	if m.ID != uuid.Nil {
		return nil
	}

	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	m.ID = id

	return nil
}

// Models lists every model managed by AutoMigrate.
func Models() []any {
	return []any{&AccountModel{}}
}
