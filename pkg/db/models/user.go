package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a shopper account.
type User struct {
	ID              uint           `gorm:"column:id;primaryKey;autoIncrement"`
	UUID            uuid.UUID      `gorm:"column:uuid;type:uuid;uniqueIndex;not null"`
	Name            string         `gorm:"column:name;not null"`
	Email           string         `gorm:"column:email;uniqueIndex;not null"`
	Password        string         `gorm:"column:password;not null"`
	EmailVerifiedAt *time.Time     `gorm:"column:email_verified_at"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt       gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (User) TableName() string { return "users" }

// BeforeCreate assigns the public identifier.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	return nil
}
