package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Cart is the durable cart shell materialized at checkout. It is immutable
// after creation except for soft delete.
type Cart struct {
	ID        uint           `gorm:"column:id;primaryKey;autoIncrement"`
	UUID      uuid.UUID      `gorm:"column:uuid;type:uuid;uniqueIndex;not null"`
	UserID    uint           `gorm:"column:user_id;not null;index"`
	User      *User          `gorm:"foreignKey:UserID"`
	Items     []CartItem     `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Cart) TableName() string { return "carts" }

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	return nil
}
