package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CartItem is one product line materialized from the in-progress cart at
// checkout. Created in a batch, never mutated afterward.
type CartItem struct {
	ID        uint           `gorm:"column:id;primaryKey;autoIncrement"`
	UUID      uuid.UUID      `gorm:"column:uuid;type:uuid;uniqueIndex;not null"`
	CartID    uint           `gorm:"column:cart_id;not null;index"`
	ProductID uint           `gorm:"column:product_id;not null"`
	Product   *Product       `gorm:"foreignKey:ProductID"`
	Quantity  int            `gorm:"column:quantity;not null"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (CartItem) TableName() string { return "cart_items" }

func (i *CartItem) BeforeCreate(tx *gorm.DB) error {
	if i.UUID == uuid.Nil {
		i.UUID = uuid.New()
	}
	return nil
}
