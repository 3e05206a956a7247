package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatusPending is the only status this service assigns; downstream
// fulfilment owns later transitions.
const OrderStatusPending = "Pending"

// Order is created exactly once per checkout.
type Order struct {
	ID          uint            `gorm:"column:id;primaryKey;autoIncrement"`
	UUID        uuid.UUID       `gorm:"column:uuid;type:uuid;uniqueIndex;not null"`
	CartID      uint            `gorm:"column:cart_id;not null"`
	Cart        *Cart           `gorm:"foreignKey:CartID"`
	UserID      uint            `gorm:"column:user_id;not null;index"`
	User        *User           `gorm:"foreignKey:UserID"`
	Status      string          `gorm:"column:status;not null;default:'Pending'"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:numeric(10,2);not null"`
	Reference   string          `gorm:"column:reference;uniqueIndex;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt   gorm.DeletedAt  `gorm:"column:deleted_at;index"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.UUID == uuid.Nil {
		o.UUID = uuid.New()
	}
	if o.Status == "" {
		o.Status = OrderStatusPending
	}
	return nil
}
