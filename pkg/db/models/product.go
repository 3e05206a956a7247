package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog listing. Price is the current unit price; carts never
// snapshot it — checkout resolves prices fresh.
type Product struct {
	ID          uint            `gorm:"column:id;primaryKey;autoIncrement"`
	UUID        uuid.UUID       `gorm:"column:uuid;type:uuid;uniqueIndex;not null"`
	Name        string          `gorm:"column:name;uniqueIndex;not null"`
	Description string          `gorm:"column:description;type:text;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	CategoryID  *uint           `gorm:"column:category_id"`
	Category    *Category       `gorm:"foreignKey:CategoryID"`
	Enabled     bool            `gorm:"column:enabled;not null;default:true"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
	DeletedAt   gorm.DeletedAt  `gorm:"column:deleted_at;index"`
}

func (Product) TableName() string { return "products" }

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.UUID == uuid.Nil {
		p.UUID = uuid.New()
	}
	return nil
}
