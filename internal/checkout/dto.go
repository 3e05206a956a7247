package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storelyhq/storely-backend/pkg/db/models"
)

// OrderDTO is the order payload returned after a successful checkout.
type OrderDTO struct {
	ID          uuid.UUID       `json:"id"`
	Reference   string          `json:"reference"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

func toOrderDTO(order *models.Order) *OrderDTO {
	return &OrderDTO{
		ID:          order.UUID,
		Reference:   order.Reference,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		CreatedAt:   order.CreatedAt,
	}
}
